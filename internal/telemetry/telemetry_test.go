package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aidar/challenge-portal/internal/config"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TelemetryConfig{ServiceName: "challenge-portal"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address, nothing is exported before shutdown
	shutdown, err := Setup(context.Background(), config.TelemetryConfig{
		OTLPEndpoint: "http://192.0.2.1:4318",
		ServiceName:  "challenge-portal-test",
	})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
