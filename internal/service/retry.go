package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aidar/challenge-portal/internal/domain"
)

// RetryPolicy bounds the retries around storage calls
type RetryPolicy struct {
	MaxAttempts     uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// NoRetry runs every operation exactly once
var NoRetry = RetryPolicy{MaxAttempts: 1}

// Retrier retries storage operations that failed transiently
type Retrier struct {
	policy RetryPolicy
	logger *slog.Logger
}

// NewRetrier creates a new Retrier
func NewRetrier(policy RetryPolicy, logger *slog.Logger) *Retrier {
	if policy.MaxAttempts == 0 {
		policy.MaxAttempts = 1
	}
	return &Retrier{policy: policy, logger: logger}
}

// Read retries an idempotent operation on any infrastructure error
func (r *Retrier) Read(ctx context.Context, name string, op func() error) error {
	return r.do(ctx, name, op, func(error) bool { return true })
}

// Write retries only when the driver reports the failed statement was never sent
func (r *Retrier) Write(ctx context.Context, name string, op func() error) error {
	return r.do(ctx, name, op, pgconn.SafeToRetry)
}

func (r *Retrier) do(ctx context.Context, name string, op func() error, transient func(error) bool) error {
	b := backoff.NewExponentialBackOff()
	if r.policy.InitialInterval > 0 {
		b.InitialInterval = r.policy.InitialInterval
	}
	if r.policy.MaxInterval > 0 {
		b.MaxInterval = r.policy.MaxInterval
	}
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, r.policy.MaxAttempts-1), ctx)

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isDomainError(err) || errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) || !transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		r.logger.Warn("Storage operation failed, retrying", "operation", name, "error", err, "wait", wait)
	}

	return backoff.RetryNotify(wrapped, policy, notify)
}

// isDomainError reports errors that describe the request, not the infrastructure
func isDomainError(err error) bool {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return true
	}
	return domain.MapErrorToCode(err) != domain.CodeInternalError
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrMemberNotFound) ||
		errors.Is(err, domain.ErrTeamNotFound)
}
