package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aidar/challenge-portal/internal/app"
	"github.com/aidar/challenge-portal/internal/config"
)

const adminEmail = "organiser@dxc.com"

// TestEnvironment содержит все ресурсы необходимые для интеграционных тестов
type TestEnvironment struct {
	PostgresContainer *postgres.PostgresContainer
	Redis             *miniredis.Miniredis
	App               *app.App
	Server            *httptest.Server
	DB                *pgxpool.Pool
	ctx               context.Context
}

// SetupTestEnvironment создает и инициализирует полное тестовое окружение
func SetupTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	ctx := context.Background()

	pgContainer, connStr := startPostgres(t)
	projectRoot := getProjectRoot(t)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	// Redis для сессий
	redisServer := miniredis.RunT(t)

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0", Host: "127.0.0.1"},
		Database: config.DatabaseConfig{
			Host:     host,
			Port:     port.Port(),
			User:     "test_user",
			Password: "test_password",
			Name:     "challenge_portal_test",
			SSLMode:  "disable",
			MaxConns: 10,
			MinConns: 1,
		},
		Redis: config.RedisConfig{Addr: redisServer.Addr(), SessionTTL: time.Hour},
		JWT: config.JWTConfig{
			Secret:          "test-jwt-secret-key-for-integration-tests",
			ExpirationHours: 1,
		},
		Registration: config.RegistrationConfig{
			Capacity:       200,
			TeamCapacity:   5,
			SubmitCooldown: 30 * time.Second,
			EmailDomain:    "dxc.com",
		},
		Tracks: config.TracksConfig{CatalogPath: filepath.Join(projectRoot, "assets", "routes.yaml")},
		Access: config.AccessConfig{
			AdminEmails:      []string{adminEmail},
			OpenRegistration: true,
		},
		Retry:     config.RetryConfig{MaxAttempts: 2, InitialInterval: 10 * time.Millisecond, MaxInterval: 50 * time.Millisecond},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
	}

	// Создаем и инициализируем приложение
	application, err := app.New(cfg)
	require.NoError(t, err, "Failed to create application")

	err = application.Initialize(ctx)
	require.NoError(t, err, "Failed to initialize application")

	server := httptest.NewServer(application.Handler())

	// Подключение к БД для прямых запросов в тестах
	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	return &TestEnvironment{
		PostgresContainer: pgContainer,
		Redis:             redisServer,
		App:               application,
		Server:            server,
		DB:                pool,
		ctx:               ctx,
	}
}

// Cleanup очищает все тестовые ресурсы
func (te *TestEnvironment) Cleanup(t *testing.T) {
	t.Helper()

	if te.Server != nil {
		te.Server.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if te.App != nil {
		_ = te.App.Shutdown(shutdownCtx)
	}

	if te.DB != nil {
		te.DB.Close()
	}

	if te.PostgresContainer != nil {
		_ = te.PostgresContainer.Terminate(te.ctx)
	}
}

// startPostgres запускает PostgreSQL контейнер с примененными миграциями
func startPostgres(t *testing.T) (*postgres.PostgresContainer, string) {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("challenge_portal_test"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	// Применяем миграции
	applyMigrations(t, connStr, getProjectRoot(t))

	return pgContainer, connStr
}

// applyMigrations применяет миграции БД
func applyMigrations(t *testing.T, connStr, projectRoot string) {
	t.Helper()

	db, err := sql.Open("pgx/v5", connStr)
	require.NoError(t, err, "Failed to open database connection")
	defer db.Close()

	migrationSQL, err := os.ReadFile(filepath.Join(projectRoot, "migrations", "000001_init_schema.up.sql"))
	require.NoError(t, err, "Failed to read migration file")

	_, err = db.Exec(string(migrationSQL))
	require.NoError(t, err, "Failed to apply migration")

	t.Log("Migrations applied successfully")
}

// getProjectRoot возвращает корневую директорию проекта
func getProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("Could not find project root (go.mod not found)")
		}
		dir = parent
	}
}

// IDToken выпускает токен провайдера идентификации для пользователя
func IDToken(t *testing.T, email, name string) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"preferred_username": email,
		"name":               name,
		"exp":                time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("identity-provider-test-key"))
	require.NoError(t, err)
	return token
}

// MakeRequest вспомогательная функция для HTTP запросов в тестах
func (te *TestEnvironment) MakeRequest(t *testing.T, method, path string, body string, token string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, te.Server.URL+path, reader)
	require.NoError(t, err, "Failed to create request")

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Do(req)
	require.NoError(t, err, "Failed to make request")

	return resp
}

// DecodeJSON читает и закрывает тело ответа
func DecodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// Login выполняет вход и возвращает токен сессии
func (te *TestEnvironment) Login(t *testing.T, email, name string) string {
	t.Helper()

	resp := te.MakeRequest(t, http.MethodPost, "/auth/login", `{"id_token":"`+IDToken(t, email, name)+`"}`, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Token string `json:"token"`
	}
	DecodeJSON(t, resp, &result)
	require.NotEmpty(t, result.Token)
	return result.Token
}

// WaitForHealthCheck ждет пока приложение станет доступным
func (te *TestEnvironment) WaitForHealthCheck(t *testing.T) {
	t.Helper()

	for i := 0; i < 30; i++ {
		resp, err := http.Get(te.Server.URL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Fatal("Application did not become healthy in time")
}
