package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server       ServerConfig       // Настройки HTTP сервера
	Database     DatabaseConfig     // Настройки подключения к БД
	Redis        RedisConfig        // Хранилище сессий
	JWT          JWTConfig          // Настройки JWT авторизации
	Registration RegistrationConfig // Правила допуска участников
	Tracks       TracksConfig       // Каталог маршрутов
	Access       AccessConfig       // Списки доступа
	Retry        RetryConfig        // Повторы обращений к БД
	Telemetry    TelemetryConfig    // Трассировка
	RateLimit    RateLimitConfig    // Ограничение частоты запросов
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port string `envconfig:"SERVER_PORT" default:"8080"`
	Host string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"portal"`
	Password string `envconfig:"DB_PASSWORD" default:"portal_pass"`
	Name     string `envconfig:"DB_NAME" default:"challenge_portal"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`
}

// RedisConfig содержит настройки Redis для хранения сессий
type RedisConfig struct {
	Addr       string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password   string        `envconfig:"REDIS_PASSWORD"`
	DB         int           `envconfig:"REDIS_DB" default:"0"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"12h"`
}

// JWTConfig содержит настройки JWT авторизации
type JWTConfig struct {
	Secret          string `envconfig:"JWT_SECRET" required:"true"`
	ExpirationHours int    `envconfig:"JWT_EXPIRATION_HOURS" default:"12"`
}

// RegistrationConfig содержит правила допуска и отправки регистрации
type RegistrationConfig struct {
	Capacity             int           `envconfig:"REGISTRATION_CAPACITY" default:"200"`
	TeamCapacity         int           `envconfig:"REGISTRATION_TEAM_CAPACITY" default:"5"`
	SubmitCooldown       time.Duration `envconfig:"REGISTRATION_SUBMIT_COOLDOWN" default:"30s"`
	EmailDomain          string        `envconfig:"REGISTRATION_EMAIL_DOMAIN" default:"dxc.com"`
	ReadmitOnFinalSubmit bool          `envconfig:"REGISTRATION_READMIT_ON_FINAL_SUBMIT" default:"false"`
}

// TracksConfig содержит путь к каталогу маршрутов
type TracksConfig struct {
	CatalogPath string `envconfig:"TRACKS_CATALOG" default:"assets/routes.yaml"`
}

// AccessConfig содержит списки пользователей и администраторов
type AccessConfig struct {
	UserEmails       []string `envconfig:"ACCESS_USER_EMAILS"`
	AdminEmails      []string `envconfig:"ACCESS_ADMIN_EMAILS"`
	OpenRegistration bool     `envconfig:"ACCESS_OPEN_REGISTRATION" default:"false"`
}

// RetryConfig содержит параметры повторов при временных ошибках хранилища
type RetryConfig struct {
	MaxAttempts     uint64        `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	InitialInterval time.Duration `envconfig:"RETRY_INITIAL_INTERVAL" default:"100ms"`
	MaxInterval     time.Duration `envconfig:"RETRY_MAX_INTERVAL" default:"1s"`
}

// TelemetryConfig содержит настройки экспорта трейсов. Пустой endpoint отключает экспорт.
type TelemetryConfig struct {
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `envconfig:"OTEL_SERVICE_NAME" default:"challenge-portal"`
}

// RateLimitConfig содержит настройки ограничения частоты запросов на IP
type RateLimitConfig struct {
	RequestsPerSecond float64 `envconfig:"RATE_LIMIT_RPS" default:"2"`
	Burst             int     `envconfig:"RATE_LIMIT_BURST" default:"5"`
}

// GetExpiration возвращает срок действия токена как time.Duration
func (j JWTConfig) GetExpiration() time.Duration {
	return time.Duration(j.ExpirationHours) * time.Hour
}

// DSN возвращает строку подключения к PostgreSQL
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// Load читает конфигурацию из переменных окружения
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.Access.UserEmails = normalizeEmails(cfg.Access.UserEmails)
	cfg.Access.AdminEmails = normalizeEmails(cfg.Access.AdminEmails)
	cfg.Registration.EmailDomain = strings.ToLower(strings.TrimPrefix(cfg.Registration.EmailDomain, "@"))

	if cfg.Registration.Capacity <= 0 {
		return nil, fmt.Errorf("failed to load config: REGISTRATION_CAPACITY must be positive")
	}
	if cfg.Registration.TeamCapacity <= 0 {
		return nil, fmt.Errorf("failed to load config: REGISTRATION_TEAM_CAPACITY must be positive")
	}

	return &cfg, nil
}

func normalizeEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
