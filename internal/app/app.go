package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aidar/challenge-portal/internal/catalog"
	"github.com/aidar/challenge-portal/internal/config"
	"github.com/aidar/challenge-portal/internal/handler"
	"github.com/aidar/challenge-portal/internal/middleware"
	"github.com/aidar/challenge-portal/internal/repository/postgres"
	redisstore "github.com/aidar/challenge-portal/internal/repository/redis"
	"github.com/aidar/challenge-portal/internal/service"
)

// App представляет приложение со всеми зависимостями
type App struct {
	config *config.Config
	db     *pgxpool.Pool
	redis  *redis.Client
	server *http.Server
	logger *slog.Logger
}

// New создает новый экземпляр приложения
func New(cfg *config.Config) (*App, error) {
	// Инициализируем структурированный логгер (JSON формат)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	app := &App{
		config: cfg,
		logger: logger,
	}

	return app, nil
}

// Initialize инициализирует все компоненты приложения
func (a *App) Initialize(ctx context.Context) error {
	// Подключаемся к базе данных
	if err := a.connectDB(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Подключаемся к Redis (хранилище сессий)
	if err := a.connectRedis(ctx); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	// Настраиваем HTTP сервер и роутинг
	if err := a.setupServer(ctx); err != nil {
		return fmt.Errorf("failed to setup server: %w", err)
	}

	a.logger.Info("Application initialized successfully")
	return nil
}

// connectDB устанавливает подключение к PostgreSQL с connection pool
func (a *App) connectDB(ctx context.Context) error {
	poolConfig, err := pgxpool.ParseConfig(a.config.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to parse database config: %w", err)
	}

	// Настраиваем размеры connection pool
	poolConfig.MaxConns = a.config.Database.MaxConns
	poolConfig.MinConns = a.config.Database.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Проверяем подключение к БД
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.db = pool
	a.logger.Info("Connected to database")
	return nil
}

// connectRedis устанавливает подключение к Redis
func (a *App) connectRedis(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:     a.config.Redis.Addr,
		Password: a.config.Redis.Password,
		DB:       a.config.Redis.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	a.redis = client
	a.logger.Info("Connected to redis", "addr", a.config.Redis.Addr)
	return nil
}

// setupServer инициализирует HTTP роутер и обработчики
func (a *App) setupServer(ctx context.Context) error {
	cfg := a.config

	// Каталог маршрутов и политика доступа
	routeCatalog, err := catalog.Load(cfg.Tracks.CatalogPath)
	if err != nil {
		return err
	}

	accessPolicy, err := service.NewAccessPolicy(ctx, service.AccessRules{
		UserEmails:       cfg.Access.UserEmails,
		AdminEmails:      cfg.Access.AdminEmails,
		OpenRegistration: cfg.Access.OpenRegistration,
		EmailDomain:      cfg.Registration.EmailDomain,
	})
	if err != nil {
		return err
	}

	// Инициализируем слой репозиториев
	memberRepo := postgres.NewMemberRepository(a.db)
	teamRepo := postgres.NewTeamRepository(a.db)
	sessionStore := redisstore.NewSessionStore(a.redis, cfg.Redis.SessionTTL)

	// Инициализируем слой сервисов (бизнес-логика)
	retrier := service.NewRetrier(service.RetryPolicy{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
	}, a.logger)
	validator := service.NewValidator(cfg.Registration.EmailDomain)
	resolver := service.NewStepResolver(memberRepo, a.logger)

	sessionService := service.NewSessionService(sessionStore)
	authService := service.NewAuthService(
		sessionService,
		accessPolicy,
		resolver,
		a.logger,
		cfg.JWT.Secret,
		cfg.JWT.GetExpiration(),
	)
	registrationService := service.NewRegistrationService(
		memberRepo,
		teamRepo,
		sessionStore,
		validator,
		retrier,
		service.RegistrationSettings{
			Capacity:             cfg.Registration.Capacity,
			TeamCapacity:         cfg.Registration.TeamCapacity,
			SubmitCooldown:       cfg.Registration.SubmitCooldown,
			ReadmitOnFinalSubmit: cfg.Registration.ReadmitOnFinalSubmit,
		},
		a.logger,
	)
	teamService := service.NewTeamService(teamRepo, memberRepo, retrier, cfg.Registration.TeamCapacity)
	routeService := service.NewRouteService(routeCatalog, a.logger)
	adminService := service.NewAdminService(memberRepo, teamRepo, validator, a.logger, cfg.Registration.TeamCapacity)
	statsService := service.NewStatsService(memberRepo, teamRepo, cfg.Registration.Capacity, cfg.Registration.TeamCapacity)

	// Инициализируем HTTP обработчики
	authHandler := handler.NewAuthHandler(authService)
	registrationHandler := handler.NewRegistrationHandler(registrationService, teamService, routeService)
	teamHandler := handler.NewTeamHandler(teamService)
	routeHandler := handler.NewRouteHandler(routeService)
	adminHandler := handler.NewAdminHandler(adminService)
	statsHandler := handler.NewStatsHandler(statsService)

	// Middleware авторизации и ограничения частоты запросов
	authMiddleware := middleware.AuthMiddleware(authService)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	// Настраиваем роутер
	r := chi.NewRouter()

	// Глобальные middleware (применяются ко всем запросам)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Health check для мониторинга
	r.Get("/health", a.health)

	// Публичные эндпоинты (без авторизации)
	r.Route("/auth", func(r chi.Router) {
		r.With(limiter.Middleware).Post("/login", authHandler.Login)
		r.With(authMiddleware).Post("/logout", authHandler.Logout)
	})

	r.Get("/routes", routeHandler.List)
	r.Get("/routes/{route}", routeHandler.Get)
	r.Get("/routes/{route}/gpx", routeHandler.GPX)

	// Защищенные эндпоинты (требуют токен сессии в заголовке Authorization)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/teams", teamHandler.ListTeams)

		r.Route("/registration", func(r chi.Router) {
			r.Get("/next", registrationHandler.Next)
			r.Get("/draft", registrationHandler.GetDraft)
			r.Delete("/draft", registrationHandler.ResetDraft)
			r.Post("/personal", registrationHandler.Personal)
			r.Post("/team", registrationHandler.Team)
			r.Post("/route", registrationHandler.Route)
			r.Post("/logistics", registrationHandler.Logistics)
			r.Get("/review", registrationHandler.Review)
			r.With(limiter.Middleware).Post("/submit", registrationHandler.Submit)
			r.Get("/details", registrationHandler.Details)
		})

		// Админ-панель
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Get("/members", adminHandler.ListMembers)
			r.Patch("/members/{id}", adminHandler.UpdateMember)
			r.Delete("/members/{id}", adminHandler.DeleteMember)
			r.Get("/teams", adminHandler.ListTeams)
			r.Delete("/teams/{id}", adminHandler.DeleteTeam)
			r.Get("/export", adminHandler.Export)
			r.Get("/stats", statsHandler.GetStats)
		})
	})

	// Создаем HTTP сервер с настройками таймаутов
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	a.server = &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(r, "challenge-portal"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	a.logger.Info("HTTP server configured", "addr", addr)
	return nil
}

// health проверяет доступность БД и Redis
func (a *App) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := `{"status":"ok"}`
	if err := a.db.Ping(ctx); err != nil {
		a.logger.Error("Health check: database unavailable", "error", err)
		status, body = http.StatusServiceUnavailable, `{"status":"unavailable"}`
	} else if err := a.redis.Ping(ctx).Err(); err != nil {
		a.logger.Error("Health check: redis unavailable", "error", err)
		status, body = http.StatusServiceUnavailable, `{"status":"unavailable"}`
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		a.logger.Error("Failed to write health check response", "error", err)
	}
}

// Handler возвращает корневой HTTP обработчик (используется в тестах)
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run запускает HTTP сервер
func (a *App) Run() error {
	a.logger.Info("Starting HTTP server", "addr", a.server.Addr)
	return a.server.ListenAndServe()
}

// Shutdown корректно останавливает приложение
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application")

	// Останавливаем HTTP сервер (ждем завершения текущих запросов)
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	// Закрываем подключения к Redis и базе данных
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("Failed to close redis client", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}

	a.logger.Info("Application stopped gracefully")
	return nil
}
