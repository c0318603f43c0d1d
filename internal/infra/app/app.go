package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/port"
	"github.com/AudereSemper/kokoru-garden-api/internal/infra/config"
	"github.com/AudereSemper/kokoru-garden-api/internal/infra/database"
	kafkainfra "github.com/AudereSemper/kokoru-garden-api/internal/infra/kafka"
	"github.com/AudereSemper/kokoru-garden-api/internal/infra/logger"
	"github.com/AudereSemper/kokoru-garden-api/internal/infra/mail"
	"github.com/AudereSemper/kokoru-garden-api/internal/infra/oauth"
	redisinfra "github.com/AudereSemper/kokoru-garden-api/internal/infra/redis"
	"github.com/AudereSemper/kokoru-garden-api/internal/infra/security"
	"github.com/AudereSemper/kokoru-garden-api/internal/infra/telemetry"
	postgresrepo "github.com/AudereSemper/kokoru-garden-api/internal/repository/postgres"
	redisrepo "github.com/AudereSemper/kokoru-garden-api/internal/repository/redis"
	"github.com/AudereSemper/kokoru-garden-api/internal/transport/http/middleware"
	"github.com/AudereSemper/kokoru-garden-api/internal/transport/http/routes"
	"github.com/AudereSemper/kokoru-garden-api/internal/usecase"
)

type Application struct {
	cfg        *config.AppConfig
	engine     *gin.Engine
	logger     *zap.Logger
	pool       *pgxpool.Pool
	redis      *redisinfra.Client
	mailer     *mail.Dispatcher
	tracer     *telemetry.TracerProvider
	kafkaProd  *kafkainfra.Producer
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			log.Warn("failed to init tracer provider, continuing without tracing", zap.Error(err))
			tracer = nil
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	identityRepo := postgresrepo.NewIdentityRepository(pool)
	sessionStore := redisrepo.NewSessionRepository(redisClient.Client())
	lockoutGuard := redisrepo.NewLockoutRepository(redisClient.Client(), redisrepo.LockoutConfig{
		MaxLoginAttempts: cfg.Lockout.MaxLoginAttempts,
		LockoutWindow:    cfg.Lockout.Window,
		ResendCooldown:   cfg.Lockout.ResendCooldown,
	})

	hasher := security.NewArgon2Hasher(port.Argon2Params{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	policy := security.NewPasswordPolicy(security.DefaultPasswordPolicyConfig())

	tokenService, err := security.NewTokenService(security.TokenConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		AccessTTL:     security.ParseLifetime(cfg.JWT.AccessLifetime, log),
		RefreshTTL:    security.ParseLifetime(cfg.JWT.RefreshLifetime, log),
	}, sessionStore, log)
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init token service: %w", err)
	}

	googleAdapter, err := oauth.NewGoogleAdapter(oauth.GoogleConfig{
		ClientID:     cfg.OAuth.GoogleClientID,
		ClientSecret: cfg.OAuth.GoogleClientSecret,
		RedirectURL:  cfg.OAuth.GoogleRedirectURL,
	}, log)
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init google federation: %w", err)
	}

	mailer := mail.NewDispatcher(mail.NewLoggingSender(log), log)

	var eventPublisher port.EventPublisher
	var kafkaProducer *kafkainfra.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
			kafkaProducer = nil
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	authService := usecase.NewAuthService(
		identityRepo,
		tokenService,
		hasher,
		policy,
		lockoutGuard,
		googleAdapter,
		mailer,
		eventPublisher,
		log,
	)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitStore(redisClient.Client(), "auth:throttle", rateLimitWindow*2)
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		log.Warn("failed to init http metrics", zap.Error(err))
		metrics = nil
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Auth:        authService,
		Tokens:      tokenService,
		Metrics:     metrics,
		Database:    pool,
		Cache:       redisClient,
	})

	return &Application{
		cfg:       cfg,
		engine:    engine,
		logger:    log,
		pool:      pool,
		redis:     redisClient,
		mailer:    mailer,
		tracer:    tracer,
		kafkaProd: kafkaProducer,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.mailer != nil {
			a.mailer.Close()
		}
	}()
	defer func() {
		if a.kafkaProd != nil {
			_ = a.kafkaProd.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = a.tracer.Shutdown(shutdownCtx)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
