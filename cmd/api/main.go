package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-api-social/internal/config"
	"github.com/go-api-social/internal/infrastructure/dynamo"
	"github.com/go-api-social/internal/infrastructure/emailtoken"
	jwtinfra "github.com/go-api-social/internal/infrastructure/jwt"
	"github.com/go-api-social/internal/infrastructure/postgres"
	redisinfra "github.com/go-api-social/internal/infrastructure/redis"
	s3infra "github.com/go-api-social/internal/infrastructure/s3"
	"github.com/go-api-social/internal/infrastructure/smtp"
	"github.com/go-api-social/internal/infrastructure/sns"
	stripeinfra "github.com/go-api-social/internal/infrastructure/stripe"
	"github.com/go-api-social/internal/infrastructure/totp"
	"github.com/go-api-social/internal/observability/metrics"
	"github.com/go-api-social/internal/pkg/logging"
	transporthttp "github.com/go-api-social/internal/transport/http"
	"github.com/go-api-social/internal/transport/http/handler"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	slog.SetDefault(logging.NewLogger(logging.Config{
		ServiceName: "go-api-social",
		Environment: cfg.AppEnv,
		Level:       cfg.LogLevel,
		File:        cfg.LogFile,
	}))
	if envErr != nil {
		slog.Info("no .env file found, reading from environment")
	}

	if err := run(cfg); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	db, err := postgres.Open(postgres.Config{DSN: cfg.DatabaseURL, LogSQL: cfg.DBLogSQL})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	defer sqlDB.Close()
	if err := postgres.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("jwt provider: %w", err)
	}
	if cfg.SecretKey == "" {
		return errors.New("SECRET_KEY is required")
	}

	checks := []handler.Check{{Name: "postgres", Ping: sqlDB.PingContext}}

	// Replay guard: Redis when configured, otherwise in-process.
	var guard transporthttp.CodeGuard = redisinfra.NewMemoryGuard(totp.ReplayWindow())
	if cfg.RedisAddr != "" {
		rdb, err := redisinfra.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		guard = redisinfra.NewCodeGuard(rdb, totp.ReplayWindow())
		checks = append(checks, handler.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	} else {
		slog.Warn("REDIS_ADDR not set, TOTP replay guard is process-local")
	}

	s3Client, err := s3infra.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("s3 client: %w", err)
	}

	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("dynamo client: %w", err)
	}
	if err := dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables); err != nil {
		return fmt.Errorf("dynamo bootstrap: %w", err)
	}

	publisher, err := sns.NewPublisher(ctx, cfg)
	if err != nil {
		return fmt.Errorf("sns publisher: %w", err)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	deps := &transporthttp.Deps{
		Store:       postgres.New(db),
		JWTProvider: jwtProvider,
		EmailTokens: emailtoken.NewSigner(cfg.SecretKey, cfg.EmailTokenMaxAge),
		TOTP:        totp.New(cfg.TOTPIssuer),
		CodeGuard:   guard,
		Objects:     s3infra.NewStore(s3Client, cfg.S3BucketName),
		Mailer:      smtp.NewMailer(cfg),
		Payments: stripeinfra.NewGateway(stripeinfra.Config{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			FrontendURL:   cfg.FrontendURL,
			PriceCents:    cfg.PremiumPriceCents,
		}),
		Ledger:    dynamo.NewEventLedger(dynamoClient, cfg.DynamoTables.StripeEvents),
		Publisher: publisher,
		Checks:    checks,
		Now:       time.Now,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps, nil),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
