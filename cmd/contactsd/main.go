package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/goContacts/internal/audit"
	"github.com/MrEthical07/goContacts/internal/auth"
	"github.com/MrEthical07/goContacts/internal/config"
	"github.com/MrEthical07/goContacts/internal/contacts"
	"github.com/MrEthical07/goContacts/internal/httpapi"
	"github.com/MrEthical07/goContacts/internal/logging"
	"github.com/MrEthical07/goContacts/internal/mailer"
	"github.com/MrEthical07/goContacts/internal/media"
	"github.com/MrEthical07/goContacts/internal/rate"
	"github.com/MrEthical07/goContacts/internal/storage"
	"github.com/MrEthical07/goContacts/internal/users"
	"github.com/MrEthical07/goContacts/metrics"
	promexport "github.com/MrEthical07/goContacts/metrics/export/prometheus"
	"github.com/MrEthical07/goContacts/password"
	"github.com/MrEthical07/goContacts/token"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("contactsd stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	m := metrics.New(metrics.Config{Enabled: cfg.MetricsEnabled, EnableLatencyHistograms: cfg.MetricsEnabled})
	health := map[string]httpapi.HealthCheck{}

	stopOTel, err := startOTelMetrics(ctx, cfg.OTelMetricsEndpoint, cfg.OTelMetricsInterval, m, logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := stopOTel(flushCtx); err != nil {
			logger.Warn("otlp metrics shutdown", zap.Error(err))
		}
	}()

	dispatcher := audit.NewDispatcher(audit.Config{
		Enabled:    cfg.AuditSink != "none",
		BufferSize: cfg.AuditBuffer,
		DropIfFull: true,
	}, auditSink(cfg.AuditSink, logger))
	defer func() {
		dispatcher.Close()
		for _, eventType := range audit.EventTypes {
			if n := dispatcher.DroppedByType(eventType); n > 0 {
				logger.Warn("audit events dropped", zap.String("event_type", eventType), zap.Uint64("count", n))
			}
		}
	}()
	m.TrackAuditDropped(dispatcher.Dropped)

	dir, contactRepo, closeDB, err := openStorage(ctx, cfg, logger, health)
	if err != nil {
		return err
	}
	defer closeDB()

	store, closeRedis, err := openRateStore(cfg, health)
	if err != nil {
		return err
	}
	defer closeRedis()

	def, routes, err := cfg.RatePolicies()
	if err != nil {
		return err
	}
	failurePolicy, err := rate.ParseFailurePolicy(cfg.RateLimitFailurePolicy)
	if err != nil {
		return err
	}
	limiter, err := rate.New(rate.Config{
		Store:         store,
		Default:       def,
		Routes:        routes,
		FailurePolicy: failurePolicy,
		StoreTimeout:  cfg.RateLimitStoreTimeout,
		Logger:        logger,
		Metrics:       m,
	})
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	codec, err := token.NewCodec(token.Config{Secret: []byte(cfg.JWTSecret), Issuer: cfg.JWTIssuer})
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}
	hasher, err := password.New(password.DefaultConfig())
	if err != nil {
		return fmt.Errorf("password hasher: %w", err)
	}

	sender, closeMail, err := openMailer(cfg, logger)
	if err != nil {
		return err
	}
	defer closeMail()

	var avatars auth.AvatarStore
	if cfg.S3Bucket != "" {
		s3Store, err := media.NewS3Store(ctx, media.S3Config{
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Bucket:       cfg.S3Bucket,
			PublicURL:    cfg.S3PublicURL,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if err != nil {
			return fmt.Errorf("avatar store: %w", err)
		}
		avatars = s3Store
	} else {
		logger.Warn("S3_BUCKET not set, avatar uploads disabled")
	}

	authSvc, err := auth.New(auth.Config{
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		ConfirmTTL:    cfg.ConfirmTokenTTL,
		RevokeOnReuse: cfg.RevokeOnReuse,
	}, auth.Deps{
		Codec:     codec,
		Hasher:    hasher,
		Directory: dir,
		Mailer:    sender,
		Avatars:   avatars,
		Audit:     dispatcher,
		Metrics:   m,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	exporter := promexport.NewExporter(m)
	srv, err := httpapi.New(httpapi.Options{
		ReadTimeout:    cfg.HTTPReadTimeout,
		WriteTimeout:   cfg.HTTPWriteTimeout,
		RequestTimeout: cfg.RequestTimeout,
		AvatarMaxBytes: cfg.AvatarMaxBytes,
	}, httpapi.Deps{
		Auth:     authSvc,
		Contacts: contacts.NewService(contactRepo, m, logger, nil),
		Limiter:  limiter,
		Metrics:  promhttp.HandlerFor(exporter.Registry(cfg.MetricsRuntime), promhttp.HandlerOpts{}),
		Health:   health,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.HTTPAddr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func auditSink(kind string, logger *zap.Logger) audit.Sink {
	switch kind {
	case "json":
		return audit.NewJSONWriterSink(os.Stdout)
	case "zap":
		return audit.NewZapSink(logger)
	default:
		return audit.NoOpSink{}
	}
}

// openStorage returns Postgres repositories when a DSN is configured and
// in-memory ones otherwise.
func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger, health map[string]httpapi.HealthCheck) (auth.Directory, contacts.Repository, func(), error) {
	if cfg.DatabaseDSN == "" {
		logger.Warn("DATABASE_DSN not set, keeping accounts and contacts in memory")
		return users.NewMemoryDirectory(), contacts.NewMemoryRepository(), func() {}, nil
	}

	db, err := storage.Open(ctx, cfg.DatabaseDSN, storage.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.MigrateOnStart {
		if err := storage.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		logger.Info("database migrations applied")
	}
	health["postgres"] = pingDB(db)
	return users.NewPostgresDirectory(db), contacts.NewPostgresRepository(db), func() { _ = db.Close() }, nil
}

func pingDB(db *sql.DB) httpapi.HealthCheck {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}

func openRateStore(cfg *config.Config, health map[string]httpapi.HealthCheck) (rate.Store, func(), error) {
	if cfg.RateLimitBackend == "memory" {
		return rate.NewMemoryStore(nil), func() {}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.RedisAddr},
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	health["redis"] = func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
	return rate.NewRedisStore(client), func() { _ = client.Close() }, nil
}

func openMailer(cfg *config.Config, logger *zap.Logger) (auth.Mailer, func(), error) {
	renderer, err := mailer.NewRenderer(cfg.PublicBaseURL, nil)
	if err != nil {
		return nil, nil, err
	}
	if cfg.MailBackend != "kafka" {
		return mailer.NewLogSender(renderer, logger), func() {}, nil
	}

	sender, err := mailer.NewKafkaSender(mailer.KafkaConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaTopic,
		WriteTimeout: 5 * time.Second,
	}, renderer, logger)
	if err != nil {
		return nil, nil, err
	}
	return sender, func() {
		if err := sender.Close(); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("kafka writer close", zap.Error(err))
		}
	}, nil
}
