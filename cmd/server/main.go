package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RichardoC/agroai/internal/api"
	"github.com/RichardoC/agroai/internal/auth"
	"github.com/RichardoC/agroai/internal/config"
	"github.com/RichardoC/agroai/internal/db"
	"github.com/RichardoC/agroai/internal/events"
	"github.com/RichardoC/agroai/internal/llm"
	"github.com/RichardoC/agroai/internal/metrics"
	"github.com/RichardoC/agroai/internal/oceandata"
	"github.com/RichardoC/agroai/internal/ratelimit"
	"github.com/RichardoC/agroai/internal/realtime"
	"github.com/RichardoC/agroai/internal/telemetry"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("AGROAI_CONFIG"), "path to config.yaml")
	flag.Parse()

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = multierr.Append(err, shutdownTracing(c))
	}()

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database %s: %w", cfg.Database.Path, err)
	}
	defer func() { err = multierr.Append(err, database.Close()) }()

	records, err := oceandata.NewRepository(database.Conn())
	if err != nil {
		return err
	}

	model, err := llm.NewModel(llm.ModelConfig{
		Backend: cfg.Assistant.Backend,
		BaseURL: cfg.Assistant.BaseURL,
		Model:   cfg.Assistant.Model,
		Token:   cfg.Assistant.Token,
		Seed:    cfg.Assistant.Seed,
	})
	if err != nil {
		return err
	}

	m := metrics.New()

	var publisher events.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		logger.Info("publishing events to kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic))
	}
	defer func() { err = multierr.Append(err, publisher.Close()) }()

	var rooms realtime.Broadcaster = realtime.NewHub()
	if cfg.NATS.URL != "" {
		n, err := realtime.NewNATS(ctx, cfg.NATS.URL, cfg.NATS.Stream, logger)
		if err != nil {
			return err
		}
		rooms = n
		logger.Info("chat rooms backed by nats", zap.String("url", cfg.NATS.URL))
	}
	defer func() { err = multierr.Append(err, rooms.Close()) }()

	var limiter *ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { err = multierr.Append(err, rdb.Close()) }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, rate limiting will fail open", zap.Error(err))
		}
		limiter = ratelimit.New(rdb, cfg.Redis.RateLimit, cfg.Redis.RateWindow, logger)
	}

	handler, err := api.NewHandler(api.Deps{
		DB:   database,
		Chat: llm.New(model, database, logger, llm.WithMetrics(m), llm.WithEvents(publisher)),
		Auth: auth.NewService(database, auth.Config{
			Secret:       cfg.Auth.Secret,
			TTL:          cfg.Auth.SessionTTL,
			CookieName:   cfg.Auth.CookieName,
			SecureCookie: cfg.Auth.SecureCookie,
		}),
		Records: records,
		Rooms:   rooms,
		Limiter: limiter,
		Metrics: m,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", cfg.Server.Addr),
			zap.String("backend", cfg.Assistant.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	c, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(c)
}
