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

	"github.com/go-co-op/gocron/v2"
	"github.com/valkey-io/valkey-go"
	"golang.org/x/sync/errgroup"

	"scoreboard/internal/api"
	"scoreboard/internal/auth"
	"scoreboard/internal/billing"
	"scoreboard/internal/cache"
	"scoreboard/internal/config"
	"scoreboard/internal/ingest"
	"scoreboard/internal/lock"
	"scoreboard/internal/logging"
	"scoreboard/internal/manager"
	"scoreboard/internal/messaging"
	"scoreboard/internal/metrics"
	"scoreboard/internal/ranking"
	"scoreboard/internal/recompute"
	"scoreboard/internal/storage"
)

const shutdownTimeout = 5 * time.Second

// @title Scoreboard API
// @version 1.0
// @description Multi-tenant competition scoring with per-tenant JWT
// @host localhost:8080
// @BasePath /
// @schemes http

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	metrics.Init()

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log, "scoreboard.log")
	if err != nil {
		return err
	}
	logger.Info("config_loaded", slog.String("lock_backend", cfg.Lock.Backend), slog.String("db_driver", cfg.Database.Driver))

	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	auth.SetSecret(cfg.Auth.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewStorage(cfg.Database.Driver, cfg.Database.URL, logger)
	if err != nil {
		return fmt.Errorf("failed to init directory db: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("directory_connected", slog.String("driver", cfg.Database.Driver))

	var valkeyClient valkey.Client
	if cfg.Valkey.Enabled {
		valkeyClient, err = valkey.NewClient(valkey.ClientOption{
			InitAddress: []string{cfg.Valkey.Addr},
			Password:    cfg.Valkey.Password,
			SelectDB:    cfg.Valkey.DB,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to valkey: %w", err)
		}
		defer valkeyClient.Close()
		logger.Info("valkey_connected", slog.String("addr", cfg.Valkey.Addr))
	}

	locker, closeLocker, err := newLocker(cfg, valkeyClient, logger)
	if err != nil {
		return err
	}
	defer closeLocker()
	guard := lock.NewGuard(locker, cfg.Lock.AcquireTimeout, logger)

	var results *cache.Results
	if valkeyClient != nil {
		results = cache.New(valkeyClient, logger)
	}

	var (
		rabbitClient *messaging.RabbitClient
		publisher    ingest.EventPublisher
	)
	if cfg.RabbitMQ.URL != "" {
		rabbitClient, err = messaging.NewRabbitClient(cfg.RabbitMQ.URL, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		defer rabbitClient.Close()
		publisher = rabbitClient
		logger.Info("rabbitmq_connected")
	}

	importer := ingest.NewImporter(db, guard, publisher, logger)
	rankingSvc := ranking.NewService(guard, results, db, logger)
	agg := billing.NewAggregator(db, guard, logger)

	tm := manager.NewTenantManager(rabbitClient, db, cfg.Shards.Dir, cfg.Workers, logger)
	defer tm.ShutdownAll()
	tm.SetMessageHandler(ctx, recompute.NewHandler(tm, rankingSvc, logger).Handle)
	if err := tm.RecoverTenants(ctx); err != nil {
		return fmt.Errorf("failed to recover tenants: %w", err)
	}

	if rabbitClient != nil {
		sched, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		_, err = sched.NewJob(
			gocron.DurationJob(10*time.Second),
			gocron.NewTask(tm.UpdateQueueDepths),
		)
		if err != nil {
			return fmt.Errorf("failed to schedule queue depth job: %w", err)
		}
		sched.Start()
		defer func() { _ = sched.Shutdown() }()
	}

	apiHandler := api.NewAPI(
		tm,
		db,
		importer,
		rankingSvc,
		agg,
		billing.NewFanout(db, tm, agg, cfg.Billing.FanoutConcurrency, logger),
		logger,
	)
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           apiHandler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server_start", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown_initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown_complete")
	return nil
}

// newLocker builds the tenant lock backend named in the config.
func newLocker(cfg *config.Config, client valkey.Client, logger *slog.Logger) (lock.Locker, func(), error) {
	noop := func() {}
	switch cfg.Lock.Backend {
	case config.LockBackendValkey:
		return lock.NewValkeyLocker(client, cfg.Lock.TTL, logger), noop, nil
	case config.LockBackendPostgres:
		l, err := lock.NewAdvisoryLocker(cfg.Database.URL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init advisory lock: %w", err)
		}
		return l, func() { _ = l.Close() }, nil
	default:
		l, err := lock.NewFileLocker(cfg.Lock.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init file lock: %w", err)
		}
		return l, noop, nil
	}
}
