package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"custos/internal/audit"
	"custos/internal/authz"
	authzhandler "custos/internal/authz/handler"
	authzmetrics "custos/internal/authz/metrics"
	"custos/internal/mirror"
	mirrorhandler "custos/internal/mirror/handler"
	"custos/internal/ownership"
	ownershiphandler "custos/internal/ownership/handler"
	"custos/internal/platform/config"
	"custos/internal/platform/httpserver"
	"custos/internal/platform/logger"
	"custos/internal/platform/metrics"
	platformredis "custos/internal/platform/redis"
	"custos/internal/registry/access"
	registryhandler "custos/internal/registry/handler"
	registrymetrics "custos/internal/registry/metrics"
	registryservice "custos/internal/registry/service"
	"custos/internal/registry/store"
	"custos/internal/resolver"
	"custos/internal/token"
	httptransport "custos/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal feature packages.
func main() {
	log := logger.New()
	slog.SetDefault(log)

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Attribute store: Postgres when configured, in-memory otherwise.
	var attrStore store.Store
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		pg := store.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("failed to prepare attribute schema", "error", err)
			os.Exit(1)
		}
		attrStore = pg
	} else {
		attrStore = store.NewInMemory()
	}

	// Ownership singleton, seeded exactly once from config.
	ownershipStore := ownership.NewInMemoryStore()
	if err := ownershipStore.Init(ctx, cfg.OwnerAddress); err != nil {
		log.Error("failed to initialize ownership", "error", err)
		os.Exit(1)
	}
	ownershipSvc := ownership.NewService(ownershipStore, ownership.WithLogger(log))

	// Sync broadcaster, optionally pre-registered with a Redis mirror.
	broadcaster := mirror.NewBroadcaster()
	if cfg.RedisURL != "" {
		client, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to redis mirror", "error", err)
			os.Exit(1)
		}
		defer func() { _ = client.Close() }()
		broadcaster.SetTarget(mirror.NewRedisTarget(client.Client))
	}

	// Audit pipeline: channel publisher, background worker, optional sinks.
	var auditStore audit.Store
	if cfg.PostgresURL != "" {
		db, err := audit.OpenPostgres(cfg.PostgresURL)
		if err != nil {
			log.Error("failed to open audit store", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		pg := audit.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("failed to prepare audit schema", "error", err)
			os.Exit(1)
		}
		auditStore = pg
	} else {
		auditStore = audit.NewInMemoryStore()
	}
	var auditSink audit.Sink
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer sink.Close()
		auditSink = sink
	}
	publisher := audit.NewPublisher(256)
	worker := audit.NewWorker(auditStore, auditSink, publisher.Inbox(), log)

	// Domain services.
	platformMetrics := metrics.New()
	accessCtl := access.NewController(ownershipSvc, attrStore)
	registrySvc := registryservice.New(attrStore, accessCtl, broadcaster, publisher,
		registryservice.WithLogger(log),
		registryservice.WithMetrics(registrymetrics.New()),
	)
	engine := authz.NewEngine(attrStore, resolver.New(attrStore),
		authz.WithMetrics(authzmetrics.New()),
	)
	mirrorSvc := mirror.NewService(broadcaster, ownershipSvc, attrStore, publisher, mirror.WithLogger(log))

	tokens := token.NewService(cfg.JWTSigningKey, "custos", "custos-admin")
	router := httptransport.NewRouter(tokens, log, platformMetrics,
		registryhandler.New(registrySvc, log),
		authzhandler.New(engine, log),
		mirrorhandler.New(mirrorSvc, log),
		ownershiphandler.New(ownershipSvc, log),
	)

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting custos registry", "addr", cfg.Addr, "owner", cfg.OwnerAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		if err := worker.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
