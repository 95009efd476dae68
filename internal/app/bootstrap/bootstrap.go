package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	votingdao "votingdao/contexts/governance/voting-dao"
	"votingdao/contexts/governance/voting-dao/adapters/memory"
	postgresadapter "votingdao/contexts/governance/voting-dao/adapters/postgres"
	sqliteadapter "votingdao/contexts/governance/voting-dao/adapters/sqlite"
	"votingdao/contexts/governance/voting-dao/application/workers"
	"votingdao/contexts/governance/voting-dao/ports"
	"votingdao/internal/platform/config"
	"votingdao/internal/platform/db"
	"votingdao/internal/platform/httpserver"
	"votingdao/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server       *httpserver.Server
	module       votingdao.Module
	embedRelay   bool
	pollInterval time.Duration
	closers      []func() error
	logger       *slog.Logger
}

type WorkerApp struct {
	outboxRelay  workers.OutboxRelay
	pollInterval time.Duration
	closers      []func() error
	logger       *slog.Logger
}

// storage is the set of ports one backend provides.
type storage struct {
	tx          ports.Transactor
	proposals   ports.ProposalRepository
	votes       ports.VoteLedger
	idempotency ports.IdempotencyStore
	outbox      ports.OutboxRepository
	clock       ports.Clock
	idGen       ports.IDGenerator
	close       func() error
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return BuildAPIFromConfig(ctx, cfg)
}

func BuildAPIFromConfig(ctx context.Context, cfg config.Config) (*APIApp, error) {
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	publisher, closePublisher, err := openPublisher(ctx, cfg, logger)
	if err != nil {
		_ = store.close()
		return nil, err
	}

	module := newModule(cfg, store, publisher, logger)
	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:       server,
		module:       module,
		embedRelay:   cfg.EnableEmbeddedRelay,
		pollInterval: cfg.OutboxPollInterval,
		closers:      []func() error{closePublisher, store.close},
		logger:       logger,
	}, nil
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return BuildWorkerFromConfig(ctx, cfg)
}

func BuildWorkerFromConfig(ctx context.Context, cfg config.Config) (*WorkerApp, error) {
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn("worker uses process-local memory storage; no api writes will be relayed",
			"event", "bootstrap_worker_memory_storage",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	publisher, closePublisher, err := openPublisher(ctx, cfg, logger)
	if err != nil {
		_ = store.close()
		return nil, err
	}

	module := newModule(cfg, store, publisher, logger)
	return &WorkerApp{
		outboxRelay:  module.OutboxRelay,
		pollInterval: cfg.OutboxPollInterval,
		closers:      []func() error{closePublisher, store.close},
		logger:       logger,
	}, nil
}

// Run serves HTTP until ctx is cancelled. With the embedded relay enabled the
// outbox is drained in the same process.
func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"embedded_relay", a.embedRelay,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	relayDone := make(chan struct{})
	if a.embedRelay {
		go func() {
			defer close(relayDone)
			_ = a.module.OutboxRelay.Run(ctx, a.pollInterval)
		}()
	} else {
		close(relayDone)
	}

	err := a.server.Start(ctx)
	cancel()
	<-relayDone
	return err
}

func (a *APIApp) Module() votingdao.Module {
	return a.module
}

func (a *APIApp) Close() error {
	return closeAll(a.closers)
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)
	return w.outboxRelay.Run(ctx, w.pollInterval)
}

func (w *WorkerApp) Close() error {
	return closeAll(w.closers)
}

func newModule(cfg config.Config, store storage, publisher ports.EventPublisher, logger *slog.Logger) votingdao.Module {
	return votingdao.NewModule(votingdao.Dependencies{
		Tx:              store.tx,
		Proposals:       store.proposals,
		Votes:           store.votes,
		Idempotency:     store.idempotency,
		Outbox:          store.outbox,
		Publisher:       publisher,
		Clock:           store.clock,
		IDGen:           store.idGen,
		IdempotencyTTL:  cfg.IdempotencyTTL,
		OutboxBatchSize: cfg.OutboxBatchSize,
		Logger:          logger,
	})
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		store := memory.NewStore()
		return storage{
			tx:          store,
			proposals:   store,
			votes:       store,
			idempotency: store,
			outbox:      store,
			clock:       store,
			idGen:       store,
			close:       func() error { return nil },
		}, nil
	case config.StoragePostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return storage{}, errors.New("POSTGRES_DSN is required")
		}
		pg, err := db.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return storage{}, err
		}
		repo := postgresadapter.NewRepository(pg.DB, logger)
		if err := repo.Migrate(ctx); err != nil {
			_ = pg.Close()
			return storage{}, err
		}
		return storage{
			tx:          repo,
			proposals:   repo,
			votes:       repo,
			idempotency: repo,
			outbox:      repo,
			clock:       postgresadapter.SystemClock{},
			idGen:       postgresadapter.UUIDGenerator{},
			close:       pg.Close,
		}, nil
	case config.StorageSQLite:
		conn, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return storage{}, err
		}
		store := sqliteadapter.NewStore(conn.DB, logger)
		if err := store.Migrate(ctx); err != nil {
			_ = conn.Close()
			return storage{}, err
		}
		return storage{
			tx:          store,
			proposals:   store,
			votes:       store,
			idempotency: store,
			outbox:      store,
			clock:       store,
			idGen:       store,
			close:       conn.Close,
		}, nil
	default:
		return storage{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func openPublisher(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.EventPublisher, func() error, error) {
	switch cfg.EventBus {
	case config.EventBusMemory:
		bus := messaging.NewBus(logger)
		subCtx, cancel := context.WithCancel(context.Background())
		activity := workers.ActivityLog{Logger: logger}
		for _, topic := range activity.Topics() {
			bus.Subscribe(subCtx, topic, "voting-activity-log", activity.Handle)
		}
		return bus, func() error {
			cancel()
			return nil
		}, nil
	case config.EventBusRedis:
		stream, err := messaging.NewRedisStream(cfg.RedisURL, cfg.RedisStream, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := stream.Ping(ctx); err != nil {
			_ = stream.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return stream, stream.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported event bus %q", cfg.EventBus)
	}
}

func closeAll(closers []func() error) error {
	var errs []error
	for _, closeFn := range closers {
		if closeFn == nil {
			continue
		}
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
