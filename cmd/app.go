package main

import (
	"context"
	"contract-orchestrator/internal/config"
	"contract-orchestrator/internal/contracts"
	"contract-orchestrator/internal/database"
	"contract-orchestrator/internal/emitters"
	"contract-orchestrator/internal/events"
	"contract-orchestrator/internal/gateway"
	"contract-orchestrator/internal/idempotency"
	"contract-orchestrator/internal/interfaces"
	"contract-orchestrator/internal/logger"
	"contract-orchestrator/internal/metrics"
	"contract-orchestrator/internal/models"
	"contract-orchestrator/internal/rpc"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// app holds the collaborators shared by every command
type app struct {
	cfg      *config.Config
	logger   *zerolog.Logger
	client   *rpc.Client
	registry *contracts.Registry
	gateway  *gateway.Gateway
	metrics  *metrics.Metrics
	prom     *prometheus.Registry
	ledger   *database.DB
	closers  []func() error
}

// setup loads configuration and connects to the node. withLedger opens the
// postgres ledger when LEDGER_ENABLED is set.
func setup(ctx context.Context, withLedger bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Init(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &app{cfg: cfg, logger: logger.GetLogger(), prom: prometheus.NewRegistry()}
	a.prom.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.prom)

	a.registry, err = contracts.Load(cfg.Contracts)
	if err != nil {
		return nil, fmt.Errorf("failed to load contracts: %w", err)
	}

	a.client, err = rpc.NewClient(ctx, cfg.Chain, logger.Component("rpc"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to node: %w", err)
	}
	a.closers = append(a.closers, func() error { a.client.Close(); return nil })

	store, err := a.idempotencyStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	if withLedger && cfg.Database.Ledger && a.ledger == nil {
		if _, err := a.openLedger(cfg.Idempotency.TTL); err != nil {
			a.close()
			return nil, err
		}
	}

	a.gateway = gateway.New(a.registry, a.client, logger.Component("gateway"),
		gateway.WithIdempotencyStore(store),
		gateway.WithEmitter(a.emitter()),
		gateway.WithMetrics(a.metrics),
		gateway.WithReceiptTimeout(cfg.Chain.ReceiptTimeout),
	)
	return a, nil
}

func (a *app) idempotencyStore(ctx context.Context) (interfaces.IdempotencyStore, error) {
	ttl := a.cfg.Idempotency.TTL
	switch a.cfg.Idempotency.Backend {
	case "redis":
		store, err := idempotency.NewRedisStore(ctx, a.cfg.Redis, ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.logger.Info().Str("addr", a.cfg.Redis.RedisAddr()).Msg("Using redis idempotency store")
		return store, nil
	case "postgres":
		db, err := a.openLedger(ttl)
		if err != nil {
			return nil, err
		}
		a.logger.Info().Str("host", a.cfg.Database.Host).Msg("Using postgres idempotency store")
		return db, nil
	default:
		return idempotency.NewMemoryStore(ttl), nil
	}
}

func (a *app) openLedger(ttl time.Duration) (*database.DB, error) {
	db, err := database.Open(a.cfg.Database, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(a.cfg.Database.DBName); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	a.ledger = db
	a.closers = append(a.closers, db.Close)
	return db, nil
}

// emitter logs every confirmed operation and forwards it to kafka and the
// ledger when they are configured
func (a *app) emitter() interfaces.EventEmitter {
	var sinks emitters.Fanout
	if a.cfg.Kafka.BrokerAddress != "" {
		kafka := emitters.NewKafkaEmitter(a.cfg.Kafka, logger.Component("kafka"))
		a.closers = append(a.closers, kafka.Close)
		sinks = append(sinks, kafka)
	}
	if a.ledger != nil {
		sinks = append(sinks, a.ledger)
	}
	return &events.LoggingEmitter{
		WrappedEmitter: sinks,
		Logger:         logger.Component("operations"),
		ExplorerURL:    a.cfg.Chain.ExplorerURL,
	}
}

// recipient is the account that receives tokens minted by nft create
func (a *app) recipient() (models.Address, error) {
	if a.cfg.Chain.PublicKey == "" {
		return models.AddressFromCommon(a.client.DefaultSender()), nil
	}
	addr, err := models.ParseAddress(a.cfg.Chain.PublicKey)
	if err != nil {
		return models.Address{}, fmt.Errorf("PUBLIC_KEY: %w", err)
	}
	return addr, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error().Err(err).Msg("Error during shutdown")
		}
	}
	a.closers = nil
}
