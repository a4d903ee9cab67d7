// Package backend assembles the storage, messaging and locking backends
// selected by configuration.
package backend

import (
	"context"
	"errors"
	"fmt"

	"michaucha/internal/amqp"
	"michaucha/internal/config"
	"michaucha/internal/lock"
	"michaucha/internal/log"
	"michaucha/internal/ports"
	"michaucha/internal/storage"
	"michaucha/internal/storage/memory"
	"michaucha/internal/storage/postgres"
)

type Type string

const (
	Memory   Type = "memory"
	SQLite   Type = "sqlite"
	Postgres Type = "postgres"
)

func (t Type) IsValid() bool {
	switch t {
	case Memory, SQLite, Postgres:
		return true
	}
	return false
}

// Backend is what the binaries share. Publisher is nil when AMQP is not
// configured; AMQP exposes the same client for consumers.
type Backend struct {
	Store     ports.Store
	Publisher ports.EventPublisher
	AMQP      *amqp.Client
	Locker    ports.Locker

	closers []func() error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Ready pings the store when it supports it.
func (b *Backend) Ready(ctx context.Context) error {
	if p, ok := b.Store.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases everything in reverse order of creation.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}

type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Factory{logger: logger}
}

// Create opens the configured store plus the optional AMQP publisher and
// Redis locker. A broker that cannot be reached is logged and skipped unless
// requireAMQP is set.
func (f *Factory) Create(ctx context.Context, cfg *config.Config, requireAMQP bool) (*Backend, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	b := &Backend{}

	store, err := f.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b.Store = store
	b.closers = append(b.closers, store.Close)

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		switch {
		case err != nil && requireAMQP:
			_ = b.Close()
			return nil, fmt.Errorf("connect AMQP: %w", err)
		case err != nil:
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		default:
			b.AMQP = client
			b.Publisher = client
			b.closers = append(b.closers, client.Close)
			f.logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else if requireAMQP {
		_ = b.Close()
		return nil, errors.New("AMQP URL is required")
	}

	if cfg.RedisAddress != "" {
		redis, err := lock.NewRedis(ctx, cfg.RedisAddress, cfg.LockTTL)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		b.Locker = redis
		b.closers = append(b.closers, redis.Close)
		f.logger.Info("Using Redis locks", "address", cfg.RedisAddress, "ttl", cfg.LockTTL)
	} else {
		b.Locker = lock.NewLocal()
	}

	return b, nil
}

func (f *Factory) openStore(ctx context.Context, cfg *config.Config) (ports.Store, error) {
	switch t := Type(cfg.DataBackend); t {
	case SQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return repo, nil
	case Postgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("initialize postgres store: %w", err)
		}
		f.logger.Info("Initialized postgres backend")
		return store, nil
	case Memory:
		store := memory.NewFromFiles(cfg.DataDir)
		f.logger.Info("Initialized memory backend", "data_directory", cfg.DataDir)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", t)
	}
}
