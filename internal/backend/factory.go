package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"foro/internal/amqp"
	"foro/internal/docstore/memory"
	"foro/internal/docstore/postgres"
	"foro/internal/docstore/sqlite"
	"foro/internal/log"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	return &DefaultFactory{
		logger: log.OrDefault(logger).WithComponent(log.ComponentBackend),
	}
}

// Create implements Factory.Create
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLite:
		return f.createSQLite(ctx, config)
	case Postgres:
		return f.createPostgres(ctx, config)
	case Memory:
		return f.createMemory(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLite(ctx context.Context, config Config) (*Result, error) {
	// The change feed is optional; without it watches only see local writes.
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without change feed", log.FieldError, err)
			amqpClient = nil
		} else {
			f.logger.Info("Initialized AMQP client", log.FieldExchange, config.AMQPExchange)
		}
	}

	opts := []sqlite.Option{sqlite.WithLogger(f.logger)}
	if amqpClient != nil {
		opts = append(opts, sqlite.WithChangePublisher(amqpClient))
	}
	store, err := sqlite.Open(config.SQLitePath, opts...)
	if err != nil {
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend",
		log.FieldPath, config.SQLitePath,
		"amqp_enabled", amqpClient != nil)

	if amqpClient == nil {
		return &Result{Store: store, Cleanup: store.Close}, nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := amqpClient.Run(runCtx, store); err != nil && !errors.Is(err, context.Canceled) {
			f.logger.Error("Change feed consumer stopped", log.FieldError, err)
		}
	}()

	cleanup := func() error {
		cancel()
		var errs []error
		if err := amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
		wg.Wait()
		if err := store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sqlite: %w", err))
		}
		return errors.Join(errs...)
	}
	return &Result{Store: store, Cleanup: cleanup}, nil
}

func (f *DefaultFactory) createPostgres(ctx context.Context, config Config) (*Result, error) {
	store, err := postgres.Connect(ctx, config.PostgresURL, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
	}
	f.logger.Info("Initialized Postgres backend")
	return &Result{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createMemory(config Config) (*Result, error) {
	if config.SeedFile == "" {
		f.logger.Info("Initialized memory backend")
		store := memory.New(f.logger)
		return &Result{Store: store, Cleanup: store.Close}, nil
	}

	store, err := memory.NewFromFile(config.SeedFile, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory seed: %w", err)
	}
	f.logger.Info("Initialized memory backend", log.FieldPath, config.SeedFile)
	return &Result{Store: store, Cleanup: store.Close}, nil
}
