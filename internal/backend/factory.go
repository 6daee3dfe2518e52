package backend

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
	"fintrack/internal/store/mongo"
	"fintrack/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend opens the configured store and wraps it in a ledger that
// publishes change events when AMQP is configured. A broker that cannot be
// reached is logged and the backend runs without events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		st  store.Store
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		st, err = f.createSQLiteStore(config)
	case MongoBackend:
		st, err = f.createMongoStore(ctx, config)
	case MemoryBackend:
		st = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend, records are not persisted")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	var publisher services.Publisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without ledger events", log.FieldError, err)
		} else {
			publisher = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	ledger := services.NewLedger(st, publisher)
	return &BackendResult{
		Store:         ledger,
		EventsEnabled: publisher != nil,
		Cleanup:       ledger.Close,
	}, nil
}

func (f *DefaultFactory) createSQLiteStore(config Config) (store.Store, error) {
	st, err := sqlite.New(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return st, nil
}

func (f *DefaultFactory) createMongoStore(ctx context.Context, config Config) (store.Store, error) {
	st, err := mongo.New(ctx, config.MongoURI, config.MongoDatabase)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB store: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized MongoDB backend", "database", config.MongoDatabase)
	return st, nil
}
