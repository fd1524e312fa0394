package backend

import (
	"context"
	"errors"
	"fmt"

	"expenses/internal/log"
	"expenses/internal/storage"
	"expenses/internal/storage/memory"
	"expenses/internal/storage/redis"
)

// opener opens one kind of store. Tests swap these out.
type opener func(ctx context.Context, config Config) (storage.Store, error)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger  *log.Logger
	openers map[BackendType]opener
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &DefaultFactory{
		logger: logger,
		openers: map[BackendType]opener{
			SQLiteBackend: openSQLite,
			RedisBackend:  openRedis,
			MemoryBackend: openMemory,
		},
	}
}

var _ Factory = (*DefaultFactory)(nil)

// CreateBackend implements Factory.CreateBackend. When the configured store
// reports storage.ErrStorageUnavailable the factory logs one warning and
// returns an in-memory store marked Degraded. Other errors are returned.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	open, ok := f.openers[config.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	store, err := open(ctx, config)
	switch {
	case err == nil:
		f.logger.Info("Initialized store", log.FieldBackend, config.Type)
		return &BackendResult{Store: store, Type: config.Type}, nil
	case errors.Is(err, storage.ErrStorageUnavailable) && config.Type != MemoryBackend:
		f.logger.Warn("Store unavailable, running on a memory store; entries will not be persisted",
			log.FieldBackend, config.Type,
			log.FieldDegraded, true,
			log.FieldErrorType, log.ErrorTypeUnavailable,
			log.FieldError, err)
		fallback := memory.New()
		return &BackendResult{Store: fallback, Type: MemoryBackend, Degraded: true}, nil
	default:
		return nil, fmt.Errorf("open %s store: %w", config.Type, err)
	}
}

func openSQLite(_ context.Context, config Config) (storage.Store, error) {
	return storage.NewSQLiteRepository(config.SQLiteDBPath)
}

func openRedis(ctx context.Context, config Config) (storage.Store, error) {
	return redis.NewStore(ctx, redis.Options{
		Addr:      config.RedisAddr,
		Password:  config.RedisPassword,
		DB:        config.RedisDB,
		KeyPrefix: config.RedisKeyPrefix,
	})
}

func openMemory(context.Context, Config) (storage.Store, error) {
	return memory.New(), nil
}
