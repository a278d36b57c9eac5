package cache

import (
	"fmt"

	"github.com/labflow/backend/internal/domain/shared"
	"github.com/labflow/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Advisory lock backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// AdvisoryLockFactory creates advisory lock stores based on configuration
type AdvisoryLockFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// AdvisoryLockFactoryOption is a functional option for configuring the factory
type AdvisoryLockFactoryOption func(*AdvisoryLockFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) AdvisoryLockFactoryOption {
	return func(f *AdvisoryLockFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory store when Redis is unavailable.
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) AdvisoryLockFactoryOption {
	return func(f *AdvisoryLockFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewAdvisoryLockFactory creates a new factory
func NewAdvisoryLockFactory(cfg config.RedisConfig, opts ...AdvisoryLockFactoryOption) *AdvisoryLockFactory {
	f := &AdvisoryLockFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisLock creates a Redis-based advisory lock store
func (f *AdvisoryLockFactory) CreateRedisLock() (shared.AdvisoryLock, error) {
	lock, err := NewRedisAdvisoryLock(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis advisory lock: %w", err)
	}
	return lock, nil
}

// CreateInMemoryLock creates an in-memory advisory lock store.
// WARNING: claims are not shared across processes, so two instances can
// split the same work order concurrently
func (f *AdvisoryLockFactory) CreateInMemoryLock() shared.AdvisoryLock {
	return NewInMemoryAdvisoryLock()
}

// CreateLock creates the store for backend. The redis backend falls back to
// in-memory when Redis is unreachable and fallback is allowed.
func (f *AdvisoryLockFactory) CreateLock(backend string) (shared.AdvisoryLock, error) {
	switch backend {
	case BackendMemory, "":
		f.logger.Info("using in-memory advisory lock")
		return f.CreateInMemoryLock(), nil
	case BackendRedis:
	default:
		return nil, fmt.Errorf("unknown advisory lock backend %q", backend)
	}

	lock, err := f.CreateRedisLock()
	if err == nil {
		f.logger.Info("using Redis advisory lock")
		return lock, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for split guard but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory advisory lock. "+
		"Concurrent splits from other instances will not be refused.",
		zap.Error(err),
	)
	return f.CreateInMemoryLock(), nil
}
