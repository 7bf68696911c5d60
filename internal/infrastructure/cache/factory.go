package cache

import (
	"fmt"

	"github.com/salonerp/backend/internal/domain/shared"
	"github.com/salonerp/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore creates the duplicate-posting guard backend selected by
// configuration. The redis backend falls back to in-memory with a warning when
// Redis is unreachable, so a broken cache never blocks document posting.
func NewIdempotencyStore(cfg *config.Config, logger *zap.Logger) (shared.IdempotencyStore, error) {
	switch cfg.Idempotency.Backend {
	case "memory":
		return NewInMemoryIdempotencyStore(), nil
	case "redis":
		store, err := NewRedisIdempotencyStore(RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn("Redis unavailable, falling back to in-memory idempotency store. "+
				"Duplicate postings are only guarded within this instance.",
				zap.Error(err))
			return NewInMemoryIdempotencyStore(), nil
		}
		logger.Info("Using Redis idempotency store")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", cfg.Idempotency.Backend)
	}
}
