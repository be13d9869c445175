package persistence

import (
	"go.uber.org/zap"

	"github.com/spec-kit/checkin-agent/internal/config"
	"github.com/spec-kit/checkin-agent/internal/kvstore"
)

// NewKVStore returns the Redis-backed store when Redis is configured and an
// in-memory store otherwise.
func NewKVStore(r *Redis, cfg config.RedisConfig, logger *zap.Logger) kvstore.Store {
	if r.Configured() {
		return kvstore.NewRedisStore(r.Client, cfg.KeyPrefix, logger)
	}
	return kvstore.NewMemoryStore()
}
