// Package repository provides the initialization for repository implementations
package repository

import (
	"log"

	"github.com/navikt/elmo/internal/config"
	"github.com/navikt/elmo/internal/repository/memory"
	"github.com/navikt/elmo/internal/repository/redis"
)

// Constructor hooks, registered in init to avoid an import cycle between
// the interface package and its implementations
var (
	newRedisStore  func(cfg config.RedisConfig) (Store, error)
	newMemoryStore func() Store
)

func init() {
	newRedisStore = func(cfg config.RedisConfig) (Store, error) {
		return redis.NewStore(cfg)
	}

	newMemoryStore = func() Store {
		return memory.NewStore()
	}
}

// NewStore creates the configured store implementation. Redis is used when
// enabled; otherwise state is kept in memory (suitable for local dev and
// tests, not for multi-instance deployments).
func NewStore(cfg config.RedisConfig) (Store, error) {
	if cfg.Enabled {
		store, err := newRedisStore(cfg)
		if err != nil {
			return nil, err
		}
		log.Printf("Using Redis store at %s:%s", cfg.Host, cfg.Port)
		return store, nil
	}

	log.Println("Redis disabled, using in-memory store")
	return newMemoryStore(), nil
}
