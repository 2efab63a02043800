package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/storefront/internal/client/config"
	"github.com/dmitrijs2005/storefront/internal/client/repositories/kv"
	"github.com/redis/go-redis/v9"
)

// OpenLocalStore returns the local store selected by cfg.LocalStore and a
// function releasing its resources.
func OpenLocalStore(ctx context.Context, cfg *config.Config) (kv.Store, func() error, error) {
	switch cfg.LocalStore {
	case config.LocalStoreSQLite, "":
		db, err := InitDatabase(ctx, cfg.LocalDSN)
		if err != nil {
			return nil, nil, err
		}
		return kv.NewSQLiteStore(db), db.Close, nil

	case config.LocalStoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store := kv.NewRedisStore(rdb, cfg.RedisPrefix)
		if err := store.Ping(ctx); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return store, rdb.Close, nil

	case config.LocalStoreMemory:
		return kv.NewMemoryStore(), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown local store %q", cfg.LocalStore)
	}
}
