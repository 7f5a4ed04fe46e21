package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/adeilh/go-shopcache/cache"
	"github.com/adeilh/go-shopcache/cache/bigcache"
	"github.com/adeilh/go-shopcache/cache/memory"
	"github.com/adeilh/go-shopcache/cache/redis"
	"github.com/adeilh/go-shopcache/config"
	"github.com/adeilh/go-shopcache/db/sql/postgres"
)

// openStore builds the storage backend named by cfg.Storage. The returned
// close func is never nil.
func openStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (cache.Store, func() error, error) {
	noop := func() error { return nil }
	log = log.WithField("storage", cfg.Storage)

	switch cfg.Storage {
	case config.StorageMemory:
		log.Debug("using in-process storage; nothing survives the process")
		return memory.NewStore(memory.Options{}), noop, nil

	case config.StorageBigCache:
		store, err := bigcache.NewStore(ctx, bigcache.Options{MaxSizeMB: cfg.BigCacheMB})
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil

	case config.StorageRedis:
		store, err := redis.NewStoreFromURL(ctx, cfg.RedisURL, redis.Options{Prefix: cfg.RedisPrefix})
		if err != nil {
			return nil, noop, err
		}
		log.WithField("prefix", cfg.RedisPrefix).Debug("connected to redis")
		return store, store.Close, nil

	case config.StoragePostgres:
		db, err := postgres.Open(ctx, postgres.WithDSN(cfg.PostgresDSN))
		if err != nil {
			return nil, noop, err
		}
		store := postgres.NewKVStore(db, cfg.PostgresTable)
		if err := store.Migrate(ctx, cfg.PostgresTable); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		log.WithField("table", cfg.PostgresTable).Debug("connected to postgres")
		return store, db.Close, nil
	}
	return nil, noop, fmt.Errorf("%w: %q", config.ErrUnknownStorage, cfg.Storage)
}
