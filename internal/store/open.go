package store

import (
	"context"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/redis/go-redis/v9"
)

// Open connects the backend named by cfg.StoreBackend and verifies it is
// reachable.
func Open(ctx context.Context, cfg *config.Config) (KV, error) {
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		s, err := NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		s := NewRedisStore(client, cfg.RedisTTL)
		if err := s.Ping(ctx); err != nil {
			client.Close()
			return nil, err
		}
		return s, nil
	case config.StoreMongo:
		s, err := ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
