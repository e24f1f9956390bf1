package app

import (
	"fmt"
	"io"

	"github.com/MrSnakeDoc/mindmark/internal/config"
	"github.com/MrSnakeDoc/mindmark/internal/logger"
	"github.com/MrSnakeDoc/mindmark/internal/store"
	"github.com/MrSnakeDoc/mindmark/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/mindmark/internal/store/redis"
	"github.com/MrSnakeDoc/mindmark/internal/store/sqlite"
)

// Backend is a store backend that owns a connection.
type Backend interface {
	store.Backend
	io.Closer
}

// OpenStore opens the backend selected by cfg.Store. Redis is dialed with
// retries and fails fast once ConnectTimeout runs out.
func OpenStore(cfg *config.Config, log logger.Logger) (*store.Store, Backend, error) {
	var kv Backend

	switch cfg.Store {
	case config.StoreMemory:
		log.Warn("using in-memory store, bookmarks and queue are lost on restart")
		kv = memory.New()

	case config.StoreSQLite:
		b, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		log.Info("sqlite store opened", logger.String("path", b.Path()))
		kv = b

	case config.StoreRedis:
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redisstore.Connect(redisstore.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("Redis initialized successfully")
		kv = redisstore.NewBackend(client)

	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	return store.New(kv), kv, nil
}
