package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-attractions/internal/config"
	"ms-attractions/internal/logger"
)

// OpenRedis connects to redis and checks the connection with a ping.
func OpenRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := client.Ping(pingCtx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	log.Info("REDIS", fmt.Sprintf("Connected to redis at %s", cfg.Addr))
	return client, nil
}
