package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	coreconfig "github.com/m3rciful/goldbot/core/config"
	"github.com/m3rciful/goldbot/core/logger"
)

// ConnectRedis opens a Redis client and checks it with PING.
func ConnectRedis(cfg coreconfig.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		logger.DB.Error("redis ping failed",
			slog.String("event", "redis.connect"),
			slog.String("status", "fail"),
			slog.String("host", cfg.Addr),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.DB.Info("redis connected",
		slog.String("event", "redis.connect"),
		slog.String("status", "ok"),
		slog.String("host", cfg.Addr),
		slog.Int("db", cfg.DB),
		slog.Duration("duration", time.Since(start)),
	)
	return client, nil
}
