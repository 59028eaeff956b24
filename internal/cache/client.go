package cache

import (
	"context"
	"fmt"
	"time"

	"platform_backend/internal/logger"

	"github.com/redis/go-redis/v9"
)

// NewClient подключается к Redis и проверяет соединение
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis", "addr", addr, "db", db)
	return client, nil
}
