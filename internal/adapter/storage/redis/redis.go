package redis

import (
	"context"
	"fmt"
	"time"

	"cashback-platform/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// connectTimeout bounds the startup connectivity probe. Redis backs rate
// limiting and event fanout, both of which degrade gracefully at runtime,
// but a wrong address should still fail fast at boot.
const connectTimeout = 3 * time.Second

// NewClient creates a Redis client and verifies connectivity before
// returning it.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Msg("Redis connection established")

	return client, nil
}
