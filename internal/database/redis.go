package database

import (
	"context"
	"fmt"
	"time"

	"github.com/prepaconcours/prepa-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewRedisClient connects the client behind the question cache, exam drafts
// and the persistence queues.
func NewRedisClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Int("pool_size", opt.PoolSize).
		Msg("Redis connected")

	return rdb, nil
}

// redisOptions sizes the pool for one draft write per live session per
// autosave tick plus the queue workers.
func redisOptions(cfg *config.Config) (*redis.Options, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	if opt.ClientName == "" {
		opt.ClientName = ApplicationName
	}
	if opt.PoolSize == 0 {
		opt.PoolSize = 32
	}
	if opt.DialTimeout == 0 {
		opt.DialTimeout = 3 * time.Second
	}
	// Drafts are best effort; a slow Redis must not stall a save past the next tick.
	if opt.WriteTimeout == 0 {
		opt.WriteTimeout = 2 * time.Second
	}
	return opt, nil
}
