package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// queueConsumer drains a Redis list into batches of T and hands each batch to flush.
type queueConsumer[T any] struct {
	rdb   *redis.Client
	queue string
	log   zerolog.Logger
	flush func(ctx context.Context, batch []T)
}

func (c *queueConsumer[T]) run(ctx context.Context) {
	buffer := make([]T, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 &&
			(len(buffer) >= BatchSize || time.Since(lastFlush) >= BatchTimeout) {
			c.flush(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			c.shutdown(buffer)
			return
		default:
		}

		result, err := c.rdb.BLPop(ctx, PollTimeout, c.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			c.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			sleepCtx(ctx, 3*time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var item T
		if err := json.Unmarshal([]byte(result[1]), &item); err != nil {
			c.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}
		buffer = append(buffer, item)
	}
}

// requeue pushes items back to the tail of the queue.
func (c *queueConsumer[T]) requeue(ctx context.Context, items []T) {
	if len(items) == 0 {
		return
	}

	pipe := c.rdb.Pipeline()
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			c.log.Error().Err(err).Msg("Dropping item that cannot be encoded")
			continue
		}
		pipe.RPush(ctx, c.queue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
		return
	}

	c.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	sleepCtx(ctx, 2*time.Second)
}

func (c *queueConsumer[T]) shutdown(buffer []T) {
	c.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		c.flush(shutdownCtx, buffer)
	}
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
