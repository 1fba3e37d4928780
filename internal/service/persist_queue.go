package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prepaconcours/prepa-backend/internal/config"
	"github.com/prepaconcours/prepa-backend/internal/model"
	"github.com/prepaconcours/prepa-backend/internal/repository"
	"github.com/redis/go-redis/v9"
)

// IntegrityRecorder records one focus-loss event.
type IntegrityRecorder interface {
	RecordIntegrity(ctx context.Context, e model.IntegrityEvent) error
}

// PersistQueue hands completed attempts and integrity events to the
// background workers through Redis lists.
type PersistQueue struct {
	rdb *redis.Client
}

// NewPersistQueue creates a new PersistQueue.
func NewPersistQueue(rdb *redis.Client) *PersistQueue {
	return &PersistQueue{rdb: rdb}
}

// Record enqueues a completed attempt for the attempt worker.
func (q *PersistQueue) Record(ctx context.Context, a *model.Attempt) error {
	return q.push(ctx, config.WorkerKey.PersistAttemptsQueue, a)
}

// RecordIntegrity enqueues a focus-loss event for the integrity worker.
func (q *PersistQueue) RecordIntegrity(ctx context.Context, e model.IntegrityEvent) error {
	return q.push(ctx, config.WorkerKey.PersistIntegrityQueue, e)
}

func (q *PersistQueue) push(ctx context.Context, queue string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", queue, err)
	}
	if err := q.rdb.RPush(ctx, queue, raw).Err(); err != nil {
		return fmt.Errorf("%w: push %s: %w", ErrPersistenceUnavailable, queue, err)
	}
	return nil
}

// DirectIntegrity writes integrity events straight to the store.
type DirectIntegrity struct {
	store repository.IntegrityStore
}

// NewDirectIntegrity creates a new DirectIntegrity.
func NewDirectIntegrity(store repository.IntegrityStore) *DirectIntegrity {
	return &DirectIntegrity{store: store}
}

// RecordIntegrity stores e.
func (d *DirectIntegrity) RecordIntegrity(ctx context.Context, e model.IntegrityEvent) error {
	if err := d.store.InsertEvents(ctx, []model.IntegrityEvent{e}); err != nil {
		return fmt.Errorf("%w: insert integrity event: %w", ErrPersistenceUnavailable, err)
	}
	return nil
}
