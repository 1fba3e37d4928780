package worker

import (
	"context"

	"github.com/prepaconcours/prepa-backend/internal/config"
	"github.com/prepaconcours/prepa-backend/internal/metrics"
	"github.com/prepaconcours/prepa-backend/internal/model"
	"github.com/prepaconcours/prepa-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// IntegrityWorker stores focus-loss events queued by exam sessions.
type IntegrityWorker struct {
	store    repository.IntegrityStore
	log      zerolog.Logger
	consumer *queueConsumer[model.IntegrityEvent]
}

func NewIntegrityWorker(store repository.IntegrityStore, rdb *redis.Client, log zerolog.Logger) *IntegrityWorker {
	w := &IntegrityWorker{
		store: store,
		log:   log.With().Str("component", "integrity_worker").Logger(),
	}
	w.consumer = &queueConsumer[model.IntegrityEvent]{
		rdb:   rdb,
		queue: config.WorkerKey.PersistIntegrityQueue,
		log:   w.log,
		flush: w.flushSafe,
	}
	return w
}

func (w *IntegrityWorker) Start(ctx context.Context) {
	w.log.Info().Msg("IntegrityWorker started")
	w.consumer.run(ctx)
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *IntegrityWorker) flushSafe(ctx context.Context, batch []model.IntegrityEvent) {
	if len(batch) == 0 {
		return
	}

	err := w.store.InsertEvents(ctx, batch)
	if err == nil {
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")

	failed := make([]model.IntegrityEvent, 0)
	for _, e := range batch {
		if err := w.store.InsertEvents(ctx, []model.IntegrityEvent{e}); err != nil {
			metrics.PersistFailures.WithLabelValues("integrity").Inc()
			w.log.Error().Err(err).Str("attempt_id", e.AttemptID.String()).Msg("Insert failed, requeueing")
			failed = append(failed, e)
		}
	}
	w.consumer.requeue(ctx, failed)
}
