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

// AttemptWorker persists completed attempts queued by exam sessions and
// clears their drafts.
type AttemptWorker struct {
	store    repository.AttemptStore
	rdb      *redis.Client
	log      zerolog.Logger
	consumer *queueConsumer[*model.Attempt]
}

func NewAttemptWorker(store repository.AttemptStore, rdb *redis.Client, log zerolog.Logger) *AttemptWorker {
	w := &AttemptWorker{
		store: store,
		rdb:   rdb,
		log:   log.With().Str("component", "attempt_worker").Logger(),
	}
	w.consumer = &queueConsumer[*model.Attempt]{
		rdb:   rdb,
		queue: config.WorkerKey.PersistAttemptsQueue,
		log:   w.log,
		flush: w.flushSafe,
	}
	return w
}

func (w *AttemptWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AttemptWorker started")
	w.consumer.run(ctx)
}

// flushSafe tries one transaction for the batch, then row by row, then requeue.
func (w *AttemptWorker) flushSafe(ctx context.Context, batch []*model.Attempt) {
	if len(batch) == 0 {
		return
	}

	err := w.store.ReplaceMany(ctx, batch)
	if err == nil {
		metrics.AttemptsPersisted.Add(float64(len(batch)))
		w.clearDrafts(ctx, batch)
		w.log.Debug().Int("count", len(batch)).Msg("Attempt batch persisted")
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk attempt save failed, attempting row-by-row recovery")

	saved := make([]*model.Attempt, 0, len(batch))
	failed := make([]*model.Attempt, 0)
	for _, a := range batch {
		if err := w.store.Replace(ctx, a); err != nil {
			metrics.PersistFailures.WithLabelValues("worker").Inc()
			w.log.Error().Err(err).Str("attempt_id", a.ID.String()).Msg("Attempt save failed, requeueing")
			failed = append(failed, a)
			continue
		}
		saved = append(saved, a)
	}

	metrics.AttemptsPersisted.Add(float64(len(saved)))
	w.clearDrafts(ctx, saved)
	w.consumer.requeue(ctx, failed)
}

// clearDrafts deletes the drafts of persisted attempts in one pipeline.
func (w *AttemptWorker) clearDrafts(ctx context.Context, attempts []*model.Attempt) {
	if len(attempts) == 0 {
		return
	}

	pipe := w.rdb.Pipeline()
	for _, a := range attempts {
		pipe.Del(ctx, config.CacheKey.UserDraftKey(a.UserID, a.ExamType, a.ExamNumber))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Warn().Err(err).Msg("Draft cleanup failed")
	}
}
