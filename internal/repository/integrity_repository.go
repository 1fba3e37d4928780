package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepaconcours/prepa-backend/internal/model"
)

// IntegrityRepository stores focus-loss events in PostgreSQL.
type IntegrityRepository struct {
	pool *pgxpool.Pool
}

// NewIntegrityRepository creates a new IntegrityRepository.
func NewIntegrityRepository(pool *pgxpool.Pool) *IntegrityRepository {
	return &IntegrityRepository{pool: pool}
}

// InsertEvents bulk-inserts events with COPY.
func (r *IntegrityRepository) InsertEvents(ctx context.Context, events []model.IntegrityEvent) error {
	if len(events) == 0 {
		return nil
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"integrity_events"},
		[]string{"attempt_id", "user_id", "exam_type", "exam_number", "violation_count", "threshold", "occurred_at"},
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			e := events[i]
			return []any{e.AttemptID, e.UserID, e.ExamType, e.ExamNumber, e.Count, e.Threshold, e.OccurredAt}, nil
		}),
	)
	return err
}
