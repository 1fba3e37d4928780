package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepaconcours/prepa-backend/internal/model"
)

// AttemptRepository stores completed attempts in PostgreSQL.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Replace deletes the previous attempt of the same exam and inserts a.
func (r *AttemptRepository) Replace(ctx context.Context, a *model.Attempt) error {
	return r.ReplaceMany(ctx, []*model.Attempt{a})
}

// ReplaceMany replaces every attempt in one transaction.
func (r *AttemptRepository) ReplaceMany(ctx context.Context, attempts []*model.Attempt) error {
	if len(attempts) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, a := range attempts {
		if err := replaceAttemptTx(ctx, tx, a); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func replaceAttemptTx(ctx context.Context, tx pgx.Tx, a *model.Attempt) error {
	cols, err := encodeAttempt(a)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM attempts WHERE user_id = $1 AND exam_type = $2 AND exam_number = $3`,
		a.UserID, a.ExamType, a.ExamNumber,
	); err != nil {
		return fmt.Errorf("delete previous attempt: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO attempts (id, user_id, exam_type, exam_number, overall, correct, total, elapsed_seconds,
		                       subject_scores, answers, snapshots, violations, finish_reason, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		a.ID, a.UserID, a.ExamType, a.ExamNumber, a.Report.Overall, a.Report.Correct, a.Report.Total,
		a.Report.ElapsedSeconds, cols.subjects, cols.answers, cols.snapshots, a.Violations, a.FinishReason,
		a.StartedAt, a.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// Delete removes the attempt for one exam. It reports whether a row existed.
func (r *AttemptRepository) Delete(ctx context.Context, userID, examType string, examNumber int) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM attempts WHERE user_id = $1 AND exam_type = $2 AND exam_number = $3`,
		userID, examType, examNumber,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Get retrieves the stored attempt for one exam.
func (r *AttemptRepository) Get(ctx context.Context, userID, examType string, examNumber int) (*model.Attempt, error) {
	var (
		a    model.Attempt
		cols attemptJSON
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, exam_type, exam_number, overall, correct, total, elapsed_seconds,
		        subject_scores, answers, snapshots, violations, finish_reason, started_at, completed_at
		 FROM attempts
		 WHERE user_id = $1 AND exam_type = $2 AND exam_number = $3`,
		userID, examType, examNumber,
	).Scan(&a.ID, &a.UserID, &a.ExamType, &a.ExamNumber, &a.Report.Overall, &a.Report.Correct, &a.Report.Total,
		&a.Report.ElapsedSeconds, &cols.subjects, &cols.answers, &cols.snapshots, &a.Violations, &a.FinishReason,
		&a.StartedAt, &a.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := cols.decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByUser retrieves all attempts of a user, newest first.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID string) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, exam_type, exam_number, overall, correct, total, elapsed_seconds,
		        subject_scores, violations, finish_reason, started_at, completed_at
		 FROM attempts
		 WHERE user_id = $1
		 ORDER BY completed_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var (
			a    model.Attempt
			cols attemptJSON
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.ExamType, &a.ExamNumber, &a.Report.Overall, &a.Report.Correct,
			&a.Report.Total, &a.Report.ElapsedSeconds, &cols.subjects, &a.Violations, &a.FinishReason,
			&a.StartedAt, &a.CompletedAt); err != nil {
			return nil, err
		}
		if err := cols.decode(&a); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// attemptJSON carries the JSON-encoded columns of an attempt row.
type attemptJSON struct {
	subjects  []byte
	answers   []byte
	snapshots []byte
}

func encodeAttempt(a *model.Attempt) (attemptJSON, error) {
	var (
		cols attemptJSON
		err  error
	)
	if cols.subjects, err = json.Marshal(a.Report.Subjects); err != nil {
		return cols, fmt.Errorf("encode subject scores: %w", err)
	}
	answers := a.Answers
	if answers == nil {
		answers = map[string]any{}
	}
	if cols.answers, err = json.Marshal(answers); err != nil {
		return cols, fmt.Errorf("encode answers: %w", err)
	}
	snapshots := a.Snapshots
	if snapshots == nil {
		snapshots = []model.QuestionSnapshot{}
	}
	if cols.snapshots, err = json.Marshal(snapshots); err != nil {
		return cols, fmt.Errorf("encode snapshots: %w", err)
	}
	return cols, nil
}

// decode fills a from whichever columns were selected.
func (c attemptJSON) decode(a *model.Attempt) error {
	if len(c.subjects) > 0 {
		if err := json.Unmarshal(c.subjects, &a.Report.Subjects); err != nil {
			return fmt.Errorf("decode subject scores: %w", err)
		}
	}
	if len(c.answers) > 0 {
		if err := json.Unmarshal(c.answers, &a.Answers); err != nil {
			return fmt.Errorf("decode answers: %w", err)
		}
	}
	if len(c.snapshots) > 0 {
		if err := json.Unmarshal(c.snapshots, &a.Snapshots); err != nil {
			return fmt.Errorf("decode snapshots: %w", err)
		}
	}
	return nil
}
