package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prepaconcours/prepa-backend/internal/model"
)

// SQLiteStore implements QuestionStore, AttemptStore and IntegrityStore on
// database/sql for local runs. Timestamps are stored as unix milliseconds.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store on a database opened by database.OpenSQLite.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// ListForExam retrieves all questions of one mock exam, ordered by position.
func (s *SQLiteStore) ListForExam(ctx context.Context, examType string, examNumber int) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, exam_type, exam_number, position, prompt, options, correct_index, explanation, subject, difficulty
		 FROM questions WHERE exam_type = ? AND exam_number = ?
		 ORDER BY position, id`, examType, examNumber,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var (
			q       model.Question
			options string
		)
		if err := rows.Scan(&q.ID, &q.ExamType, &q.ExamNumber, &q.Position, &q.Prompt, &options,
			&q.CorrectIndex, &q.Explanation, &q.Subject, &q.Difficulty); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return nil, fmt.Errorf("decode options of %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Upsert inserts or updates questions by id in one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO questions (id, exam_type, exam_number, position, prompt, options, correct_index, explanation, subject, difficulty, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   exam_type = excluded.exam_type,
			   exam_number = excluded.exam_number,
			   position = excluded.position,
			   prompt = excluded.prompt,
			   options = excluded.options,
			   correct_index = excluded.correct_index,
			   explanation = excluded.explanation,
			   subject = excluded.subject,
			   difficulty = excluded.difficulty,
			   updated_at = excluded.updated_at`,
			q.ID, q.ExamType, q.ExamNumber, q.Position, q.Prompt, string(options),
			q.CorrectIndex, q.Explanation, string(q.Subject), string(q.Difficulty), now,
		); err != nil {
			return fmt.Errorf("upsert question %s: %w", q.ID, err)
		}
	}
	return tx.Commit()
}

// Replace deletes the previous attempt of the same exam and inserts a.
func (s *SQLiteStore) Replace(ctx context.Context, a *model.Attempt) error {
	return s.ReplaceMany(ctx, []*model.Attempt{a})
}

// ReplaceMany replaces every attempt in one transaction.
func (s *SQLiteStore) ReplaceMany(ctx context.Context, attempts []*model.Attempt) error {
	if len(attempts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, a := range attempts {
		cols, err := encodeAttempt(a)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM attempts WHERE user_id = ? AND exam_type = ? AND exam_number = ?`,
			a.UserID, a.ExamType, a.ExamNumber,
		); err != nil {
			return fmt.Errorf("delete previous attempt: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO attempts (id, user_id, exam_type, exam_number, overall, correct, total, elapsed_seconds,
			                       subject_scores, answers, snapshots, violations, finish_reason, started_at, completed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID.String(), a.UserID, a.ExamType, a.ExamNumber, a.Report.Overall, a.Report.Correct, a.Report.Total,
			a.Report.ElapsedSeconds, string(cols.subjects), string(cols.answers), string(cols.snapshots),
			a.Violations, string(a.FinishReason), a.StartedAt.UnixMilli(), a.CompletedAt.UnixMilli(),
		); err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}
	}
	return tx.Commit()
}

// Delete removes the attempt for one exam. It reports whether a row existed.
func (s *SQLiteStore) Delete(ctx context.Context, userID, examType string, examNumber int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM attempts WHERE user_id = ? AND exam_type = ? AND exam_number = ?`,
		userID, examType, examNumber,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Get retrieves the stored attempt for one exam.
func (s *SQLiteStore) Get(ctx context.Context, userID, examType string, examNumber int) (*model.Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, exam_type, exam_number, overall, correct, total, elapsed_seconds,
		        subject_scores, violations, finish_reason, started_at, completed_at, answers, snapshots
		 FROM attempts
		 WHERE user_id = ? AND exam_type = ? AND exam_number = ?`,
		userID, examType, examNumber,
	)

	var answers, snapshots string
	a, cols, err := scanSQLiteAttempt(row, &answers, &snapshots)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	cols.answers = []byte(answers)
	cols.snapshots = []byte(snapshots)

	if err := cols.decode(a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListByUser retrieves all attempts of a user, newest first.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string) ([]model.Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, exam_type, exam_number, overall, correct, total, elapsed_seconds,
		        subject_scores, violations, finish_reason, started_at, completed_at
		 FROM attempts
		 WHERE user_id = ?
		 ORDER BY completed_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		a, cols, err := scanSQLiteAttempt(rows)
		if err != nil {
			return nil, err
		}
		if err := cols.decode(a); err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// InsertEvents stores focus-loss events in one transaction.
func (s *SQLiteStore) InsertEvents(ctx context.Context, events []model.IntegrityEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO integrity_events (attempt_id, user_id, exam_type, exam_number, violation_count, threshold, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, e.AttemptID.String(), e.UserID, e.ExamType, e.ExamNumber,
			e.Count, e.Threshold, e.OccurredAt.UnixMilli()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanSQLiteAttempt scans the summary columns followed by any extra destinations.
func scanSQLiteAttempt(row rowScanner, extra ...any) (*model.Attempt, attemptJSON, error) {
	var (
		a                      model.Attempt
		id, reason, subjects   string
		startedAt, completedAt int64
	)
	dest := []any{&id, &a.UserID, &a.ExamType, &a.ExamNumber, &a.Report.Overall, &a.Report.Correct,
		&a.Report.Total, &a.Report.ElapsedSeconds, &subjects, &a.Violations, &reason, &startedAt, &completedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, attemptJSON{}, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, attemptJSON{}, fmt.Errorf("parse attempt id: %w", err)
	}
	a.ID = parsed
	a.FinishReason = model.FinishReason(reason)
	a.StartedAt = time.UnixMilli(startedAt).UTC()
	a.CompletedAt = time.UnixMilli(completedAt).UTC()

	return &a, attemptJSON{subjects: []byte(subjects)}, nil
}
