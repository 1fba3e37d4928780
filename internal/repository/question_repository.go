package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepaconcours/prepa-backend/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListForExam retrieves all questions of one mock exam, ordered by position.
func (r *QuestionRepository) ListForExam(ctx context.Context, examType string, examNumber int) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_type, exam_number, position, prompt, options, correct_index, explanation, subject, difficulty
		 FROM questions WHERE exam_type = $1 AND exam_number = $2
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
			options []byte
		)
		if err := rows.Scan(&q.ID, &q.ExamType, &q.ExamNumber, &q.Position, &q.Prompt, &options,
			&q.CorrectIndex, &q.Explanation, &q.Subject, &q.Difficulty); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("decode options of %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Upsert inserts or updates questions by id in one transaction.
func (r *QuestionRepository) Upsert(ctx context.Context, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return err
		}
		batch.Queue(
			`INSERT INTO questions (id, exam_type, exam_number, position, prompt, options, correct_index, explanation, subject, difficulty)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (id) DO UPDATE SET
			   exam_type = EXCLUDED.exam_type,
			   exam_number = EXCLUDED.exam_number,
			   position = EXCLUDED.position,
			   prompt = EXCLUDED.prompt,
			   options = EXCLUDED.options,
			   correct_index = EXCLUDED.correct_index,
			   explanation = EXCLUDED.explanation,
			   subject = EXCLUDED.subject,
			   difficulty = EXCLUDED.difficulty,
			   updated_at = NOW()`,
			q.ID, q.ExamType, q.ExamNumber, q.Position, q.Prompt, options,
			q.CorrectIndex, q.Explanation, q.Subject, q.Difficulty,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert questions: %w", err)
	}
	return tx.Commit(ctx)
}
