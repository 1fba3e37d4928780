package repository

import (
	"context"
	"errors"

	"github.com/prepaconcours/prepa-backend/internal/model"
)

// ErrAttemptNotFound is returned when no attempt exists for a user and exam.
var ErrAttemptNotFound = errors.New("attempt not found")

// QuestionStore reads and writes the question bank.
type QuestionStore interface {
	ListForExam(ctx context.Context, examType string, examNumber int) ([]model.Question, error)
	Upsert(ctx context.Context, questions []model.Question) error
}

// AttemptStore holds at most one attempt per (user, exam type, exam number).
type AttemptStore interface {
	// Replace deletes any prior attempt for the same key and inserts a, atomically.
	Replace(ctx context.Context, a *model.Attempt) error
	// ReplaceMany applies Replace to every attempt inside a single transaction.
	ReplaceMany(ctx context.Context, attempts []*model.Attempt) error
	Delete(ctx context.Context, userID, examType string, examNumber int) (bool, error)
	Get(ctx context.Context, userID, examType string, examNumber int) (*model.Attempt, error)
	// ListByUser returns the user's attempts, newest first, without answers or snapshots.
	ListByUser(ctx context.Context, userID string) ([]model.Attempt, error)
}

// IntegrityStore records focus-loss events.
type IntegrityStore interface {
	InsertEvents(ctx context.Context, events []model.IntegrityEvent) error
}
