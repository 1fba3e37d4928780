package model

import (
	"time"

	"github.com/google/uuid"
)

// SubjectScore is the subtotal of one subject inside a ScoreReport.
type SubjectScore struct {
	Subject    Subject `json:"subject"`
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percentage int     `json:"percentage"`
}

// QuestionOutcome records how a single question was scored.
type QuestionOutcome struct {
	QuestionID string `json:"question_id"`
	Position   int    `json:"position"`
	Selected   *int   `json:"selected"`
	Answered   bool   `json:"answered"`
	Correct    bool   `json:"correct"`
}

// ScoreReport is the result of one completed session.
type ScoreReport struct {
	Overall        int               `json:"overall"`
	Correct        int               `json:"correct"`
	Total          int               `json:"total"`
	Subjects       []SubjectScore    `json:"subjects"`
	ElapsedSeconds int               `json:"elapsed_seconds"`
	Questions      []QuestionOutcome `json:"questions"`
}

// Subject returns the subtotal for s, or a zero value when absent.
func (r ScoreReport) Subject(s Subject) SubjectScore {
	for _, ss := range r.Subjects {
		if ss.Subject == s {
			return ss
		}
	}
	return SubjectScore{Subject: s}
}

// QuestionSnapshot is a denormalized copy of a question as it was answered.
// Reviews are rebuilt from snapshots alone, so later edits to the bank do not
// change a past result.
type QuestionSnapshot struct {
	QuestionID       string     `json:"question_id"`
	Position         int        `json:"position"`
	Prompt           string     `json:"prompt"`
	Options          []string   `json:"options"`
	CorrectIndex     int        `json:"correct_index"`
	Explanation      string     `json:"explanation,omitempty"`
	Subject          Subject    `json:"subject"`
	Difficulty       Difficulty `json:"difficulty"`
	Selected         *int       `json:"selected"`
	IsCorrect        bool       `json:"is_correct"`
	TimeSpentSeconds int        `json:"time_spent_seconds"`
}

// Question rebuilds the question the snapshot was taken from.
func (s QuestionSnapshot) Question() Question {
	return Question{
		ID:           s.QuestionID,
		Position:     s.Position,
		Prompt:       s.Prompt,
		Options:      s.Options,
		CorrectIndex: s.CorrectIndex,
		Explanation:  s.Explanation,
		Subject:      s.Subject,
		Difficulty:   s.Difficulty,
	}
}

// FinishReason tells why a session was completed. It is informational only.
type FinishReason string

const (
	FinishSubmitted    FinishReason = "submitted"
	FinishLastQuestion FinishReason = "last_question"
	FinishTimeExpired  FinishReason = "time_expired"
	FinishIntegrity    FinishReason = "integrity"
)

// Attempt is the bundle handed to persistence when a session completes.
type Attempt struct {
	ID           uuid.UUID          `json:"id"`
	UserID       string             `json:"user_id"`
	ExamType     string             `json:"exam_type"`
	ExamNumber   int                `json:"exam_number"`
	Report       ScoreReport        `json:"report"`
	Answers      map[string]any     `json:"answers"`
	Snapshots    []QuestionSnapshot `json:"snapshots"`
	Violations   int                `json:"violations"`
	FinishReason FinishReason       `json:"finish_reason"`
	StartedAt    time.Time          `json:"started_at"`
	CompletedAt  time.Time          `json:"completed_at"`
}

// ReconstructedAttempt is a stored attempt rebuilt for review.
type ReconstructedAttempt struct {
	ID           uuid.UUID          `json:"id"`
	UserID       string             `json:"user_id"`
	ExamType     string             `json:"exam_type"`
	ExamNumber   int                `json:"exam_number"`
	Report       ScoreReport        `json:"report"`
	Answers      map[string]int     `json:"answers"`
	Snapshots    []QuestionSnapshot `json:"snapshots"`
	FinishReason FinishReason       `json:"finish_reason"`
	StartedAt    time.Time          `json:"started_at"`
	CompletedAt  time.Time          `json:"completed_at"`
	// Consistent is false when the rebuilt overall score differs from the stored one.
	Consistent bool `json:"consistent"`
}

// AttemptSummary is one row of a user's attempt history.
type AttemptSummary struct {
	ID             uuid.UUID      `json:"id"`
	ExamType       string         `json:"exam_type"`
	ExamNumber     int            `json:"exam_number"`
	Overall        int            `json:"overall"`
	Subjects       []SubjectScore `json:"subjects"`
	ElapsedSeconds int            `json:"elapsed_seconds"`
	CompletedAt    time.Time      `json:"completed_at"`
}

// Progress aggregates a user's stored attempts.
type Progress struct {
	Attempts        int            `json:"attempts"`
	AverageOverall  int            `json:"average_overall"`
	BestOverall     int            `json:"best_overall"`
	Subjects        []SubjectScore `json:"subjects"`
	TotalTimeSpent  int            `json:"total_time_spent_seconds"`
	LastCompletedAt *time.Time     `json:"last_completed_at,omitempty"`
}

// Draft is a periodic, non-durable snapshot of a running session.
type Draft struct {
	AttemptID  uuid.UUID      `json:"attempt_id"`
	UserID     string         `json:"user_id"`
	ExamType   string         `json:"exam_type"`
	ExamNumber int            `json:"exam_number"`
	Current    int            `json:"current"`
	Answers    map[string]any `json:"answers"`
	Flagged    []string       `json:"flagged"`
	Remaining  int            `json:"remaining"`
	SavedAt    time.Time      `json:"saved_at"`
}
