package model

import (
	"time"

	"github.com/google/uuid"
)

// IntegrityEvent is one focus loss reported by a running session.
type IntegrityEvent struct {
	AttemptID  uuid.UUID `json:"attempt_id"`
	UserID     string    `json:"user_id"`
	ExamType   string    `json:"exam_type"`
	ExamNumber int       `json:"exam_number"`
	Count      int       `json:"count"`
	Threshold  int       `json:"threshold"`
	OccurredAt time.Time `json:"occurred_at"`
}
