package websocket

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/prepaconcours/prepa-backend/internal/model"
	"github.com/prepaconcours/prepa-backend/internal/response"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionLoad           Action = "load"
	ActionAnswer         Action = "answer"
	ActionNext           Action = "next"
	ActionPrevious       Action = "previous"
	ActionJump           Action = "jump"
	ActionFlag           Action = "flag"
	ActionFinish         Action = "finish"
	ActionFocusLost      Action = "focus_lost"
	ActionDismissWarning Action = "dismiss_warning"
	ActionPing           Action = "ping"
)

// Request is one client message. Value is only read by "answer" and Index by "jump".
type Request struct {
	Action Action          `json:"action" validate:"required,oneof=load answer next previous jump flag finish focus_lost dismiss_warning ping"`
	Value  json.RawMessage `json:"value,omitempty"`
	Index  *int            `json:"index,omitempty" validate:"omitempty,min=0"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventLoaded           Event = "loaded"
	EventTick             Event = "tick"
	EventProgress         Event = "progress"
	EventFeedback         Event = "feedback"
	EventIntegrityWarning Event = "integrity_warning"
	EventCompleted        Event = "completed"
	EventError            Event = "error"
	EventPong             Event = "pong"
)

// LoadedResponse carries the questions without their answer key.
type LoadedResponse struct {
	Event              Event                  `json:"event"`
	AttemptID          uuid.UUID              `json:"attempt_id"`
	Questions          []model.PublicQuestion `json:"questions"`
	DurationSeconds    int                    `json:"duration_seconds"`
	IntegrityThreshold int                    `json:"integrity_threshold"`
}

type TickResponse struct {
	Event     Event `json:"event"`
	Remaining int   `json:"remaining"`
}

type ProgressResponse struct {
	Event Event `json:"event"`
	model.SessionView
}

type FeedbackResponse struct {
	Event      Event  `json:"event"`
	QuestionID string `json:"question_id"`
	Selected   *int   `json:"selected"`
	Answered   bool   `json:"answered"`
	Correct    bool   `json:"correct"`
}

type IntegrityWarningResponse struct {
	Event     Event `json:"event"`
	Count     int   `json:"count"`
	Threshold int   `json:"threshold"`
}

type CompletedResponse struct {
	Event        Event              `json:"event"`
	AttemptID    uuid.UUID          `json:"attempt_id"`
	FinishReason model.FinishReason `json:"finish_reason"`
	Report       model.ScoreReport  `json:"report"`
	Persisted    bool               `json:"persisted"`
}

type ErrorResponse struct {
	Event   Event             `json:"event"`
	Code    response.ErrCode  `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
