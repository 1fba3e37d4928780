package model

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusLoading    SessionStatus = "loading"
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
)

// SessionView is a read-only copy of a running session, used for progress events.
type SessionView struct {
	Status     SessionStatus `json:"status"`
	Current    int           `json:"current"`
	Total      int           `json:"total"`
	Answered   []string      `json:"answered"`
	Flagged    []string      `json:"flagged"`
	Remaining  int           `json:"remaining"`
	Violations int           `json:"violations"`
}

// ExamKeyParams binds the exam path parameters shared by stream and review routes.
type ExamKeyParams struct {
	ExamType   string `uri:"exam_type" binding:"required,alphanum,max=8"`
	ExamNumber int    `uri:"exam_number" binding:"required,min=1"`
}
