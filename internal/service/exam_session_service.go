package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prepaconcours/prepa-backend/internal/metrics"
	"github.com/prepaconcours/prepa-backend/internal/model"
	"github.com/prepaconcours/prepa-backend/internal/session"
	"github.com/rs/zerolog"
)

// ExamSessionService builds exam sessions and wires them to question loading,
// persistence and integrity recording.
type ExamSessionService struct {
	questions *QuestionService
	recorder  session.Recorder
	integrity IntegrityRecorder
	drafts    session.DraftSink
	cfg       session.Config
	log       zerolog.Logger
}

// NewExamSessionService creates a new ExamSessionService. drafts may be nil.
func NewExamSessionService(
	questions *QuestionService,
	recorder session.Recorder,
	integrity IntegrityRecorder,
	drafts session.DraftSink,
	cfg session.Config,
	log zerolog.Logger,
) *ExamSessionService {
	return &ExamSessionService{
		questions: questions,
		recorder:  recorder,
		integrity: integrity,
		drafts:    drafts,
		cfg:       cfg,
		log:       log,
	}
}

// Config returns the settings every new session runs with.
func (s *ExamSessionService) Config() session.Config {
	return s.cfg
}

// NewSession creates a session in the loading state. The caller must Abandon
// it when the connection ends.
func (s *ExamSessionService) NewSession(userID, examType string, examNumber int, listener session.Listener) *session.Machine {
	return session.New(session.Options{
		UserID:     userID,
		ExamType:   examType,
		ExamNumber: examNumber,
		Config:     s.cfg,
		Recorder:   s.recorder,
		Drafts:     s.drafts,
		Listener:   listener,
		Log:        s.log,
	})
}

// Load fetches the exam's questions and starts m. It returns ErrQuestionLoad
// when the bank cannot be read and session.ErrEmptyQuestionSet when it is empty.
func (s *ExamSessionService) Load(ctx context.Context, m *session.Machine, examType string, examNumber int) error {
	questions, err := s.questions.FetchExam(ctx, examType, examNumber)
	if err != nil {
		return err
	}
	if err := m.Load(questions); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	return nil
}

// FocusLost forwards a focus loss to m and records it. A recording failure is
// logged and does not affect the session.
func (s *ExamSessionService) FocusLost(ctx context.Context, m *session.Machine, userID, examType string, examNumber int) (int, error) {
	count, err := m.FocusLost()
	if err != nil {
		return 0, err
	}

	if s.integrity == nil {
		return count, nil
	}
	event := model.IntegrityEvent{
		AttemptID:  m.ID(),
		UserID:     userID,
		ExamType:   examType,
		ExamNumber: examNumber,
		Count:      count,
		Threshold:  s.cfg.IntegrityThreshold,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.integrity.RecordIntegrity(ctx, event); err != nil {
		metrics.PersistFailures.WithLabelValues("integrity").Inc()
		s.log.Warn().Err(err).Str("attempt_id", m.ID().String()).Msg("Failed to record integrity event")
	}
	return count, nil
}
