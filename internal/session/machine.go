// Package session runs one timed exam attempt: the countdown, the answer map,
// flags, focus-loss tracking and the single scoring pass at completion.
package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prepaconcours/prepa-backend/internal/answer"
	"github.com/prepaconcours/prepa-backend/internal/metrics"
	"github.com/prepaconcours/prepa-backend/internal/model"
	"github.com/prepaconcours/prepa-backend/internal/scoring"
	"github.com/rs/zerolog"
)

// DefaultDuration is the length of a full mock exam.
const DefaultDuration = 3 * time.Hour

var (
	// ErrInvalidTransition is returned for operations called in the wrong state.
	ErrInvalidTransition = errors.New("operation not allowed in current session state")
	// ErrEmptyQuestionSet is returned by Load when there is nothing to ask.
	ErrEmptyQuestionSet = errors.New("empty question set")
	// ErrIndexOutOfRange is returned by Jump for an index outside the exam.
	ErrIndexOutOfRange = errors.New("question index out of range")
)

// Recorder persists a completed attempt.
type Recorder interface {
	Record(ctx context.Context, a *model.Attempt) error
}

// Listener receives session events. Methods may be called from the timer
// goroutine as well as from the caller of an operation.
type Listener interface {
	OnTick(remaining int)
	OnProgress(v model.SessionView)
	OnIntegrityWarning(count, threshold int)
	OnCompleted(a *model.Attempt, persisted bool)
}

// Config holds the per-exam settings.
type Config struct {
	Duration           time.Duration
	IntegrityThreshold int
	AutosaveInterval   time.Duration
	PersistTimeout     time.Duration
}

// Options wires a Machine to its collaborators. Only the identity fields are required.
type Options struct {
	UserID     string
	ExamType   string
	ExamNumber int
	Config     Config

	Recorder Recorder
	Drafts   DraftSink
	Listener Listener

	// Ticks drives the countdown, AutosaveTicks the autosaver. Nil uses real tickers.
	Ticks         TickSource
	AutosaveTicks TickSource
	Clock         func() time.Time
	Log           zerolog.Logger
}

// Machine is the state of one exam attempt. It moves loading → in_progress →
// completed and never back. Operations in the wrong state are rejected with
// ErrInvalidTransition and leave the state untouched.
type Machine struct {
	mu sync.Mutex

	id         uuid.UUID
	userID     string
	examType   string
	examNumber int
	cfg        Config

	status    model.SessionStatus
	closed    bool
	questions []model.Question
	current   int
	answers   map[string]any
	answered  map[string]struct{}
	flagged   map[string]struct{}
	remaining int
	firstSeen map[int]time.Time
	startedAt time.Time
	result    *model.Attempt

	timer     *Timer
	autosaver *Autosaver
	integrity *IntegrityMonitor

	recorder Recorder
	listener Listener
	clock    func() time.Time
	log      zerolog.Logger
}

// New creates a Machine in the loading state.
func New(opts Options) *Machine {
	cfg := opts.Config
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 10 * time.Second
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	listener := opts.Listener
	if listener == nil {
		listener = nopListener{}
	}

	id := uuid.New()
	m := &Machine{
		id:         id,
		userID:     opts.UserID,
		examType:   opts.ExamType,
		examNumber: opts.ExamNumber,
		cfg:        cfg,
		status:     model.SessionStatusLoading,
		answers:    make(map[string]any),
		answered:   make(map[string]struct{}),
		flagged:    make(map[string]struct{}),
		firstSeen:  make(map[int]time.Time),
		remaining:  int(cfg.Duration / time.Second),
		timer:      NewTimer(opts.Ticks),
		integrity:  NewIntegrityMonitor(cfg.IntegrityThreshold),
		recorder:   opts.Recorder,
		listener:   listener,
		clock:      clock,
		log: opts.Log.With().
			Str("component", "exam_session").
			Str("attempt_id", id.String()).
			Str("user_id", opts.UserID).
			Str("exam_type", opts.ExamType).
			Int("exam_number", opts.ExamNumber).
			Logger(),
	}
	m.autosaver = NewAutosaver(cfg.AutosaveInterval, opts.AutosaveTicks, m.draft, opts.Drafts, m.log)
	return m
}

// ID returns the attempt id.
func (m *Machine) ID() uuid.UUID { return m.id }

// Status returns the current state.
func (m *Machine) Status() model.SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Result returns the completed attempt, or nil before completion.
func (m *Machine) Result() *model.Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result
}

// View returns a copy of the current session state.
func (m *Machine) View() model.SessionView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

// Questions returns the loaded questions.
func (m *Machine) Questions() []model.Question {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Question(nil), m.questions...)
}

// Load installs the question set and starts the countdown.
func (m *Machine) Load(questions []model.Question) error {
	m.mu.Lock()
	if err := m.guardLocked("load", model.SessionStatusLoading); err != nil {
		m.mu.Unlock()
		return err
	}
	if len(questions) == 0 {
		m.mu.Unlock()
		m.log.Error().Msg("Cannot start session without questions")
		return ErrEmptyQuestionSet
	}

	now := m.clock()
	m.questions = append([]model.Question(nil), questions...)
	m.current = 0
	m.firstSeen[0] = now
	m.startedAt = now
	m.status = model.SessionStatusInProgress
	total := m.remaining
	view := m.viewLocked()
	m.mu.Unlock()

	// Started outside the lock: a zero-length exam expires synchronously.
	if err := m.timer.Start(total, m.handleTick, m.handleExpire); err != nil {
		m.log.Error().Err(err).Msg("Timer start failed")
	}
	m.autosaver.Start()

	metrics.SessionsStarted.Inc()
	metrics.ActiveSessions.Inc()
	m.log.Info().Int("questions", len(questions)).Int("duration_s", total).Msg("Exam session started")

	m.listener.OnProgress(view)
	return nil
}

// SelectAnswer stores raw as the answer to the current question and returns
// live feedback. The feedback is informational; Finish rescores everything.
func (m *Machine) SelectAnswer(raw any) (model.QuestionOutcome, error) {
	m.mu.Lock()
	if err := m.guardLocked("select_answer", model.SessionStatusInProgress); err != nil {
		m.mu.Unlock()
		return model.QuestionOutcome{}, err
	}

	q := m.questions[m.current]
	outcome := scoring.Evaluate(q, raw)
	outcome.Position = m.current
	if !outcome.Answered {
		// An unparseable value counts as no answer, so it replaces any previous one.
		_, had := m.answers[q.ID]
		delete(m.answers, q.ID)
		view := m.viewLocked()
		m.mu.Unlock()
		m.log.Debug().Str("question_id", q.ID).Interface("value", raw).Msg("Cleared answer on unparseable value")
		if had {
			m.listener.OnProgress(view)
		}
		return outcome, answer.ErrParse
	}

	m.answers[q.ID] = raw
	m.answered[q.ID] = struct{}{}
	view := m.viewLocked()
	m.mu.Unlock()

	m.listener.OnProgress(view)
	return outcome, nil
}

// Next moves to the following question. On the last question it finishes the session.
func (m *Machine) Next() error {
	m.mu.Lock()
	if err := m.guardLocked("next", model.SessionStatusInProgress); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.current == len(m.questions)-1 {
		a := m.finishLocked(model.FinishLastQuestion)
		m.mu.Unlock()
		m.complete(a)
		return nil
	}
	return m.moveLocked(m.current + 1)
}

// Previous moves back one question; on the first question it stays put.
func (m *Machine) Previous() error {
	m.mu.Lock()
	if err := m.guardLocked("previous", model.SessionStatusInProgress); err != nil {
		m.mu.Unlock()
		return err
	}
	target := m.current - 1
	if target < 0 {
		target = 0
	}
	return m.moveLocked(target)
}

// Jump moves directly to index, as the question sidebar does.
func (m *Machine) Jump(index int) error {
	m.mu.Lock()
	if err := m.guardLocked("jump", model.SessionStatusInProgress); err != nil {
		m.mu.Unlock()
		return err
	}
	if index < 0 || index >= len(m.questions) {
		m.mu.Unlock()
		return ErrIndexOutOfRange
	}
	return m.moveLocked(index)
}

// moveLocked sets the current index and releases the lock.
func (m *Machine) moveLocked(index int) error {
	m.current = index
	if _, seen := m.firstSeen[index]; !seen {
		m.firstSeen[index] = m.clock()
	}
	view := m.viewLocked()
	m.mu.Unlock()

	m.listener.OnProgress(view)
	return nil
}

// ToggleFlag marks or unmarks the current question for review.
func (m *Machine) ToggleFlag() (bool, error) {
	m.mu.Lock()
	if err := m.guardLocked("toggle_flag", model.SessionStatusInProgress); err != nil {
		m.mu.Unlock()
		return false, err
	}

	id := m.questions[m.current].ID
	_, flagged := m.flagged[id]
	if flagged {
		delete(m.flagged, id)
	} else {
		m.flagged[id] = struct{}{}
	}
	view := m.viewLocked()
	m.mu.Unlock()

	m.listener.OnProgress(view)
	return !flagged, nil
}

// Finish completes the session on the candidate's request. Calling it on a
// completed session does nothing.
func (m *Machine) Finish() error {
	return m.finish(model.FinishSubmitted)
}

// FocusLost records an integrity violation and completes the session once the
// threshold is reached.
func (m *Machine) FocusLost() (int, error) {
	m.mu.Lock()
	if err := m.guardLocked("focus_lost", model.SessionStatusInProgress); err != nil {
		m.mu.Unlock()
		return 0, err
	}

	count, breached := m.integrity.FocusLost()
	threshold := m.integrity.Threshold()
	var a *model.Attempt
	if breached {
		a = m.finishLocked(model.FinishIntegrity)
	}
	m.mu.Unlock()

	metrics.IntegrityViolations.Inc()
	m.log.Warn().Int("count", count).Int("threshold", threshold).Msg("Focus lost during exam")

	m.listener.OnIntegrityWarning(count, threshold)
	m.complete(a)
	return count, nil
}

// DismissWarning acknowledges the last integrity warning.
func (m *Machine) DismissWarning() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guardLocked("dismiss_warning", model.SessionStatusInProgress); err != nil {
		return err
	}
	m.integrity.Dismiss()
	return nil
}

// Abandon releases the timer and autosaver without scoring. It is used when the
// owner goes away before completion and is safe to call in any state.
func (m *Machine) Abandon() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	wasRunning := m.status == model.SessionStatusInProgress
	m.timer.Stop()
	m.autosaver.Stop()
	m.mu.Unlock()

	if wasRunning {
		metrics.ActiveSessions.Dec()
		metrics.SessionsAbandoned.Inc()
		m.log.Info().Msg("Exam session abandoned")
	}
}

func (m *Machine) finish(reason model.FinishReason) error {
	m.mu.Lock()
	if m.status == model.SessionStatusCompleted {
		m.mu.Unlock()
		return nil
	}
	if err := m.guardLocked("finish", model.SessionStatusInProgress); err != nil {
		m.mu.Unlock()
		return err
	}
	a := m.finishLocked(reason)
	m.mu.Unlock()

	m.complete(a)
	return nil
}

// finishLocked is the only place a ScoreReport is produced. It returns nil if
// the session is not running.
func (m *Machine) finishLocked(reason model.FinishReason) *model.Attempt {
	if m.status != model.SessionStatusInProgress || m.closed {
		return nil
	}
	m.status = model.SessionStatusCompleted
	m.timer.Stop()
	m.autosaver.Stop()

	now := m.clock()
	report := scoring.Score(m.questions, m.answers)
	elapsed := int(m.cfg.Duration/time.Second) - m.remaining
	if elapsed < 0 {
		elapsed = 0
	}
	report.ElapsedSeconds = elapsed

	answers := make(map[string]any, len(m.answers))
	for k, v := range m.answers {
		answers[k] = v
	}

	m.result = &model.Attempt{
		ID:           m.id,
		UserID:       m.userID,
		ExamType:     m.examType,
		ExamNumber:   m.examNumber,
		Report:       report,
		Answers:      answers,
		Snapshots:    scoring.Snapshots(m.questions, report, m.timeSpentLocked(now)),
		Violations:   m.integrity.Count(),
		FinishReason: reason,
		StartedAt:    m.startedAt,
		CompletedAt:  now,
	}
	return m.result
}

// complete persists and announces a freshly finished attempt. Persistence is
// best-effort: the completion event is sent either way.
func (m *Machine) complete(a *model.Attempt) {
	if a == nil {
		return
	}

	metrics.ActiveSessions.Dec()
	metrics.SessionsCompleted.WithLabelValues(string(a.FinishReason)).Inc()

	// A draft save still in flight must land before the attempt replaces it.
	m.autosaver.Wait()

	persisted := false
	if m.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.PersistTimeout)
		err := m.recorder.Record(ctx, a)
		cancel()
		if err != nil {
			metrics.PersistFailures.WithLabelValues("record").Inc()
			m.log.Error().Err(err).Msg("Failed to persist attempt")
		} else {
			persisted = true
		}
	}

	m.log.Info().
		Str("reason", string(a.FinishReason)).
		Int("overall", a.Report.Overall).
		Int("correct", a.Report.Correct).
		Int("total", a.Report.Total).
		Int("elapsed_s", a.Report.ElapsedSeconds).
		Bool("persisted", persisted).
		Msg("Exam session completed")

	m.listener.OnCompleted(a, persisted)
}

func (m *Machine) handleTick(remaining int) {
	m.mu.Lock()
	if m.status != model.SessionStatusInProgress || m.closed {
		m.mu.Unlock()
		return
	}
	m.remaining = remaining
	m.mu.Unlock()

	m.listener.OnTick(remaining)
}

func (m *Machine) handleExpire(exhausted bool) {
	if !exhausted {
		return
	}
	if err := m.finish(model.FinishTimeExpired); err != nil {
		m.log.Debug().Err(err).Msg("Timer expired after session ended")
	}
}

// draft feeds the autosaver.
func (m *Machine) draft() (model.Draft, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != model.SessionStatusInProgress || m.closed {
		return model.Draft{}, false
	}

	answers := make(map[string]any, len(m.answers))
	for k, v := range m.answers {
		answers[k] = v
	}
	return model.Draft{
		AttemptID:  m.id,
		UserID:     m.userID,
		ExamType:   m.examType,
		ExamNumber: m.examNumber,
		Current:    m.current,
		Answers:    answers,
		Flagged:    sortedKeys(m.flagged),
		Remaining:  m.remaining,
	}, true
}

func (m *Machine) guardLocked(op string, want model.SessionStatus) error {
	if m.closed || m.status != want {
		m.log.Warn().
			Str("op", op).
			Str("status", string(m.status)).
			Bool("closed", m.closed).
			Msg("Rejected operation in current session state")
		return ErrInvalidTransition
	}
	return nil
}

func (m *Machine) viewLocked() model.SessionView {
	return model.SessionView{
		Status:     m.status,
		Current:    m.current,
		Total:      len(m.questions),
		Answered:   sortedKeys(m.answered),
		Flagged:    sortedKeys(m.flagged),
		Remaining:  m.remaining,
		Violations: m.integrity.Count(),
	}
}

// timeSpentLocked attributes to each visited question the time until the next
// first visit, and to the last one the time until now.
func (m *Machine) timeSpentLocked(now time.Time) map[int]int {
	visited := make([]int, 0, len(m.firstSeen))
	for idx := range m.firstSeen {
		visited = append(visited, idx)
	}
	sort.Slice(visited, func(i, j int) bool {
		a, b := m.firstSeen[visited[i]], m.firstSeen[visited[j]]
		if a.Equal(b) {
			return visited[i] < visited[j]
		}
		return a.Before(b)
	})

	spent := make(map[int]int, len(visited))
	for i, idx := range visited {
		end := now
		if i+1 < len(visited) {
			end = m.firstSeen[visited[i+1]]
		}
		if d := end.Sub(m.firstSeen[idx]); d > 0 {
			spent[idx] = int(d / time.Second)
		}
	}
	return spent
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type nopListener struct{}

func (nopListener) OnTick(int)                       {}
func (nopListener) OnProgress(model.SessionView)     {}
func (nopListener) OnIntegrityWarning(int, int)      {}
func (nopListener) OnCompleted(*model.Attempt, bool) {}
