package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prepaconcours/prepa-backend/internal/answer"
	"github.com/prepaconcours/prepa-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

// manualTicks is a TickSource driven by the test.
type manualTicks struct {
	ch chan time.Time
}

func newManualTicks() *manualTicks {
	return &manualTicks{ch: make(chan time.Time)}
}

func (m *manualTicks) source(time.Duration) (<-chan time.Time, func()) {
	return m.ch, func() {}
}

// tick delivers one tick, failing if nobody is listening.
func (m *manualTicks) tick(t *testing.T) {
	t.Helper()
	select {
	case m.ch <- time.Now():
	case <-time.After(waitFor):
		t.Fatal("tick was not consumed")
	}
}

// tryTick reports whether a tick was consumed within a short window.
func (m *manualTicks) tryTick() bool {
	select {
	case m.ch <- time.Now():
		return true
	case <-time.After(50 * time.Millisecond):
		return false
	}
}

func idleTicks(time.Duration) (<-chan time.Time, func()) {
	return make(chan time.Time), func() {}
}

type fakeRecorder struct {
	mu       sync.Mutex
	attempts []*model.Attempt
	err      error
}

func (r *fakeRecorder) Record(_ context.Context, a *model.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
	return r.err
}

func (r *fakeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

type completion struct {
	attempt   *model.Attempt
	persisted bool
}

type fakeListener struct {
	mu        sync.Mutex
	ticks     []int
	warnings  []int
	progress  []model.SessionView
	completed chan completion
}

func newFakeListener() *fakeListener {
	return &fakeListener{completed: make(chan completion, 4)}
}

func (l *fakeListener) OnTick(remaining int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ticks = append(l.ticks, remaining)
}

func (l *fakeListener) OnProgress(v model.SessionView) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.progress = append(l.progress, v)
}

func (l *fakeListener) OnIntegrityWarning(count, _ int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, count)
}

func (l *fakeListener) OnCompleted(a *model.Attempt, persisted bool) {
	l.completed <- completion{attempt: a, persisted: persisted}
}

func (l *fakeListener) waitCompleted(t *testing.T) completion {
	t.Helper()
	select {
	case c := <-l.completed:
		return c
	case <-time.After(waitFor):
		t.Fatal("session did not complete")
		return completion{}
	}
}

// examQuestions returns one four-option question per subject with correct
// indexes 2, 0, 1.
func examQuestions() []model.Question {
	mk := func(id string, s model.Subject, correct int) model.Question {
		return model.Question{
			ID:           id,
			Prompt:       "Question " + id,
			Options:      []string{"A", "B", "C", "D"},
			CorrectIndex: correct,
			Subject:      s,
			Difficulty:   model.DifficultyMedium,
		}
	}
	return []model.Question{
		mk("q1", model.SubjectAnglais, 2),
		mk("q2", model.SubjectCultureGenerale, 0),
		mk("q3", model.SubjectLogique, 1),
	}
}

type harness struct {
	m        *Machine
	recorder *fakeRecorder
	listener *fakeListener
}

func newHarness(t *testing.T, cfg Config, ticks TickSource) *harness {
	t.Helper()
	if ticks == nil {
		ticks = idleTicks
	}
	h := &harness{recorder: &fakeRecorder{}, listener: newFakeListener()}
	h.m = New(Options{
		UserID:     "user-1",
		ExamType:   "CM",
		ExamNumber: 1,
		Config:     cfg,
		Recorder:   h.recorder,
		Listener:   h.listener,
		Ticks:      ticks,
		Log:        zerolog.Nop(),
	})
	t.Cleanup(h.m.Abandon)
	return h
}

func TestMachine_RejectsAnswerWhileLoading(t *testing.T) {
	h := newHarness(t, Config{}, nil)

	_, err := h.m.SelectAnswer(0)

	assert.ErrorIs(t, err, ErrInvalidTransition)
	view := h.m.View()
	assert.Equal(t, model.SessionStatusLoading, view.Status)
	assert.Empty(t, view.Answered)
	assert.ErrorIs(t, h.m.Next(), ErrInvalidTransition)
	assert.ErrorIs(t, h.m.Finish(), ErrInvalidTransition)
}

func TestMachine_LoadEmptyQuestionSet(t *testing.T) {
	h := newHarness(t, Config{}, nil)

	err := h.m.Load(nil)

	assert.ErrorIs(t, err, ErrEmptyQuestionSet)
	assert.Equal(t, model.SessionStatusLoading, h.m.Status())
}

func TestMachine_LoadTwice(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	require.NoError(t, h.m.Load(examQuestions()))

	assert.ErrorIs(t, h.m.Load(examQuestions()), ErrInvalidTransition)
}

func TestMachine_FullWalkthrough(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	require.NoError(t, h.m.Load(examQuestions()))

	fb, err := h.m.SelectAnswer(2)
	require.NoError(t, err)
	assert.True(t, fb.Correct)
	require.NoError(t, h.m.Next())

	_, err = h.m.SelectAnswer("A")
	require.NoError(t, err)
	require.NoError(t, h.m.Next())

	fb, err = h.m.SelectAnswer(3)
	require.NoError(t, err)
	assert.False(t, fb.Correct)

	require.NoError(t, h.m.Finish())

	c := h.listener.waitCompleted(t)
	assert.True(t, c.persisted)
	a := c.attempt
	assert.Equal(t, 67, a.Report.Overall)
	assert.Equal(t, 2, a.Report.Correct)
	assert.Equal(t, model.FinishSubmitted, a.FinishReason)
	require.Len(t, a.Snapshots, 3)
	assert.True(t, a.Snapshots[0].IsCorrect)
	assert.True(t, a.Snapshots[1].IsCorrect)
	assert.False(t, a.Snapshots[2].IsCorrect)
	require.NotNil(t, a.Snapshots[2].Selected)
	assert.Equal(t, 3, *a.Snapshots[2].Selected)
	assert.Equal(t, "A", a.Answers["q2"])

	assert.Equal(t, model.SessionStatusCompleted, h.m.Status())
	assert.Equal(t, 1, h.recorder.count())
	assert.Same(t, a, h.m.Result())
}

func TestMachine_FinishIsIdempotent(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	require.NoError(t, h.m.Load(examQuestions()))

	require.NoError(t, h.m.Finish())
	require.NoError(t, h.m.Finish())

	h.listener.waitCompleted(t)
	assert.Equal(t, 1, h.recorder.count())
	select {
	case <-h.listener.completed:
		t.Fatal("second completion event")
	default:
	}
}

func TestMachine_NextOnLastQuestionFinishes(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	require.NoError(t, h.m.Load(examQuestions()))
	require.NoError(t, h.m.Jump(2))

	require.NoError(t, h.m.Next())

	c := h.listener.waitCompleted(t)
	assert.Equal(t, model.FinishLastQuestion, c.attempt.FinishReason)
	assert.ErrorIs(t, h.m.Next(), ErrInvalidTransition)
}

func TestMachine_PreviousClampsAtFirstQuestion(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	require.NoError(t, h.m.Load(examQuestions()))

	require.NoError(t, h.m.Previous())

	assert.Equal(t, 0, h.m.View().Current)
	assert.ErrorIs(t, h.m.Jump(3), ErrIndexOutOfRange)
	assert.ErrorIs(t, h.m.Jump(-1), ErrIndexOutOfRange)
}

func TestMachine_UnparseableAnswerIsIgnored(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	require.NoError(t, h.m.Load(examQuestions()))

	_, err := h.m.SelectAnswer("Z")

	assert.ErrorIs(t, err, answer.ErrParse)
	assert.Empty(t, h.m.View().Answered)
}

func TestMachine_UnparseableAnswerClearsPrevious(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	require.NoError(t, h.m.Load(examQuestions()))

	fb, err := h.m.SelectAnswer("C")
	require.NoError(t, err)
	assert.True(t, fb.Correct)

	_, err = h.m.SelectAnswer("Z")
	assert.ErrorIs(t, err, answer.ErrParse)
	assert.Equal(t, []string{"q1"}, h.m.View().Answered)

	require.NoError(t, h.m.Finish())
	a := h.listener.waitCompleted(t).attempt
	assert.Equal(t, 0, a.Report.Correct)
	assert.Equal(t, 0, a.Report.Overall)
	assert.NotContains(t, a.Answers, "q1")
	assert.Nil(t, a.Snapshots[0].Selected)
}

func TestMachine_AnsweredSetOnlyGrows(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	require.NoError(t, h.m.Load(examQuestions()))

	_, err := h.m.SelectAnswer("B")
	require.NoError(t, err)
	_, err = h.m.SelectAnswer("C")
	require.NoError(t, err)
	require.NoError(t, h.m.Next())

	assert.Equal(t, []string{"q1"}, h.m.View().Answered)
}

func TestMachine_ToggleFlag(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	require.NoError(t, h.m.Load(examQuestions()))

	flagged, err := h.m.ToggleFlag()
	require.NoError(t, err)
	assert.True(t, flagged)
	assert.Equal(t, []string{"q1"}, h.m.View().Flagged)

	flagged, err = h.m.ToggleFlag()
	require.NoError(t, err)
	assert.False(t, flagged)
	assert.Empty(t, h.m.View().Flagged)
}

func TestMachine_IntegrityThresholdForcesCompletion(t *testing.T) {
	h := newHarness(t, Config{IntegrityThreshold: 2}, nil)
	require.NoError(t, h.m.Load(examQuestions()))

	count, err := h.m.FocusLost()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.NoError(t, h.m.DismissWarning())
	assert.Equal(t, model.SessionStatusInProgress, h.m.Status())

	count, err = h.m.FocusLost()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	c := h.listener.waitCompleted(t)
	assert.Equal(t, model.FinishIntegrity, c.attempt.FinishReason)
	assert.Equal(t, 2, c.attempt.Violations)
	assert.Equal(t, model.SessionStatusCompleted, h.m.Status())
	assert.Equal(t, 0, h.m.View().Current)
}

func TestMachine_IntegrityDisabled(t *testing.T) {
	h := newHarness(t, Config{IntegrityThreshold: 0}, nil)
	require.NoError(t, h.m.Load(examQuestions()))

	for i := 0; i < 5; i++ {
		_, err := h.m.FocusLost()
		require.NoError(t, err)
	}

	assert.Equal(t, model.SessionStatusInProgress, h.m.Status())
	assert.Equal(t, 5, h.m.View().Violations)
}

func TestMachine_TimerExpiryFinishes(t *testing.T) {
	ticks := newManualTicks()
	h := newHarness(t, Config{Duration: 2 * time.Second}, ticks.source)
	require.NoError(t, h.m.Load(examQuestions()))
	_, err := h.m.SelectAnswer("C")
	require.NoError(t, err)

	ticks.tick(t)
	ticks.tick(t)

	c := h.listener.waitCompleted(t)
	assert.Equal(t, model.FinishTimeExpired, c.attempt.FinishReason)
	assert.Equal(t, 2, c.attempt.Report.ElapsedSeconds)
	assert.Equal(t, 33, c.attempt.Report.Overall)
	assert.False(t, ticks.tryTick(), "tick consumed after expiry")
	assert.Equal(t, 1, h.recorder.count())
}

func TestMachine_PersistFailureStillCompletes(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	h.recorder.err = errors.New("store down")
	require.NoError(t, h.m.Load(examQuestions()))

	require.NoError(t, h.m.Finish())

	c := h.listener.waitCompleted(t)
	assert.False(t, c.persisted)
	assert.Equal(t, model.SessionStatusCompleted, h.m.Status())
}

func TestMachine_FirstTouchTiming(t *testing.T) {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	now := start
	h := &harness{recorder: &fakeRecorder{}, listener: newFakeListener()}
	h.m = New(Options{
		UserID:   "user-1",
		ExamType: "CM",
		Recorder: h.recorder,
		Listener: h.listener,
		Ticks:    idleTicks,
		Clock:    func() time.Time { return now },
		Log:      zerolog.Nop(),
	})
	t.Cleanup(h.m.Abandon)

	require.NoError(t, h.m.Load(examQuestions()))
	now = start.Add(10 * time.Second)
	require.NoError(t, h.m.Next())
	now = start.Add(15 * time.Second)
	require.NoError(t, h.m.Previous())
	now = start.Add(20 * time.Second)
	require.NoError(t, h.m.Next())
	now = start.Add(30 * time.Second)
	require.NoError(t, h.m.Finish())

	a := h.listener.waitCompleted(t).attempt
	assert.Equal(t, 10, a.Snapshots[0].TimeSpentSeconds)
	assert.Equal(t, 20, a.Snapshots[1].TimeSpentSeconds)
	assert.Equal(t, 0, a.Snapshots[2].TimeSpentSeconds)
	assert.Equal(t, start, a.StartedAt)
	assert.Equal(t, now, a.CompletedAt)
}

func TestMachine_AbandonReleasesResources(t *testing.T) {
	ticks := newManualTicks()
	h := newHarness(t, Config{Duration: 10 * time.Second}, ticks.source)
	require.NoError(t, h.m.Load(examQuestions()))

	h.m.Abandon()
	h.m.Abandon()

	ticks.tryTick()
	h.listener.mu.Lock()
	assert.Empty(t, h.listener.ticks, "tick delivered after abandon")
	h.listener.mu.Unlock()
	_, err := h.m.SelectAnswer(0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, h.m.Finish(), ErrInvalidTransition)
	assert.Equal(t, 0, h.recorder.count())
}

func TestMachine_TicksUpdateRemaining(t *testing.T) {
	ticks := newManualTicks()
	h := newHarness(t, Config{Duration: 5 * time.Second}, ticks.source)
	require.NoError(t, h.m.Load(examQuestions()))

	ticks.tick(t)
	ticks.tick(t)

	require.Eventually(t, func() bool { return h.m.View().Remaining == 3 }, waitFor, 5*time.Millisecond)
}

// blockingSink holds every SaveDraft until release is closed.
type blockingSink struct {
	entered  chan struct{}
	release  chan struct{}
	finished atomic.Bool
}

func (s *blockingSink) SaveDraft(context.Context, model.Draft) error {
	s.entered <- struct{}{}
	<-s.release
	s.finished.Store(true)
	return nil
}

type recorderFunc func(ctx context.Context, a *model.Attempt) error

func (f recorderFunc) Record(ctx context.Context, a *model.Attempt) error { return f(ctx, a) }

func TestMachine_FinishWaitsForInFlightDraft(t *testing.T) {
	autosaveTicks := newManualTicks()
	sink := &blockingSink{entered: make(chan struct{}, 1), release: make(chan struct{})}
	listener := newFakeListener()

	var recorded atomic.Int32
	var draftLanded atomic.Bool
	m := New(Options{
		UserID:     "user-1",
		ExamType:   "CM",
		ExamNumber: 1,
		Config:     Config{AutosaveInterval: time.Second},
		Recorder: recorderFunc(func(context.Context, *model.Attempt) error {
			draftLanded.Store(sink.finished.Load())
			recorded.Add(1)
			return nil
		}),
		Drafts:        sink,
		Listener:      listener,
		Ticks:         idleTicks,
		AutosaveTicks: autosaveTicks.source,
		Log:           zerolog.Nop(),
	})
	t.Cleanup(m.Abandon)
	require.NoError(t, m.Load(examQuestions()))
	_, err := m.SelectAnswer("C")
	require.NoError(t, err)

	autosaveTicks.tick(t)
	select {
	case <-sink.entered:
	case <-time.After(waitFor):
		t.Fatal("draft save not started")
	}

	finished := make(chan error, 1)
	go func() { finished <- m.Finish() }()

	assert.Never(t, func() bool { return recorded.Load() > 0 }, 100*time.Millisecond, 5*time.Millisecond)

	close(sink.release)
	require.NoError(t, <-finished)
	c := listener.waitCompleted(t)

	assert.True(t, c.persisted)
	assert.EqualValues(t, 1, recorded.Load())
	assert.True(t, draftLanded.Load())
}
