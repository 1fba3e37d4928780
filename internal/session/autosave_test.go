package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prepaconcours/prepa-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanSink struct {
	drafts chan model.Draft
	err    error
}

func (s *chanSink) SaveDraft(_ context.Context, d model.Draft) error {
	s.drafts <- d
	return s.err
}

func TestAutosaver_SavesOnTick(t *testing.T) {
	ticks := newManualTicks()
	sink := &chanSink{drafts: make(chan model.Draft, 4)}
	a := NewAutosaver(time.Second, ticks.source, func() (model.Draft, bool) {
		return model.Draft{ExamType: "CM", Answers: map[string]any{"q1": "A"}}, true
	}, sink, zerolog.Nop())

	a.Start()
	ticks.tick(t)

	select {
	case d := <-sink.drafts:
		assert.Equal(t, "CM", d.ExamType)
		assert.False(t, d.SavedAt.IsZero())
	case <-time.After(waitFor):
		t.Fatal("no draft saved")
	}

	a.Stop()
	a.Stop()
	a.Wait()
	assert.False(t, ticks.tryTick())
}

func TestAutosaver_SkipsWhenNothingToSave(t *testing.T) {
	ticks := newManualTicks()
	sink := &chanSink{drafts: make(chan model.Draft, 1)}
	a := NewAutosaver(time.Second, ticks.source, func() (model.Draft, bool) {
		return model.Draft{}, false
	}, sink, zerolog.Nop())

	a.Start()
	ticks.tick(t)
	a.Stop()
	a.Wait()

	assert.Empty(t, sink.drafts)
}

func TestAutosaver_FailureKeepsRunning(t *testing.T) {
	ticks := newManualTicks()
	sink := &chanSink{drafts: make(chan model.Draft, 4), err: errors.New("redis down")}
	a := NewAutosaver(time.Second, ticks.source, func() (model.Draft, bool) {
		return model.Draft{}, true
	}, sink, zerolog.Nop())
	defer a.Stop()

	a.Start()
	ticks.tick(t)
	ticks.tick(t)

	require.Eventually(t, func() bool { return len(sink.drafts) == 2 }, waitFor, 5*time.Millisecond)
}

func TestAutosaver_NoSinkIsNoop(t *testing.T) {
	a := NewAutosaver(time.Second, nil, nil, nil, zerolog.Nop())

	a.Start()
	a.Stop()
	a.Wait()
}

func TestIntegrityMonitor(t *testing.T) {
	m := NewIntegrityMonitor(DefaultIntegrityThreshold)

	count, breached := m.FocusLost()
	assert.Equal(t, 1, count)
	assert.False(t, breached)
	assert.True(t, m.Dismiss())
	assert.False(t, m.Dismiss())

	count, breached = m.FocusLost()
	assert.Equal(t, 2, count)
	assert.True(t, breached)
	assert.Equal(t, 2, m.Count())
}
