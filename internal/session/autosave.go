package session

import (
	"context"
	"sync"
	"time"

	"github.com/prepaconcours/prepa-backend/internal/model"
	"github.com/rs/zerolog"
)

// DraftSink receives periodic drafts of a running session.
type DraftSink interface {
	SaveDraft(ctx context.Context, d model.Draft) error
}

// Autosaver pushes a draft to its sink on every tick until stopped. Drafts are
// notifications only; a failed save is logged and the next tick tries again.
type Autosaver struct {
	interval time.Duration
	source   TickSource
	snapshot func() (model.Draft, bool)
	sink     DraftSink
	timeout  time.Duration
	log      zerolog.Logger

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewAutosaver creates an Autosaver. snapshot returns false once the session
// no longer has anything worth saving.
func NewAutosaver(interval time.Duration, source TickSource, snapshot func() (model.Draft, bool), sink DraftSink, log zerolog.Logger) *Autosaver {
	if source == nil {
		source = RealTicks
	}
	return &Autosaver{
		interval: interval,
		source:   source,
		snapshot: snapshot,
		sink:     sink,
		timeout:  5 * time.Second,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start launches the save loop. It does nothing without a sink or interval.
func (a *Autosaver) Start() {
	if a.sink == nil || a.interval <= 0 {
		return
	}
	select {
	case <-a.done:
		return
	default:
	}

	ticks, stopTicks := a.source(a.interval)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer stopTicks()

		for {
			select {
			case <-a.done:
				return
			case <-ticks:
				a.saveOnce()
			}
		}
	}()
}

func (a *Autosaver) saveOnce() {
	d, ok := a.snapshot()
	if !ok {
		return
	}
	d.SavedAt = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.sink.SaveDraft(ctx, d); err != nil {
		a.log.Warn().Err(err).Msg("Autosave failed")
		return
	}
	a.log.Debug().Int("answers", len(d.Answers)).Msg("Draft autosaved")
}

// Stop ends the loop. It is idempotent and does not wait for an in-flight save;
// call Wait for that.
func (a *Autosaver) Stop() {
	a.stopOnce.Do(func() { close(a.done) })
}

// Wait blocks until the loop goroutine has exited.
func (a *Autosaver) Wait() {
	a.wg.Wait()
}
