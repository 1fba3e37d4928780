package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/prepaconcours/prepa-backend/internal/answer"
	"github.com/prepaconcours/prepa-backend/internal/metrics"
	"github.com/prepaconcours/prepa-backend/internal/model"
	"github.com/prepaconcours/prepa-backend/internal/repository"
	"github.com/prepaconcours/prepa-backend/internal/scoring"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrPersistenceUnavailable wraps store failures that a retry may fix.
var ErrPersistenceUnavailable = errors.New("persistence unavailable")

// DraftClearer drops the draft of an exam once its attempt is stored.
type DraftClearer interface {
	ClearDraft(ctx context.Context, userID, examType string, examNumber int) error
}

// AttemptService stores completed attempts and rebuilds them for review.
type AttemptService struct {
	store  repository.AttemptStore
	drafts DraftClearer
	log    zerolog.Logger
}

// NewAttemptService creates a new AttemptService. drafts may be nil.
func NewAttemptService(store repository.AttemptStore, drafts DraftClearer, log zerolog.Logger) *AttemptService {
	return &AttemptService{
		store:  store,
		drafts: drafts,
		log:    log.With().Str("component", "attempt_service").Logger(),
	}
}

// Save replaces any earlier attempt of the same exam with a.
func (s *AttemptService) Save(ctx context.Context, a *model.Attempt) error {
	if a == nil {
		return errors.New("nil attempt")
	}
	if err := s.store.Replace(ctx, a); err != nil {
		metrics.PersistFailures.WithLabelValues("save").Inc()
		return fmt.Errorf("%w: save attempt: %w", ErrPersistenceUnavailable, err)
	}
	metrics.AttemptsPersisted.Inc()
	return nil
}

// Record saves a and clears its draft. It lets the service act as a session
// recorder when attempts are persisted without the queue.
func (s *AttemptService) Record(ctx context.Context, a *model.Attempt) error {
	if err := s.Save(ctx, a); err != nil {
		return err
	}
	if s.drafts != nil {
		if err := s.drafts.ClearDraft(ctx, a.UserID, a.ExamType, a.ExamNumber); err != nil {
			s.log.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("Draft cleanup failed")
		}
	}
	return nil
}

// Delete removes the stored attempt of one exam so it can be retaken from scratch.
func (s *AttemptService) Delete(ctx context.Context, userID, examType string, examNumber int) error {
	found, err := s.store.Delete(ctx, userID, examType, examNumber)
	if err != nil {
		return fmt.Errorf("%w: delete attempt: %w", ErrPersistenceUnavailable, err)
	}
	if !found {
		return repository.ErrAttemptNotFound
	}
	return nil
}

// Load rebuilds a stored attempt for review. The report is recomputed from the
// stored snapshots and raw answers; Consistent tells whether it matches the
// report saved at completion.
func (s *AttemptService) Load(ctx context.Context, userID, examType string, examNumber int) (*model.ReconstructedAttempt, error) {
	a, err := s.store.Get(ctx, userID, examType, examNumber)
	if errors.Is(err, repository.ErrAttemptNotFound) {
		return nil, err
	}
	if err != nil {
		metrics.PersistFailures.WithLabelValues("load").Inc()
		return nil, fmt.Errorf("%w: load attempt: %w", ErrPersistenceUnavailable, err)
	}

	questions, report := scoring.Rebuild(a.Snapshots, a.Answers)
	report.ElapsedSeconds = a.Report.ElapsedSeconds

	consistent := report.Overall == a.Report.Overall &&
		report.Correct == a.Report.Correct &&
		report.Total == a.Report.Total
	if !consistent {
		s.log.Warn().
			Str("attempt_id", a.ID.String()).
			Int("stored_overall", a.Report.Overall).
			Int("rebuilt_overall", report.Overall).
			Msg("Rebuilt report differs from stored report")
	}

	return &model.ReconstructedAttempt{
		ID:           a.ID,
		UserID:       a.UserID,
		ExamType:     a.ExamType,
		ExamNumber:   a.ExamNumber,
		Report:       report,
		Answers:      answer.Normalize(a.Answers, questions),
		Snapshots:    a.Snapshots,
		FinishReason: a.FinishReason,
		StartedAt:    a.StartedAt,
		CompletedAt:  a.CompletedAt,
		Consistent:   consistent,
	}, nil
}

// List returns the user's attempt history, newest first.
func (s *AttemptService) List(ctx context.Context, userID string) ([]model.AttemptSummary, error) {
	attempts, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list attempts: %w", ErrPersistenceUnavailable, err)
	}

	out := make([]model.AttemptSummary, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, model.AttemptSummary{
			ID:             a.ID,
			ExamType:       a.ExamType,
			ExamNumber:     a.ExamNumber,
			Overall:        a.Report.Overall,
			Subjects:       a.Report.Subjects,
			ElapsedSeconds: a.Report.ElapsedSeconds,
			CompletedAt:    a.CompletedAt,
		})
	}
	return out, nil
}

// Progress aggregates every stored attempt of the user. Subject percentages
// are weighted by question count.
func (s *AttemptService) Progress(ctx context.Context, userID string) (*model.Progress, error) {
	attempts, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: load progress: %w", ErrPersistenceUnavailable, err)
	}
	return summarize(attempts), nil
}

func summarize(attempts []model.Attempt) *model.Progress {
	p := &model.Progress{Attempts: len(attempts)}

	type tally struct{ correct, total int }
	bySubject := make(map[model.Subject]*tally, len(model.Subjects))
	for _, sub := range model.Subjects {
		bySubject[sub] = &tally{}
	}

	var sum int64
	for i, a := range attempts {
		sum += int64(a.Report.Overall)
		if i == 0 || a.Report.Overall > p.BestOverall {
			p.BestOverall = a.Report.Overall
		}
		p.TotalTimeSpent += a.Report.ElapsedSeconds
		if p.LastCompletedAt == nil || a.CompletedAt.After(*p.LastCompletedAt) {
			completed := a.CompletedAt
			p.LastCompletedAt = &completed
		}
		for _, ss := range a.Report.Subjects {
			t, ok := bySubject[ss.Subject]
			if !ok {
				t = &tally{}
				bySubject[ss.Subject] = t
			}
			t.correct += ss.Correct
			t.total += ss.Total
		}
	}

	if len(attempts) > 0 {
		p.AverageOverall = int(decimal.NewFromInt(sum).
			Div(decimal.NewFromInt(int64(len(attempts)))).
			Round(0).
			IntPart())
	}

	p.Subjects = make([]model.SubjectScore, 0, len(bySubject))
	for _, sub := range subjectsOf(bySubject) {
		t := bySubject[sub]
		p.Subjects = append(p.Subjects, model.SubjectScore{
			Subject:    sub,
			Correct:    t.correct,
			Total:      t.total,
			Percentage: scoring.Percentage(t.correct, t.total),
		})
	}
	return p
}

// subjectsOf lists known subjects first, then the rest by name.
func subjectsOf[T any](m map[model.Subject]T) []model.Subject {
	out := make([]model.Subject, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Rank(), out[j].Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}
