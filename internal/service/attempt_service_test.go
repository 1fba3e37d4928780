package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prepaconcours/prepa-backend/internal/database"
	"github.com/prepaconcours/prepa-backend/internal/model"
	"github.com/prepaconcours/prepa-backend/internal/repository"
	"github.com/prepaconcours/prepa-backend/internal/scoring"
	"github.com/prepaconcours/prepa-backend/internal/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), ":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewSQLiteStore(db)
}

func idleTicks(time.Duration) (<-chan time.Time, func()) {
	return make(chan time.Time), func() {}
}

func examQuestions() []model.Question {
	mk := func(id string, s model.Subject, pos, correct int) model.Question {
		return model.Question{
			ID:           id,
			ExamType:     "CM",
			ExamNumber:   1,
			Position:     pos,
			Prompt:       "Question " + id,
			Options:      []string{"A", "B", "C", "D"},
			CorrectIndex: correct,
			Subject:      s,
			Difficulty:   model.DifficultyMedium,
		}
	}
	return []model.Question{
		mk("ang-1", model.SubjectAnglais, 0, 2),
		mk("ang-2", model.SubjectAnglais, 1, 1),
		mk("cg-1", model.SubjectCultureGenerale, 0, 0),
		mk("log-1", model.SubjectLogique, 0, 3),
	}
}

// scoredAttempt builds an attempt the way a finished session does.
func scoredAttempt(userID string, examNumber int, answers map[string]any) *model.Attempt {
	questions := examQuestions()
	report := scoring.Score(questions, answers)
	report.ElapsedSeconds = 600
	now := time.Now().UTC()
	return &model.Attempt{
		ID:           uuid.New(),
		UserID:       userID,
		ExamType:     "CM",
		ExamNumber:   examNumber,
		Report:       report,
		Answers:      answers,
		Snapshots:    scoring.Snapshots(questions, report, nil),
		FinishReason: model.FinishSubmitted,
		StartedAt:    now.Add(-10 * time.Minute),
		CompletedAt:  now,
	}
}

func TestAttemptService_SaveReplacesPreviousAttempt(t *testing.T) {
	ctx := context.Background()
	svc := NewAttemptService(newSQLiteStore(t), nil, zerolog.Nop())

	first := scoredAttempt("u1", 1, map[string]any{"ang-1": "C"})
	second := scoredAttempt("u1", 1, map[string]any{"ang-1": "C", "ang-2": 1, "cg-1": "A", "log-1": "D"})
	require.NoError(t, svc.Save(ctx, first))
	require.NoError(t, svc.Save(ctx, second))

	got, err := svc.Load(ctx, "u1", "CM", 1)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, 100, got.Report.Overall)

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAttemptService_LoadRebuildsLiveReport(t *testing.T) {
	ctx := context.Background()
	svc := NewAttemptService(newSQLiteStore(t), nil, zerolog.Nop())

	m := session.New(session.Options{
		UserID:     "u1",
		ExamType:   "CM",
		ExamNumber: 1,
		Recorder:   svc,
		Ticks:      idleTicks,
		Log:        zerolog.Nop(),
	})
	t.Cleanup(m.Abandon)
	require.NoError(t, m.Load(examQuestions()))

	// Correct, wrong, correct, then a value a four-option question cannot decode.
	for _, raw := range []any{2, "a", "A"} {
		_, err := m.SelectAnswer(raw)
		require.NoError(t, err)
		require.NoError(t, m.Next())
	}
	_, err := m.SelectAnswer(true)
	require.Error(t, err)
	require.NoError(t, m.Finish())
	live := m.Result()
	require.NotNil(t, live)
	assert.Equal(t, 50, live.Report.Overall)

	got, err := svc.Load(ctx, "u1", "CM", 1)
	require.NoError(t, err)

	assert.True(t, got.Consistent)
	assert.Equal(t, live.Report, got.Report)
	assert.Equal(t, map[string]int{"ang-1": 2, "ang-2": 0, "cg-1": 0}, got.Answers)
	assert.Equal(t, live.Snapshots, got.Snapshots)
}

func TestAttemptService_LoadFlagsInconsistentReport(t *testing.T) {
	ctx := context.Background()
	svc := NewAttemptService(newSQLiteStore(t), nil, zerolog.Nop())

	a := scoredAttempt("u1", 2, map[string]any{"ang-1": "C"})
	a.Report.Overall = 90
	require.NoError(t, svc.Save(ctx, a))

	got, err := svc.Load(ctx, "u1", "CM", 2)
	require.NoError(t, err)
	assert.False(t, got.Consistent)
	assert.Equal(t, 25, got.Report.Overall)
}

func TestAttemptService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := NewAttemptService(newSQLiteStore(t), nil, zerolog.Nop())

	assert.ErrorIs(t, svc.Delete(ctx, "u1", "CM", 1), repository.ErrAttemptNotFound)

	require.NoError(t, svc.Save(ctx, scoredAttempt("u1", 1, nil)))
	require.NoError(t, svc.Delete(ctx, "u1", "CM", 1))

	_, err := svc.Load(ctx, "u1", "CM", 1)
	assert.ErrorIs(t, err, repository.ErrAttemptNotFound)
}

func TestAttemptService_AttemptsAreScopedPerUser(t *testing.T) {
	ctx := context.Background()
	svc := NewAttemptService(newSQLiteStore(t), nil, zerolog.Nop())

	require.NoError(t, svc.Save(ctx, scoredAttempt("u1", 1, nil)))
	require.NoError(t, svc.Save(ctx, scoredAttempt("u2", 1, nil)))

	list, err := svc.List(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.Load(ctx, "u3", "CM", 1)
	assert.ErrorIs(t, err, repository.ErrAttemptNotFound)
}

type recordingClearer struct {
	cleared []string
}

func (c *recordingClearer) ClearDraft(_ context.Context, userID, examType string, examNumber int) error {
	c.cleared = append(c.cleared, userID+"/"+examType)
	return nil
}

func TestAttemptService_RecordClearsDraft(t *testing.T) {
	clearer := &recordingClearer{}
	svc := NewAttemptService(newSQLiteStore(t), clearer, zerolog.Nop())

	require.NoError(t, svc.Record(context.Background(), scoredAttempt("u1", 1, nil)))

	assert.Equal(t, []string{"u1/CM"}, clearer.cleared)
}

func TestAttemptService_Progress(t *testing.T) {
	ctx := context.Background()
	svc := NewAttemptService(newSQLiteStore(t), nil, zerolog.Nop())

	empty, err := svc.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Attempts)
	assert.Nil(t, empty.LastCompletedAt)
	require.Len(t, empty.Subjects, 3)

	// 2/4 = 50 and 3/4 = 75.
	require.NoError(t, svc.Save(ctx, scoredAttempt("u1", 1, map[string]any{"ang-1": "C", "ang-2": "B"})))
	require.NoError(t, svc.Save(ctx, scoredAttempt("u1", 2, map[string]any{"ang-1": "C", "cg-1": "A", "log-1": "D"})))

	p, err := svc.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Attempts)
	assert.Equal(t, 63, p.AverageOverall)
	assert.Equal(t, 75, p.BestOverall)
	assert.Equal(t, 1200, p.TotalTimeSpent)
	require.NotNil(t, p.LastCompletedAt)

	ang := model.ScoreReport{Subjects: p.Subjects}.Subject(model.SubjectAnglais)
	assert.Equal(t, 3, ang.Correct)
	assert.Equal(t, 4, ang.Total)
	assert.Equal(t, 75, ang.Percentage)
	assert.Equal(t, model.SubjectAnglais, p.Subjects[0].Subject)
}
