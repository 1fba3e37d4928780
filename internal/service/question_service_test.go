package service

import (
	"context"
	"testing"

	"github.com/prepaconcours/prepa-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func importBank() []model.ImportQuestion {
	mk := func(id, subject string, pos int) model.ImportQuestion {
		return model.ImportQuestion{
			ID:           id,
			ExamType:     "CM",
			ExamNumber:   1,
			Position:     pos,
			Prompt:       "Énoncé " + id,
			Options:      []string{"vrai", "faux"},
			CorrectIndex: 0,
			Subject:      subject,
		}
	}
	return []model.ImportQuestion{
		mk("log-2", "LOG", 1),
		mk("cg-1", "CG", 0),
		mk("log-1", "LOG", 0),
		mk("ang-1", "ANG", 3),
	}
}

func TestQuestionService_FetchExamOrdersBySubjectThenPosition(t *testing.T) {
	ctx := context.Background()
	svc := NewQuestionService(newSQLiteStore(t), nil, 0, zerolog.Nop())

	n, err := svc.Import(ctx, importBank())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	questions, err := svc.FetchExam(ctx, "CM", 1)
	require.NoError(t, err)

	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	assert.Equal(t, []string{"ang-1", "cg-1", "log-1", "log-2"}, ids)
	assert.Equal(t, model.DifficultyMedium, questions[0].Difficulty)
}

func TestQuestionService_FetchExamSkipsInvalidQuestions(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	svc := NewQuestionService(store, nil, 0, zerolog.Nop())

	require.NoError(t, store.Upsert(ctx, []model.Question{
		{ID: "ok", ExamType: "CM", ExamNumber: 2, Options: []string{"a", "b"}, Subject: model.SubjectLogique},
		{ID: "broken", ExamType: "CM", ExamNumber: 2, Options: []string{"a"}, Subject: model.SubjectLogique},
	}))

	questions, err := svc.FetchExam(ctx, "CM", 2)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "ok", questions[0].ID)
}

func TestQuestionService_FetchUnknownExamIsEmpty(t *testing.T) {
	svc := NewQuestionService(newSQLiteStore(t), nil, 0, zerolog.Nop())

	questions, err := svc.FetchExam(context.Background(), "CM", 9)

	require.NoError(t, err)
	assert.Empty(t, questions)
}

func TestQuestionService_ImportRejectsInvalidEntries(t *testing.T) {
	ctx := context.Background()
	svc := NewQuestionService(newSQLiteStore(t), nil, 0, zerolog.Nop())

	bank := importBank()
	bank[1].Subject = "MATH"
	bank[2].CorrectIndex = 3

	n, err := svc.Import(ctx, bank)

	var ie *ImportError
	require.ErrorAs(t, err, &ie)
	assert.Zero(t, n)
	assert.Contains(t, ie.Fields[1], "subject")
	assert.Contains(t, ie.Fields, 2)

	questions, err := svc.FetchExam(ctx, "CM", 1)
	require.NoError(t, err)
	assert.Empty(t, questions)
}
