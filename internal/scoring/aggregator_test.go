package scoring

import (
	"encoding/json"
	"testing"

	"github.com/prepaconcours/prepa-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func question(id string, subject model.Subject, correct int) model.Question {
	return model.Question{
		ID:           id,
		Prompt:       "prompt " + id,
		Options:      []string{"a", "b", "c", "d"},
		CorrectIndex: correct,
		Subject:      subject,
		Difficulty:   model.DifficultyMedium,
	}
}

func TestScore_SubjectBreakdown(t *testing.T) {
	questions := []model.Question{
		question("q1", model.SubjectAnglais, 0),
		question("q2", model.SubjectAnglais, 1),
		question("q3", model.SubjectCultureGenerale, 0),
	}
	answers := map[string]any{"q1": 0, "q2": 0, "q3": 0}

	r := Score(questions, answers)

	assert.Equal(t, 67, r.Overall)
	assert.Equal(t, 2, r.Correct)
	assert.Equal(t, 3, r.Total)
	assert.Equal(t, 50, r.Subject(model.SubjectAnglais).Percentage)
	assert.Equal(t, 100, r.Subject(model.SubjectCultureGenerale).Percentage)
}

func TestScore_EmptySubjectIsZero(t *testing.T) {
	questions := []model.Question{question("q1", model.SubjectAnglais, 2)}

	r := Score(questions, map[string]any{"q1": "C"})

	require.Len(t, r.Subjects, len(model.Subjects))
	logique := r.Subject(model.SubjectLogique)
	assert.Equal(t, 0, logique.Total)
	assert.Equal(t, 0, logique.Percentage)
	assert.Equal(t, 100, r.Overall)
}

func TestScore_EmptyQuestionSet(t *testing.T) {
	r := Score(nil, nil)

	assert.Equal(t, 0, r.Overall)
	assert.Equal(t, 0, r.Total)
}

func TestScore_Idempotent(t *testing.T) {
	questions := []model.Question{
		question("q1", model.SubjectLogique, 3),
		question("q2", "PHY", 1),
		question("q3", model.SubjectCultureGenerale, 0),
		question("q4", model.SubjectAnglais, 2),
	}
	answers := map[string]any{"q1": "d", "q2": 1.0, "q3": "Z", "q4": "2"}

	first, err := json.Marshal(Score(questions, answers))
	require.NoError(t, err)
	second, err := json.Marshal(Score(questions, answers))
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
	assert.Equal(t, first, second)
}

func TestScore_UnparseableIsUnanswered(t *testing.T) {
	questions := []model.Question{question("q1", model.SubjectAnglais, 0)}

	r := Score(questions, map[string]any{"q1": "Z"})

	require.Len(t, r.Questions, 1)
	assert.False(t, r.Questions[0].Answered)
	assert.False(t, r.Questions[0].Correct)
	assert.Nil(t, r.Questions[0].Selected)
	assert.Equal(t, 0, r.Overall)
}

func TestScore_UnknownSubjectsFollowKnownOnes(t *testing.T) {
	questions := []model.Question{
		question("q1", "PHY", 0),
		question("q2", "BIO", 0),
	}

	r := Score(questions, map[string]any{"q1": 0})

	var order []model.Subject
	for _, s := range r.Subjects {
		order = append(order, s.Subject)
	}
	assert.Equal(t, []model.Subject{model.SubjectAnglais, model.SubjectCultureGenerale, model.SubjectLogique, "BIO", "PHY"}, order)
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		correct, total, want int
	}{
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{1, 8, 13},
		{0, 5, 0},
		{5, 5, 100},
		{3, 0, 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Percentage(tc.correct, tc.total), "%d/%d", tc.correct, tc.total)
	}
}

func TestRebuild_MatchesLiveScore(t *testing.T) {
	questions := []model.Question{
		question("q1", model.SubjectAnglais, 2),
		question("q2", model.SubjectCultureGenerale, 0),
		question("q3", model.SubjectLogique, 1),
	}
	answers := map[string]any{"q1": 2, "q2": "A", "q3": "d"}

	live := Score(questions, answers)
	snaps := Snapshots(questions, live, map[int]int{0: 12, 2: 40})

	_, rebuilt := Rebuild(snaps, answers)

	assert.Equal(t, live, rebuilt)
	assert.Equal(t, 12, snaps[0].TimeSpentSeconds)
	assert.Equal(t, 0, snaps[1].TimeSpentSeconds)
	assert.False(t, snaps[2].IsCorrect)
	require.NotNil(t, snaps[2].Selected)
	assert.Equal(t, 3, *snaps[2].Selected)
}
