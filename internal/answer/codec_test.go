package answer

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/prepaconcours/prepa-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToIndex_LetterRoundTrip(t *testing.T) {
	for optionCount := 2; optionCount <= 4; optionCount++ {
		for i := 0; i < optionCount; i++ {
			got, ok := ToIndex(ToLetter(i), optionCount)
			require.True(t, ok, "letter %s with %d options", ToLetter(i), optionCount)
			assert.Equal(t, i, got)
		}
	}
}

func TestToIndex(t *testing.T) {
	tests := []struct {
		name        string
		raw         any
		optionCount int
		want        int
		ok          bool
	}{
		{name: "int in range", raw: 2, optionCount: 4, want: 2, ok: true},
		{name: "int zero", raw: 0, optionCount: 4, want: 0, ok: true},
		{name: "int64", raw: int64(3), optionCount: 4, want: 3, ok: true},
		{name: "json float", raw: float64(1), optionCount: 4, want: 1, ok: true},
		{name: "json number", raw: json.Number("2"), optionCount: 3, want: 2, ok: true},
		{name: "uppercase letter", raw: "C", optionCount: 4, want: 2, ok: true},
		{name: "lowercase letter", raw: "b", optionCount: 4, want: 1, ok: true},
		{name: "letter with spaces", raw: " D ", optionCount: 4, want: 3, ok: true},
		{name: "digit string", raw: "3", optionCount: 4, want: 3, ok: true},
		{name: "true on two options", raw: "true", optionCount: 2, want: 0, ok: true},
		{name: "false on two options", raw: "false", optionCount: 2, want: 1, ok: true},
		{name: "bool on two options", raw: false, optionCount: 2, want: 1, ok: true},

		{name: "unknown letter", raw: "Z", optionCount: 4},
		{name: "letter beyond options", raw: "D", optionCount: 3},
		{name: "empty string", raw: "", optionCount: 4},
		{name: "nil", raw: nil, optionCount: 4},
		{name: "int out of range", raw: 5, optionCount: 4},
		{name: "negative int", raw: -1, optionCount: 4},
		{name: "negative digit string", raw: "-1", optionCount: 4},
		{name: "fractional float", raw: 1.5, optionCount: 4},
		{name: "true on four options", raw: "true", optionCount: 4},
		{name: "word", raw: "option A", optionCount: 4},
		{name: "zero options", raw: 0, optionCount: 0},
		{name: "unsupported type", raw: []int{1}, optionCount: 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ToIndex(tc.raw, tc.optionCount)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			} else {
				assert.Zero(t, got)
			}
		})
	}
}

func TestToLetter(t *testing.T) {
	assert.Equal(t, "A", ToLetter(0))
	assert.Equal(t, "D", ToLetter(3))
	assert.Empty(t, ToLetter(-1))
}

func TestParse(t *testing.T) {
	idx, err := Parse("B", 4)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = Parse("Z", 4)
	assert.True(t, errors.Is(err, ErrParse))
}

func TestNormalize(t *testing.T) {
	questions := []model.Question{
		{ID: "q1", Options: []string{"a", "b", "c", "d"}},
		{ID: "q2", Options: []string{"vrai", "faux"}},
		{ID: "q3", Options: []string{"a", "b", "c"}},
	}
	raw := map[string]any{
		"q1":    "c",
		"q2":    "false",
		"q3":    "Z",
		"ghost": 1,
	}

	got := Normalize(raw, questions)

	assert.Equal(t, map[string]int{"q1": 2, "q2": 1}, got)
}
