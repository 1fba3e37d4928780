// Package answer converts between the answer encodings clients send: zero-based
// option indexes, letter codes and true/false strings.
//
// An answer that cannot be decoded is reported as not ok. Callers must treat it
// as unanswered and never as option 0.
package answer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/prepaconcours/prepa-backend/internal/model"
)

// ErrParse is returned by Parse for values that do not name an option.
var ErrParse = errors.New("unrecognized answer value")

// maxLetters bounds letter codes to A..D.
const maxLetters = 4

// ToIndex decodes raw into an option index in [0, optionCount).
func ToIndex(raw any, optionCount int) (int, bool) {
	if optionCount <= 0 {
		return 0, false
	}

	switch v := raw.(type) {
	case nil:
		return 0, false
	case int:
		return inRange(int64(v), optionCount)
	case int8:
		return inRange(int64(v), optionCount)
	case int16:
		return inRange(int64(v), optionCount)
	case int32:
		return inRange(int64(v), optionCount)
	case int64:
		return inRange(v, optionCount)
	case uint8:
		return inRange(int64(v), optionCount)
	case uint16:
		return inRange(int64(v), optionCount)
	case uint32:
		return inRange(int64(v), optionCount)
	case float32:
		return fromFloat(float64(v), optionCount)
	case float64:
		// encoding/json decodes every number into float64.
		return fromFloat(v, optionCount)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return inRange(n, optionCount)
	case bool:
		return fromBool(v, optionCount)
	case string:
		return fromString(v, optionCount)
	default:
		return 0, false
	}
}

// ToLetter returns the letter code for a zero-based index ('A' + index).
func ToLetter(index int) string {
	if index < 0 || index >= 26 {
		return ""
	}
	return string(rune('A' + index))
}

// Parse is ToIndex with an error for callers that propagate failures.
func Parse(raw any, optionCount int) (int, error) {
	idx, ok := ToIndex(raw, optionCount)
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrParse, raw)
	}
	return idx, nil
}

// Normalize decodes stored raw answers against their questions. Answers that do
// not decode, and answers for unknown questions, are left out.
func Normalize(raw map[string]any, questions []model.Question) map[string]int {
	out := make(map[string]int, len(raw))
	for _, q := range questions {
		v, ok := raw[q.ID]
		if !ok {
			continue
		}
		if idx, ok := ToIndex(v, len(q.Options)); ok {
			out[q.ID] = idx
		}
	}
	return out
}

func inRange(n int64, optionCount int) (int, bool) {
	if n < 0 || n >= int64(optionCount) {
		return 0, false
	}
	return int(n), true
}

func fromFloat(f float64, optionCount int) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return inRange(int64(f), optionCount)
}

// fromBool maps true/false onto the two options of a vrai/faux question.
func fromBool(b bool, optionCount int) (int, bool) {
	if optionCount != 2 {
		return 0, false
	}
	if b {
		return 0, true
	}
	return 1, true
}

func fromString(s string, optionCount int) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if len(s) == 1 {
		c := s[0]
		switch {
		case c >= 'A' && c < 'A'+maxLetters:
			return inRange(int64(c-'A'), optionCount)
		case c >= 'a' && c < 'a'+maxLetters:
			return inRange(int64(c-'a'), optionCount)
		}
	}

	switch strings.ToLower(s) {
	case "true":
		return fromBool(true, optionCount)
	case "false":
		return fromBool(false, optionCount)
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return inRange(n, optionCount)
}
