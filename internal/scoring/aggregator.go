// Package scoring computes exam results. Score is pure: the same questions and
// answers always produce the same report, which is what lets a stored attempt
// be rebuilt from its snapshots.
package scoring

import (
	"sort"

	"github.com/prepaconcours/prepa-backend/internal/answer"
	"github.com/prepaconcours/prepa-backend/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Evaluate scores a single raw answer against q.
func Evaluate(q model.Question, raw any) model.QuestionOutcome {
	out := model.QuestionOutcome{QuestionID: q.ID, Position: q.Position}

	idx, ok := answer.ToIndex(raw, len(q.Options))
	if !ok {
		return out
	}

	out.Selected = &idx
	out.Answered = true
	out.Correct = idx == q.CorrectIndex
	return out
}

// Score evaluates every question and aggregates overall and per-subject results.
// ElapsedSeconds is left at zero; the session fills it in.
func Score(questions []model.Question, answers map[string]any) model.ScoreReport {
	type tally struct{ correct, total int }
	bySubject := make(map[model.Subject]*tally, len(model.Subjects))
	for _, s := range model.Subjects {
		bySubject[s] = &tally{}
	}

	report := model.ScoreReport{
		Total:     len(questions),
		Questions: make([]model.QuestionOutcome, 0, len(questions)),
	}

	for i, q := range questions {
		outcome := Evaluate(q, answers[q.ID])
		outcome.Position = i
		report.Questions = append(report.Questions, outcome)

		t, ok := bySubject[q.Subject]
		if !ok {
			t = &tally{}
			bySubject[q.Subject] = t
		}
		t.total++
		if outcome.Correct {
			t.correct++
			report.Correct++
		}
	}

	report.Overall = Percentage(report.Correct, report.Total)

	for _, s := range subjectOrder(bySubject) {
		t := bySubject[s]
		report.Subjects = append(report.Subjects, model.SubjectScore{
			Subject:    s,
			Correct:    t.correct,
			Total:      t.total,
			Percentage: Percentage(t.correct, t.total),
		})
	}

	return report
}

// Percentage returns round(100*correct/total), rounding halves up, and 0 when total is 0.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	p := decimal.NewFromInt(int64(correct)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Round(0)
	return int(p.IntPart())
}

// subjectOrder lists known subjects first, then any other tags alphabetically.
func subjectOrder[T any](seen map[model.Subject]T) []model.Subject {
	order := make([]model.Subject, 0, len(seen))
	known := make(map[model.Subject]bool, len(model.Subjects))
	for _, s := range model.Subjects {
		known[s] = true
		order = append(order, s)
	}

	var extra []model.Subject
	for s := range seen {
		if !known[s] {
			extra = append(extra, s)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })

	return append(order, extra...)
}
