package scoring

import "github.com/prepaconcours/prepa-backend/internal/model"

// Snapshots copies each question together with its scored outcome.
// report must come from Score over the same questions. timeSpent is keyed by
// question index and may be nil.
func Snapshots(questions []model.Question, report model.ScoreReport, timeSpent map[int]int) []model.QuestionSnapshot {
	out := make([]model.QuestionSnapshot, 0, len(questions))
	for i, q := range questions {
		snap := model.QuestionSnapshot{
			QuestionID:       q.ID,
			Position:         i,
			Prompt:           q.Prompt,
			Options:          append([]string(nil), q.Options...),
			CorrectIndex:     q.CorrectIndex,
			Explanation:      q.Explanation,
			Subject:          q.Subject,
			Difficulty:       q.Difficulty,
			TimeSpentSeconds: timeSpent[i],
		}
		if i < len(report.Questions) {
			o := report.Questions[i]
			snap.Selected = o.Selected
			snap.IsCorrect = o.Correct
		}
		out = append(out, snap)
	}
	return out
}

// Rebuild recomputes a report from stored snapshots and raw answers.
func Rebuild(snapshots []model.QuestionSnapshot, answers map[string]any) ([]model.Question, model.ScoreReport) {
	questions := make([]model.Question, len(snapshots))
	for i, s := range snapshots {
		questions[i] = s.Question()
	}
	return questions, Score(questions, answers)
}
