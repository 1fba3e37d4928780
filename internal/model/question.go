package model

import (
	"errors"
	"fmt"
)

// Subject identifies one of the subject areas of a mock exam.
type Subject string

const (
	SubjectAnglais         Subject = "ANG"
	SubjectCultureGenerale Subject = "CG"
	SubjectLogique         Subject = "LOG"
)

// Subjects lists the known subjects in the order reports present them.
var Subjects = []Subject{SubjectAnglais, SubjectCultureGenerale, SubjectLogique}

// Rank is the position of s in Subjects, or len(Subjects) for unknown tags.
func (s Subject) Rank() int {
	for i, known := range Subjects {
		if s == known {
			return i
		}
	}
	return len(Subjects)
}

// Difficulty tags a question for review screens.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "facile"
	DifficultyMedium Difficulty = "moyen"
	DifficultyHard   Difficulty = "difficile"
)

// ErrInvalidQuestion is returned by Question.Validate.
var ErrInvalidQuestion = errors.New("invalid question")

// Question is an immutable exam question as served by the question bank.
type Question struct {
	ID           string     `json:"id"`
	ExamType     string     `json:"exam_type"`
	ExamNumber   int        `json:"exam_number"`
	Position     int        `json:"position"`
	Prompt       string     `json:"prompt"`
	Options      []string   `json:"options"`
	CorrectIndex int        `json:"correct_index"`
	Explanation  string     `json:"explanation,omitempty"`
	Subject      Subject    `json:"subject"`
	Difficulty   Difficulty `json:"difficulty"`
}

// Validate checks the option count and that CorrectIndex points at an option.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidQuestion)
	}
	if n := len(q.Options); n < 2 || n > 4 {
		return fmt.Errorf("%w: %s has %d options", ErrInvalidQuestion, q.ID, n)
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("%w: %s correct index %d out of range", ErrInvalidQuestion, q.ID, q.CorrectIndex)
	}
	return nil
}

// PublicQuestion is what a candidate sees while the exam is running.
type PublicQuestion struct {
	ID         string     `json:"id"`
	Position   int        `json:"position"`
	Prompt     string     `json:"prompt"`
	Options    []string   `json:"options"`
	Subject    Subject    `json:"subject"`
	Difficulty Difficulty `json:"difficulty"`
}

// Public strips the answer key and explanation.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:         q.ID,
		Position:   q.Position,
		Prompt:     q.Prompt,
		Options:    q.Options,
		Subject:    q.Subject,
		Difficulty: q.Difficulty,
	}
}

// ImportQuestion is one entry of a question bank file.
type ImportQuestion struct {
	ID           string   `json:"id" validate:"required,max=64"`
	ExamType     string   `json:"exam_type" validate:"required,alphanum,max=8"`
	ExamNumber   int      `json:"exam_number" validate:"min=1"`
	Position     int      `json:"position" validate:"min=0"`
	Prompt       string   `json:"prompt" validate:"required,max=4000"`
	Options      []string `json:"options" validate:"min=2,max=4,dive,required"`
	CorrectIndex int      `json:"correct_index" validate:"min=0,max=3"`
	Explanation  string   `json:"explanation" validate:"max=4000"`
	Subject      string   `json:"subject" validate:"required,oneof=ANG CG LOG"`
	Difficulty   string   `json:"difficulty" validate:"omitempty,oneof=facile moyen difficile"`
}

// Question converts an import entry into a Question.
func (iq ImportQuestion) Question() Question {
	d := Difficulty(iq.Difficulty)
	if d == "" {
		d = DifficultyMedium
	}
	return Question{
		ID:           iq.ID,
		ExamType:     iq.ExamType,
		ExamNumber:   iq.ExamNumber,
		Position:     iq.Position,
		Prompt:       iq.Prompt,
		Options:      iq.Options,
		CorrectIndex: iq.CorrectIndex,
		Explanation:  iq.Explanation,
		Subject:      Subject(iq.Subject),
		Difficulty:   d,
	}
}
