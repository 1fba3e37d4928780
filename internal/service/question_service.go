package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/prepaconcours/prepa-backend/internal/config"
	"github.com/prepaconcours/prepa-backend/internal/metrics"
	"github.com/prepaconcours/prepa-backend/internal/model"
	"github.com/prepaconcours/prepa-backend/internal/repository"
	"github.com/prepaconcours/prepa-backend/internal/validator"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrQuestionLoad wraps failures to read the question bank.
var ErrQuestionLoad = errors.New("question load failed")

// ImportError reports the entries of a bank file that failed validation.
type ImportError struct {
	Fields map[int]map[string]string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%d invalid questions", len(e.Fields))
}

// QuestionService serves the fixed question batch of each mock exam.
type QuestionService struct {
	store repository.QuestionStore
	rdb   *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

// NewQuestionService creates a new QuestionService. rdb may be nil to disable caching.
func NewQuestionService(store repository.QuestionStore, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		store: store,
		rdb:   rdb,
		ttl:   ttl,
		log:   log.With().Str("component", "question_service").Logger(),
	}
}

// FetchExam returns the questions of one exam in subject order, then position.
// An exam without questions yields an empty slice and no error.
func (s *QuestionService) FetchExam(ctx context.Context, examType string, examNumber int) ([]model.Question, error) {
	key := config.CacheKey.ExamQuestionsKey(examType, examNumber)

	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var cached []model.Question
			if err := json.Unmarshal(raw, &cached); err == nil {
				metrics.QuestionCacheLookups.WithLabelValues("hit").Inc()
				return cached, nil
			}
			s.log.Warn().Str("key", key).Msg("Discarding undecodable cached questions")
		case !errors.Is(err, redis.Nil):
			s.log.Warn().Err(err).Str("key", key).Msg("Question cache read failed")
		}
		metrics.QuestionCacheLookups.WithLabelValues("miss").Inc()
	}

	stored, err := s.store.ListForExam(ctx, examType, examNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuestionLoad, err)
	}

	questions := make([]model.Question, 0, len(stored))
	for _, q := range stored {
		if err := q.Validate(); err != nil {
			s.log.Warn().Err(err).Str("question_id", q.ID).Msg("Skipping invalid question")
			continue
		}
		questions = append(questions, q)
	}
	sortBatch(questions)

	if s.rdb != nil && len(questions) > 0 {
		if raw, err := json.Marshal(questions); err == nil {
			if err := s.rdb.Set(ctx, key, raw, s.ttl).Err(); err != nil {
				s.log.Warn().Err(err).Str("key", key).Msg("Question cache write failed")
			}
		}
	}

	return questions, nil
}

// Import validates and upserts a question bank, then drops the cached batches
// of every exam it touched. It returns the number of questions stored.
func (s *QuestionService) Import(ctx context.Context, items []model.ImportQuestion) (int, error) {
	invalid := make(map[int]map[string]string)
	questions := make([]model.Question, 0, len(items))
	for i, item := range items {
		if fields := validator.Struct(item); fields != nil {
			invalid[i] = fields
			continue
		}
		q := item.Question()
		if err := q.Validate(); err != nil {
			invalid[i] = map[string]string{"correct_index": err.Error()}
			continue
		}
		questions = append(questions, q)
	}
	if len(invalid) > 0 {
		return 0, &ImportError{Fields: invalid}
	}

	if err := s.store.Upsert(ctx, questions); err != nil {
		return 0, fmt.Errorf("import questions: %w", err)
	}

	if s.rdb != nil {
		seen := make(map[string]bool)
		pipe := s.rdb.Pipeline()
		for _, q := range questions {
			key := config.CacheKey.ExamQuestionsKey(q.ExamType, q.ExamNumber)
			if !seen[key] {
				seen[key] = true
				pipe.Del(ctx, key)
			}
		}
		if _, err := pipe.Exec(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Question cache invalidation failed")
		}
	}

	s.log.Info().Int("questions", len(questions)).Msg("Question bank imported")
	return len(questions), nil
}

// sortBatch orders questions by subject, then position.
func sortBatch(questions []model.Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		ri, rj := questions[i].Subject.Rank(), questions[j].Subject.Rank()
		if ri != rj {
			return ri < rj
		}
		if questions[i].Subject != questions[j].Subject {
			return questions[i].Subject < questions[j].Subject
		}
		return questions[i].Position < questions[j].Position
	})
}
