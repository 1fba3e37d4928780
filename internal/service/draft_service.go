package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prepaconcours/prepa-backend/internal/config"
	"github.com/prepaconcours/prepa-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// ErrDraftNotFound is returned when no draft exists for an exam.
var ErrDraftNotFound = errors.New("draft not found")

// DraftService keeps the latest autosaved draft of each running exam in Redis.
// Drafts expire after ttl and are never restored into a session.
type DraftService struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewDraftService creates a new DraftService.
func NewDraftService(rdb *redis.Client, ttl time.Duration) *DraftService {
	return &DraftService{rdb: rdb, ttl: ttl}
}

// SaveDraft overwrites the stored draft of d's exam.
func (s *DraftService) SaveDraft(ctx context.Context, d model.Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	key := config.CacheKey.UserDraftKey(d.UserID, d.ExamType, d.ExamNumber)
	return s.rdb.Set(ctx, key, raw, s.ttl).Err()
}

// GetDraft returns the last draft of one exam.
func (s *DraftService) GetDraft(ctx context.Context, userID, examType string, examNumber int) (*model.Draft, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.UserDraftKey(userID, examType, examNumber)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read draft: %w", ErrPersistenceUnavailable, err)
	}

	var d model.Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &d, nil
}

// ClearDraft removes the draft of one exam.
func (s *DraftService) ClearDraft(ctx context.Context, userID, examType string, examNumber int) error {
	return s.rdb.Del(ctx, config.CacheKey.UserDraftKey(userID, examType, examNumber)).Err()
}
