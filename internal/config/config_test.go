package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"EXAM_DURATION_SECONDS", "INTEGRITY_THRESHOLD", "PERSIST_MODE", "STORE_DRIVER", "ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, 3*time.Hour, cfg.ExamDuration)
	assert.Equal(t, 2, cfg.IntegrityThreshold)
	assert.Equal(t, PersistModeQueue, cfg.PersistMode)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Nil(t, cfg.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("EXAM_DURATION_SECONDS", "60")
	t.Setenv("INTEGRITY_THRESHOLD", "0")
	t.Setenv("PERSIST_MODE", "Direct")
	t.Setenv("ALLOWED_ORIGINS", "https://a.fr, ,https://b.fr")

	cfg := Load()

	assert.Equal(t, time.Minute, cfg.ExamDuration)
	assert.Equal(t, 0, cfg.IntegrityThreshold)
	assert.Equal(t, PersistModeDirect, cfg.PersistMode)
	assert.Equal(t, []string{"https://a.fr", "https://b.fr"}, cfg.AllowedOrigins)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("INTEGRITY_THRESHOLD", "deux")
	t.Setenv("PERSIST_MODE", "kafka")

	cfg := Load()

	assert.Equal(t, 2, cfg.IntegrityThreshold)
	assert.Equal(t, PersistModeQueue, cfg.PersistMode)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "exam:CM:3:questions", CacheKey.ExamQuestionsKey("CM", 3))
	assert.Equal(t, "user:u1:exam:CM:3:draft", CacheKey.UserDraftKey("u1", "CM", 3))
}
