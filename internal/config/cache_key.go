package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamQuestionsKey returns the cache key for an exam's ordered question batch
func (r *CacheKeyStruct) ExamQuestionsKey(examType string, examNumber int) string {
	return fmt.Sprintf("exam:%s:%d:questions", examType, examNumber)
}

// UserDraftKey returns the key holding the latest autosaved draft of a running exam
func (r *CacheKeyStruct) UserDraftKey(userID, examType string, examNumber int) string {
	return fmt.Sprintf("user:%s:exam:%s:%d:draft", userID, examType, examNumber)
}

var CacheKey = NewCacheKeyStruct()
