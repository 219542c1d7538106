package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionInProgressKey returns the cache key for a session's "exam in progress" flag
func (r *CacheKeyStruct) SessionInProgressKey(sessionID string) string {
	return fmt.Sprintf("session:%s:exam_in_progress", sessionID)
}

// SessionDraftKey returns the cache key for a session's autosaved answer draft
func (r *CacheKeyStruct) SessionDraftKey(sessionID string) string {
	return fmt.Sprintf("session:%s:answers_draft", sessionID)
}

var CacheKey = NewCacheKeyStruct()
