package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/telcprep/exam-session/internal/config"
	"github.com/telcprep/exam-session/internal/model"
)

// AnswerDraftRepository keeps the latest autosaved answer sheet of each
// session in Redis as a JSON document.
type AnswerDraftRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewAnswerDraftRepository creates a new AnswerDraftRepository.
func NewAnswerDraftRepository(rdb *redis.Client, ttl time.Duration) *AnswerDraftRepository {
	return &AnswerDraftRepository{rdb: rdb, ttl: ttl}
}

// Save overwrites the session's draft and refreshes its expiry.
func (r *AnswerDraftRepository) Save(ctx context.Context, draft *model.AnswerDraft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	return r.rdb.Set(ctx, config.CacheKey.SessionDraftKey(draft.SessionID), data, r.ttl).Err()
}

// Load returns the session's draft, or nil when none is stored.
func (r *AnswerDraftRepository) Load(ctx context.Context, sessionID string) (*model.AnswerDraft, error) {
	data, err := r.rdb.Get(ctx, config.CacheKey.SessionDraftKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var draft model.AnswerDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("unmarshal draft: %w", err)
	}
	return &draft, nil
}

// Delete drops the session's draft.
func (r *AnswerDraftRepository) Delete(ctx context.Context, sessionID string) error {
	return r.rdb.Del(ctx, config.CacheKey.SessionDraftKey(sessionID)).Err()
}
