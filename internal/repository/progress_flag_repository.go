package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/telcprep/exam-session/internal/config"
)

// ProgressFlagRepository stores the per-session "exam in progress" flag
// that the surrounding UI checks before letting the test-taker leave.
type ProgressFlagRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewProgressFlagRepository creates a new ProgressFlagRepository. Flags
// expire after ttl so an abandoned browser session does not keep one alive.
func NewProgressFlagRepository(rdb *redis.Client, ttl time.Duration) *ProgressFlagRepository {
	return &ProgressFlagRepository{rdb: rdb, ttl: ttl}
}

// Set raises the flag.
func (r *ProgressFlagRepository) Set(ctx context.Context, sessionID string) error {
	return r.rdb.Set(ctx, config.CacheKey.SessionInProgressKey(sessionID), "1", r.ttl).Err()
}

// Clear lowers the flag. Clearing an unset flag is not an error.
func (r *ProgressFlagRepository) Clear(ctx context.Context, sessionID string) error {
	return r.rdb.Del(ctx, config.CacheKey.SessionInProgressKey(sessionID)).Err()
}

// IsSet reports whether the flag is raised.
func (r *ProgressFlagRepository) IsSet(ctx context.Context, sessionID string) (bool, error) {
	err := r.rdb.Get(ctx, config.CacheKey.SessionInProgressKey(sessionID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
