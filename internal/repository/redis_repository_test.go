package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/telcprep/exam-session/internal/model"
)

// newTestRedis connects to TEST_REDIS_URL and skips when it is unset.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse TEST_REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestProgressFlagRepository(t *testing.T) {
	rdb := newTestRedis(t)
	repo := NewProgressFlagRepository(rdb, time.Minute)
	ctx := context.Background()
	id := uuid.NewString()

	if set, err := repo.IsSet(ctx, id); err != nil || set {
		t.Fatalf("IsSet on fresh session = %v, %v", set, err)
	}
	if err := repo.Set(ctx, id); err != nil {
		t.Fatal(err)
	}
	if set, err := repo.IsSet(ctx, id); err != nil || !set {
		t.Fatalf("IsSet after Set = %v, %v", set, err)
	}
	if ttl := rdb.TTL(ctx, "session:"+id+":exam_in_progress").Val(); ttl <= 0 || ttl > time.Minute {
		t.Errorf("ttl = %v", ttl)
	}
	if err := repo.Clear(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := repo.Clear(ctx, id); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
	if set, _ := repo.IsSet(ctx, id); set {
		t.Error("flag still set after Clear")
	}
}

func TestAnswerDraftRepository(t *testing.T) {
	rdb := newTestRedis(t)
	repo := NewAnswerDraftRepository(rdb, time.Minute)
	ctx := context.Background()
	id := uuid.NewString()

	if d, err := repo.Load(ctx, id); err != nil || d != nil {
		t.Fatalf("Load missing = %v, %v", d, err)
	}

	draft := &model.AnswerDraft{
		SessionID:   id,
		ExamID:      3,
		StudentName: "Anna",
		SavedAt:     time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
	}
	draft.Answers.LeseverstehenTeil1[2] = "d"
	draft.Answers.Hoerverstehen.Teil1[0] = model.VerdictFalse
	draft.Answers.SchriftlicherAusdruck.SelectedTask = model.WritingTaskA

	if err := repo.Save(ctx, draft); err != nil {
		t.Fatal(err)
	}
	got, err := repo.Load(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Answers != draft.Answers || got.StudentName != "Anna" || !got.SavedAt.Equal(draft.SavedAt) {
		t.Errorf("round trip = %+v", got)
	}

	if err := repo.Delete(ctx, id); err != nil {
		t.Fatal(err)
	}
	if d, _ := repo.Load(ctx, id); d != nil {
		t.Error("draft still present after Delete")
	}
}
