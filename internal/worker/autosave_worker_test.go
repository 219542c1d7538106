package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/telcprep/exam-session/internal/model"
)

type memorySaver struct {
	mu     sync.Mutex
	saved  map[string]model.AnswerDraft
	writes int
	fail   bool
}

func newMemorySaver() *memorySaver {
	return &memorySaver{saved: make(map[string]model.AnswerDraft)}
}

func (m *memorySaver) Save(ctx context.Context, d *model.AnswerDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("redis: connection refused")
	}
	m.saved[d.SessionID] = *d
	m.writes++
	return nil
}

func (m *memorySaver) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("redis: connection refused")
	}
	delete(m.saved, sessionID)
	m.writes++
	return nil
}

func (m *memorySaver) get(id string) (model.AnswerDraft, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.saved[id]
	return d, ok
}

func draft(session, name string) model.AnswerDraft {
	return model.AnswerDraft{SessionID: session, ExamID: 1, StudentName: name}
}

func TestAutosaveWorker_SavesQueuedDrafts(t *testing.T) {
	saver := newMemorySaver()
	queue := make(chan model.AnswerDraft, 8)
	w := NewAutosaveWorker(saver, queue, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	queue <- draft("s1", "Anna")
	deadline := time.Now().Add(time.Second)
	for {
		if d, ok := saver.get("s1"); ok && d.StudentName == "Anna" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("draft not saved")
		}
		time.Sleep(2 * time.Millisecond)
	}

	cancel()
	<-done
}

func TestAutosaveWorker_DrainKeepsNewestPerSession(t *testing.T) {
	saver := newMemorySaver()
	queue := make(chan model.AnswerDraft, 8)
	w := NewAutosaveWorker(saver, queue, zerolog.Nop())

	queue <- draft("s1", "A")
	queue <- draft("s2", "X")
	queue <- draft("s1", "AB")
	queue <- draft("s1", "ABC")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Start(ctx)

	if d, _ := saver.get("s1"); d.StudentName != "ABC" {
		t.Errorf("s1 = %q, want newest draft", d.StudentName)
	}
	if _, ok := saver.get("s2"); !ok {
		t.Error("s2 draft lost on shutdown")
	}
	if len(queue) != 0 {
		t.Errorf("%d drafts left in queue", len(queue))
	}
}

func TestAutosaveWorker_FailedSaveDoesNotStopWorker(t *testing.T) {
	saver := newMemorySaver()
	saver.fail = true
	queue := make(chan model.AnswerDraft, 8)
	w := NewAutosaveWorker(saver, queue, zerolog.Nop())

	pending := map[string]model.AnswerDraft{"s1": draft("s1", "A")}
	if n := w.persist(context.Background(), pending); n != 0 {
		t.Errorf("persist reported %d saved on failure", n)
	}

	saver.mu.Lock()
	saver.fail = false
	saver.mu.Unlock()
	if n := w.persist(context.Background(), pending); n != 1 {
		t.Errorf("persist after recovery = %d, want 1", n)
	}
}

func TestAutosaveWorker_TombstoneDeletesDraft(t *testing.T) {
	saver := newMemorySaver()
	saver.saved["s1"] = draft("s1", "stale")
	queue := make(chan model.AnswerDraft, 8)
	w := NewAutosaveWorker(saver, queue, zerolog.Nop())

	queue <- draft("s1", "final")
	queue <- model.AnswerDraft{SessionID: "s1", Discard: true}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Start(ctx)

	if d, ok := saver.get("s1"); ok {
		t.Errorf("draft survived its tombstone: %+v", d)
	}
	if saver.writes != 1 {
		t.Errorf("writes = %d, want the coalesced delete only", saver.writes)
	}
}
