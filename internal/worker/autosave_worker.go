package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/telcprep/exam-session/internal/model"
)

// drainTimeout bounds the final flush on shutdown.
const drainTimeout = 5 * time.Second

// DraftWriter persists and removes answer drafts.
type DraftWriter interface {
	Save(ctx context.Context, draft *model.AnswerDraft) error
	Delete(ctx context.Context, sessionID string) error
}

// AutosaveWorker consumes answer drafts queued by exam sessions and writes
// them to the draft store. Drafts queued for the same session are
// coalesced; only the newest one is written, and a newest tombstone deletes
// the stored draft.
type AutosaveWorker struct {
	saver DraftWriter
	queue <-chan model.AnswerDraft
	log   zerolog.Logger
}

// NewAutosaveWorker creates a new AutosaveWorker.
func NewAutosaveWorker(saver DraftWriter, queue <-chan model.AnswerDraft, log zerolog.Logger) *AutosaveWorker {
	return &AutosaveWorker{
		saver: saver,
		queue: queue,
		log:   log.With().Str("component", "autosave_worker").Logger(),
	}
}

// Start runs the worker loop until ctx is cancelled, then flushes whatever
// is still queued. Call in a goroutine.
func (w *AutosaveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			w.drain(drainCtx)
			cancel()
			w.log.Info().Msg("Worker stopped")
			return
		case draft := <-w.queue:
			pending := map[string]model.AnswerDraft{draft.SessionID: draft}
			w.collect(pending)
			w.persist(ctx, pending)
		}
	}
}

// collect pulls every draft already queued into pending without blocking.
func (w *AutosaveWorker) collect(pending map[string]model.AnswerDraft) {
	for {
		select {
		case draft := <-w.queue:
			pending[draft.SessionID] = draft
		default:
			return
		}
	}
}

func (w *AutosaveWorker) persist(ctx context.Context, pending map[string]model.AnswerDraft) int {
	saved := 0
	for id, draft := range pending {
		var err error
		if draft.Discard {
			err = w.saver.Delete(ctx, id)
		} else {
			err = w.saver.Save(ctx, &draft)
		}
		if err != nil {
			// The next edit queues a fresh draft, so failures are not retried.
			w.log.Error().Err(err).Str("session_id", id).Msg("Persist error")
			continue
		}
		saved++
	}
	return saved
}

// drain processes all remaining items in the queue before shutdown.
func (w *AutosaveWorker) drain(ctx context.Context) {
	pending := make(map[string]model.AnswerDraft)
	w.collect(pending)
	if drained := w.persist(ctx, pending); drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
