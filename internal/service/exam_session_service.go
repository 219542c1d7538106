package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/telcprep/exam-session/internal/model"
	"github.com/telcprep/exam-session/internal/validator"
)

const (
	// storeWriteTimeout bounds each background Redis write.
	storeWriteTimeout = 3 * time.Second
	// eventBuffer is the per-subscriber queue length. Slow subscribers
	// lose events rather than stall the session loop.
	eventBuffer = 32
)

// ProgressFlagStore persists the "exam in progress" marker read by the
// surrounding navigation UI.
type ProgressFlagStore interface {
	Set(ctx context.Context, sessionID string) error
	Clear(ctx context.Context, sessionID string) error
}

// DraftStore reads and discards autosaved answer drafts. Load returns
// nil, nil when no draft exists.
type DraftStore interface {
	Load(ctx context.Context, sessionID string) (*model.AnswerDraft, error)
	Delete(ctx context.Context, sessionID string) error
}

// ExamSession is one test-taker's run through an exam paper. Timer and
// answer state are owned by a single loop goroutine; every public method
// hands its work to that loop and waits for the result.
type ExamSession struct {
	id    string
	exam  *model.ExamContent
	clock clockwork.Clock
	log   zerolog.Logger

	timer     *TimerController
	answers   *AnswerTracker
	submitter *SubmissionCoordinator
	flags     ProgressFlagStore
	drafts    DraftStore
	autosave  chan<- model.AnswerDraft

	// Owned by the loop.
	section     model.SectionKey
	studentName string

	cmds      chan func()
	done      chan struct{}
	stopped   chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	bg        sync.WaitGroup
	closeOnce sync.Once

	flagMu   sync.Mutex
	flagWant atomic.Bool

	subMu sync.Mutex
	subs  map[chan model.SessionEvent]struct{}
}

func newExamSession(id string, exam *model.ExamContent, svc *SessionService) *ExamSession {
	ctx, cancel := context.WithCancel(context.Background())
	s := &ExamSession{
		id:    id,
		exam:  exam,
		clock: svc.clock,
		log: svc.log.With().
			Str("component", "exam_session").
			Str("session_id", id).
			Int("exam_id", exam.ID).
			Logger(),
		answers:  NewAnswerTracker(svc.clock),
		flags:    svc.flags,
		drafts:   svc.drafts,
		autosave: svc.autosave,
		cmds:     make(chan func()),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		subs:     make(map[chan model.SessionEvent]struct{}),
	}
	s.timer = NewTimerController(svc.clock, svc.durations, TimerHooks{
		OnPhaseChange:     s.onPhaseChange,
		OnListeningLocked: s.onListeningLocked,
		OnTimeUp:          s.onTimeUp,
	}, s.log)
	s.submitter = NewSubmissionCoordinator(exam.ID, svc.api, s.log)
	return s
}

// ID returns the session identifier.
func (s *ExamSession) ID() string { return s.id }

// Exam returns the paper this session runs.
func (s *ExamSession) Exam() *model.ExamContent { return s.exam }

// Done is closed once the session has been torn down.
func (s *ExamSession) Done() <-chan struct{} { return s.stopped }

func (s *ExamSession) run() {
	defer close(s.stopped)
	s.log.Info().Msg("Session loop started")

	for {
		select {
		case <-s.done:
			s.timer.Stop()
			return
		case fn := <-s.cmds:
			fn()
		case <-s.timer.MainC():
			s.timer.TickMain()
			s.publishTick()
		case <-s.timer.ListeningC():
			s.timer.TickListening()
			s.publishTick()
		}
	}
}

// do runs fn on the loop and returns its error.
func (s *ExamSession) do(fn func() error) error {
	errc := make(chan error, 1)
	select {
	case s.cmds <- func() { errc <- fn() }:
	case <-s.done:
		return ErrSessionClosed
	}
	return <-errc
}

// Start begins Teil 1-3. Calling it again is a no-op.
func (s *ExamSession) Start() error {
	return s.do(func() error {
		if s.submitter.Submitted() {
			return ErrAlreadySubmitted
		}
		if s.timer.Phase() != model.PhaseInitial {
			return nil
		}
		s.timer.Start()
		s.setSection(model.SectionLeseverstehen)
		s.writeFlag(true)
		return nil
	})
}

// StartListening opens the Hörverstehen section and arms its clock.
func (s *ExamSession) StartListening() error {
	return s.do(func() error {
		if s.submitter.Submitted() {
			return ErrAlreadySubmitted
		}
		if err := s.gate(model.SectionHoerverstehen); err != nil {
			return err
		}
		s.timer.StartListening()
		s.setSection(model.SectionHoerverstehen)
		return nil
	})
}

// StartWriting switches to Schriftlicher Ausdruck, ending Teil 1-3 early
// when it is still running.
func (s *ExamSession) StartWriting() error {
	return s.Navigate(model.SectionSchriftlicherAusdruck)
}

// Navigate switches the visible section after consulting CanEnter.
// Entering the writing section during Teil 1-3 ends that phase. A
// submitted sheet is frozen.
func (s *ExamSession) Navigate(section model.SectionKey) error {
	return s.do(func() error {
		if s.submitter.Submitted() {
			return ErrAlreadySubmitted
		}
		if err := s.gate(section); err != nil {
			return err
		}
		if section == model.SectionSchriftlicherAusdruck && s.timer.Phase() == model.PhaseTeil13 {
			s.timer.StartWriting()
		}
		s.setSection(section)
		return nil
	})
}

// UpdateAnswer applies one answer edit and queues an autosave.
func (s *ExamSession) UpdateAnswer(u model.AnswerUpdate) error {
	return s.do(func() error {
		if s.submitter.Submitted() {
			return ErrAlreadySubmitted
		}
		if err := s.answers.Apply(u); err != nil {
			return err
		}
		s.queueDraft()
		s.publish(model.SessionEvent{Type: model.EventAnswerSaved})
		return nil
	})
}

// SetStudentName records the test-taker's name. It is checked at submit.
func (s *ExamSession) SetStudentName(name string) error {
	return s.do(func() error {
		if s.submitter.Submitted() {
			return ErrAlreadySubmitted
		}
		s.studentName = strings.TrimSpace(name)
		s.queueDraft()
		return nil
	})
}

// Submit sends the answer sheet tagged with the current phase.
func (s *ExamSession) Submit(ctx context.Context) (*model.SubmissionResult, error) {
	var (
		phase   model.Phase
		name    string
		answers model.NormalizedAnswers
	)
	err := s.do(func() error {
		phase = s.timer.Phase()
		name = s.studentName
		answers = s.answers.NormalizeAnswersForSubmit()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, model.TriggerManual, phase, name, answers)
}

// State returns the unified session view.
func (s *ExamSession) State() (model.SessionState, error) {
	var st model.SessionState
	err := s.do(func() error {
		st = s.snapshot()
		return nil
	})
	return st, err
}

// Subscribe registers for session events. The returned function
// unsubscribes and closes the channel; the channel is also closed when the
// session ends.
func (s *ExamSession) Subscribe() (<-chan model.SessionEvent, func()) {
	ch := make(chan model.SessionEvent, eventBuffer)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.subs == nil {
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

// Close stops both clocks and clears the progress flag once background
// work has finished. Later calls do nothing.
func (s *ExamSession) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		<-s.stopped
		s.cancel()
		s.bg.Wait()

		if s.flags != nil {
			ctx, cancel := context.WithTimeout(context.Background(), storeWriteTimeout)
			if err := s.flags.Clear(ctx, s.id); err != nil {
				s.log.Warn().Err(err).Msg("Failed to clear progress flag")
			}
			cancel()
		}

		s.publish(model.SessionEvent{Type: model.EventClosed})
		s.subMu.Lock()
		for ch := range s.subs {
			close(ch)
		}
		s.subs = nil
		s.subMu.Unlock()

		s.log.Info().Msg("Session closed")
	})
}

func (s *ExamSession) submit(ctx context.Context, trigger model.SubmitTrigger, phase model.Phase, name string, answers model.NormalizedAnswers) (*model.SubmissionResult, error) {
	result, err := s.submitter.Submit(ctx, trigger, phase, name, answers)
	if err != nil {
		if !errors.Is(err, ErrSubmissionInFlight) {
			s.publish(model.SessionEvent{
				Type:    model.EventSubmitFailed,
				Trigger: trigger,
				Error:   SubmitErrorMessage(err),
			})
		}
		return nil, err
	}

	if err := s.do(func() error {
		s.finish()
		return nil
	}); err != nil {
		s.log.Debug().Err(err).Msg("Session closed before submission was recorded")
	}
	s.publish(model.SessionEvent{Type: model.EventSubmitted, Trigger: trigger, Result: result})
	return result, nil
}

// finish runs on the loop after a successful submission.
func (s *ExamSession) finish() {
	s.timer.Stop()
	s.writeFlag(false)
	s.discardDraft()
}

// discardDraft queues a tombstone behind any pending drafts so a late save
// cannot resurrect the sheet. Without a usable queue the draft is deleted
// directly.
func (s *ExamSession) discardDraft() {
	if s.autosave != nil {
		select {
		case s.autosave <- model.AnswerDraft{SessionID: s.id, ExamID: s.exam.ID, Discard: true}:
			return
		default:
		}
	}
	if s.drafts == nil {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), storeWriteTimeout)
		defer cancel()
		if err := s.drafts.Delete(ctx, s.id); err != nil {
			s.log.Warn().Err(err).Msg("Failed to delete answer draft")
		}
	}()
}

func (s *ExamSession) gate(section model.SectionKey) error {
	if !section.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	if reason := RefusalReason(section, s.timer.State(), s.answers.AggregateProgress()); reason != "" {
		s.log.Debug().Str("section", string(section)).Str("reason", reason).Msg("Navigation refused")
		return &NavigationError{Section: string(section), Reason: reason}
	}
	return nil
}

func (s *ExamSession) setSection(section model.SectionKey) {
	if s.section == section {
		return
	}
	s.section = section
	s.publish(model.SessionEvent{Type: model.EventSectionChanged, Section: section})
}

func (s *ExamSession) onPhaseChange(from, to model.Phase) {
	s.publish(model.SessionEvent{Type: model.EventPhaseChanged, From: from, To: to})
	if to == model.PhaseSchriftlich {
		s.setSection(model.SectionSchriftlicherAusdruck)
	}
}

func (s *ExamSession) onListeningLocked() {
	s.publish(model.SessionEvent{Type: model.EventListeningLocked})
	if s.section == model.SectionHoerverstehen {
		s.setSection(model.SectionLeseverstehen)
	}
}

// onTimeUp snapshots the sheet on the loop and submits it from a
// background goroutine so the loop keeps serving commands.
func (s *ExamSession) onTimeUp(phase model.Phase) {
	s.publish(model.SessionEvent{Type: model.EventTimeUp, From: phase})

	name := s.studentName
	answers := s.answers.NormalizeAnswersForSubmit()
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		if _, err := s.submit(s.ctx, model.TriggerAuto, phase, name, answers); err != nil {
			s.log.Warn().Err(err).Msg("Automatic submission failed")
		}
	}()
}

// writeFlag records the wanted flag value and persists it in the
// background. Writers serialize on flagMu and always write the latest
// wanted value, so the store converges on the last call.
func (s *ExamSession) writeFlag(on bool) {
	s.flagWant.Store(on)
	if s.flags == nil {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		s.flagMu.Lock()
		defer s.flagMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), storeWriteTimeout)
		defer cancel()
		var err error
		if s.flagWant.Load() {
			err = s.flags.Set(ctx, s.id)
		} else {
			err = s.flags.Clear(ctx, s.id)
		}
		if err != nil {
			s.log.Warn().Err(err).Msg("Failed to write progress flag")
		}
	}()
}

func (s *ExamSession) queueDraft() {
	if s.autosave == nil {
		return
	}
	draft := model.AnswerDraft{
		SessionID:   s.id,
		ExamID:      s.exam.ID,
		StudentName: s.studentName,
		Answers:     s.answers.Snapshot(),
		SavedAt:     s.clock.Now(),
	}
	select {
	case s.autosave <- draft:
	default:
		s.log.Warn().Msg("Autosave queue full, draft skipped")
	}
}

func (s *ExamSession) restore(d *model.AnswerDraft) error {
	if err := s.answers.Restore(d.Answers); err != nil {
		return err
	}
	s.studentName = d.StudentName
	return nil
}

func (s *ExamSession) snapshot() model.SessionState {
	timer := s.timer.State()
	display := timer.DisplayRemaining()
	progress := make(map[model.SectionKey]model.Progress, len(model.Sections))
	for _, section := range model.Sections {
		progress[section] = s.answers.Progress(section)
	}
	return model.SessionState{
		SessionID:        s.id,
		ExamID:           s.exam.ID,
		ExamTitle:        s.exam.Title,
		Timer:            timer,
		DisplayRemaining: display,
		DisplayClock:     model.FormatClock(display),
		Urgency:          model.UrgencyFor(display),
		CurrentSection:   s.section,
		StudentName:      s.studentName,
		Progress:         progress,
		Aggregate:        s.answers.AggregateProgress(),
		Answers:          s.answers.Snapshot(),
		JustSaved:        s.answers.JustSaved(),
		Submitting:       s.submitter.InFlight(),
		Submitted:        s.submitter.Submitted(),
		Result:           s.submitter.Result(),
	}
}

func (s *ExamSession) publishTick() {
	timer := s.timer.State()
	display := timer.DisplayRemaining()
	s.publish(model.SessionEvent{
		Type:    model.EventTick,
		Timer:   &timer,
		Clock:   model.FormatClock(display),
		Urgency: model.UrgencyFor(display),
	})
}

func (s *ExamSession) publish(e model.SessionEvent) {
	e.SessionID = s.id

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// SubmitErrorMessage returns the German text shown for a failed submit.
func SubmitErrorMessage(err error) string {
	var se *SubmissionError
	switch {
	case errors.Is(err, ErrStudentNameRequired):
		return "Bitte geben Sie Ihren Namen ein."
	case errors.Is(err, ErrSubmissionInFlight):
		return "Die Prüfung wird bereits eingereicht."
	case errors.As(err, &se):
		return se.Message
	default:
		return genericSubmitFailure
	}
}

// SessionService opens exam sessions and keeps them addressable by id.
type SessionService struct {
	api       ExamAPI
	flags     ProgressFlagStore
	drafts    DraftStore
	autosave  chan<- model.AnswerDraft
	clock     clockwork.Clock
	durations TimerDurations
	log       zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*ExamSession
}

// ExamAPI is the backend surface sessions depend on.
type ExamAPI interface {
	GetExam(ctx context.Context, examID int) (*model.ExamContent, error)
	ExamSubmitter
}

// NewSessionService creates a SessionService. flags, drafts and autosave
// may be nil to run without persistence.
func NewSessionService(
	api ExamAPI,
	flags ProgressFlagStore,
	drafts DraftStore,
	autosave chan<- model.AnswerDraft,
	clock clockwork.Clock,
	durations TimerDurations,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		api:       api,
		flags:     flags,
		drafts:    drafts,
		autosave:  autosave,
		clock:     clock,
		durations: durations,
		log:       log,
		sessions:  make(map[string]*ExamSession),
	}
}

// Open loads the exam paper and starts a session for it. An existing open
// session with the same id is returned as is. A fresh session picks up the
// autosaved draft for sessionID when one exists.
func (s *SessionService) Open(ctx context.Context, examID int, sessionID string) (*ExamSession, error) {
	if sessionID != "" {
		if sess, err := s.Get(sessionID); err == nil {
			return sess, nil
		}
	}

	exam, err := s.api.GetExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("%w: exam %d: %w", ErrExamUnavailable, examID, err)
	}
	if fields := validator.Struct(exam); fields != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExamContent, fields)
	}
	if exam.ID != examID {
		return nil, fmt.Errorf("%w: requested exam %d, got %d", ErrInvalidExamContent, examID, exam.ID)
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	sess := newExamSession(sessionID, exam, s)
	s.restoreDraft(ctx, sess)

	s.mu.Lock()
	if existing, ok := s.sessions[sessionID]; ok {
		s.mu.Unlock()
		sess.cancel()
		return existing, nil
	}
	s.sessions[sessionID] = sess
	s.mu.Unlock()

	go sess.run()
	sess.log.Info().Str("title", exam.Title).Msg("Session opened")
	return sess, nil
}

// Get returns an open session.
func (s *SessionService) Get(sessionID string) (*ExamSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Close tears down and forgets a session.
func (s *SessionService) Close(sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.Close()
	return nil
}

// Shutdown closes every open session.
func (s *SessionService) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*ExamSession)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
	s.log.Info().Int("count", len(sessions)).Msg("Sessions closed")
}

func (s *SessionService) restoreDraft(ctx context.Context, sess *ExamSession) {
	if s.drafts == nil {
		return
	}
	draft, err := s.drafts.Load(ctx, sess.id)
	if err != nil {
		sess.log.Warn().Err(err).Msg("Failed to load answer draft")
		return
	}
	if draft == nil || draft.ExamID != sess.exam.ID {
		return
	}
	if err := sess.restore(draft); err != nil {
		sess.log.Warn().Err(err).Msg("Discarding invalid answer draft")
		return
	}
	sess.log.Info().Time("saved_at", draft.SavedAt).Msg("Answer draft restored")
}
