package service

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/telcprep/exam-session/internal/countdown"
	"github.com/telcprep/exam-session/internal/model"
)

// TimerDurations holds the phase lengths in whole seconds.
type TimerDurations struct {
	Teil13    int
	Listening int
	Writing   int
}

// DefaultTimerDurations matches the telc B2 paper: 90 minutes for
// Leseverstehen/Sprachbausteine, 20 minutes of Hörverstehen inside that
// window and 30 minutes for Schriftlicher Ausdruck.
var DefaultTimerDurations = TimerDurations{
	Teil13:    int((90 * time.Minute).Seconds()),
	Listening: int((20 * time.Minute).Seconds()),
	Writing:   int((30 * time.Minute).Seconds()),
}

// TimerHooks are notifications emitted by the controller. All of them run
// on the goroutine that drives the controller.
type TimerHooks struct {
	OnPhaseChange     func(from, to model.Phase)
	OnListeningLocked func()
	// OnTimeUp receives the phase that was active when the final clock ran out.
	OnTimeUp func(phase model.Phase)
}

// TimerController owns the phase state machine and its two countdowns.
// It is not safe for concurrent use; ExamSession serializes access.
type TimerController struct {
	durations TimerDurations
	hooks     TimerHooks
	log       zerolog.Logger

	phase      model.Phase
	main       *countdown.Countdown
	hoer       *countdown.Countdown
	hoerActive bool
	hoerLocked bool
	running    bool
	started    bool
}

// NewTimerController creates a controller in the initial phase.
func NewTimerController(clock clockwork.Clock, durations TimerDurations, hooks TimerHooks, log zerolog.Logger) *TimerController {
	t := &TimerController{
		durations: durations,
		hooks:     hooks,
		log:       log.With().Str("component", "timer_controller").Logger(),
		phase:     model.PhaseInitial,
	}
	t.main = countdown.New(clock, durations.Teil13, t.onMainExpired)
	t.hoer = countdown.New(clock, durations.Listening, t.onListeningExpired)
	return t
}

// State returns a snapshot.
func (t *TimerController) State() model.TimerState {
	return model.TimerState{
		Phase:             t.phase,
		MainTimeRemaining: t.main.Remaining(),
		HoerTimeRemaining: t.hoer.Remaining(),
		IsHoerActive:      t.hoerActive,
		HoerLocked:        t.hoerLocked,
		IsRunning:         t.running,
		HasStarted:        t.started,
	}
}

// Phase returns the current phase.
func (t *TimerController) Phase() model.Phase { return t.phase }

// MainC is the tick channel of the phase clock, nil while idle.
func (t *TimerController) MainC() <-chan time.Time { return t.main.C() }

// ListeningC is the tick channel of the listening clock, nil while idle.
func (t *TimerController) ListeningC() <-chan time.Time { return t.hoer.C() }

// TickMain consumes one second of the phase clock.
func (t *TimerController) TickMain() { t.main.Tick() }

// TickListening consumes one second of the listening clock.
func (t *TimerController) TickListening() {
	if !t.hoerActive || t.hoerLocked || !t.running {
		return
	}
	t.hoer.Tick()
}

// Start begins the Teil 1-3 phase.
func (t *TimerController) Start() {
	if t.phase != model.PhaseInitial {
		t.ignored("start")
		return
	}
	t.started = true
	t.running = true
	t.main.Reset(t.durations.Teil13)
	t.main.Start()
	t.setPhase(model.PhaseTeil13)
}

// StartListening arms the listening clock at its full duration. Calling it
// again while unlocked re-arms the clock.
func (t *TimerController) StartListening() {
	if t.phase != model.PhaseTeil13 || t.hoerLocked {
		t.ignored("start_listening")
		return
	}
	t.hoerActive = true
	t.hoer.Reset(t.durations.Listening)
	if t.running {
		t.hoer.Start()
	}
}

// StartWriting moves to the writing phase before the Teil 1-3 clock runs
// out. The caller is expected to have consulted CanEnter first.
func (t *TimerController) StartWriting() {
	if t.phase != model.PhaseTeil13 {
		t.ignored("start_writing")
		return
	}
	t.enterWriting()
}

// Stop halts both clocks and releases their tickers. The phase is kept.
func (t *TimerController) Stop() {
	t.main.Stop()
	t.hoer.Stop()
	t.running = false
}

func (t *TimerController) enterWriting() {
	t.hoerActive = false
	t.hoer.Stop()
	t.main.Reset(t.durations.Writing)
	if t.running {
		t.main.Start()
	}
	t.setPhase(model.PhaseSchriftlich)
}

func (t *TimerController) onMainExpired() {
	switch t.phase {
	case model.PhaseTeil13:
		t.enterWriting()
	case model.PhaseSchriftlich:
		t.hoer.Stop()
		t.running = false
		t.setPhase(model.PhaseCompleted)
		if t.hooks.OnTimeUp != nil {
			t.hooks.OnTimeUp(model.PhaseSchriftlich)
		}
	default:
		t.ignored("main_expired")
	}
}

func (t *TimerController) onListeningExpired() {
	t.hoerLocked = true
	t.hoerActive = false
	t.log.Info().Msg("Listening time used up, section locked")
	if t.hooks.OnListeningLocked != nil {
		t.hooks.OnListeningLocked()
	}
}

func (t *TimerController) setPhase(next model.Phase) {
	prev := t.phase
	if next.Ordinal() <= prev.Ordinal() {
		t.ignored("phase_regression")
		return
	}
	t.phase = next
	t.log.Info().Str("from", string(prev)).Str("to", string(next)).Msg("Phase changed")
	if t.hooks.OnPhaseChange != nil {
		t.hooks.OnPhaseChange(prev, next)
	}
}

// ignored records a transition attempted from the wrong state.
func (t *TimerController) ignored(op string) {
	t.log.Debug().
		Str("op", op).
		Str("phase", string(t.phase)).
		Bool("hoer_locked", t.hoerLocked).
		Msg("Transition ignored")
}
