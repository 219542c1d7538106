package model

import "fmt"

// Phase is the forward-only timer state.
type Phase string

const (
	PhaseInitial     Phase = "initial"
	PhaseTeil13      Phase = "teil1-3"
	PhaseSchriftlich Phase = "schriftlich"
	PhaseCompleted   Phase = "completed"
)

// Ordinal gives the position of p in the phase sequence, -1 if unknown.
func (p Phase) Ordinal() int {
	switch p {
	case PhaseInitial:
		return 0
	case PhaseTeil13:
		return 1
	case PhaseSchriftlich:
		return 2
	case PhaseCompleted:
		return 3
	}
	return -1
}

// TimerState is a read-only snapshot of the timer controller.
type TimerState struct {
	Phase             Phase `json:"phase"`
	MainTimeRemaining int   `json:"main_time_remaining"`
	HoerTimeRemaining int   `json:"hoer_time_remaining"`
	IsHoerActive      bool  `json:"is_hoer_active"`
	HoerLocked        bool  `json:"hoer_locked"`
	IsRunning         bool  `json:"is_running"`
	HasStarted        bool  `json:"has_started"`
}

// DisplayRemaining is the countdown shown to the test-taker: the listening
// clock while it runs, the phase clock otherwise.
func (t TimerState) DisplayRemaining() int {
	if t.IsHoerActive && !t.HoerLocked {
		return t.HoerTimeRemaining
	}
	return t.MainTimeRemaining
}

// Urgency grades how close the displayed clock is to zero.
type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyWarning  Urgency = "warning"
	UrgencyCritical Urgency = "critical"
)

// UrgencyFor maps remaining seconds to an urgency level.
func UrgencyFor(seconds int) Urgency {
	switch {
	case seconds <= 540:
		return UrgencyCritical
	case seconds <= 1080:
		return UrgencyWarning
	default:
		return UrgencyNormal
	}
}

// FormatClock renders seconds as HH:MM:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
