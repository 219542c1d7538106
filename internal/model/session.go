package model

import "time"

// SessionState is the unified view of one exam session handed to the UI.
type SessionState struct {
	SessionID        string                  `json:"session_id"`
	ExamID           int                     `json:"exam_id"`
	ExamTitle        string                  `json:"exam_title"`
	Timer            TimerState              `json:"timer"`
	DisplayRemaining int                     `json:"display_remaining"`
	DisplayClock     string                  `json:"display_clock"`
	Urgency          Urgency                 `json:"urgency"`
	CurrentSection   SectionKey              `json:"current_section,omitempty"`
	StudentName      string                  `json:"student_name"`
	Progress         map[SectionKey]Progress `json:"progress"`
	Aggregate        AggregateProgress       `json:"aggregate"`
	Answers          AnswerState             `json:"answers"`
	JustSaved        bool                    `json:"just_saved"`
	Submitting       bool                    `json:"submitting"`
	Submitted        bool                    `json:"submitted"`
	Result           *SubmissionResult       `json:"result,omitempty"`
}

// SessionEventType names a notification pushed to session subscribers.
type SessionEventType string

const (
	EventTick            SessionEventType = "tick"
	EventPhaseChanged    SessionEventType = "phase_changed"
	EventListeningLocked SessionEventType = "listening_locked"
	EventSectionChanged  SessionEventType = "section_changed"
	EventAnswerSaved     SessionEventType = "answer_saved"
	EventTimeUp          SessionEventType = "time_up"
	EventSubmitted       SessionEventType = "submitted"
	EventSubmitFailed    SessionEventType = "submit_failed"
	EventClosed          SessionEventType = "closed"
)

// SessionEvent is a single notification. Only the fields relevant to Type
// are set.
type SessionEvent struct {
	Type      SessionEventType  `json:"event"`
	SessionID string            `json:"session_id"`
	Timer     *TimerState       `json:"timer,omitempty"`
	Clock     string            `json:"clock,omitempty"`
	Urgency   Urgency           `json:"urgency,omitempty"`
	From      Phase             `json:"from,omitempty"`
	To        Phase             `json:"to,omitempty"`
	Section   SectionKey        `json:"section,omitempty"`
	Trigger   SubmitTrigger     `json:"trigger,omitempty"`
	Result    *SubmissionResult `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// AnswerDraft is the autosaved copy of a session's answer sheet.
type AnswerDraft struct {
	SessionID   string      `json:"session_id"`
	ExamID      int         `json:"exam_id"`
	StudentName string      `json:"student_name"`
	Answers     AnswerState `json:"answers"`
	SavedAt     time.Time   `json:"saved_at"`
	// Discard marks a tombstone: the stored draft is deleted instead of
	// overwritten. Never persisted.
	Discard bool `json:"-"`
}

// OpenSessionRequest opens a session, or reattaches to one when SessionID
// names a session that is still open or has a saved draft. SessionID ends
// up in Redis keys, so only UUIDs are accepted.
type OpenSessionRequest struct {
	ExamID    int    `json:"exam_id" binding:"required,min=1"`
	SessionID string `json:"session_id" binding:"omitempty,uuid"`
}

type NavigateRequest struct {
	Section SectionKey `json:"section" binding:"required"`
}

// StudentNameRequest may carry an empty name; it is only enforced at
// submit.
type StudentNameRequest struct {
	StudentName string `json:"student_name" binding:"max=200"`
}
