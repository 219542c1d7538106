package websocket

import (
	"encoding/json"

	"github.com/telcprep/exam-session/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing     Action = "ping"
	ActionState    Action = "state"
	ActionAutosave Action = "autosave"
	ActionNavigate Action = "navigate"
	ActionName     Action = "student_name"
	ActionSubmit   Action = "submit"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AutosaveRequest carries a single answer edit.
type AutosaveRequest struct {
	Action  Action             `json:"action"`
	Section model.PartKey      `json:"section"`
	Index   int                `json:"index"`
	Field   model.WritingField `json:"field"`
	Value   json.RawMessage    `json:"value"`
}

// Update converts the request into the session's edit form.
func (r AutosaveRequest) Update() model.AnswerUpdate {
	return model.AnswerUpdate{Section: r.Section, Index: r.Index, Field: r.Field, Value: r.Value}
}

type NavigateRequest struct {
	Action  Action           `json:"action"`
	Section model.SectionKey `json:"section"`
}

type StudentNameRequest struct {
	Action      Action `json:"action"`
	StudentName string `json:"student_name"`
}

// ─── Events (Server → Client) ───────────────────────────────────────
// Session notifications are forwarded as model.SessionEvent, which shares
// the "event" discriminator with the responses below.

type Event string

const (
	EventError Event = "error"
	EventAck   Event = "ack"
	EventState Event = "state"
	EventPong  Event = "pong"
)

// AckResponse confirms an action that changed session state.
type AckResponse struct {
	Event  Event  `json:"event"`
	Action Action `json:"action"`
}

type StateResponse struct {
	Event Event              `json:"event"`
	State model.SessionState `json:"state"`
}

type ErrorResponse struct {
	Event     Event  `json:"event"`
	Action    Action `json:"action,omitempty"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
