package model

import "encoding/json"

// SubmitTrigger records why a submission was sent.
type SubmitTrigger string

const (
	TriggerManual SubmitTrigger = "manual"
	TriggerAuto   SubmitTrigger = "auto"
)

// SubmitRequest is the body posted to the backend submit endpoint.
type SubmitRequest struct {
	StudentName string            `json:"student_name" validate:"required,notblank,max=200"`
	Answers     NormalizedAnswers `json:"answers"`
	TimerPhase  Phase             `json:"timer_phase" validate:"oneof=teil1-3 schriftlich"`
}

// SubmissionResult is the backend's score payload, forwarded verbatim.
type SubmissionResult struct {
	Raw json.RawMessage
}

// MarshalJSON forwards the raw payload.
func (r SubmissionResult) MarshalJSON() ([]byte, error) {
	if len(r.Raw) == 0 {
		return []byte("null"), nil
	}
	return r.Raw, nil
}
