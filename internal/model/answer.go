package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Choice is a letter-coded answer. The empty string is the unanswered
// sentinel and is never a valid answer.
type Choice string

// ChoiceUnanswered marks an empty choice slot.
const ChoiceUnanswered Choice = ""

// Answered reports whether the slot holds an answer.
func (c Choice) Answered() bool { return c != ChoiceUnanswered }

// Verdict is a richtig/falsch answer for listening statements. The zero
// value is unanswered, so a false answer is distinct from no answer.
type Verdict uint8

const (
	VerdictUnanswered Verdict = iota
	VerdictTrue
	VerdictFalse
)

// VerdictOf converts a boolean answer.
func VerdictOf(b bool) Verdict {
	if b {
		return VerdictTrue
	}
	return VerdictFalse
}

// Answered reports whether the slot holds true or false.
func (v Verdict) Answered() bool { return v == VerdictTrue || v == VerdictFalse }

// MarshalJSON encodes unanswered as null.
func (v Verdict) MarshalJSON() ([]byte, error) {
	switch v {
	case VerdictTrue:
		return []byte("true"), nil
	case VerdictFalse:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts true, false and null.
func (v *Verdict) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true":
		*v = VerdictTrue
	case "false":
		*v = VerdictFalse
	case "null":
		*v = VerdictUnanswered
	default:
		return fmt.Errorf("verdict: unexpected %s", data)
	}
	return nil
}

// WritingTask is the chosen task of the written-response section.
type WritingTask string

const (
	WritingTaskNone WritingTask = ""
	WritingTaskA    WritingTask = "A"
	WritingTaskB    WritingTask = "B"
)

// WritingAnswer is the written-response record.
type WritingAnswer struct {
	SelectedTask WritingTask `json:"selected_task"`
	Text         string      `json:"text"`
}

// WritingField names one of the two WritingAnswer fields.
type WritingField string

const (
	WritingFieldSelectedTask WritingField = "selected_task"
	WritingFieldText         WritingField = "text"
)

// HoerAnswers groups the three listening parts as the backend expects them.
type HoerAnswers struct {
	Teil1 [5]Verdict  `json:"teil1"`
	Teil2 [10]Verdict `json:"teil2"`
	Teil3 [5]Verdict  `json:"teil3"`
}

// AnswerState is the live answer sheet. Arrays keep every part at its
// fixed length.
type AnswerState struct {
	LeseverstehenTeil1    [5]Choice     `json:"leseverstehen_teil1"`
	LeseverstehenTeil2    [5]Choice     `json:"leseverstehen_teil2"`
	LeseverstehenTeil3    [10]Choice    `json:"leseverstehen_teil3"`
	SprachbausteineTeil1  [10]Choice    `json:"sprachbausteine_teil1"`
	SprachbausteineTeil2  [10]Choice    `json:"sprachbausteine_teil2"`
	Hoerverstehen         HoerAnswers   `json:"hoerverstehen"`
	SchriftlicherAusdruck WritingAnswer `json:"schriftlicher_ausdruck"`
}

// Choices returns the backing slots of a letter-coded part. The slice
// aliases the array so writes land in the state.
func (a *AnswerState) Choices(part PartKey) []Choice {
	switch part {
	case PartLeseverstehenTeil1:
		return a.LeseverstehenTeil1[:]
	case PartLeseverstehenTeil2:
		return a.LeseverstehenTeil2[:]
	case PartLeseverstehenTeil3:
		return a.LeseverstehenTeil3[:]
	case PartSprachbausteineTeil1:
		return a.SprachbausteineTeil1[:]
	case PartSprachbausteineTeil2:
		return a.SprachbausteineTeil2[:]
	}
	return nil
}

// Verdicts returns the backing slots of a listening part.
func (a *AnswerState) Verdicts(part PartKey) []Verdict {
	switch part {
	case PartHoerverstehenTeil1:
		return a.Hoerverstehen.Teil1[:]
	case PartHoerverstehenTeil2:
		return a.Hoerverstehen.Teil2[:]
	case PartHoerverstehenTeil3:
		return a.Hoerverstehen.Teil3[:]
	}
	return nil
}

// OptionIndex is a letter answer translated to its zero-based option
// index. An unset index encodes as the empty string, matching the
// unanswered value the backend already understands.
type OptionIndex struct {
	Index int
	Set   bool
}

// MarshalJSON implements json.Marshaler.
func (o OptionIndex) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte(`""`), nil
	}
	return []byte(strconv.Itoa(o.Index)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionIndex) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == `""` {
		*o = OptionIndex{}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("option index: %w", err)
	}
	*o = OptionIndex{Index: n, Set: true}
	return nil
}

// NormalizedAnswers is the submission form of AnswerState. The writing
// section is nil when it must not be sent.
type NormalizedAnswers struct {
	LeseverstehenTeil1    [5]Choice      `json:"leseverstehen_teil1"`
	LeseverstehenTeil2    [5]OptionIndex `json:"leseverstehen_teil2"`
	LeseverstehenTeil3    [10]Choice     `json:"leseverstehen_teil3"`
	SprachbausteineTeil1  [10]Choice     `json:"sprachbausteine_teil1"`
	SprachbausteineTeil2  [10]Choice     `json:"sprachbausteine_teil2"`
	Hoerverstehen         HoerAnswers    `json:"hoerverstehen"`
	SchriftlicherAusdruck *WritingAnswer `json:"schriftlicher_ausdruck,omitempty"`
}

// AnswerUpdate is the wire form of a single answer edit. Index addresses
// list slots; Field addresses the written-response record.
type AnswerUpdate struct {
	Section PartKey         `json:"section" binding:"required"`
	Index   int             `json:"index" binding:"min=0"`
	Field   WritingField    `json:"field"`
	Value   json.RawMessage `json:"value"`
}
