package model

import "encoding/json"

// ExamContent is the read-only paper fetched once per session.
// Question payloads whose layout varies between exam editions are kept
// as raw JSON; the controller never interprets them.
type ExamContent struct {
	ID        int    `json:"id" validate:"required,gt=0"`
	Title     string `json:"title" validate:"required"`
	CreatedAt string `json:"created_at,omitempty"`

	LeseverstehenTeil1 struct {
		Titles []string `json:"titles"`
		Texts  []string `json:"texts" validate:"max=5"`
	} `json:"leseverstehen_teil1"`

	LeseverstehenTeil2 struct {
		Texts     []string          `json:"texts"`
		Questions []json.RawMessage `json:"questions" validate:"max=5"`
	} `json:"leseverstehen_teil2"`

	LeseverstehenTeil3 struct {
		Situations []string          `json:"situations" validate:"max=10"`
		Ads        []json.RawMessage `json:"ads"`
	} `json:"leseverstehen_teil3"`

	SprachbausteineTeil1 struct {
		Text    string            `json:"text"`
		Options []json.RawMessage `json:"options" validate:"max=10"`
	} `json:"sprachbausteine_teil1"`

	SprachbausteineTeil2 struct {
		Text  string   `json:"text"`
		Words []string `json:"words"`
	} `json:"sprachbausteine_teil2"`

	Hoerverstehen struct {
		Teil1 ListeningPart `json:"teil1"`
		Teil2 ListeningPart `json:"teil2"`
		Teil3 ListeningPart `json:"teil3"`
	} `json:"hoerverstehen"`

	SchriftlicherAusdruck struct {
		TaskA string `json:"task_a"`
		TaskB string `json:"task_b"`
	} `json:"schriftlicher_ausdruck"`
}

// ListeningPart is one audio recording with its statements.
type ListeningPart struct {
	AudioURL   string   `json:"audio_url"`
	Statements []string `json:"statements" validate:"max=10"`
}
