package model

// SectionKey identifies one of the four top-level exam areas.
type SectionKey string

const (
	SectionLeseverstehen         SectionKey = "leseverstehen"
	SectionSprachbausteine       SectionKey = "sprachbausteine"
	SectionHoerverstehen         SectionKey = "hoerverstehen"
	SectionSchriftlicherAusdruck SectionKey = "schriftlicher_ausdruck"
)

// Sections lists the sections in exam order.
var Sections = []SectionKey{
	SectionLeseverstehen,
	SectionSprachbausteine,
	SectionHoerverstehen,
	SectionSchriftlicherAusdruck,
}

// Valid reports whether s is a recognized section.
func (s SectionKey) Valid() bool {
	switch s {
	case SectionLeseverstehen, SectionSprachbausteine, SectionHoerverstehen, SectionSchriftlicherAusdruck:
		return true
	}
	return false
}

// PartKey addresses one answerable part. The values double as the wire
// names used in update requests.
type PartKey string

const (
	PartLeseverstehenTeil1   PartKey = "leseverstehen_teil1"
	PartLeseverstehenTeil2   PartKey = "leseverstehen_teil2"
	PartLeseverstehenTeil3   PartKey = "leseverstehen_teil3"
	PartSprachbausteineTeil1 PartKey = "sprachbausteine_teil1"
	PartSprachbausteineTeil2 PartKey = "sprachbausteine_teil2"
	PartHoerverstehenTeil1   PartKey = "hoerverstehen_teil1"
	PartHoerverstehenTeil2   PartKey = "hoerverstehen_teil2"
	PartHoerverstehenTeil3   PartKey = "hoerverstehen_teil3"
	PartSchriftlich          PartKey = "schriftlicher_ausdruck"
)

// SlotKind tags the answer type a part holds.
type SlotKind int

const (
	SlotChoice SlotKind = iota
	SlotVerdict
	SlotWriting
)

// PartSpec describes the fixed shape of one part.
type PartSpec struct {
	Key     PartKey
	Section SectionKey
	Kind    SlotKind
	Slots   int
	// FirstQuestion is the 1-based question number of slot 0.
	FirstQuestion int
	// Options lists the letters a choice part accepts.
	Options string
	// LetterIndex maps letter answers to the zero-based option index sent
	// on submit. Nil when the part keeps its letters.
	LetterIndex map[Choice]int
}

// Parts is the fixed layout of a telc B2 paper. Slot counts never change
// for the life of a session.
var Parts = []PartSpec{
	{Key: PartLeseverstehenTeil1, Section: SectionLeseverstehen, Kind: SlotChoice, Slots: 5, FirstQuestion: 1,
		Options: "abcdefghij"},
	{Key: PartLeseverstehenTeil2, Section: SectionLeseverstehen, Kind: SlotChoice, Slots: 5, FirstQuestion: 6,
		Options: "abc", LetterIndex: map[Choice]int{"a": 0, "b": 1, "c": 2}},
	{Key: PartLeseverstehenTeil3, Section: SectionLeseverstehen, Kind: SlotChoice, Slots: 10, FirstQuestion: 11,
		Options: "abcdefghijklx"},
	{Key: PartSprachbausteineTeil1, Section: SectionSprachbausteine, Kind: SlotChoice, Slots: 10, FirstQuestion: 21,
		Options: "abc"},
	{Key: PartSprachbausteineTeil2, Section: SectionSprachbausteine, Kind: SlotChoice, Slots: 10, FirstQuestion: 31,
		Options: "abcdefghijklmno"},
	{Key: PartHoerverstehenTeil1, Section: SectionHoerverstehen, Kind: SlotVerdict, Slots: 5, FirstQuestion: 41},
	{Key: PartHoerverstehenTeil2, Section: SectionHoerverstehen, Kind: SlotVerdict, Slots: 10, FirstQuestion: 46},
	{Key: PartHoerverstehenTeil3, Section: SectionHoerverstehen, Kind: SlotVerdict, Slots: 5, FirstQuestion: 56},
	{Key: PartSchriftlich, Section: SectionSchriftlicherAusdruck, Kind: SlotWriting, Slots: 1},
}

// LookupPart returns the spec for key.
func LookupPart(key PartKey) (PartSpec, bool) {
	for _, p := range Parts {
		if p.Key == key {
			return p, true
		}
	}
	return PartSpec{}, false
}

// PartsOf returns the parts belonging to a section, in order.
func PartsOf(section SectionKey) []PartSpec {
	var out []PartSpec
	for _, p := range Parts {
		if p.Section == section {
			out = append(out, p)
		}
	}
	return out
}

// QuestionCount is the number of numbered (non-writing) questions.
const QuestionCount = 60
