package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/telcprep/exam-session/internal/model"
)

// savedIndicatorWindow is how long JustSaved stays true after an edit.
// Every edit restarts the window.
const savedIndicatorWindow = 1200 * time.Millisecond

// AnswerTracker holds the live answer sheet and derives progress from it.
// It is not safe for concurrent use; ExamSession serializes access.
type AnswerTracker struct {
	clock      clockwork.Clock
	state      model.AnswerState
	savedUntil time.Time
}

// NewAnswerTracker creates a tracker with every slot unanswered.
func NewAnswerTracker(clock clockwork.Clock) *AnswerTracker {
	return &AnswerTracker{clock: clock}
}

// UpdateChoice writes a letter answer. Letters are stored lower-case;
// writing the empty choice clears the slot.
func (a *AnswerTracker) UpdateChoice(part model.PartKey, index int, value model.Choice) error {
	spec, err := partOfKind(part, model.SlotChoice)
	if err != nil {
		return err
	}
	if index < 0 || index >= spec.Slots {
		return fmt.Errorf("%w: %s[%d]", ErrSlotOutOfRange, part, index)
	}
	value = model.Choice(strings.ToLower(strings.TrimSpace(string(value))))
	if !validChoice(spec, value) {
		return fmt.Errorf("%w: %q for %s", ErrInvalidAnswerValue, value, part)
	}
	a.state.Choices(part)[index] = value
	a.markSaved()
	return nil
}

// UpdateVerdict writes a richtig/falsch answer. Only true and false are
// accepted.
func (a *AnswerTracker) UpdateVerdict(part model.PartKey, index int, value model.Verdict) error {
	spec, err := partOfKind(part, model.SlotVerdict)
	if err != nil {
		return err
	}
	if index < 0 || index >= spec.Slots {
		return fmt.Errorf("%w: %s[%d]", ErrSlotOutOfRange, part, index)
	}
	if !value.Answered() {
		return fmt.Errorf("%w: listening answers must be true or false", ErrInvalidAnswerValue)
	}
	a.state.Verdicts(part)[index] = value
	a.markSaved()
	return nil
}

// UpdateWriting sets one field of the written response.
func (a *AnswerTracker) UpdateWriting(field model.WritingField, value string) error {
	switch field {
	case model.WritingFieldSelectedTask:
		task := model.WritingTask(strings.ToUpper(strings.TrimSpace(value)))
		if task != model.WritingTaskNone && task != model.WritingTaskA && task != model.WritingTaskB {
			return fmt.Errorf("%w: task %q", ErrInvalidAnswerValue, value)
		}
		a.state.SchriftlicherAusdruck.SelectedTask = task
	case model.WritingFieldText:
		a.state.SchriftlicherAusdruck.Text = value
	default:
		return fmt.Errorf("%w: writing field %q", ErrSlotOutOfRange, field)
	}
	a.markSaved()
	return nil
}

// Apply decodes a wire update and dispatches it by part kind.
func (a *AnswerTracker) Apply(u model.AnswerUpdate) error {
	spec, ok := model.LookupPart(u.Section)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSection, u.Section)
	}
	switch spec.Kind {
	case model.SlotChoice:
		var s string
		if err := json.Unmarshal(u.Value, &s); err != nil {
			return fmt.Errorf("%w: expected a letter", ErrInvalidAnswerValue)
		}
		return a.UpdateChoice(u.Section, u.Index, model.Choice(s))
	case model.SlotVerdict:
		// null decodes without error, so a nil pointer marks it.
		var b *bool
		if err := json.Unmarshal(u.Value, &b); err != nil || b == nil {
			return fmt.Errorf("%w: expected true or false", ErrInvalidAnswerValue)
		}
		return a.UpdateVerdict(u.Section, u.Index, model.VerdictOf(*b))
	default:
		var s string
		if err := json.Unmarshal(u.Value, &s); err != nil {
			return fmt.Errorf("%w: expected text", ErrInvalidAnswerValue)
		}
		return a.UpdateWriting(u.Field, s)
	}
}

// PartProgress counts answered slots in one part.
func (a *AnswerTracker) PartProgress(part model.PartKey) (model.Progress, error) {
	spec, ok := model.LookupPart(part)
	if !ok {
		return model.Progress{}, fmt.Errorf("%w: %q", ErrUnknownSection, part)
	}
	return a.partProgress(spec), nil
}

// Progress counts answered slots across a section. The writing section
// counts as one slot, answered once a task is selected.
func (a *AnswerTracker) Progress(section model.SectionKey) model.Progress {
	var p model.Progress
	for _, spec := range model.PartsOf(section) {
		pp := a.partProgress(spec)
		p.Answered += pp.Answered
		p.Total += pp.Total
	}
	return p
}

// AggregateProgress sums the reading, language and listening sections.
func (a *AnswerTracker) AggregateProgress() model.AggregateProgress {
	var agg model.AggregateProgress
	for _, section := range []model.SectionKey{
		model.SectionLeseverstehen,
		model.SectionSprachbausteine,
		model.SectionHoerverstehen,
	} {
		p := a.Progress(section)
		agg.Answered += p.Answered
		agg.Total += p.Total
	}
	agg.HasMinimumForWriting = model.HasMinimum(agg.Answered, agg.Total)
	return agg
}

// AnswerStatus reports whether numbered question n (1-60) is answered.
func (a *AnswerTracker) AnswerStatus(n int) bool {
	for _, spec := range model.Parts {
		if spec.Kind == model.SlotWriting {
			continue
		}
		idx := n - spec.FirstQuestion
		if idx < 0 || idx >= spec.Slots {
			continue
		}
		if spec.Kind == model.SlotVerdict {
			return a.state.Verdicts(spec.Key)[idx].Answered()
		}
		return a.state.Choices(spec.Key)[idx].Answered()
	}
	return false
}

// NormalizeAnswersForSubmit returns a submission-ready copy. Letter-coded
// parts with an index mapping are translated; everything else is copied.
// The live sheet is never touched.
func (a *AnswerTracker) NormalizeAnswersForSubmit() model.NormalizedAnswers {
	s := a.state
	out := model.NormalizedAnswers{
		LeseverstehenTeil1:   s.LeseverstehenTeil1,
		LeseverstehenTeil3:   s.LeseverstehenTeil3,
		SprachbausteineTeil1: s.SprachbausteineTeil1,
		SprachbausteineTeil2: s.SprachbausteineTeil2,
		Hoerverstehen:        s.Hoerverstehen,
	}
	spec, _ := model.LookupPart(model.PartLeseverstehenTeil2)
	for i, c := range s.LeseverstehenTeil2 {
		if idx, ok := spec.LetterIndex[c]; ok {
			out.LeseverstehenTeil2[i] = model.OptionIndex{Index: idx, Set: true}
		}
	}
	writing := s.SchriftlicherAusdruck
	out.SchriftlicherAusdruck = &writing
	return out
}

// Snapshot returns a copy of the live sheet.
func (a *AnswerTracker) Snapshot() model.AnswerState { return a.state }

// Restore replaces the sheet with a previously saved copy after checking
// every slot holds a value this tracker would have accepted.
func (a *AnswerTracker) Restore(s model.AnswerState) error {
	for _, spec := range model.Parts {
		if spec.Kind != model.SlotChoice {
			continue
		}
		for i, c := range s.Choices(spec.Key) {
			if !validChoice(spec, c) {
				return fmt.Errorf("%w: %s[%d]=%q", ErrInvalidAnswerValue, spec.Key, i, c)
			}
		}
	}
	switch s.SchriftlicherAusdruck.SelectedTask {
	case model.WritingTaskNone, model.WritingTaskA, model.WritingTaskB:
	default:
		return fmt.Errorf("%w: task %q", ErrInvalidAnswerValue, s.SchriftlicherAusdruck.SelectedTask)
	}
	a.state = s
	return nil
}

// JustSaved drives the transient "saved" indicator.
func (a *AnswerTracker) JustSaved() bool {
	return a.clock.Now().Before(a.savedUntil)
}

func (a *AnswerTracker) markSaved() {
	a.savedUntil = a.clock.Now().Add(savedIndicatorWindow)
}

func (a *AnswerTracker) partProgress(spec model.PartSpec) model.Progress {
	p := model.Progress{Total: spec.Slots}
	switch spec.Kind {
	case model.SlotChoice:
		for _, c := range a.state.Choices(spec.Key) {
			if c.Answered() {
				p.Answered++
			}
		}
	case model.SlotVerdict:
		for _, v := range a.state.Verdicts(spec.Key) {
			if v.Answered() {
				p.Answered++
			}
		}
	case model.SlotWriting:
		if a.state.SchriftlicherAusdruck.SelectedTask != model.WritingTaskNone {
			p.Answered = 1
		}
	}
	return p
}

func partOfKind(part model.PartKey, kind model.SlotKind) (model.PartSpec, error) {
	spec, ok := model.LookupPart(part)
	if !ok || spec.Kind != kind {
		return model.PartSpec{}, fmt.Errorf("%w: %q", ErrUnknownSection, part)
	}
	return spec, nil
}

// validChoice accepts the unanswered sentinel or one letter from the
// part's option set.
func validChoice(spec model.PartSpec, c model.Choice) bool {
	if !c.Answered() {
		return true
	}
	return len(c) == 1 && strings.Contains(spec.Options, string(c))
}
