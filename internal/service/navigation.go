package service

import "github.com/telcprep/exam-session/internal/model"

// CanEnter decides whether the test-taker may switch to section. It has no
// side effects.
func CanEnter(section model.SectionKey, timer model.TimerState, progress model.AggregateProgress) bool {
	return RefusalReason(section, timer, progress) == ""
}

// RefusalReason explains why CanEnter refuses, or returns "" when entry is
// allowed. Messages are shown to the test-taker as-is.
func RefusalReason(section model.SectionKey, timer model.TimerState, progress model.AggregateProgress) string {
	if !section.Valid() {
		return "Unbekannter Prüfungsteil."
	}
	if !timer.HasStarted {
		return "Bitte starten Sie zuerst die Prüfung."
	}

	switch section {
	case model.SectionLeseverstehen, model.SectionSprachbausteine:
		if timer.Phase != model.PhaseTeil13 {
			return "Dieser Teil ist nur während Teil 1-3 verfügbar."
		}
	case model.SectionHoerverstehen:
		if timer.HoerLocked {
			return "Die Zeit für das Hörverstehen ist abgelaufen."
		}
		if timer.Phase != model.PhaseTeil13 {
			return "Das Hörverstehen ist nur während Teil 1-3 verfügbar."
		}
	case model.SectionSchriftlicherAusdruck:
		switch timer.Phase {
		case model.PhaseSchriftlich:
		case model.PhaseTeil13:
			if !progress.HasMinimumForWriting {
				return "Beantworten Sie mindestens 50% der Aufgaben aus Teil 1-3, um zum Schriftlichen Ausdruck zu wechseln."
			}
		default:
			return "Der Schriftliche Ausdruck ist nicht mehr verfügbar."
		}
	}
	return ""
}
