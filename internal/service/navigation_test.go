package service

import (
	"testing"

	"github.com/telcprep/exam-session/internal/model"
)

func TestCanEnter(t *testing.T) {
	started := func(phase model.Phase) model.TimerState {
		return model.TimerState{Phase: phase, HasStarted: true, IsRunning: phase != model.PhaseCompleted}
	}
	locked := started(model.PhaseTeil13)
	locked.HoerLocked = true

	enough := model.AggregateProgress{Progress: model.Progress{Answered: 30, Total: 60}, HasMinimumForWriting: true}
	few := model.AggregateProgress{Progress: model.Progress{Answered: 10, Total: 60}}

	tests := []struct {
		name     string
		section  model.SectionKey
		timer    model.TimerState
		progress model.AggregateProgress
		want     bool
	}{
		{"reading before start", model.SectionLeseverstehen, model.TimerState{Phase: model.PhaseInitial}, enough, false},
		{"reading in teil1-3", model.SectionLeseverstehen, started(model.PhaseTeil13), few, true},
		{"language in teil1-3", model.SectionSprachbausteine, started(model.PhaseTeil13), few, true},
		{"reading in writing phase", model.SectionLeseverstehen, started(model.PhaseSchriftlich), few, false},
		{"language after completion", model.SectionSprachbausteine, started(model.PhaseCompleted), few, false},
		{"listening in teil1-3", model.SectionHoerverstehen, started(model.PhaseTeil13), few, true},
		{"listening locked", model.SectionHoerverstehen, locked, enough, false},
		{"listening in writing phase", model.SectionHoerverstehen, started(model.PhaseSchriftlich), few, false},
		{"writing early without minimum", model.SectionSchriftlicherAusdruck, started(model.PhaseTeil13), few, false},
		{"writing early with minimum", model.SectionSchriftlicherAusdruck, started(model.PhaseTeil13), enough, true},
		{"writing in writing phase", model.SectionSchriftlicherAusdruck, started(model.PhaseSchriftlich), few, true},
		{"writing after completion", model.SectionSchriftlicherAusdruck, started(model.PhaseCompleted), enough, false},
		{"writing before start", model.SectionSchriftlicherAusdruck, model.TimerState{Phase: model.PhaseInitial}, enough, false},
		{"unknown section", model.SectionKey("grammatik"), started(model.PhaseTeil13), enough, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanEnter(tt.section, tt.timer, tt.progress); got != tt.want {
				t.Errorf("CanEnter() = %v, want %v", got, tt.want)
			}
			reason := RefusalReason(tt.section, tt.timer, tt.progress)
			if (reason == "") != tt.want {
				t.Errorf("RefusalReason() = %q, inconsistent with CanEnter", reason)
			}
		})
	}
}

func TestCanEnter_ListeningNeverWhileLocked(t *testing.T) {
	for _, phase := range []model.Phase{model.PhaseInitial, model.PhaseTeil13, model.PhaseSchriftlich, model.PhaseCompleted} {
		st := model.TimerState{Phase: phase, HasStarted: true, HoerLocked: true}
		if CanEnter(model.SectionHoerverstehen, st, model.AggregateProgress{HasMinimumForWriting: true}) {
			t.Errorf("listening admitted while locked in phase %q", phase)
		}
	}
}
