package domain

import (
	"testing"

	funnels "funnel_backend/internal/funnels/domain"

	"github.com/google/uuid"
)

func testStages() (funnels.Stage, funnels.Stage, funnels.Stage) {
	won, lost := funnels.FinalWon, funnels.FinalLost
	funnelID := uuid.New()
	return funnels.Stage{ID: uuid.New(), FunnelID: funnelID, Name: "New"},
		funnels.Stage{ID: uuid.New(), FunnelID: funnelID, Name: "Won", IsFinal: true, FinalType: &won},
		funnels.Stage{ID: uuid.New(), FunnelID: funnelID, Name: "Lost", IsFinal: true, FinalType: &lost}
}

func TestResolveTriggersForWonMove(t *testing.T) {
	newStage, wonStage, lostStage := testStages()
	stages := []funnels.Stage{newStage, wonStage, lostStage}

	got := ResolveTriggers(Event{FromStageID: &newStage.ID, ToStageID: &wonStage.ID}, stages)
	for _, want := range []TriggerType{TriggerStageEnter, TriggerDealWon, TriggerStageExit} {
		if !ContainsTrigger(got, want) {
			t.Fatalf("expected %s in %v", want, got)
		}
	}
	if ContainsTrigger(got, TriggerDealLost) {
		t.Fatalf("won move must not include on_deal_lost: %v", got)
	}
}

func TestResolveTriggersForLostEntryWithoutFrom(t *testing.T) {
	_, _, lostStage := testStages()

	got := ResolveTriggers(Event{ToStageID: &lostStage.ID}, []funnels.Stage{lostStage})
	if len(got) != 2 || !ContainsTrigger(got, TriggerStageEnter) || !ContainsTrigger(got, TriggerDealLost) {
		t.Fatalf("expected enter and lost only, got %v", got)
	}
}

func TestResolveTriggersExplicitTypeIsDeduplicated(t *testing.T) {
	newStage, _, _ := testStages()

	got := ResolveTriggers(Event{ToStageID: &newStage.ID, TriggerType: TriggerStageEnter}, []funnels.Stage{newStage})
	if len(got) != 1 {
		t.Fatalf("expected a single on_stage_enter, got %v", got)
	}

	got = ResolveTriggers(Event{TriggerType: TriggerTagAdded}, nil)
	if len(got) != 1 || got[0] != TriggerTagAdded {
		t.Fatalf("expected only the explicit trigger, got %v", got)
	}
}

func TestResolveTriggersEmptyEvent(t *testing.T) {
	if got := ResolveTriggers(Event{}, nil); len(got) != 0 {
		t.Fatalf("expected no candidates, got %v", got)
	}
}
