package domain

import (
	funnels "funnel_backend/internal/funnels/domain"
)

// ResolveTriggers computes the candidate trigger kinds for ev. stages are the
// stages of the deal's funnel and are used to decide won/lost for the target
// stage. The result is a set; duplicates are removed.
func ResolveTriggers(ev Event, stages []funnels.Stage) []TriggerType {
	seen := make(map[TriggerType]struct{}, 4)
	out := make([]TriggerType, 0, 4)
	add := func(t TriggerType) {
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	if ev.ToStageID != nil {
		add(TriggerStageEnter)
		if to, ok := funnels.FindStage(stages, *ev.ToStageID); ok {
			switch {
			case to.Is(funnels.FinalWon):
				add(TriggerDealWon)
			case to.Is(funnels.FinalLost):
				add(TriggerDealLost)
			}
		}
	}
	if ev.FromStageID != nil {
		add(TriggerStageExit)
	}
	if ev.TriggerType != "" {
		add(ev.TriggerType)
	}
	return out
}
