package adapters

import (
	"context"

	"funnel_backend/internal/automation/domain"
	"funnel_backend/internal/funnels/ports"
)

// EventProcessor is the automation engine entry point.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, ev domain.Event) ([]domain.Result, error)
}

// FunnelsAutomationDispatcher turns funnels deal changes into automation
// events. It implements funnels/ports.AutomationDispatcher.
type FunnelsAutomationDispatcher struct {
	engine EventProcessor
}

func NewFunnelsAutomationDispatcher(engine EventProcessor) *FunnelsAutomationDispatcher {
	return &FunnelsAutomationDispatcher{engine: engine}
}

// DispatchStageChange leaves the trigger type empty so the engine derives
// enter, exit, won and lost from the stage pair.
func (a *FunnelsAutomationDispatcher) DispatchStageChange(ctx context.Context, change ports.StageChange) ([]ports.AutomationOutcome, error) {
	to := change.ToStageID
	results, err := a.engine.ProcessEvent(ctx, domain.Event{
		DealID:      change.DealID,
		FromStageID: change.FromStageID,
		ToStageID:   &to,
		Depth:       change.Depth,
	})
	return toOutcomes(results), err
}

func (a *FunnelsAutomationDispatcher) DispatchFieldChange(ctx context.Context, change ports.FieldChange) ([]ports.AutomationOutcome, error) {
	results, err := a.engine.ProcessEvent(ctx, domain.Event{
		DealID:      change.DealID,
		TriggerType: domain.TriggerCustomFieldChanged,
		FieldKey:    change.FieldKey,
		FieldValue:  change.Value,
		Depth:       change.Depth,
	})
	return toOutcomes(results), err
}

func toOutcomes(results []domain.Result) []ports.AutomationOutcome {
	out := make([]ports.AutomationOutcome, 0, len(results))
	for _, r := range results {
		out = append(out, ports.AutomationOutcome{
			RuleID:     r.RuleID,
			RuleName:   r.RuleName,
			ActionType: string(r.ActionType),
			Success:    r.Success,
			Skipped:    r.Skipped,
			Error:      r.Error,
			Depth:      r.Depth,
		})
	}
	return out
}

func fromOutcomes(outcomes []ports.AutomationOutcome) []domain.Result {
	out := make([]domain.Result, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, domain.Result{
			RuleID:     o.RuleID,
			RuleName:   o.RuleName,
			ActionType: domain.ActionType(o.ActionType),
			Success:    o.Success,
			Skipped:    o.Skipped,
			Error:      o.Error,
			Depth:      o.Depth,
		})
	}
	return out
}
