package adapters

import (
	"context"

	"funnel_backend/internal/automation/domain"
	"funnel_backend/internal/automation/engine"
	funnelsvc "funnel_backend/internal/funnels/service"
	"funnel_backend/platform/logger"
)

// DealMover is the slice of the funnels service the engine moves deals with.
type DealMover interface {
	MoveStage(ctx context.Context, in funnelsvc.MoveStageInput) (funnelsvc.DealChangeResult, error)
}

// AutomationStageMover lets move_stage and close_deal_* actions run the full
// funnels transition pipeline. It implements engine.StageMover.
type AutomationStageMover struct {
	funnels DealMover
	log     *logger.Logger
}

func NewAutomationStageMover(funnels DealMover, log *logger.Logger) *AutomationStageMover {
	return &AutomationStageMover{funnels: funnels, log: log}
}

// MoveStage runs without a tenant: the rule was already scoped to the deal's
// funnel when it matched.
func (a *AutomationStageMover) MoveStage(ctx context.Context, req engine.MoveRequest) ([]domain.Result, error) {
	ruleID := req.RuleID
	note := req.Note
	result, err := a.funnels.MoveStage(ctx, funnelsvc.MoveStageInput{
		DealID:           req.DealID,
		ToStageID:        req.ToStageID,
		Note:             &note,
		CloseReasonID:    req.CloseReasonID,
		AutomationRuleID: &ruleID,
		Depth:            req.Depth,
	})
	if err != nil {
		return nil, err
	}
	if result.AutomationError != nil {
		a.log.Warn("nested automations were not evaluated", "dealId", req.DealID, "ruleId", req.RuleID, "depth", req.Depth, "error", result.AutomationError)
	}
	return fromOutcomes(result.Automations), nil
}
