package service

import (
	"funnel_backend/internal/automation/domain"
	"funnel_backend/internal/automation/transport"
)

func toRuleResponse(r domain.Rule) transport.RuleResponse {
	return transport.RuleResponse{
		ID:            r.ID,
		FunnelID:      r.FunnelID,
		StageID:       r.StageID,
		Name:          r.Name,
		IsActive:      r.IsActive,
		TriggerType:   string(r.TriggerType),
		TriggerConfig: r.TriggerConfig,
		ActionType:    string(r.ActionType),
		ActionConfig:  r.ActionConfig,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func ToResultResponses(results []domain.Result) []transport.ResultResponse {
	items := make([]transport.ResultResponse, 0, len(results))
	for _, r := range results {
		items = append(items, transport.ResultResponse{
			RuleID:     r.RuleID,
			RuleName:   r.RuleName,
			ActionType: string(r.ActionType),
			Success:    r.Success,
			Skipped:    r.Skipped,
			Error:      r.Error,
			Depth:      r.Depth,
		})
	}
	return items
}
