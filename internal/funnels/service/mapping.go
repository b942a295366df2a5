package service

import (
	"funnel_backend/internal/funnels/domain"
	"funnel_backend/internal/funnels/ports"
	"funnel_backend/internal/funnels/repository"
	"funnel_backend/internal/funnels/transport"
)

func toStageResponse(s domain.Stage) transport.StageResponse {
	resp := transport.StageResponse{
		ID:           s.ID,
		FunnelID:     s.FunnelID,
		Name:         s.Name,
		Color:        s.Color,
		DisplayOrder: s.DisplayOrder,
		IsFinal:      s.IsFinal,
		Probability:  s.Probability,
	}
	if s.FinalType != nil {
		ft := string(*s.FinalType)
		resp.FinalType = &ft
	}
	return resp
}

func toFunnelResponse(f domain.Funnel) transport.FunnelResponse {
	stages := make([]transport.StageResponse, 0, len(f.Stages))
	for _, s := range f.Stages {
		stages = append(stages, toStageResponse(s))
	}
	return transport.FunnelResponse{
		ID:           f.ID,
		Name:         f.Name,
		DisplayOrder: f.DisplayOrder,
		Stages:       stages,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

func ToDealResponse(d repository.Deal) transport.DealResponse {
	return transport.DealResponse{
		ID:             d.ID,
		FunnelID:       d.FunnelID,
		StageID:        d.StageID,
		ContactID:      d.ContactID,
		Title:          d.Title,
		Value:          d.Value,
		CustomFields:   d.CustomFields,
		AssignedUserID: d.AssignedUserID,
		EnteredStageAt: d.EnteredStageAt,
		ClosedAt:       d.ClosedAt,
		CloseReasonID:  d.CloseReasonID,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func toHistoryResponse(e repository.HistoryEntry) transport.HistoryEntryResponse {
	return transport.HistoryEntryResponse{
		ID:               e.ID,
		FromStageID:      e.FromStageID,
		ToStageID:        e.ToStageID,
		Note:             e.Note,
		AutomationRuleID: e.AutomationRuleID,
		CreatedAt:        e.CreatedAt,
	}
}

// ToDealChangeResponse renders a mutation result for HTTP callers.
func ToDealChangeResponse(r DealChangeResult) transport.DealChangeResponse {
	resp := transport.DealChangeResponse{
		Deal:        ToDealResponse(r.Deal),
		Automations: toAutomationResults(r.Automations),
	}
	if r.History != nil {
		h := toHistoryResponse(*r.History)
		resp.History = &h
	}
	if r.AutomationError != nil {
		resp.AutomationError = "automation rules could not be evaluated"
	}
	return resp
}

func toAutomationResults(outcomes []ports.AutomationOutcome) []transport.AutomationResultResponse {
	items := make([]transport.AutomationResultResponse, 0, len(outcomes))
	for _, o := range outcomes {
		items = append(items, transport.AutomationResultResponse{
			RuleID:     o.RuleID,
			RuleName:   o.RuleName,
			ActionType: o.ActionType,
			Success:    o.Success,
			Skipped:    o.Skipped,
			Error:      o.Error,
			Depth:      o.Depth,
		})
	}
	return items
}
