package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"funnel_backend/internal/events"
	"funnel_backend/internal/funnels/domain"
	"funnel_backend/internal/funnels/ports"
	"funnel_backend/internal/funnels/repository"
	"funnel_backend/internal/funnels/transport"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/sanitize"

	"github.com/google/uuid"
)

const noteDealCreated = "deal created"

// MoveStageInput is a request to move a deal. TenantID is nil for moves made
// by automations; Depth counts how many automation hops led to this move.
type MoveStageInput struct {
	TenantID         *uuid.UUID
	DealID           uuid.UUID
	FromStageID      *uuid.UUID
	ToStageID        uuid.UUID
	Note             *string
	CloseReasonID    *uuid.UUID
	AutomationRuleID *uuid.UUID
	Depth            int
}

// DealChangeResult is the outcome of a deal mutation together with the
// automations it triggered. AutomationError is set when the rule set could
// not be loaded; the mutation itself is committed regardless.
type DealChangeResult struct {
	Deal            repository.Deal
	History         *repository.HistoryEntry
	Emitted         []domain.Emission
	Automations     []ports.AutomationOutcome
	AutomationError error
}

func (s *Service) CreateDeal(ctx context.Context, tenantID uuid.UUID, req transport.CreateDealRequest) (DealChangeResult, error) {
	funnel, err := s.loadFunnel(ctx, tenantID, req.FunnelID)
	if err != nil {
		return DealChangeResult{}, err
	}
	stage, ok := domain.FindStage(funnel.Stages, req.StageID)
	if !ok {
		return DealChangeResult{}, apperr.Validation(domain.ErrStageOutsideFunnel.Error())
	}

	state, emitted, err := domain.Transition(domain.DealState{FunnelID: funnel.ID}, domain.MoveCommand{To: stage, At: s.now()}, s.policy)
	if err != nil {
		return DealChangeResult{}, transitionError(err)
	}

	note := noteDealCreated
	deal, entry, err := s.repo.CreateDeal(ctx, repository.CreateDealParams{
		OrganizationID: tenantID,
		ContactID:      req.ContactID,
		Title:          sanitize.Text(req.Title),
		Value:          req.Value,
		CustomFields:   req.CustomFields,
		AssignedUserID: req.AssignedUserID,
		State:          state,
		Note:           &note,
	})
	if errors.Is(err, repository.ErrInvalidReference) {
		return DealChangeResult{}, apperr.Validation("contact not found")
	}
	if err != nil {
		return DealChangeResult{}, apperr.Wrap(apperr.KindInternal, "create deal", err)
	}

	s.log.StageTransition(deal.ID.String(), "", deal.StageID.String(), 0)
	s.publishTransition(ctx, deal, nil, emitted, nil, 0)

	result := DealChangeResult{Deal: deal, History: &entry, Emitted: emitted}
	s.dispatchStageChange(ctx, &result, ports.StageChange{DealID: deal.ID, ToStageID: deal.StageID})
	return result, nil
}

func (s *Service) GetDeal(ctx context.Context, tenantID, dealID uuid.UUID) (transport.DealResponse, error) {
	deal, err := s.loadDeal(ctx, &tenantID, dealID)
	if err != nil {
		return transport.DealResponse{}, err
	}
	return ToDealResponse(deal), nil
}

func (s *Service) ListDealHistory(ctx context.Context, tenantID, dealID uuid.UUID) (transport.HistoryListResponse, error) {
	if _, err := s.loadDeal(ctx, &tenantID, dealID); err != nil {
		return transport.HistoryListResponse{}, err
	}
	entries, err := s.repo.ListHistory(ctx, dealID)
	if err != nil {
		return transport.HistoryListResponse{}, apperr.Wrap(apperr.KindInternal, "list deal history", err)
	}
	items := make([]transport.HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toHistoryResponse(e))
	}
	return transport.HistoryListResponse{Items: items}, nil
}

// MoveStage transitions a deal and runs the automations the transition
// triggers. The deal lock is held across the write and the dispatch, so
// automation moves nested under it re-enter instead of deadlocking.
func (s *Service) MoveStage(ctx context.Context, in MoveStageInput) (DealChangeResult, error) {
	ctx, release, err := s.locker.Acquire(ctx, domain.DealLockKey(in.DealID))
	if err != nil {
		return DealChangeResult{}, lockError(err)
	}
	defer release()

	deal, err := s.loadDeal(ctx, in.TenantID, in.DealID)
	if err != nil {
		return DealChangeResult{}, err
	}
	if in.FromStageID != nil && *in.FromStageID != deal.StageID {
		return DealChangeResult{}, apperr.Conflict("deal is no longer in the expected stage")
	}

	stages, err := s.repo.ListStages(ctx, deal.FunnelID)
	if err != nil {
		return DealChangeResult{}, apperr.Wrap(apperr.KindInternal, "list stages", err)
	}
	from, ok := domain.FindStage(stages, deal.StageID)
	if !ok {
		return DealChangeResult{}, apperr.Internal("deal references a stage outside its funnel")
	}
	to, ok := domain.FindStage(stages, in.ToStageID)
	if !ok {
		if _, err := s.repo.GetStage(ctx, in.ToStageID); err == nil {
			return DealChangeResult{}, apperr.Validation(domain.ErrStageOutsideFunnel.Error())
		}
		return DealChangeResult{}, apperr.NotFound(msgStageNotFound)
	}

	next, emitted, err := domain.Transition(deal.State(), domain.MoveCommand{From: &from, To: to, At: s.now()}, s.policy)
	if err != nil {
		return DealChangeResult{}, transitionError(err)
	}

	updated, entry, err := s.repo.ApplyTransition(ctx, repository.ApplyTransitionParams{
		DealID:           deal.ID,
		ExpectedStageID:  from.ID,
		Next:             next,
		CloseReasonID:    in.CloseReasonID,
		Note:             sanitize.TextPtr(in.Note),
		AutomationRuleID: in.AutomationRuleID,
	})
	if errors.Is(err, repository.ErrStageConflict) {
		return DealChangeResult{}, apperr.Conflict(err.Error())
	}
	if err != nil {
		return DealChangeResult{}, apperr.Wrap(apperr.KindInternal, "apply transition", err)
	}

	s.log.WithContext(ctx).StageTransition(updated.ID.String(), from.ID.String(), to.ID.String(), in.Depth)
	s.publishTransition(ctx, updated, &from.ID, emitted, in.AutomationRuleID, in.Depth)

	result := DealChangeResult{Deal: updated, History: &entry, Emitted: emitted}
	fromID := from.ID
	s.dispatchStageChange(ctx, &result, ports.StageChange{
		DealID:      updated.ID,
		FromStageID: &fromID,
		ToStageID:   updated.StageID,
		Depth:       in.Depth,
	})
	return result, nil
}

// SetDealCustomField writes one custom field and raises on_custom_field_changed.
func (s *Service) SetDealCustomField(ctx context.Context, tenantID, dealID uuid.UUID, req transport.SetCustomFieldRequest) (DealChangeResult, error) {
	ctx, release, err := s.locker.Acquire(ctx, domain.DealLockKey(dealID))
	if err != nil {
		return DealChangeResult{}, lockError(err)
	}
	defer release()

	if _, err := s.loadDeal(ctx, &tenantID, dealID); err != nil {
		return DealChangeResult{}, err
	}
	key := strings.TrimSpace(req.Key)
	deal, err := s.repo.SetCustomField(ctx, dealID, key, req.Value)
	if errors.Is(err, repository.ErrNotFound) {
		return DealChangeResult{}, apperr.NotFound(msgDealNotFound)
	}
	if err != nil {
		return DealChangeResult{}, apperr.Wrap(apperr.KindInternal, "set custom field", err)
	}

	result := DealChangeResult{Deal: deal}
	if s.dispatcher != nil {
		outcomes, err := s.dispatcher.DispatchFieldChange(ctx, ports.FieldChange{
			DealID:   dealID,
			FieldKey: key,
			Value:    FieldValueString(req.Value),
		})
		result.Automations = outcomes
		if err != nil {
			result.AutomationError = err
			s.log.Error("custom field automation dispatch failed", "error", err, "dealId", dealID, "fieldKey", key)
		}
	}
	return result, nil
}

// FieldValueString renders a custom field value the way trigger conditions
// and templates see it: strings verbatim, everything else as JSON.
func FieldValueString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(encoded)
}

func (s *Service) dispatchStageChange(ctx context.Context, result *DealChangeResult, change ports.StageChange) {
	if s.dispatcher == nil {
		return
	}
	outcomes, err := s.dispatcher.DispatchStageChange(ctx, change)
	result.Automations = outcomes
	if err != nil {
		result.AutomationError = err
		s.log.Error("stage change automation dispatch failed", "error", err, "dealId", change.DealID, "depth", change.Depth)
	}
}

func (s *Service) publishTransition(ctx context.Context, deal repository.Deal, fromStageID *uuid.UUID, emitted []domain.Emission, ruleID *uuid.UUID, depth int) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.DealStageChanged{
		BaseEvent:        events.NewBaseEvent(),
		DealID:           deal.ID,
		OrganizationID:   deal.OrganizationID,
		FunnelID:         deal.FunnelID,
		FromStageID:      fromStageID,
		ToStageID:        deal.StageID,
		AutomationRuleID: ruleID,
		Depth:            depth,
	})

	for _, e := range emitted {
		switch e.Kind {
		case domain.EmittedDealWon, domain.EmittedDealLost:
			outcome := string(domain.FinalWon)
			if e.Kind == domain.EmittedDealLost {
				outcome = string(domain.FinalLost)
			}
			s.bus.Publish(ctx, events.DealClosed{
				BaseEvent:      events.NewBaseEvent(),
				DealID:         deal.ID,
				OrganizationID: deal.OrganizationID,
				StageID:        e.StageID,
				Outcome:        outcome,
				Value:          deal.Value,
			})
		case domain.EmittedDealReopened:
			s.bus.Publish(ctx, events.DealReopened{
				BaseEvent:      events.NewBaseEvent(),
				DealID:         deal.ID,
				OrganizationID: deal.OrganizationID,
				ToStageID:      deal.StageID,
			})
		}
	}
}
