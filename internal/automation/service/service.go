// Package service exposes rule management and event processing for the
// automation module.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"funnel_backend/internal/automation/domain"
	"funnel_backend/internal/automation/engine"
	"funnel_backend/internal/automation/repository"
	"funnel_backend/internal/automation/transport"
	funnels "funnel_backend/internal/funnels/domain"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	msgRuleNotFound   = "automation rule not found"
	msgFunnelNotFound = "funnel not found"
	msgDealNotFound   = "deal not found"
)

// EventProcessor runs the rules an event triggers.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, ev domain.Event) ([]domain.Result, error)
}

type Service struct {
	rules   repository.RuleStore
	funnels engine.FunnelReader
	deals   engine.DealStore
	engine  EventProcessor
	log     *logger.Logger
}

func New(rules repository.RuleStore, funnelReader engine.FunnelReader, deals engine.DealStore, processor EventProcessor, log *logger.Logger) *Service {
	return &Service{rules: rules, funnels: funnelReader, deals: deals, engine: processor, log: log}
}

func (s *Service) ListRules(ctx context.Context, tenantID, funnelID uuid.UUID) (transport.RuleListResponse, error) {
	if _, err := s.loadFunnel(ctx, &tenantID, funnelID); err != nil {
		return transport.RuleListResponse{}, err
	}
	rules, err := s.rules.ListByFunnel(ctx, tenantID, funnelID)
	if err != nil {
		return transport.RuleListResponse{}, apperr.Wrap(apperr.KindInternal, "list automation rules", err)
	}
	items := make([]transport.RuleResponse, 0, len(rules))
	for _, r := range rules {
		items = append(items, toRuleResponse(r))
	}
	return transport.RuleListResponse{Items: items}, nil
}

func (s *Service) GetRule(ctx context.Context, tenantID, ruleID uuid.UUID) (transport.RuleResponse, error) {
	rule, err := s.rules.Get(ctx, tenantID, ruleID)
	if err != nil {
		return transport.RuleResponse{}, ruleError(err, "get automation rule")
	}
	return toRuleResponse(rule), nil
}

func (s *Service) CreateRule(ctx context.Context, tenantID uuid.UUID, req transport.RuleRequest) (transport.RuleResponse, error) {
	rule, err := s.buildRule(ctx, &tenantID, req)
	if err != nil {
		return transport.RuleResponse{}, err
	}
	created, err := s.rules.Create(ctx, rule)
	if err != nil {
		return transport.RuleResponse{}, ruleError(err, "create automation rule")
	}
	s.log.Info("automation rule created", "ruleId", created.ID, "funnelId", created.FunnelID, "trigger", created.TriggerType, "action", created.ActionType)
	return toRuleResponse(created), nil
}

func (s *Service) UpdateRule(ctx context.Context, tenantID, ruleID uuid.UUID, req transport.RuleRequest) (transport.RuleResponse, error) {
	if _, err := s.rules.Get(ctx, tenantID, ruleID); err != nil {
		return transport.RuleResponse{}, ruleError(err, "get automation rule")
	}
	rule, err := s.buildRule(ctx, &tenantID, req)
	if err != nil {
		return transport.RuleResponse{}, err
	}
	rule.ID = ruleID
	updated, err := s.rules.Update(ctx, rule)
	if err != nil {
		return transport.RuleResponse{}, ruleError(err, "update automation rule")
	}
	return toRuleResponse(updated), nil
}

func (s *Service) ToggleRule(ctx context.Context, tenantID, ruleID uuid.UUID, active bool) (transport.RuleResponse, error) {
	rule, err := s.rules.SetActive(ctx, tenantID, ruleID, active)
	if err != nil {
		return transport.RuleResponse{}, ruleError(err, "toggle automation rule")
	}
	return toRuleResponse(rule), nil
}

func (s *Service) DeleteRule(ctx context.Context, tenantID, ruleID uuid.UUID) error {
	if err := s.rules.Delete(ctx, tenantID, ruleID); err != nil {
		return ruleError(err, "delete automation rule")
	}
	return nil
}

// ImportRules saves rules on behalf of each funnel's owner. Used by the
// import command, which runs outside any tenant session. Rules are validated
// one by one and the first invalid rule stops the import.
func (s *Service) ImportRules(ctx context.Context, reqs []transport.RuleRequest) ([]transport.RuleResponse, error) {
	out := make([]transport.RuleResponse, 0, len(reqs))
	for i, req := range reqs {
		rule, err := s.buildRule(ctx, nil, req)
		if err != nil {
			return out, apperr.Wrap(apperr.GetKind(err), fmt.Sprintf("rule %d (%s)", i+1, req.Name), err)
		}
		created, err := s.rules.Create(ctx, rule)
		if err != nil {
			return out, ruleError(err, "create automation rule")
		}
		out = append(out, toRuleResponse(created))
	}
	return out, nil
}

// ProcessEvent evaluates an inbound event for a tenant's deal.
func (s *Service) ProcessEvent(ctx context.Context, tenantID uuid.UUID, req transport.ProcessEventRequest) (transport.ProcessEventResponse, error) {
	trigger := domain.TriggerType(strings.TrimSpace(req.TriggerType))
	if trigger != "" && !trigger.Valid() {
		return transport.ProcessEventResponse{}, apperr.Validation(domain.ErrUnknownTriggerType.Error())
	}

	deal, err := s.deals.GetDeal(ctx, req.DealID)
	if errors.Is(err, engine.ErrDealNotFound) || (err == nil && deal.OrganizationID != tenantID) {
		return transport.ProcessEventResponse{}, apperr.NotFound(msgDealNotFound)
	}
	if err != nil {
		return transport.ProcessEventResponse{}, apperr.Wrap(apperr.KindInternal, "load deal", err)
	}

	results, err := s.engine.ProcessEvent(ctx, domain.Event{
		DealID:      req.DealID,
		FromStageID: req.FromStageID,
		ToStageID:   req.ToStageID,
		TriggerType: trigger,
		MessageText: req.MessageText,
		TagName:     req.TagName,
		FieldKey:    req.FieldKey,
		FieldValue:  req.FieldValue,
	})
	if err != nil {
		return transport.ProcessEventResponse{}, err
	}
	return transport.ProcessEventResponse{Results: ToResultResponses(results)}, nil
}

// buildRule validates a request into a rule. A nil tenant takes the owner
// from the funnel.
func (s *Service) buildRule(ctx context.Context, tenantID *uuid.UUID, req transport.RuleRequest) (domain.Rule, error) {
	funnel, err := s.loadFunnel(ctx, tenantID, req.FunnelID)
	if err != nil {
		return domain.Rule{}, err
	}
	if req.StageID != nil {
		stages, err := s.funnels.ListStages(ctx, funnel.ID)
		if err != nil {
			return domain.Rule{}, apperr.Wrap(apperr.KindInternal, "list stages", err)
		}
		if _, ok := funnels.FindStage(stages, *req.StageID); !ok {
			return domain.Rule{}, apperr.Validation(funnels.ErrStageOutsideFunnel.Error())
		}
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	rule := domain.Rule{
		OrganizationID: funnel.OrganizationID,
		FunnelID:       funnel.ID,
		StageID:        req.StageID,
		Name:           strings.TrimSpace(req.Name),
		IsActive:       active,
		TriggerType:    domain.TriggerType(strings.TrimSpace(req.TriggerType)),
		TriggerConfig:  orEmpty(req.TriggerConfig),
		ActionType:     domain.ActionType(strings.TrimSpace(req.ActionType)),
		ActionConfig:   orEmpty(req.ActionConfig),
	}
	if err := domain.ValidateRule(rule); err != nil {
		return domain.Rule{}, configError(err)
	}
	return rule, nil
}

func (s *Service) loadFunnel(ctx context.Context, tenantID *uuid.UUID, funnelID uuid.UUID) (funnels.Funnel, error) {
	funnel, err := s.funnels.GetFunnel(ctx, funnelID)
	if errors.Is(err, engine.ErrFunnelNotFound) {
		return funnels.Funnel{}, apperr.NotFound(msgFunnelNotFound)
	}
	if err != nil {
		return funnels.Funnel{}, apperr.Wrap(apperr.KindInternal, "load funnel", err)
	}
	if tenantID != nil && funnel.OrganizationID != *tenantID {
		return funnels.Funnel{}, apperr.NotFound(msgFunnelNotFound)
	}
	return funnel, nil
}

func configError(err error) error {
	var cfgErr *domain.ConfigError
	if errors.As(err, &cfgErr) {
		return apperr.Validation(cfgErr.Error()).WithDetails(cfgErr.Details)
	}
	if errors.Is(err, domain.ErrUnknownTriggerType) || errors.Is(err, domain.ErrUnknownActionType) {
		return apperr.Validation(err.Error())
	}
	return apperr.Wrap(apperr.KindInternal, "validate automation rule", err)
}

func ruleError(err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(msgRuleNotFound)
	case errors.Is(err, repository.ErrInvalidReference):
		return apperr.Validation(err.Error())
	default:
		return apperr.Wrap(apperr.KindInternal, op, err)
	}
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
