// Package service manages chatbot flows and records flow executions started
// by automations.
package service

import (
	"context"
	"errors"
	"strings"

	"funnel_backend/internal/chatbot/repository"
	"funnel_backend/internal/chatbot/transport"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/logger"

	"github.com/google/uuid"
)

var (
	ErrFlowNotFound = errors.New("chatbot flow not found")
	ErrFlowInactive = errors.New("chatbot flow is not active")
)

const msgFlowNotFound = "chatbot flow not found"

// ExecutionEnqueuer hands a recorded execution to the chatbot runtime.
type ExecutionEnqueuer interface {
	Enqueue(ctx context.Context, exec repository.Execution) error
}

// LaunchParams starts a flow for a deal.
type LaunchParams struct {
	FlowID           uuid.UUID
	OrganizationID   uuid.UUID
	DealID           uuid.UUID
	ContactID        uuid.UUID
	AutomationRuleID *uuid.UUID
	Variables        map[string]any
}

type Service struct {
	flows      repository.FlowStore
	executions repository.ExecutionStore
	enqueuer   ExecutionEnqueuer
	log        *logger.Logger
}

func New(flows repository.FlowStore, executions repository.ExecutionStore, log *logger.Logger) *Service {
	return &Service{flows: flows, executions: executions, log: log}
}

// SetExecutionEnqueuer wires the queue client. Without one executions stay
// pending until the scheduler's dispatcher picks them up.
func (s *Service) SetExecutionEnqueuer(e ExecutionEnqueuer) {
	s.enqueuer = e
}

// Launch records a pending execution and tries to enqueue it right away.
// The row is the durable record, so an enqueue failure is only logged.
func (s *Service) Launch(ctx context.Context, params LaunchParams) (uuid.UUID, error) {
	flow, err := s.flows.GetFlow(ctx, params.FlowID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && flow.OrganizationID != params.OrganizationID) {
		return uuid.Nil, ErrFlowNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	if !flow.IsActive {
		return uuid.Nil, ErrFlowInactive
	}

	exec, err := s.executions.CreateExecution(ctx, repository.Execution{
		FlowID:           flow.ID,
		DealID:           params.DealID,
		ContactID:        params.ContactID,
		Variables:        params.Variables,
		AutomationRuleID: params.AutomationRuleID,
	})
	if err != nil {
		return uuid.Nil, err
	}
	s.log.Info("chatbot flow execution recorded", "executionId", exec.ID, "flowId", flow.ID, "dealId", params.DealID)

	if s.enqueuer == nil {
		return exec.ID, nil
	}
	if err := s.enqueuer.Enqueue(ctx, exec); err != nil {
		s.log.Warn("chatbot execution enqueue failed, left pending", "executionId", exec.ID, "error", err)
		return exec.ID, nil
	}
	if err := s.executions.MarkQueued(ctx, exec.ID); err != nil {
		s.log.Warn("chatbot execution status update failed", "executionId", exec.ID, "error", err)
	}
	return exec.ID, nil
}

func (s *Service) ListFlows(ctx context.Context, tenantID uuid.UUID) (transport.FlowListResponse, error) {
	flows, err := s.flows.ListFlows(ctx, tenantID)
	if err != nil {
		return transport.FlowListResponse{}, apperr.Wrap(apperr.KindInternal, "list chatbot flows", err)
	}
	items := make([]transport.FlowResponse, 0, len(flows))
	for _, f := range flows {
		items = append(items, toFlowResponse(f))
	}
	return transport.FlowListResponse{Items: items}, nil
}

func (s *Service) CreateFlow(ctx context.Context, tenantID uuid.UUID, req transport.CreateFlowRequest) (transport.FlowResponse, error) {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	flow, err := s.flows.CreateFlow(ctx, repository.Flow{
		OrganizationID: tenantID,
		Name:           strings.TrimSpace(req.Name),
		IsActive:       active,
	})
	if err != nil {
		return transport.FlowResponse{}, apperr.Wrap(apperr.KindInternal, "create chatbot flow", err)
	}
	return toFlowResponse(flow), nil
}

func (s *Service) ToggleFlow(ctx context.Context, tenantID, flowID uuid.UUID, active bool) (transport.FlowResponse, error) {
	flow, err := s.flows.SetFlowActive(ctx, tenantID, flowID, active)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.FlowResponse{}, apperr.NotFound(msgFlowNotFound)
	}
	if err != nil {
		return transport.FlowResponse{}, apperr.Wrap(apperr.KindInternal, "toggle chatbot flow", err)
	}
	return toFlowResponse(flow), nil
}

func (s *Service) ListDealExecutions(ctx context.Context, tenantID, dealID uuid.UUID) (transport.ExecutionListResponse, error) {
	execs, err := s.executions.ListDealExecutions(ctx, tenantID, dealID)
	if err != nil {
		return transport.ExecutionListResponse{}, apperr.Wrap(apperr.KindInternal, "list chatbot executions", err)
	}
	items := make([]transport.ExecutionResponse, 0, len(execs))
	for _, e := range execs {
		items = append(items, transport.ExecutionResponse{
			ID:               e.ID,
			FlowID:           e.FlowID,
			DealID:           e.DealID,
			Status:           e.Status,
			Variables:        e.Variables,
			AutomationRuleID: e.AutomationRuleID,
			CreatedAt:        e.CreatedAt,
		})
	}
	return transport.ExecutionListResponse{Items: items}, nil
}

func toFlowResponse(f repository.Flow) transport.FlowResponse {
	return transport.FlowResponse{
		ID:        f.ID,
		Name:      f.Name,
		IsActive:  f.IsActive,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}
