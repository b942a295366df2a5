// Package service orchestrates the funnels domain: stage registry writes,
// deal creation and the MoveStage transition pipeline.
package service

import (
	"context"
	"errors"
	"time"

	"funnel_backend/internal/events"
	"funnel_backend/internal/funnels/domain"
	"funnel_backend/internal/funnels/ports"
	"funnel_backend/internal/funnels/repository"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/keylock"
	"funnel_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	msgFunnelNotFound = "funnel not found"
	msgStageNotFound  = "stage not found"
	msgDealNotFound   = "deal not found"
)

type Service struct {
	repo       repository.FunnelsRepository
	locker     keylock.Locker
	bus        events.Bus
	log        *logger.Logger
	policy     domain.Policy
	dispatcher ports.AutomationDispatcher
	now        func() time.Time
}

func New(repo repository.FunnelsRepository, locker keylock.Locker, bus events.Bus, policy domain.Policy, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		bus:    bus,
		log:    log,
		policy: policy,
		now:    time.Now,
	}
}

// SetAutomationDispatcher injects the automation engine after construction,
// since the engine itself depends on this service to move deals.
func (s *Service) SetAutomationDispatcher(d ports.AutomationDispatcher) {
	s.dispatcher = d
}

func (s *Service) loadFunnel(ctx context.Context, tenantID, funnelID uuid.UUID) (domain.Funnel, error) {
	funnel, err := s.repo.GetFunnel(ctx, funnelID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Funnel{}, apperr.NotFound(msgFunnelNotFound)
	}
	if err != nil {
		return domain.Funnel{}, apperr.Wrap(apperr.KindInternal, "load funnel", err)
	}
	if funnel.OrganizationID != tenantID {
		return domain.Funnel{}, apperr.NotFound(msgFunnelNotFound)
	}
	return funnel, nil
}

// loadDeal fetches a deal. A nil tenant skips the ownership check, which is
// how automation-initiated calls reach deals.
func (s *Service) loadDeal(ctx context.Context, tenantID *uuid.UUID, dealID uuid.UUID) (repository.Deal, error) {
	deal, err := s.repo.GetDeal(ctx, dealID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Deal{}, apperr.NotFound(msgDealNotFound)
	}
	if err != nil {
		return repository.Deal{}, apperr.Wrap(apperr.KindInternal, "load deal", err)
	}
	if tenantID != nil && deal.OrganizationID != *tenantID {
		return repository.Deal{}, apperr.NotFound(msgDealNotFound)
	}
	return deal, nil
}

func transitionError(err error) error {
	switch {
	case errors.Is(err, domain.ErrSameStage), errors.Is(err, domain.ErrStageOutsideFunnel):
		return apperr.Validation(err.Error())
	case errors.Is(err, domain.ErrDealClosed), errors.Is(err, domain.ErrStateMismatch):
		return apperr.Conflict(err.Error())
	default:
		return apperr.Wrap(apperr.KindInternal, "transition", err)
	}
}

func lockError(err error) error {
	if errors.Is(err, keylock.ErrLockTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Conflict("deal is being updated, try again")
	}
	return apperr.Wrap(apperr.KindInternal, "acquire deal lock", err)
}
