package adapters

import (
	"context"
	"errors"

	"funnel_backend/internal/automation/engine"
	funnels "funnel_backend/internal/funnels/domain"
	funnelsrepo "funnel_backend/internal/funnels/repository"

	"github.com/google/uuid"
)

// FunnelsStore is the part of the funnels repository the engine reads and
// writes outside of stage transitions.
type FunnelsStore interface {
	GetDeal(ctx context.Context, dealID uuid.UUID) (funnelsrepo.Deal, error)
	SetCustomField(ctx context.Context, dealID uuid.UUID, key string, value any) (funnelsrepo.Deal, error)
	SetValue(ctx context.Context, dealID uuid.UUID, value float64) (funnelsrepo.Deal, error)
	SetAssignedUser(ctx context.Context, dealID uuid.UUID, userID uuid.UUID) (funnelsrepo.Deal, error)
	GetFunnel(ctx context.Context, funnelID uuid.UUID) (funnels.Funnel, error)
	ListStages(ctx context.Context, funnelID uuid.UUID) ([]funnels.Stage, error)
}

// AutomationDealStore implements engine.DealStore and engine.FunnelReader
// over the funnels repository.
type AutomationDealStore struct {
	repo FunnelsStore
}

func NewAutomationDealStore(repo FunnelsStore) *AutomationDealStore {
	return &AutomationDealStore{repo: repo}
}

func (a *AutomationDealStore) GetDeal(ctx context.Context, dealID uuid.UUID) (engine.Deal, error) {
	d, err := a.repo.GetDeal(ctx, dealID)
	if errors.Is(err, funnelsrepo.ErrNotFound) {
		return engine.Deal{}, engine.ErrDealNotFound
	}
	if err != nil {
		return engine.Deal{}, err
	}
	return engine.Deal{
		ID:             d.ID,
		OrganizationID: d.OrganizationID,
		FunnelID:       d.FunnelID,
		StageID:        d.StageID,
		ContactID:      d.ContactID,
		Title:          d.Title,
		Value:          d.Value,
		AssignedUserID: d.AssignedUserID,
	}, nil
}

func (a *AutomationDealStore) SetCustomField(ctx context.Context, dealID uuid.UUID, key string, value any) error {
	_, err := a.repo.SetCustomField(ctx, dealID, key, value)
	return notFoundAsDeal(err)
}

func (a *AutomationDealStore) SetValue(ctx context.Context, dealID uuid.UUID, value float64) error {
	_, err := a.repo.SetValue(ctx, dealID, value)
	return notFoundAsDeal(err)
}

func (a *AutomationDealStore) SetAssignedUser(ctx context.Context, dealID, userID uuid.UUID) error {
	_, err := a.repo.SetAssignedUser(ctx, dealID, userID)
	return notFoundAsDeal(err)
}

func (a *AutomationDealStore) GetFunnel(ctx context.Context, funnelID uuid.UUID) (funnels.Funnel, error) {
	f, err := a.repo.GetFunnel(ctx, funnelID)
	if errors.Is(err, funnelsrepo.ErrNotFound) {
		return funnels.Funnel{}, engine.ErrFunnelNotFound
	}
	return f, err
}

func (a *AutomationDealStore) ListStages(ctx context.Context, funnelID uuid.UUID) ([]funnels.Stage, error) {
	return a.repo.ListStages(ctx, funnelID)
}

func notFoundAsDeal(err error) error {
	if errors.Is(err, funnelsrepo.ErrNotFound) {
		return engine.ErrDealNotFound
	}
	return err
}
