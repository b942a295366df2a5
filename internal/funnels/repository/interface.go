package repository

import (
	"context"

	"funnel_backend/internal/funnels/domain"

	"github.com/google/uuid"
)

// FunnelReader reads the stage registry.
type FunnelReader interface {
	GetFunnel(ctx context.Context, funnelID uuid.UUID) (domain.Funnel, error)
	ListFunnels(ctx context.Context, organizationID uuid.UUID) ([]domain.Funnel, error)
	ListStages(ctx context.Context, funnelID uuid.UUID) ([]domain.Stage, error)
	GetStage(ctx context.Context, stageID uuid.UUID) (domain.Stage, error)
}

// FunnelWriter mutates the stage registry.
type FunnelWriter interface {
	CreateFunnel(ctx context.Context, params CreateFunnelParams) (domain.Funnel, error)
	DeleteFunnel(ctx context.Context, organizationID, funnelID uuid.UUID) error
	CreateStage(ctx context.Context, stage domain.Stage) (domain.Stage, error)
	UpdateStage(ctx context.Context, stage domain.Stage) (domain.Stage, error)
	DeleteStage(ctx context.Context, funnelID, stageID uuid.UUID) error
	ReorderStages(ctx context.Context, funnelID uuid.UUID, orderedIDs []uuid.UUID) error
}

// DealReader reads deals and their history.
type DealReader interface {
	GetDeal(ctx context.Context, dealID uuid.UUID) (Deal, error)
	ListHistory(ctx context.Context, dealID uuid.UUID) ([]HistoryEntry, error)
}

// DealWriter mutates deals. ApplyTransition is the only writer of stage_id.
type DealWriter interface {
	CreateDeal(ctx context.Context, params CreateDealParams) (Deal, HistoryEntry, error)
	ApplyTransition(ctx context.Context, params ApplyTransitionParams) (Deal, HistoryEntry, error)
	SetCustomField(ctx context.Context, dealID uuid.UUID, key string, value any) (Deal, error)
	SetValue(ctx context.Context, dealID uuid.UUID, value float64) (Deal, error)
	SetAssignedUser(ctx context.Context, dealID uuid.UUID, userID uuid.UUID) (Deal, error)
}

// FunnelsRepository is the full storage contract of the funnels module.
type FunnelsRepository interface {
	FunnelReader
	FunnelWriter
	DealReader
	DealWriter
}

var _ FunnelsRepository = (*Repository)(nil)
