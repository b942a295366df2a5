package service

import (
	"context"
	"errors"

	"funnel_backend/internal/funnels/domain"
	"funnel_backend/internal/funnels/repository"
	"funnel_backend/internal/funnels/transport"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/sanitize"

	"github.com/google/uuid"
)

const defaultStageColor = "#3b82f6"

func (s *Service) CreateFunnel(ctx context.Context, tenantID uuid.UUID, req transport.CreateFunnelRequest) (transport.FunnelResponse, error) {
	params := repository.CreateFunnelParams{
		OrganizationID: tenantID,
		Name:           sanitize.Text(req.Name),
		DisplayOrder:   req.DisplayOrder,
	}
	if req.UseDefaultTemplate == nil || *req.UseDefaultTemplate {
		params.Stages = domain.DefaultStageTemplate()
	}

	funnel, err := s.repo.CreateFunnel(ctx, params)
	if err != nil {
		return transport.FunnelResponse{}, apperr.Wrap(apperr.KindInternal, "create funnel", err)
	}
	return toFunnelResponse(funnel), nil
}

func (s *Service) ListFunnels(ctx context.Context, tenantID uuid.UUID) (transport.FunnelListResponse, error) {
	funnels, err := s.repo.ListFunnels(ctx, tenantID)
	if err != nil {
		return transport.FunnelListResponse{}, apperr.Wrap(apperr.KindInternal, "list funnels", err)
	}
	items := make([]transport.FunnelResponse, 0, len(funnels))
	for _, f := range funnels {
		items = append(items, toFunnelResponse(f))
	}
	return transport.FunnelListResponse{Items: items}, nil
}

func (s *Service) GetFunnel(ctx context.Context, tenantID, funnelID uuid.UUID) (transport.FunnelResponse, error) {
	funnel, err := s.loadFunnel(ctx, tenantID, funnelID)
	if err != nil {
		return transport.FunnelResponse{}, err
	}
	return toFunnelResponse(funnel), nil
}

func (s *Service) DeleteFunnel(ctx context.Context, tenantID, funnelID uuid.UUID) error {
	err := s.repo.DeleteFunnel(ctx, tenantID, funnelID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(msgFunnelNotFound)
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete funnel", err)
	}
	return nil
}

func stageFromRequest(funnelID uuid.UUID, req transport.StageRequest) (domain.Stage, error) {
	finalType, err := domain.ParseFinalType(req.FinalType)
	if err != nil {
		return domain.Stage{}, apperr.Validation(err.Error())
	}
	color := req.Color
	if color == "" {
		color = defaultStageColor
	}
	stage := domain.Stage{
		FunnelID:    funnelID,
		Name:        sanitize.Text(req.Name),
		Color:       color,
		IsFinal:     req.IsFinal,
		FinalType:   finalType,
		Probability: req.Probability,
	}
	if req.DisplayOrder != nil {
		stage.DisplayOrder = *req.DisplayOrder
	}
	if err := domain.ValidateStage(stage); err != nil {
		return domain.Stage{}, apperr.Validation(err.Error())
	}
	return stage, nil
}

func (s *Service) CreateStage(ctx context.Context, tenantID, funnelID uuid.UUID, req transport.StageRequest) (transport.StageResponse, error) {
	funnel, err := s.loadFunnel(ctx, tenantID, funnelID)
	if err != nil {
		return transport.StageResponse{}, err
	}
	stage, err := stageFromRequest(funnelID, req)
	if err != nil {
		return transport.StageResponse{}, err
	}
	if err := domain.ValidateTerminalUniqueness(funnel.Stages, stage); err != nil {
		return transport.StageResponse{}, apperr.Validation(err.Error())
	}
	if req.DisplayOrder == nil {
		stage.DisplayOrder = len(funnel.Stages)
	}

	created, err := s.repo.CreateStage(ctx, stage)
	if err != nil {
		return transport.StageResponse{}, apperr.Wrap(apperr.KindInternal, "create stage", err)
	}
	return toStageResponse(created), nil
}

// UpdateStage changes a stage's presentation and terminal flags. Deals
// already sitting in the stage keep their closed_at; the flag only affects
// future transitions.
func (s *Service) UpdateStage(ctx context.Context, tenantID, funnelID, stageID uuid.UUID, req transport.StageRequest) (transport.StageResponse, error) {
	funnel, err := s.loadFunnel(ctx, tenantID, funnelID)
	if err != nil {
		return transport.StageResponse{}, err
	}
	current, ok := domain.FindStage(funnel.Stages, stageID)
	if !ok {
		return transport.StageResponse{}, apperr.NotFound(msgStageNotFound)
	}
	stage, err := stageFromRequest(funnelID, req)
	if err != nil {
		return transport.StageResponse{}, err
	}
	stage.ID = stageID
	stage.DisplayOrder = current.DisplayOrder
	if err := domain.ValidateTerminalUniqueness(funnel.Stages, stage); err != nil {
		return transport.StageResponse{}, apperr.Validation(err.Error())
	}

	updated, err := s.repo.UpdateStage(ctx, stage)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.StageResponse{}, apperr.NotFound(msgStageNotFound)
	}
	if err != nil {
		return transport.StageResponse{}, apperr.Wrap(apperr.KindInternal, "update stage", err)
	}
	return toStageResponse(updated), nil
}

func (s *Service) DeleteStage(ctx context.Context, tenantID, funnelID, stageID uuid.UUID) error {
	if _, err := s.loadFunnel(ctx, tenantID, funnelID); err != nil {
		return err
	}
	err := s.repo.DeleteStage(ctx, funnelID, stageID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(msgStageNotFound)
	case errors.Is(err, repository.ErrStageHasDeals):
		return apperr.Conflict(err.Error())
	default:
		return apperr.Wrap(apperr.KindInternal, "delete stage", err)
	}
}

func (s *Service) ReorderStages(ctx context.Context, tenantID, funnelID uuid.UUID, req transport.ReorderStagesRequest) (transport.FunnelResponse, error) {
	if _, err := s.loadFunnel(ctx, tenantID, funnelID); err != nil {
		return transport.FunnelResponse{}, err
	}
	seen := make(map[uuid.UUID]struct{}, len(req.StageIDs))
	for _, id := range req.StageIDs {
		if _, dup := seen[id]; dup {
			return transport.FunnelResponse{}, apperr.Validation(repository.ErrStagesIncomplete.Error())
		}
		seen[id] = struct{}{}
	}

	err := s.repo.ReorderStages(ctx, funnelID, req.StageIDs)
	if errors.Is(err, repository.ErrStagesIncomplete) {
		return transport.FunnelResponse{}, apperr.Validation(err.Error())
	}
	if err != nil {
		return transport.FunnelResponse{}, apperr.Wrap(apperr.KindInternal, "reorder stages", err)
	}
	return s.GetFunnel(ctx, tenantID, funnelID)
}
