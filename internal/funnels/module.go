// Package funnels provides the funnel/stage registry and deal state machine
// bounded context module.
package funnels

import (
	"funnel_backend/internal/events"
	"funnel_backend/internal/funnels/domain"
	"funnel_backend/internal/funnels/handler"
	"funnel_backend/internal/funnels/repository"
	"funnel_backend/internal/funnels/service"
	apphttp "funnel_backend/internal/http"
	"funnel_backend/platform/config"
	"funnel_backend/platform/keylock"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the funnels bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

func NewModule(pool *pgxpool.Pool, locker keylock.Locker, eventBus events.Bus, val *validator.Validator, cfg config.FunnelConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, locker, eventBus, domain.Policy{AllowReopen: cfg.GetFunnelAllowReopen()}, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

func (m *Module) Name() string {
	return "funnels"
}

// Service exposes the service for adapters wiring the automation engine.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes the deal/stage store for read-only adapters.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}
