// Package activities provides deal notes and follow-up tasks.
package activities

import (
	"funnel_backend/internal/activities/handler"
	"funnel_backend/internal/activities/repository"
	"funnel_backend/internal/activities/service"
	apphttp "funnel_backend/internal/http"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	repo    *repository.Repository
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, repo, log)
	return &Module{handler: handler.New(svc, val), repo: repo}
}

func (m *Module) Name() string {
	return "activities"
}

// Repository exposes the note and task stores for the automation adapters
// and the reminder worker.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}
