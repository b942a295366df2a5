// Package chatbot provides chatbot flows and the execution records that
// automations create when they start a flow.
package chatbot

import (
	"funnel_backend/internal/chatbot/handler"
	"funnel_backend/internal/chatbot/repository"
	"funnel_backend/internal/chatbot/service"
	apphttp "funnel_backend/internal/http"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, repo, log)
	return &Module{handler: handler.New(svc, val), service: svc, repo: repo}
}

func (m *Module) Name() string {
	return "chatbot"
}

func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes the execution outbox to the scheduler dispatcher.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}
