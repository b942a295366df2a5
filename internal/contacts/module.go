// Package contacts provides the contacts bounded context: contact records
// and their organization-scoped tags.
package contacts

import (
	"funnel_backend/internal/contacts/handler"
	"funnel_backend/internal/contacts/repository"
	"funnel_backend/internal/contacts/service"
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
	svc := service.New(repo, log)
	return &Module{handler: handler.New(svc, val), repo: repo}
}

func (m *Module) Name() string {
	return "contacts"
}

// Repository exposes the tag store for the automation adapters.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}
