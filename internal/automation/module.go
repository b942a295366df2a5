// Package automation provides the automation rule engine bounded context:
// rule management, trigger matching and action dispatch.
package automation

import (
	"funnel_backend/internal/automation/engine"
	"funnel_backend/internal/automation/handler"
	"funnel_backend/internal/automation/repository"
	"funnel_backend/internal/automation/service"
	"funnel_backend/internal/events"
	apphttp "funnel_backend/internal/http"
	"funnel_backend/platform/config"
	"funnel_backend/platform/keylock"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ModuleDeps are the collaborators the engine reaches through adapters.
type ModuleDeps struct {
	Pool      *pgxpool.Pool
	Deals     engine.DealStore
	Funnels   engine.FunnelReader
	Contacts  engine.ContactStore
	Notes     engine.NoteStore
	Tasks     engine.TaskStore
	Chatbot   engine.ChatbotLauncher
	Locker    keylock.Locker
	EventBus  events.Bus
	Validator *validator.Validator
	Config    config.AutomationConfig
	Log       *logger.Logger
}

type Module struct {
	handler *handler.Handler
	service *service.Service
	engine  *engine.Engine
}

func NewModule(deps ModuleDeps) *Module {
	repo := repository.New(deps.Pool)
	eng := engine.New(engine.Deps{
		Rules:    repo,
		Deals:    deps.Deals,
		Funnels:  deps.Funnels,
		Contacts: deps.Contacts,
		Notes:    deps.Notes,
		Tasks:    deps.Tasks,
		Chatbot:  deps.Chatbot,
		Locker:   deps.Locker,
		Bus:      deps.EventBus,
		Log:      deps.Log,
	}, engine.Config{
		MaxHops:        deps.Config.GetAutomationMaxHops(),
		StrictMode:     deps.Config.IsAutomationStrictMode(),
		WebhookTimeout: deps.Config.GetAutomationWebhookTimeout(),
	})
	svc := service.New(repo, deps.Funnels, deps.Deals, eng, deps.Log)

	return &Module{
		handler: handler.New(svc, deps.Validator),
		service: svc,
		engine:  eng,
	}
}

func (m *Module) Name() string {
	return "automation"
}

// Engine exposes the dispatcher so main can inject optional integrations
// and the stage mover.
func (m *Module) Engine() *engine.Engine {
	return m.engine
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	var limiter gin.HandlerFunc
	if ctx.IngestRateLimiter != nil {
		limiter = ctx.IngestRateLimiter.RateLimit()
	}
	m.handler.RegisterRoutes(ctx.Protected, limiter)
}
