// Package notification reacts to domain events published on the in-process
// bus: it records deal lifecycle changes on the deal timeline and surfaces
// failed automation runs in the logs.
package notification

import (
	"context"
	"errors"
	"fmt"

	"funnel_backend/internal/events"
	"funnel_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	noteDealWon      = "Negócio marcado como ganho (valor %.2f)."
	noteDealLost     = "Negócio marcado como perdido."
	noteDealReopened = "Negócio reaberto."
)

// TimelineWriter appends a system note to a deal's timeline.
type TimelineWriter interface {
	AddDealNote(ctx context.Context, organizationID, dealID uuid.UUID, body string) error
}

// ErrDealGone is returned by TimelineWriter implementations when the deal no
// longer exists; the handler treats it as a no-op.
var ErrDealGone = errors.New("deal no longer exists")

type Module struct {
	timeline TimelineWriter
	log      *logger.Logger
}

func New(timeline TimelineWriter, log *logger.Logger) *Module {
	return &Module{timeline: timeline, log: log}
}

// RegisterHandlers subscribes the module to the events it handles.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.DealClosed{}.EventName(), m)
	bus.Subscribe(events.DealReopened{}.EventName(), m)
	bus.Subscribe(events.AutomationRuleExecuted{}.EventName(), m)
	bus.Subscribe(events.DealTaskCreated{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.DealClosed:
		return m.handleDealClosed(ctx, e)
	case events.DealReopened:
		return m.writeNote(ctx, e.OrganizationID, e.DealID, noteDealReopened)
	case events.AutomationRuleExecuted:
		m.handleRuleExecuted(e)
		return nil
	case events.DealTaskCreated:
		m.log.Info("deal task created", "taskId", e.TaskID, "dealId", e.DealID, "title", e.Title)
		return nil
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleDealClosed(ctx context.Context, e events.DealClosed) error {
	body := noteDealLost
	if e.Outcome == "won" {
		body = fmt.Sprintf(noteDealWon, e.Value)
	}
	return m.writeNote(ctx, e.OrganizationID, e.DealID, body)
}

func (m *Module) handleRuleExecuted(e events.AutomationRuleExecuted) {
	if e.Success {
		return
	}
	m.log.Warn("automation rule failed",
		"ruleId", e.RuleID,
		"dealId", e.DealID,
		"trigger", e.TriggerType,
		"action", e.ActionType,
		"depth", e.Depth,
		"error", e.Error,
	)
}

func (m *Module) writeNote(ctx context.Context, organizationID, dealID uuid.UUID, body string) error {
	if m.timeline == nil {
		return nil
	}
	err := m.timeline.AddDealNote(ctx, organizationID, dealID, body)
	if errors.Is(err, ErrDealGone) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("write deal timeline note: %w", err)
	}
	return nil
}
