// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"funnel_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Funnel Domain Events
// =============================================================================

// DealStageChanged is published after a stage transition has been committed.
type DealStageChanged struct {
	BaseEvent
	DealID           uuid.UUID  `json:"dealId"`
	OrganizationID   uuid.UUID  `json:"organizationId"`
	FunnelID         uuid.UUID  `json:"funnelId"`
	FromStageID      *uuid.UUID `json:"fromStageId,omitempty"`
	ToStageID        uuid.UUID  `json:"toStageId"`
	AutomationRuleID *uuid.UUID `json:"automationRuleId,omitempty"`
	Depth            int        `json:"depth"`
}

func (e DealStageChanged) EventName() string { return "funnels.deal.stage_changed" }

// DealClosed is published when a deal enters a won or lost stage.
type DealClosed struct {
	BaseEvent
	DealID         uuid.UUID `json:"dealId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	StageID        uuid.UUID `json:"stageId"`
	Outcome        string    `json:"outcome"`
	Value          float64   `json:"value"`
}

func (e DealClosed) EventName() string { return "funnels.deal.closed" }

// DealReopened is published when a closed deal leaves its final stage.
type DealReopened struct {
	BaseEvent
	DealID         uuid.UUID `json:"dealId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	ToStageID      uuid.UUID `json:"toStageId"`
}

func (e DealReopened) EventName() string { return "funnels.deal.reopened" }

// =============================================================================
// Automation Domain Events
// =============================================================================

// AutomationRuleExecuted is published once per rule dispatch outcome.
type AutomationRuleExecuted struct {
	BaseEvent
	RuleID      uuid.UUID `json:"ruleId"`
	DealID      uuid.UUID `json:"dealId"`
	TriggerType string    `json:"triggerType"`
	ActionType  string    `json:"actionType"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	Depth       int       `json:"depth"`
}

func (e AutomationRuleExecuted) EventName() string { return "automation.rule.executed" }

// =============================================================================
// Activity Domain Events
// =============================================================================

// DealTaskCreated is published when a follow-up task is created for a deal.
type DealTaskCreated struct {
	BaseEvent
	TaskID         uuid.UUID  `json:"taskId"`
	DealID         uuid.UUID  `json:"dealId"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	AssigneeID     *uuid.UUID `json:"assigneeId,omitempty"`
	Title          string     `json:"title"`
}

func (e DealTaskCreated) EventName() string { return "activities.task.created" }
