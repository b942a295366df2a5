// Package ports defines consumer-driven interfaces the funnels domain needs
// from other modules.
package ports

import (
	"context"

	"github.com/google/uuid"
)

// TriggerKind mirrors the automation trigger types the funnels module raises.
type TriggerKind string

const (
	TriggerStageEnter         TriggerKind = "on_stage_enter"
	TriggerStageExit          TriggerKind = "on_stage_exit"
	TriggerDealWon            TriggerKind = "on_deal_won"
	TriggerDealLost           TriggerKind = "on_deal_lost"
	TriggerCustomFieldChanged TriggerKind = "on_custom_field_changed"
)

// StageChange describes a committed transition for automation dispatch.
// FromStageID is nil for newly created deals.
type StageChange struct {
	DealID      uuid.UUID
	FromStageID *uuid.UUID
	ToStageID   uuid.UUID
	Depth       int
}

// FieldChange describes a custom field write on a deal.
type FieldChange struct {
	DealID   uuid.UUID
	FieldKey string
	Value    string
	Depth    int
}

// AutomationOutcome is one rule execution as seen by the funnels module.
type AutomationOutcome struct {
	RuleID     uuid.UUID
	RuleName   string
	ActionType string
	Success    bool
	Skipped    bool
	Error      string
	Depth      int
}

// AutomationDispatcher runs the automation rules a deal change triggers.
// Implementations execute synchronously; the returned error covers rule
// lookup failures only, per-rule failures are reported in the outcomes.
type AutomationDispatcher interface {
	DispatchStageChange(ctx context.Context, change StageChange) ([]AutomationOutcome, error)
	DispatchFieldChange(ctx context.Context, change FieldChange) ([]AutomationOutcome, error)
}
