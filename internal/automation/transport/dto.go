package transport

import (
	"time"

	"github.com/google/uuid"
)

// RuleRequest creates or replaces an automation rule. The trigger and action
// configs are validated against their typed schemas before saving.
type RuleRequest struct {
	FunnelID      uuid.UUID      `json:"funnelId" validate:"required"`
	StageID       *uuid.UUID     `json:"stageId"`
	Name          string         `json:"name" validate:"required,min=1,max=120"`
	IsActive      *bool          `json:"isActive"`
	TriggerType   string         `json:"triggerType" validate:"required"`
	TriggerConfig map[string]any `json:"triggerConfig"`
	ActionType    string         `json:"actionType" validate:"required"`
	ActionConfig  map[string]any `json:"actionConfig"`
}

type ToggleRuleRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

type RuleResponse struct {
	ID            uuid.UUID      `json:"id"`
	FunnelID      uuid.UUID      `json:"funnelId"`
	StageID       *uuid.UUID     `json:"stageId,omitempty"`
	Name          string         `json:"name"`
	IsActive      bool           `json:"isActive"`
	TriggerType   string         `json:"triggerType"`
	TriggerConfig map[string]any `json:"triggerConfig"`
	ActionType    string         `json:"actionType"`
	ActionConfig  map[string]any `json:"actionConfig"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

type RuleListResponse struct {
	Items []RuleResponse `json:"items"`
}

// ProcessEventRequest is an inbound event evaluated against the deal's rules.
// Stage changes are described by the stage ids; keyword, tag and field
// events set triggerType with the matching payload field.
type ProcessEventRequest struct {
	DealID      uuid.UUID  `json:"dealId" validate:"required"`
	FromStageID *uuid.UUID `json:"fromStageId"`
	ToStageID   *uuid.UUID `json:"toStageId"`
	TriggerType string     `json:"triggerType"`
	MessageText string     `json:"messageText" validate:"max=10000"`
	TagName     string     `json:"tagName" validate:"max=60"`
	FieldKey    string     `json:"fieldKey" validate:"max=100"`
	FieldValue  string     `json:"fieldValue" validate:"max=2000"`
}

type ResultResponse struct {
	RuleID     uuid.UUID `json:"ruleId"`
	RuleName   string    `json:"ruleName,omitempty"`
	ActionType string    `json:"actionType"`
	Success    bool      `json:"success"`
	Skipped    bool      `json:"skipped,omitempty"`
	Error      string    `json:"error,omitempty"`
	Depth      int       `json:"depth"`
}

type ProcessEventResponse struct {
	Results []ResultResponse `json:"results"`
}
