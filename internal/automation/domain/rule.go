// Package domain holds the pure parts of the automation engine: rule and
// event types, typed rule configs, trigger resolution, rule matching and
// template interpolation.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type TriggerType string

const (
	TriggerStageEnter         TriggerType = "on_stage_enter"
	TriggerStageExit          TriggerType = "on_stage_exit"
	TriggerDealWon            TriggerType = "on_deal_won"
	TriggerDealLost           TriggerType = "on_deal_lost"
	TriggerKeywordReceived    TriggerType = "on_keyword_received"
	TriggerTagAdded           TriggerType = "on_tag_added"
	TriggerTagRemoved         TriggerType = "on_tag_removed"
	TriggerCustomFieldChanged TriggerType = "on_custom_field_changed"
)

var triggerTypes = []TriggerType{
	TriggerStageEnter,
	TriggerStageExit,
	TriggerDealWon,
	TriggerDealLost,
	TriggerKeywordReceived,
	TriggerTagAdded,
	TriggerTagRemoved,
	TriggerCustomFieldChanged,
}

func (t TriggerType) Valid() bool {
	for _, known := range triggerTypes {
		if t == known {
			return true
		}
	}
	return false
}

type ActionType string

const (
	ActionSendMessage        ActionType = "send_message"
	ActionSendTemplate       ActionType = "send_template"
	ActionAddTag             ActionType = "add_tag"
	ActionRemoveTag          ActionType = "remove_tag"
	ActionMoveStage          ActionType = "move_stage"
	ActionNotifyUser         ActionType = "notify_user"
	ActionTriggerChatbotFlow ActionType = "trigger_chatbot_flow"
	ActionSetCustomField     ActionType = "set_custom_field"
	ActionSetDealValue       ActionType = "set_deal_value"
	ActionChangeResponsible  ActionType = "change_responsible"
	ActionAddNote            ActionType = "add_note"
	ActionWebhookRequest     ActionType = "webhook_request"
	ActionCreateTask         ActionType = "create_task"
	ActionCloseDealWon       ActionType = "close_deal_won"
	ActionCloseDealLost      ActionType = "close_deal_lost"
)

// Rule is a configured trigger → condition → action binding scoped to a
// funnel and optionally one of its stages.
type Rule struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	FunnelID       uuid.UUID
	StageID        *uuid.UUID
	Name           string
	IsActive       bool
	TriggerType    TriggerType
	TriggerConfig  map[string]any
	ActionType     ActionType
	ActionConfig   map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Event is one inbound occurrence to evaluate rules against. Depth counts
// how many automation moves led to it; user-initiated events have depth 0.
type Event struct {
	DealID      uuid.UUID
	FromStageID *uuid.UUID
	ToStageID   *uuid.UUID
	TriggerType TriggerType
	MessageText string
	TagName     string
	FieldKey    string
	FieldValue  string
	Depth       int
}

// Result is the outcome of one matched rule. Skipped marks a lenient no-op
// that reported success without any effect.
type Result struct {
	RuleID     uuid.UUID
	RuleName   string
	ActionType ActionType
	Success    bool
	Skipped    bool
	Error      string
	Depth      int
}
