package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"funnel_backend/platform/validator"

	"github.com/google/uuid"
)

var (
	ErrUnknownTriggerType = errors.New("unknown trigger type")
	ErrUnknownActionType  = errors.New("unknown action type")
)

var configValidator = validator.New()

// ConfigError reports a trigger or action config that does not decode or
// validate. Details lists field-level problems.
type ConfigError struct {
	Kind    string
	Type    string
	Details []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s config for %s: %s", e.Kind, e.Type, strings.Join(e.Details, "; "))
}

// =============================================================================
// Trigger configs
// =============================================================================

// TriggerConfig is the typed form of a rule's trigger_config.
type TriggerConfig interface {
	TriggerType() TriggerType
}

// StageTriggerConfig is used by the stage and won/lost triggers, which carry
// no condition of their own.
type StageTriggerConfig struct {
	Type TriggerType `json:"-"`
}

func (c StageTriggerConfig) TriggerType() TriggerType { return c.Type }

type KeywordTriggerConfig struct {
	// Keywords is a comma-separated list matched case-insensitively as substrings.
	Keywords string `json:"keywords" validate:"required,max=1000"`
}

func (KeywordTriggerConfig) TriggerType() TriggerType { return TriggerKeywordReceived }

// List returns the lower-cased, trimmed keywords. Empty entries are dropped
// so a trailing comma does not match every message.
func (c KeywordTriggerConfig) List() []string {
	parts := strings.Split(c.Keywords, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.ToLower(strings.TrimSpace(p)); k != "" {
			out = append(out, k)
		}
	}
	return out
}

type TagTriggerConfig struct {
	Type    TriggerType `json:"-"`
	TagName string      `json:"tag_name" validate:"required,max=60"`
}

func (c TagTriggerConfig) TriggerType() TriggerType { return c.Type }

type CustomFieldTriggerConfig struct {
	FieldKey string `json:"field_key" validate:"required,max=100"`
}

func (CustomFieldTriggerConfig) TriggerType() TriggerType { return TriggerCustomFieldChanged }

// DecodeTriggerConfig turns a stored trigger_config map into its typed form
// and validates it.
func DecodeTriggerConfig(t TriggerType, raw map[string]any) (TriggerConfig, error) {
	var cfg TriggerConfig
	switch t {
	case TriggerStageEnter, TriggerStageExit, TriggerDealWon, TriggerDealLost:
		return StageTriggerConfig{Type: t}, nil
	case TriggerKeywordReceived:
		var c KeywordTriggerConfig
		if err := decodeInto(raw, &c); err != nil {
			return nil, configErr("trigger", string(t), err)
		}
		if len(c.List()) == 0 {
			return nil, &ConfigError{Kind: "trigger", Type: string(t), Details: []string{"keywords: at least one keyword is required"}}
		}
		cfg = c
	case TriggerTagAdded, TriggerTagRemoved:
		c := TagTriggerConfig{Type: t}
		if err := decodeInto(raw, &c); err != nil {
			return nil, configErr("trigger", string(t), err)
		}
		cfg = c
	case TriggerCustomFieldChanged:
		var c CustomFieldTriggerConfig
		if err := decodeInto(raw, &c); err != nil {
			return nil, configErr("trigger", string(t), err)
		}
		cfg = c
	default:
		return nil, ErrUnknownTriggerType
	}
	return cfg, nil
}

// =============================================================================
// Action configs
// =============================================================================

// ActionConfig is the typed form of a rule's action_config.
type ActionConfig interface {
	ActionType() ActionType
}

type SendMessageConfig struct {
	Message string `json:"message" validate:"required,max=4096"`
}

type SendTemplateConfig struct {
	TemplateID string `json:"template_id" validate:"required,max=200"`
}

type AddTagConfig struct {
	TagName string `json:"tag_name" validate:"required,max=60"`
}

type RemoveTagConfig struct {
	TagName string `json:"tag_name" validate:"required,max=60"`
}

type MoveStageConfig struct {
	TargetStageID uuid.UUID `json:"target_stage_id" validate:"required"`
}

type NotifyUserConfig struct {
	// Email is the recipient; without one the notification is only logged.
	Email   string `json:"email" validate:"omitempty,email"`
	Message string `json:"message" validate:"required,max=4096"`
}

type TriggerChatbotFlowConfig struct {
	FlowID uuid.UUID `json:"flow_id" validate:"required"`
}

type SetCustomFieldConfig struct {
	FieldKey   string `json:"field_key" validate:"required,max=100"`
	FieldValue string `json:"field_value" validate:"max=2000"`
}

type SetDealValueConfig struct {
	Value *float64 `json:"value" validate:"required,min=0"`
}

type ChangeResponsibleConfig struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

type AddNoteConfig struct {
	Content string `json:"content" validate:"required,max=10000"`
}

type WebhookRequestConfig struct {
	URL     string            `json:"url" validate:"required,url,startswith=http"`
	Method  string            `json:"method" validate:"omitempty,oneof=GET POST PUT PATCH DELETE"`
	Headers map[string]string `json:"headers"`
	// Secret signs the body with HMAC-SHA256 when set.
	Secret string `json:"secret" validate:"max=200"`
}

// HTTPMethod returns the configured method, POST when unset.
func (c WebhookRequestConfig) HTTPMethod() string {
	if c.Method == "" {
		return "POST"
	}
	return c.Method
}

type CreateTaskConfig struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	DueDays     int    `json:"due_days" validate:"min=0,max=3650"`
}

// CloseDealConfig serves both close_deal_won and close_deal_lost.
type CloseDealConfig struct {
	Note          string     `json:"note" validate:"max=1000"`
	CloseReasonID *uuid.UUID `json:"close_reason_id"`
	won           bool
}

func (SendMessageConfig) ActionType() ActionType        { return ActionSendMessage }
func (SendTemplateConfig) ActionType() ActionType       { return ActionSendTemplate }
func (AddTagConfig) ActionType() ActionType             { return ActionAddTag }
func (RemoveTagConfig) ActionType() ActionType          { return ActionRemoveTag }
func (MoveStageConfig) ActionType() ActionType          { return ActionMoveStage }
func (NotifyUserConfig) ActionType() ActionType         { return ActionNotifyUser }
func (TriggerChatbotFlowConfig) ActionType() ActionType { return ActionTriggerChatbotFlow }
func (SetCustomFieldConfig) ActionType() ActionType     { return ActionSetCustomField }
func (SetDealValueConfig) ActionType() ActionType       { return ActionSetDealValue }
func (ChangeResponsibleConfig) ActionType() ActionType  { return ActionChangeResponsible }
func (AddNoteConfig) ActionType() ActionType            { return ActionAddNote }
func (WebhookRequestConfig) ActionType() ActionType     { return ActionWebhookRequest }
func (CreateTaskConfig) ActionType() ActionType         { return ActionCreateTask }

func (c CloseDealConfig) ActionType() ActionType {
	if c.won {
		return ActionCloseDealWon
	}
	return ActionCloseDealLost
}

// Won reports whether the config closes the deal as won.
func (c CloseDealConfig) Won() bool { return c.won }

// DecodeActionConfig turns a stored action_config map into its typed form
// and validates it.
func DecodeActionConfig(t ActionType, raw map[string]any) (ActionConfig, error) {
	var target ActionConfig
	switch t {
	case ActionSendMessage:
		target = &SendMessageConfig{}
	case ActionSendTemplate:
		target = &SendTemplateConfig{}
	case ActionAddTag:
		target = &AddTagConfig{}
	case ActionRemoveTag:
		target = &RemoveTagConfig{}
	case ActionMoveStage:
		target = &MoveStageConfig{}
	case ActionNotifyUser:
		target = &NotifyUserConfig{}
	case ActionTriggerChatbotFlow:
		target = &TriggerChatbotFlowConfig{}
	case ActionSetCustomField:
		target = &SetCustomFieldConfig{}
	case ActionSetDealValue:
		target = &SetDealValueConfig{}
	case ActionChangeResponsible:
		target = &ChangeResponsibleConfig{}
	case ActionAddNote:
		target = &AddNoteConfig{}
	case ActionWebhookRequest:
		target = &WebhookRequestConfig{}
	case ActionCreateTask:
		target = &CreateTaskConfig{}
	case ActionCloseDealWon, ActionCloseDealLost:
		target = &CloseDealConfig{won: t == ActionCloseDealWon}
	default:
		return nil, ErrUnknownActionType
	}

	if err := decodeInto(raw, target); err != nil {
		return nil, configErr("action", string(t), err)
	}
	return deref(target), nil
}

// deref returns the value form so callers can type-switch on plain structs.
func deref(cfg ActionConfig) ActionConfig {
	switch c := cfg.(type) {
	case *SendMessageConfig:
		return *c
	case *SendTemplateConfig:
		return *c
	case *AddTagConfig:
		return *c
	case *RemoveTagConfig:
		return *c
	case *MoveStageConfig:
		return *c
	case *NotifyUserConfig:
		return *c
	case *TriggerChatbotFlowConfig:
		return *c
	case *SetCustomFieldConfig:
		return *c
	case *SetDealValueConfig:
		return *c
	case *ChangeResponsibleConfig:
		return *c
	case *AddNoteConfig:
		return *c
	case *WebhookRequestConfig:
		return *c
	case *CreateTaskConfig:
		return *c
	case *CloseDealConfig:
		return *c
	}
	return cfg
}

func decodeInto(raw map[string]any, dst any) error {
	if raw == nil {
		raw = map[string]any{}
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(encoded, dst); err != nil {
		return err
	}
	return configValidator.Struct(dst)
}

func configErr(kind, typ string, err error) *ConfigError {
	return &ConfigError{Kind: kind, Type: typ, Details: validator.Describe(err)}
}

// ValidateRule checks a rule's types and configs before it is saved.
func ValidateRule(r Rule) error {
	if !r.TriggerType.Valid() {
		return ErrUnknownTriggerType
	}
	if _, err := DecodeTriggerConfig(r.TriggerType, r.TriggerConfig); err != nil {
		return err
	}
	if _, err := DecodeActionConfig(r.ActionType, r.ActionConfig); err != nil {
		return err
	}
	return nil
}
