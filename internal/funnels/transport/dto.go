package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateFunnelRequest struct {
	Name         string `json:"name" validate:"required,min=1,max=120"`
	DisplayOrder int    `json:"displayOrder" validate:"min=0"`
	// UseDefaultTemplate defaults to true when omitted.
	UseDefaultTemplate *bool `json:"useDefaultTemplate"`
}

type StageRequest struct {
	Name         string `json:"name" validate:"required,min=1,max=80"`
	Color        string `json:"color" validate:"hexcolor_or_empty"`
	DisplayOrder *int   `json:"displayOrder" validate:"omitempty,min=0"`
	IsFinal      bool   `json:"isFinal"`
	FinalType    string `json:"finalType" validate:"omitempty,oneof=won lost"`
	Probability  int    `json:"probability" validate:"min=0,max=100"`
}

type ReorderStagesRequest struct {
	StageIDs []uuid.UUID `json:"stageIds" validate:"required,min=1"`
}

type StageResponse struct {
	ID           uuid.UUID `json:"id"`
	FunnelID     uuid.UUID `json:"funnelId"`
	Name         string    `json:"name"`
	Color        string    `json:"color"`
	DisplayOrder int       `json:"displayOrder"`
	IsFinal      bool      `json:"isFinal"`
	FinalType    *string   `json:"finalType,omitempty"`
	Probability  int       `json:"probability"`
}

type FunnelResponse struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	DisplayOrder int             `json:"displayOrder"`
	Stages       []StageResponse `json:"stages"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type FunnelListResponse struct {
	Items []FunnelResponse `json:"items"`
}

type CreateDealRequest struct {
	FunnelID       uuid.UUID      `json:"funnelId" validate:"required"`
	StageID        uuid.UUID      `json:"stageId" validate:"required"`
	ContactID      uuid.UUID      `json:"contactId" validate:"required"`
	Title          string         `json:"title" validate:"max=200"`
	Value          float64        `json:"value" validate:"min=0"`
	CustomFields   map[string]any `json:"customFields"`
	AssignedUserID *uuid.UUID     `json:"assignedUserId"`
}

type MoveDealRequest struct {
	ToStageID     uuid.UUID  `json:"toStageId" validate:"required"`
	FromStageID   *uuid.UUID `json:"fromStageId"`
	Note          *string    `json:"note" validate:"omitempty,max=1000"`
	CloseReasonID *uuid.UUID `json:"closeReasonId"`
}

type SetCustomFieldRequest struct {
	Key   string `json:"key" validate:"required,min=1,max=100"`
	Value any    `json:"value"`
}

type DealResponse struct {
	ID             uuid.UUID      `json:"id"`
	FunnelID       uuid.UUID      `json:"funnelId"`
	StageID        uuid.UUID      `json:"stageId"`
	ContactID      uuid.UUID      `json:"contactId"`
	Title          string         `json:"title"`
	Value          float64        `json:"value"`
	CustomFields   map[string]any `json:"customFields"`
	AssignedUserID *uuid.UUID     `json:"assignedUserId,omitempty"`
	EnteredStageAt time.Time      `json:"enteredStageAt"`
	ClosedAt       *time.Time     `json:"closedAt,omitempty"`
	CloseReasonID  *uuid.UUID     `json:"closeReasonId,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

type HistoryEntryResponse struct {
	ID               uuid.UUID  `json:"id"`
	FromStageID      *uuid.UUID `json:"fromStageId,omitempty"`
	ToStageID        uuid.UUID  `json:"toStageId"`
	Note             *string    `json:"note,omitempty"`
	AutomationRuleID *uuid.UUID `json:"automationRuleId,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type HistoryListResponse struct {
	Items []HistoryEntryResponse `json:"items"`
}

type AutomationResultResponse struct {
	RuleID     uuid.UUID `json:"ruleId"`
	RuleName   string    `json:"ruleName,omitempty"`
	ActionType string    `json:"actionType"`
	Success    bool      `json:"success"`
	Skipped    bool      `json:"skipped,omitempty"`
	Error      string    `json:"error,omitempty"`
	Depth      int       `json:"depth"`
}

// DealChangeResponse is returned by every endpoint that mutates a deal and
// may therefore have run automations.
type DealChangeResponse struct {
	Deal            DealResponse               `json:"deal"`
	History         *HistoryEntryResponse      `json:"history,omitempty"`
	Automations     []AutomationResultResponse `json:"automations"`
	AutomationError string                     `json:"automationError,omitempty"`
}
