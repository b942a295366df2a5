package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateFlowRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=120"`
	IsActive *bool  `json:"isActive"`
}

type ToggleFlowRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

type FlowResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type FlowListResponse struct {
	Items []FlowResponse `json:"items"`
}

type ExecutionResponse struct {
	ID               uuid.UUID      `json:"id"`
	FlowID           uuid.UUID      `json:"flowId"`
	DealID           uuid.UUID      `json:"dealId"`
	Status           string         `json:"status"`
	Variables        map[string]any `json:"variables"`
	AutomationRuleID *uuid.UUID     `json:"automationRuleId,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
}

type ExecutionListResponse struct {
	Items []ExecutionResponse `json:"items"`
}
