package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateNoteRequest struct {
	Body string `json:"body" validate:"required,min=1,max=10000"`
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open done cancelled"`
}

type NoteResponse struct {
	ID               uuid.UUID  `json:"id"`
	DealID           uuid.UUID  `json:"dealId"`
	Body             string     `json:"body"`
	AutomationRuleID *uuid.UUID `json:"automationRuleId,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type NoteListResponse struct {
	Items []NoteResponse `json:"items"`
}

type TaskResponse struct {
	ID               uuid.UUID  `json:"id"`
	DealID           uuid.UUID  `json:"dealId"`
	AssigneeID       *uuid.UUID `json:"assigneeId,omitempty"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	DueAt            time.Time  `json:"dueAt"`
	Status           string     `json:"status"`
	AutomationRuleID *uuid.UUID `json:"automationRuleId,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}

type TaskListResponse struct {
	Items []TaskResponse `json:"items"`
}
