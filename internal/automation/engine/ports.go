package engine

import (
	"context"
	"errors"
	"net/http"
	"time"

	"funnel_backend/internal/automation/domain"
	funnels "funnel_backend/internal/funnels/domain"

	"github.com/google/uuid"
)

var (
	ErrDealNotFound    = errors.New("deal not found")
	ErrFunnelNotFound  = errors.New("funnel not found")
	ErrContactNotFound = errors.New("contact not found")
	ErrFlowNotFound    = errors.New("chatbot flow not found")
	ErrFlowInactive    = errors.New("chatbot flow is not active")
)

// Deal is the engine's read model of a deal.
type Deal struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	FunnelID       uuid.UUID
	StageID        uuid.UUID
	ContactID      uuid.UUID
	Title          string
	Value          float64
	AssignedUserID *uuid.UUID
}

type Contact struct {
	ID    uuid.UUID
	Name  string
	Phone string
	Email string
}

// DealStore reads deals and applies the field-level writes actions make.
// Stage changes go through StageMover instead.
type DealStore interface {
	GetDeal(ctx context.Context, dealID uuid.UUID) (Deal, error)
	SetCustomField(ctx context.Context, dealID uuid.UUID, key string, value any) error
	SetValue(ctx context.Context, dealID uuid.UUID, value float64) error
	SetAssignedUser(ctx context.Context, dealID, userID uuid.UUID) error
}

type FunnelReader interface {
	GetFunnel(ctx context.Context, funnelID uuid.UUID) (funnels.Funnel, error)
	ListStages(ctx context.Context, funnelID uuid.UUID) ([]funnels.Stage, error)
}

// MoveRequest asks the stage state machine to move a deal on behalf of a rule.
type MoveRequest struct {
	DealID        uuid.UUID
	ToStageID     uuid.UUID
	RuleID        uuid.UUID
	Note          string
	CloseReasonID *uuid.UUID
	Depth         int
}

// StageMover runs a full stage transition, including the automations the
// move itself triggers. The returned results are those nested automations.
type StageMover interface {
	MoveStage(ctx context.Context, req MoveRequest) ([]domain.Result, error)
}

type ContactStore interface {
	GetContact(ctx context.Context, contactID uuid.UUID) (Contact, error)
	// AddTag finds or creates the tag and attaches it; attaching twice is a no-op.
	AddTag(ctx context.Context, organizationID, contactID uuid.UUID, tagName string) error
	// RemoveTag detaches the tag and reports whether it existed.
	RemoveTag(ctx context.Context, organizationID, contactID uuid.UUID, tagName string) (bool, error)
}

type NewNote struct {
	OrganizationID   uuid.UUID
	DealID           uuid.UUID
	ContactID        uuid.UUID
	Body             string
	AutomationRuleID uuid.UUID
}

type NoteStore interface {
	AddNote(ctx context.Context, note NewNote) error
}

type NewTask struct {
	OrganizationID   uuid.UUID
	DealID           uuid.UUID
	ContactID        uuid.UUID
	AssigneeID       *uuid.UUID
	Title            string
	Description      string
	DueAt            time.Time
	AutomationRuleID uuid.UUID
}

type TaskStore interface {
	CreateTask(ctx context.Context, task NewTask) (uuid.UUID, error)
}

// TaskReminderScheduler queues a reminder for a task at its due date.
type TaskReminderScheduler interface {
	ScheduleTaskReminder(ctx context.Context, taskID, organizationID uuid.UUID, runAt time.Time) error
}

// FlowLaunch starts a chatbot flow for a deal's contact.
type FlowLaunch struct {
	FlowID           uuid.UUID
	OrganizationID   uuid.UUID
	DealID           uuid.UUID
	ContactID        uuid.UUID
	AutomationRuleID uuid.UUID
	Variables        map[string]any
}

// ChatbotLauncher validates the flow and records a pending execution. It
// returns ErrFlowNotFound or ErrFlowInactive for unusable flows.
type ChatbotLauncher interface {
	Launch(ctx context.Context, launch FlowLaunch) (uuid.UUID, error)
}

type MessageSender interface {
	SendMessage(ctx context.Context, phone, message string) error
}

type Notification struct {
	To      string
	Subject string
	Body    string
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// HTTPDoer is the slice of *http.Client the webhook action needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
