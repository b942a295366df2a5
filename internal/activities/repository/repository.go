package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidReference = errors.New("deal or contact does not exist")
)

const (
	TaskStatusOpen      = "open"
	TaskStatusDone      = "done"
	TaskStatusCancelled = "cancelled"
)

const pgForeignKeyViolation = "23503"

type Note struct {
	ID               uuid.UUID
	OrganizationID   uuid.UUID
	DealID           uuid.UUID
	ContactID        uuid.UUID
	Body             string
	AutomationRuleID *uuid.UUID
	CreatedAt        time.Time
}

type Task struct {
	ID               uuid.UUID
	OrganizationID   uuid.UUID
	DealID           uuid.UUID
	ContactID        uuid.UUID
	AssigneeID       *uuid.UUID
	Title            string
	Description      string
	DueAt            time.Time
	Status           string
	AutomationRuleID *uuid.UUID
	RemindedAt       *time.Time
	CreatedAt        time.Time
	CompletedAt      *time.Time
}

// DueTask is a task claimed for its reminder, with the deal it belongs to.
type DueTask struct {
	Task
	DealTitle string
}

type NoteStore interface {
	CreateNote(ctx context.Context, note Note) (Note, error)
	// CreateDealNote adds a note to a deal of the organization, taking the
	// contact from the deal.
	CreateDealNote(ctx context.Context, organizationID, dealID uuid.UUID, body string) (Note, error)
	ListNotes(ctx context.Context, organizationID, dealID uuid.UUID) ([]Note, error)
}

type TaskStore interface {
	CreateTask(ctx context.Context, task Task) (Task, error)
	ListTasks(ctx context.Context, organizationID, dealID uuid.UUID) ([]Task, error)
	SetTaskStatus(ctx context.Context, organizationID, taskID uuid.UUID, status string) (Task, error)
	// ClaimReminder marks an open, not yet reminded task as reminded. ok is
	// false when there is nothing to remind.
	ClaimReminder(ctx context.Context, organizationID, taskID uuid.UUID) (task DueTask, ok bool, err error)
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var (
	_ NoteStore = (*Repository)(nil)
	_ TaskStore = (*Repository)(nil)
)

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}
