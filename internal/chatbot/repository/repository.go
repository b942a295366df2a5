package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound         = errors.New("chatbot flow not found")
	ErrInvalidReference = errors.New("flow, deal or contact does not exist")
)

// Execution statuses owned by this service. The chatbot runtime moves
// queued executions further along.
const (
	ExecutionPending = "pending"
	ExecutionQueued  = "queued"
	ExecutionExpired = "expired"
)

const pgForeignKeyViolation = "23503"

type Flow struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Execution struct {
	ID               uuid.UUID
	FlowID           uuid.UUID
	OrganizationID   uuid.UUID
	DealID           uuid.UUID
	ContactID        uuid.UUID
	Status           string
	Variables        map[string]any
	AutomationRuleID *uuid.UUID
	CreatedAt        time.Time
}

type FlowStore interface {
	GetFlow(ctx context.Context, flowID uuid.UUID) (Flow, error)
	ListFlows(ctx context.Context, organizationID uuid.UUID) ([]Flow, error)
	CreateFlow(ctx context.Context, flow Flow) (Flow, error)
	SetFlowActive(ctx context.Context, organizationID, flowID uuid.UUID, active bool) (Flow, error)
}

type ExecutionStore interface {
	CreateExecution(ctx context.Context, exec Execution) (Execution, error)
	ListDealExecutions(ctx context.Context, organizationID, dealID uuid.UUID) ([]Execution, error)
	MarkQueued(ctx context.Context, executionID uuid.UUID) error
	// ClaimPending moves up to limit pending executions created before
	// createdBefore to queued and returns them.
	ClaimPending(ctx context.Context, createdBefore time.Time, limit int) ([]Execution, error)
	ReleasePending(ctx context.Context, executionID uuid.UUID) error
	ExpirePending(ctx context.Context, createdBefore time.Time) (int64, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var (
	_ FlowStore      = (*Repository)(nil)
	_ ExecutionStore = (*Repository)(nil)
)

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

const flowColumns = `id, organization_id, name, is_active, created_at, updated_at`

func scanFlow(row pgx.Row) (Flow, error) {
	var f Flow
	err := row.Scan(&f.ID, &f.OrganizationID, &f.Name, &f.IsActive, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func (r *Repository) GetFlow(ctx context.Context, flowID uuid.UUID) (Flow, error) {
	f, err := scanFlow(r.pool.QueryRow(ctx, `SELECT `+flowColumns+` FROM chatbot_flows WHERE id = $1`, flowID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Flow{}, ErrNotFound
	}
	return f, err
}

func (r *Repository) ListFlows(ctx context.Context, organizationID uuid.UUID) ([]Flow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+flowColumns+`
		FROM chatbot_flows
		WHERE organization_id = $1
		ORDER BY name
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flows := make([]Flow, 0)
	for rows.Next() {
		f, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}
		flows = append(flows, f)
	}
	return flows, rows.Err()
}

func (r *Repository) CreateFlow(ctx context.Context, flow Flow) (Flow, error) {
	return scanFlow(r.pool.QueryRow(ctx, `
		INSERT INTO chatbot_flows (organization_id, name, is_active)
		VALUES ($1, $2, $3)
		RETURNING `+flowColumns,
		flow.OrganizationID, flow.Name, flow.IsActive,
	))
}

func (r *Repository) SetFlowActive(ctx context.Context, organizationID, flowID uuid.UUID, active bool) (Flow, error) {
	f, err := scanFlow(r.pool.QueryRow(ctx, `
		UPDATE chatbot_flows
		SET is_active = $3, updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING `+flowColumns,
		flowID, organizationID, active,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Flow{}, ErrNotFound
	}
	return f, err
}
