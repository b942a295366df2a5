package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"funnel_backend/internal/funnels/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Deal struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	FunnelID       uuid.UUID
	StageID        uuid.UUID
	ContactID      uuid.UUID
	Title          string
	Value          float64
	CustomFields   map[string]any
	AssignedUserID *uuid.UUID
	EnteredStageAt time.Time
	ClosedAt       *time.Time
	CloseReasonID  *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// State projects the deal onto the state-machine value.
func (d Deal) State() domain.DealState {
	return domain.DealState{
		FunnelID:       d.FunnelID,
		StageID:        d.StageID,
		EnteredStageAt: d.EnteredStageAt,
		ClosedAt:       d.ClosedAt,
	}
}

type HistoryEntry struct {
	ID               uuid.UUID
	DealID           uuid.UUID
	FromStageID      *uuid.UUID
	ToStageID        uuid.UUID
	Note             *string
	AutomationRuleID *uuid.UUID
	CreatedAt        time.Time
}

type CreateDealParams struct {
	OrganizationID uuid.UUID
	ContactID      uuid.UUID
	Title          string
	Value          float64
	CustomFields   map[string]any
	AssignedUserID *uuid.UUID
	State          domain.DealState
	Note           *string
}

// ApplyTransitionParams persists a computed transition. ExpectedStageID is
// compared against the stored stage so a concurrent move loses cleanly.
type ApplyTransitionParams struct {
	DealID           uuid.UUID
	ExpectedStageID  uuid.UUID
	Next             domain.DealState
	CloseReasonID    *uuid.UUID
	Note             *string
	AutomationRuleID *uuid.UUID
}

const dealColumns = `id, organization_id, funnel_id, stage_id, contact_id, title, value::float8, custom_fields,
	assigned_user_id, entered_stage_at, closed_at, close_reason_id, created_at, updated_at`

func scanDeal(row pgx.Row) (Deal, error) {
	var d Deal
	err := row.Scan(
		&d.ID,
		&d.OrganizationID,
		&d.FunnelID,
		&d.StageID,
		&d.ContactID,
		&d.Title,
		&d.Value,
		&d.CustomFields,
		&d.AssignedUserID,
		&d.EnteredStageAt,
		&d.ClosedAt,
		&d.CloseReasonID,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if d.CustomFields == nil {
		d.CustomFields = map[string]any{}
	}
	return d, err
}

func insertHistory(ctx context.Context, tx pgx.Tx, entry HistoryEntry) (HistoryEntry, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO deal_history (deal_id, from_stage_id, to_stage_id, note, automation_rule_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, entry.DealID, entry.FromStageID, entry.ToStageID, entry.Note, entry.AutomationRuleID).Scan(&entry.ID, &entry.CreatedAt)
	return entry, err
}

func (r *Repository) CreateDeal(ctx context.Context, params CreateDealParams) (Deal, HistoryEntry, error) {
	customFields := params.CustomFields
	if customFields == nil {
		customFields = map[string]any{}
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Deal{}, HistoryEntry{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	deal, err := scanDeal(tx.QueryRow(ctx, `
		INSERT INTO deals (organization_id, funnel_id, stage_id, contact_id, title, value, custom_fields,
			assigned_user_id, entered_stage_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+dealColumns,
		params.OrganizationID, params.State.FunnelID, params.State.StageID, params.ContactID, params.Title,
		params.Value, customFields, params.AssignedUserID, params.State.EnteredStageAt, params.State.ClosedAt,
	))
	if isForeignKeyViolation(err) {
		return Deal{}, HistoryEntry{}, ErrInvalidReference
	}
	if err != nil {
		return Deal{}, HistoryEntry{}, err
	}

	entry, err := insertHistory(ctx, tx, HistoryEntry{DealID: deal.ID, ToStageID: deal.StageID, Note: params.Note})
	if err != nil {
		return Deal{}, HistoryEntry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Deal{}, HistoryEntry{}, err
	}
	return deal, entry, nil
}

func (r *Repository) GetDeal(ctx context.Context, dealID uuid.UUID) (Deal, error) {
	deal, err := scanDeal(r.pool.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1`, dealID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Deal{}, ErrNotFound
	}
	return deal, err
}

// ApplyTransition writes the new stage and one history row in a single
// transaction. The UPDATE only matches while stage_id still equals
// ExpectedStageID; otherwise ErrStageConflict is returned and nothing is written.
func (r *Repository) ApplyTransition(ctx context.Context, params ApplyTransitionParams) (Deal, HistoryEntry, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Deal{}, HistoryEntry{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	deal, err := scanDeal(tx.QueryRow(ctx, `
		UPDATE deals
		SET stage_id = $3,
			entered_stage_at = $4,
			closed_at = $5,
			close_reason_id = CASE WHEN $5::timestamptz IS NULL THEN NULL ELSE COALESCE($6, close_reason_id) END,
			updated_at = now()
		WHERE id = $1 AND stage_id = $2
		RETURNING `+dealColumns,
		params.DealID, params.ExpectedStageID, params.Next.StageID, params.Next.EnteredStageAt, params.Next.ClosedAt, params.CloseReasonID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Deal{}, HistoryEntry{}, ErrStageConflict
	}
	if isForeignKeyViolation(err) {
		return Deal{}, HistoryEntry{}, ErrInvalidReference
	}
	if err != nil {
		return Deal{}, HistoryEntry{}, err
	}

	from := params.ExpectedStageID
	entry, err := insertHistory(ctx, tx, HistoryEntry{
		DealID:           deal.ID,
		FromStageID:      &from,
		ToStageID:        deal.StageID,
		Note:             params.Note,
		AutomationRuleID: params.AutomationRuleID,
	})
	if err != nil {
		return Deal{}, HistoryEntry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Deal{}, HistoryEntry{}, err
	}
	return deal, entry, nil
}

func (r *Repository) ListHistory(ctx context.Context, dealID uuid.UUID) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, deal_id, from_stage_id, to_stage_id, note, automation_rule_id, created_at
		FROM deal_history
		WHERE deal_id = $1
		ORDER BY created_at, id
	`, dealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0)
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.DealID, &e.FromStageID, &e.ToStageID, &e.Note, &e.AutomationRuleID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SetCustomField merges a single key into custom_fields.
func (r *Repository) SetCustomField(ctx context.Context, dealID uuid.UUID, key string, value any) (Deal, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return Deal{}, err
	}
	deal, err := scanDeal(r.pool.QueryRow(ctx, `
		UPDATE deals
		SET custom_fields = custom_fields || jsonb_build_object($2::text, $3::jsonb), updated_at = now()
		WHERE id = $1
		RETURNING `+dealColumns,
		dealID, key, string(encoded),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Deal{}, ErrNotFound
	}
	return deal, err
}

func (r *Repository) SetValue(ctx context.Context, dealID uuid.UUID, value float64) (Deal, error) {
	deal, err := scanDeal(r.pool.QueryRow(ctx, `
		UPDATE deals SET value = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+dealColumns,
		dealID, value,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Deal{}, ErrNotFound
	}
	return deal, err
}

func (r *Repository) SetAssignedUser(ctx context.Context, dealID uuid.UUID, userID uuid.UUID) (Deal, error) {
	deal, err := scanDeal(r.pool.QueryRow(ctx, `
		UPDATE deals SET assigned_user_id = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+dealColumns,
		dealID, userID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Deal{}, ErrNotFound
	}
	return deal, err
}
