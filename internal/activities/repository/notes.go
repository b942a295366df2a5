package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const noteColumns = `id, organization_id, deal_id, contact_id, body, automation_rule_id, created_at`

func scanNote(row pgx.Row) (Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.OrganizationID, &n.DealID, &n.ContactID, &n.Body, &n.AutomationRuleID, &n.CreatedAt)
	return n, err
}

func (r *Repository) CreateNote(ctx context.Context, note Note) (Note, error) {
	created, err := scanNote(r.pool.QueryRow(ctx, `
		INSERT INTO deal_notes (organization_id, deal_id, contact_id, body, automation_rule_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+noteColumns,
		note.OrganizationID, note.DealID, note.ContactID, note.Body, note.AutomationRuleID,
	))
	if isForeignKeyViolation(err) {
		return Note{}, ErrInvalidReference
	}
	return created, err
}

func (r *Repository) CreateDealNote(ctx context.Context, organizationID, dealID uuid.UUID, body string) (Note, error) {
	created, err := scanNote(r.pool.QueryRow(ctx, `
		INSERT INTO deal_notes (organization_id, deal_id, contact_id, body)
		SELECT d.organization_id, d.id, d.contact_id, $3
		FROM deals d
		WHERE d.id = $1 AND d.organization_id = $2
		RETURNING `+noteColumns,
		dealID, organizationID, body,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	return created, err
}

func (r *Repository) ListNotes(ctx context.Context, organizationID, dealID uuid.UUID) ([]Note, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+noteColumns+`
		FROM deal_notes
		WHERE deal_id = $1 AND organization_id = $2
		ORDER BY created_at DESC
	`, dealID, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
