package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("contact not found")

type Contact struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Phone          string
	Email          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ContactStore reads contacts and manages their tags. Tag names are unique
// per organization regardless of case.
type ContactStore interface {
	GetContact(ctx context.Context, contactID uuid.UUID) (Contact, error)
	ListContacts(ctx context.Context, organizationID uuid.UUID, limit int) ([]Contact, error)
	CreateContact(ctx context.Context, contact Contact) (Contact, error)
	ListTags(ctx context.Context, contactID uuid.UUID) ([]string, error)
	AddTag(ctx context.Context, organizationID, contactID uuid.UUID, tagName string) error
	RemoveTag(ctx context.Context, organizationID, contactID uuid.UUID, tagName string) (bool, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ ContactStore = (*Repository)(nil)

const contactColumns = `id, organization_id, name, phone, email, created_at, updated_at`

func scanContact(row pgx.Row) (Contact, error) {
	var c Contact
	err := row.Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *Repository) GetContact(ctx context.Context, contactID uuid.UUID) (Contact, error) {
	c, err := scanContact(r.pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, contactID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	return c, err
}

func (r *Repository) ListContacts(ctx context.Context, organizationID uuid.UUID, limit int) ([]Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, organizationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := make([]Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (r *Repository) CreateContact(ctx context.Context, contact Contact) (Contact, error) {
	return scanContact(r.pool.QueryRow(ctx, `
		INSERT INTO contacts (organization_id, name, phone, email)
		VALUES ($1, $2, $3, $4)
		RETURNING `+contactColumns,
		contact.OrganizationID, contact.Name, contact.Phone, contact.Email,
	))
}

func (r *Repository) ListTags(ctx context.Context, contactID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.name
		FROM contact_tags ct
		JOIN tags t ON t.id = ct.tag_id
		WHERE ct.contact_id = $1
		ORDER BY lower(t.name)
	`, contactID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// AddTag finds or creates the organization's tag and attaches it. Attaching
// a tag the contact already carries is a no-op.
func (r *Repository) AddTag(ctx context.Context, organizationID, contactID uuid.UUID, tagName string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var tagID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO tags (organization_id, name)
		VALUES ($1, $2)
		ON CONFLICT (organization_id, (lower(name))) DO UPDATE SET name = tags.name
		RETURNING id
	`, organizationID, tagName).Scan(&tagID)
	if err != nil {
		return err
	}

	res, err := tx.Exec(ctx, `
		INSERT INTO contact_tags (contact_id, tag_id)
		SELECT id, $2 FROM contacts WHERE id = $1 AND organization_id = $3
		ON CONFLICT DO NOTHING
	`, contactID, tagID, organizationID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM contacts WHERE id = $1 AND organization_id = $2)`, contactID, organizationID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}

	return tx.Commit(ctx)
}

// RemoveTag detaches a tag by name. It reports false when the contact did
// not carry the tag or the tag does not exist.
func (r *Repository) RemoveTag(ctx context.Context, organizationID, contactID uuid.UUID, tagName string) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		DELETE FROM contact_tags ct
		USING tags t
		WHERE ct.tag_id = t.id
			AND ct.contact_id = $1
			AND t.organization_id = $2
			AND lower(t.name) = lower($3)
	`, contactID, organizationID, tagName)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}
