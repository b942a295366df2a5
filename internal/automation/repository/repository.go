package repository

import (
	"context"
	"errors"

	"funnel_backend/internal/automation/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound         = errors.New("automation rule not found")
	ErrInvalidReference = errors.New("funnel or stage does not exist")
)

// RuleStore is the storage contract for automation rules.
type RuleStore interface {
	// ListDispatchable returns active rules of the funnel whose trigger type
	// is one of triggers.
	ListDispatchable(ctx context.Context, funnelID uuid.UUID, triggers []domain.TriggerType) ([]domain.Rule, error)
	ListByFunnel(ctx context.Context, organizationID, funnelID uuid.UUID) ([]domain.Rule, error)
	Get(ctx context.Context, organizationID, ruleID uuid.UUID) (domain.Rule, error)
	Create(ctx context.Context, rule domain.Rule) (domain.Rule, error)
	Update(ctx context.Context, rule domain.Rule) (domain.Rule, error)
	SetActive(ctx context.Context, organizationID, ruleID uuid.UUID, active bool) (domain.Rule, error)
	Delete(ctx context.Context, organizationID, ruleID uuid.UUID) error
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ RuleStore = (*Repository)(nil)

const ruleColumns = `id, organization_id, funnel_id, stage_id, name, is_active, trigger_type, trigger_config,
	action_type, action_config, created_at, updated_at`

func scanRule(row pgx.Row) (domain.Rule, error) {
	var (
		r           domain.Rule
		triggerType string
		actionType  string
	)
	err := row.Scan(
		&r.ID,
		&r.OrganizationID,
		&r.FunnelID,
		&r.StageID,
		&r.Name,
		&r.IsActive,
		&triggerType,
		&r.TriggerConfig,
		&actionType,
		&r.ActionConfig,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	r.TriggerType = domain.TriggerType(triggerType)
	r.ActionType = domain.ActionType(actionType)
	if r.TriggerConfig == nil {
		r.TriggerConfig = map[string]any{}
	}
	if r.ActionConfig == nil {
		r.ActionConfig = map[string]any{}
	}
	return r, err
}

func collectRules(rows pgx.Rows) ([]domain.Rule, error) {
	defer rows.Close()
	rules := make([]domain.Rule, 0)
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (r *Repository) ListDispatchable(ctx context.Context, funnelID uuid.UUID, triggers []domain.TriggerType) ([]domain.Rule, error) {
	if len(triggers) == 0 {
		return []domain.Rule{}, nil
	}
	names := make([]string, 0, len(triggers))
	for _, t := range triggers {
		names = append(names, string(t))
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM automation_rules
		WHERE funnel_id = $1 AND is_active = TRUE AND trigger_type = ANY($2)
		ORDER BY created_at, id
	`, funnelID, names)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

func (r *Repository) ListByFunnel(ctx context.Context, organizationID, funnelID uuid.UUID) ([]domain.Rule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM automation_rules
		WHERE organization_id = $1 AND funnel_id = $2
		ORDER BY created_at, id
	`, organizationID, funnelID)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

func (r *Repository) Get(ctx context.Context, organizationID, ruleID uuid.UUID) (domain.Rule, error) {
	rule, err := scanRule(r.pool.QueryRow(ctx, `
		SELECT `+ruleColumns+` FROM automation_rules WHERE id = $1 AND organization_id = $2
	`, ruleID, organizationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Rule{}, ErrNotFound
	}
	return rule, err
}

func (r *Repository) Create(ctx context.Context, rule domain.Rule) (domain.Rule, error) {
	created, err := scanRule(r.pool.QueryRow(ctx, `
		INSERT INTO automation_rules (organization_id, funnel_id, stage_id, name, is_active,
			trigger_type, trigger_config, action_type, action_config)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+ruleColumns,
		rule.OrganizationID, rule.FunnelID, rule.StageID, rule.Name, rule.IsActive,
		string(rule.TriggerType), rule.TriggerConfig, string(rule.ActionType), rule.ActionConfig,
	))
	if isForeignKeyViolation(err) {
		return domain.Rule{}, ErrInvalidReference
	}
	return created, err
}

func (r *Repository) Update(ctx context.Context, rule domain.Rule) (domain.Rule, error) {
	updated, err := scanRule(r.pool.QueryRow(ctx, `
		UPDATE automation_rules
		SET stage_id = $3, name = $4, is_active = $5, trigger_type = $6, trigger_config = $7,
			action_type = $8, action_config = $9, updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING `+ruleColumns,
		rule.ID, rule.OrganizationID, rule.StageID, rule.Name, rule.IsActive,
		string(rule.TriggerType), rule.TriggerConfig, string(rule.ActionType), rule.ActionConfig,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Rule{}, ErrNotFound
	}
	if isForeignKeyViolation(err) {
		return domain.Rule{}, ErrInvalidReference
	}
	return updated, err
}

func (r *Repository) SetActive(ctx context.Context, organizationID, ruleID uuid.UUID, active bool) (domain.Rule, error) {
	rule, err := scanRule(r.pool.QueryRow(ctx, `
		UPDATE automation_rules SET is_active = $3, updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING `+ruleColumns,
		ruleID, organizationID, active,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Rule{}, ErrNotFound
	}
	return rule, err
}

func (r *Repository) Delete(ctx context.Context, organizationID, ruleID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM automation_rules WHERE id = $1 AND organization_id = $2`, ruleID, organizationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
