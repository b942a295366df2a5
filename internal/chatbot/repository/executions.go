package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Executions carry no organization column; it is read through the flow.
const executionColumns = `e.id, e.flow_id, f.organization_id, e.deal_id, e.contact_id, e.status, e.variables,
	e.automation_rule_id, e.created_at`

func scanExecution(row pgx.Row) (Execution, error) {
	var e Execution
	err := row.Scan(
		&e.ID,
		&e.FlowID,
		&e.OrganizationID,
		&e.DealID,
		&e.ContactID,
		&e.Status,
		&e.Variables,
		&e.AutomationRuleID,
		&e.CreatedAt,
	)
	if e.Variables == nil {
		e.Variables = map[string]any{}
	}
	return e, err
}

func collectExecutions(rows pgx.Rows) ([]Execution, error) {
	defer rows.Close()
	execs := make([]Execution, 0)
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, e)
	}
	return execs, rows.Err()
}

func (r *Repository) CreateExecution(ctx context.Context, exec Execution) (Execution, error) {
	variables := exec.Variables
	if variables == nil {
		variables = map[string]any{}
	}
	created, err := scanExecution(r.pool.QueryRow(ctx, `
		WITH e AS (
			INSERT INTO chatbot_flow_executions (flow_id, deal_id, contact_id, status, variables, automation_rule_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING *
		)
		SELECT `+executionColumns+`
		FROM e
		JOIN chatbot_flows f ON f.id = e.flow_id
	`, exec.FlowID, exec.DealID, exec.ContactID, ExecutionPending, variables, exec.AutomationRuleID))
	if isForeignKeyViolation(err) {
		return Execution{}, ErrInvalidReference
	}
	return created, err
}

func (r *Repository) ListDealExecutions(ctx context.Context, organizationID, dealID uuid.UUID) ([]Execution, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+executionColumns+`
		FROM chatbot_flow_executions e
		JOIN chatbot_flows f ON f.id = e.flow_id
		WHERE e.deal_id = $1 AND f.organization_id = $2
		ORDER BY e.created_at DESC
	`, dealID, organizationID)
	if err != nil {
		return nil, err
	}
	return collectExecutions(rows)
}

func (r *Repository) MarkQueued(ctx context.Context, executionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE chatbot_flow_executions SET status = $2 WHERE id = $1 AND status = $3
	`, executionID, ExecutionQueued, ExecutionPending)
	return err
}

func (r *Repository) ClaimPending(ctx context.Context, createdBefore time.Time, limit int) ([]Execution, error) {
	rows, err := r.pool.Query(ctx, `
		WITH e AS (
			UPDATE chatbot_flow_executions
			SET status = $3
			WHERE id IN (
				SELECT id
				FROM chatbot_flow_executions
				WHERE status = $1 AND created_at < $2
				ORDER BY created_at
				LIMIT $4
				FOR UPDATE SKIP LOCKED
			)
			RETURNING *
		)
		SELECT `+executionColumns+`
		FROM e
		JOIN chatbot_flows f ON f.id = e.flow_id
	`, ExecutionPending, createdBefore, ExecutionQueued, limit)
	if err != nil {
		return nil, err
	}
	return collectExecutions(rows)
}

func (r *Repository) ReleasePending(ctx context.Context, executionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE chatbot_flow_executions SET status = $2 WHERE id = $1 AND status = $3
	`, executionID, ExecutionPending, ExecutionQueued)
	return err
}

func (r *Repository) ExpirePending(ctx context.Context, createdBefore time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE chatbot_flow_executions SET status = $2 WHERE status = $1 AND created_at < $3
	`, ExecutionPending, ExecutionExpired, createdBefore)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
