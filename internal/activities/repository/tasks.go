package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const taskColumns = `id, organization_id, deal_id, contact_id, assignee_id, title, description, due_at, status,
	automation_rule_id, reminded_at, created_at, completed_at`

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	err := row.Scan(
		&t.ID,
		&t.OrganizationID,
		&t.DealID,
		&t.ContactID,
		&t.AssigneeID,
		&t.Title,
		&t.Description,
		&t.DueAt,
		&t.Status,
		&t.AutomationRuleID,
		&t.RemindedAt,
		&t.CreatedAt,
		&t.CompletedAt,
	)
	return t, err
}

func (r *Repository) CreateTask(ctx context.Context, task Task) (Task, error) {
	created, err := scanTask(r.pool.QueryRow(ctx, `
		INSERT INTO deal_tasks (organization_id, deal_id, contact_id, assignee_id, title, description, due_at,
			automation_rule_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+taskColumns,
		task.OrganizationID, task.DealID, task.ContactID, task.AssigneeID, task.Title, task.Description, task.DueAt,
		task.AutomationRuleID,
	))
	if isForeignKeyViolation(err) {
		return Task{}, ErrInvalidReference
	}
	return created, err
}

func (r *Repository) ListTasks(ctx context.Context, organizationID, dealID uuid.UUID) ([]Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM deal_tasks
		WHERE deal_id = $1 AND organization_id = $2
		ORDER BY due_at, created_at
	`, dealID, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *Repository) SetTaskStatus(ctx context.Context, organizationID, taskID uuid.UUID, status string) (Task, error) {
	task, err := scanTask(r.pool.QueryRow(ctx, `
		UPDATE deal_tasks
		SET status = $3,
			completed_at = CASE WHEN $3 = 'open' THEN NULL ELSE now() END
		WHERE id = $1 AND organization_id = $2
		RETURNING `+taskColumns,
		taskID, organizationID, status,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return task, err
}

func (r *Repository) ClaimReminder(ctx context.Context, organizationID, taskID uuid.UUID) (DueTask, bool, error) {
	var due DueTask
	err := r.pool.QueryRow(ctx, `
		UPDATE deal_tasks t
		SET reminded_at = now()
		FROM deals d
		WHERE t.id = $1
			AND t.organization_id = $2
			AND t.status = 'open'
			AND t.reminded_at IS NULL
			AND d.id = t.deal_id
		RETURNING t.id, t.organization_id, t.deal_id, t.title, t.description, t.due_at, d.title
	`, taskID, organizationID).Scan(
		&due.ID,
		&due.OrganizationID,
		&due.DealID,
		&due.Title,
		&due.Description,
		&due.DueAt,
		&due.DealTitle,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return DueTask{}, false, nil
	}
	if err != nil {
		return DueTask{}, false, err
	}
	return due, true, nil
}
