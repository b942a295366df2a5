package repository

import (
	"context"
	"errors"
	"fmt"

	"funnel_backend/internal/funnels/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CreateFunnelParams struct {
	OrganizationID uuid.UUID
	Name           string
	DisplayOrder   int
	Stages         []domain.StageTemplate
}

const stageColumns = `id, funnel_id, name, color, display_order, is_final, final_type, probability`

func scanStage(row pgx.Row) (domain.Stage, error) {
	var (
		stage     domain.Stage
		finalType *string
	)
	if err := row.Scan(
		&stage.ID,
		&stage.FunnelID,
		&stage.Name,
		&stage.Color,
		&stage.DisplayOrder,
		&stage.IsFinal,
		&finalType,
		&stage.Probability,
	); err != nil {
		return domain.Stage{}, err
	}
	if finalType != nil {
		ft := domain.FinalType(*finalType)
		stage.FinalType = &ft
	}
	return stage, nil
}

func finalTypeArg(ft *domain.FinalType) *string {
	if ft == nil {
		return nil
	}
	v := string(*ft)
	return &v
}

func (r *Repository) CreateFunnel(ctx context.Context, params CreateFunnelParams) (domain.Funnel, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Funnel{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	funnel := domain.Funnel{OrganizationID: params.OrganizationID, Name: params.Name, DisplayOrder: params.DisplayOrder}
	err = tx.QueryRow(ctx, `
		INSERT INTO funnels (organization_id, name, display_order)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, params.OrganizationID, params.Name, params.DisplayOrder).Scan(&funnel.ID, &funnel.CreatedAt, &funnel.UpdatedAt)
	if err != nil {
		return domain.Funnel{}, err
	}

	funnel.Stages = make([]domain.Stage, 0, len(params.Stages))
	for i, tpl := range params.Stages {
		stage, err := scanStage(tx.QueryRow(ctx, `
			INSERT INTO funnel_stages (funnel_id, name, color, display_order, is_final, final_type, probability)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+stageColumns,
			funnel.ID, tpl.Name, tpl.Color, i, tpl.FinalType != nil, finalTypeArg(tpl.FinalType), tpl.Probability,
		))
		if err != nil {
			return domain.Funnel{}, fmt.Errorf("insert stage %q: %w", tpl.Name, err)
		}
		funnel.Stages = append(funnel.Stages, stage)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Funnel{}, err
	}
	return funnel, nil
}

func (r *Repository) GetFunnel(ctx context.Context, funnelID uuid.UUID) (domain.Funnel, error) {
	var funnel domain.Funnel
	err := r.pool.QueryRow(ctx, `
		SELECT id, organization_id, name, display_order, created_at, updated_at
		FROM funnels
		WHERE id = $1
	`, funnelID).Scan(&funnel.ID, &funnel.OrganizationID, &funnel.Name, &funnel.DisplayOrder, &funnel.CreatedAt, &funnel.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Funnel{}, ErrNotFound
	}
	if err != nil {
		return domain.Funnel{}, err
	}

	stages, err := r.ListStages(ctx, funnelID)
	if err != nil {
		return domain.Funnel{}, err
	}
	funnel.Stages = stages
	return funnel, nil
}

func (r *Repository) ListFunnels(ctx context.Context, organizationID uuid.UUID) ([]domain.Funnel, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, name, display_order, created_at, updated_at
		FROM funnels
		WHERE organization_id = $1
		ORDER BY display_order, created_at
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	funnels := make([]domain.Funnel, 0)
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var f domain.Funnel
		if err := rows.Scan(&f.ID, &f.OrganizationID, &f.Name, &f.DisplayOrder, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		f.Stages = make([]domain.Stage, 0)
		index[f.ID] = len(funnels)
		funnels = append(funnels, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(funnels) == 0 {
		return funnels, nil
	}

	stageRows, err := r.pool.Query(ctx, `
		SELECT s.id, s.funnel_id, s.name, s.color, s.display_order, s.is_final, s.final_type, s.probability
		FROM funnel_stages s
		JOIN funnels f ON f.id = s.funnel_id
		WHERE f.organization_id = $1
		ORDER BY s.display_order, s.created_at
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer stageRows.Close()

	for stageRows.Next() {
		stage, err := scanStage(stageRows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[stage.FunnelID]; ok {
			funnels[i].Stages = append(funnels[i].Stages, stage)
		}
	}
	return funnels, stageRows.Err()
}

func (r *Repository) DeleteFunnel(ctx context.Context, organizationID, funnelID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM funnels WHERE id = $1 AND organization_id = $2`, funnelID, organizationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListStages(ctx context.Context, funnelID uuid.UUID) ([]domain.Stage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+stageColumns+`
		FROM funnel_stages
		WHERE funnel_id = $1
		ORDER BY display_order, created_at
	`, funnelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stages := make([]domain.Stage, 0)
	for rows.Next() {
		stage, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return stages, rows.Err()
}

func (r *Repository) GetStage(ctx context.Context, stageID uuid.UUID) (domain.Stage, error) {
	stage, err := scanStage(r.pool.QueryRow(ctx, `SELECT `+stageColumns+` FROM funnel_stages WHERE id = $1`, stageID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Stage{}, ErrNotFound
	}
	return stage, err
}

func (r *Repository) CreateStage(ctx context.Context, stage domain.Stage) (domain.Stage, error) {
	created, err := scanStage(r.pool.QueryRow(ctx, `
		INSERT INTO funnel_stages (funnel_id, name, color, display_order, is_final, final_type, probability)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+stageColumns,
		stage.FunnelID, stage.Name, stage.Color, stage.DisplayOrder, stage.IsFinal, finalTypeArg(stage.FinalType), stage.Probability,
	))
	if isForeignKeyViolation(err) {
		return domain.Stage{}, ErrInvalidReference
	}
	return created, err
}

func (r *Repository) UpdateStage(ctx context.Context, stage domain.Stage) (domain.Stage, error) {
	updated, err := scanStage(r.pool.QueryRow(ctx, `
		UPDATE funnel_stages
		SET name = $3, color = $4, is_final = $5, final_type = $6, probability = $7, updated_at = now()
		WHERE id = $1 AND funnel_id = $2
		RETURNING `+stageColumns,
		stage.ID, stage.FunnelID, stage.Name, stage.Color, stage.IsFinal, finalTypeArg(stage.FinalType), stage.Probability,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Stage{}, ErrNotFound
	}
	return updated, err
}

// DeleteStage refuses while deals still occupy the stage; callers move them first.
func (r *Repository) DeleteStage(ctx context.Context, funnelID, stageID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM funnel_stages WHERE id = $1 AND funnel_id = $2`, stageID, funnelID)
	if isForeignKeyViolation(err) {
		return ErrStageHasDeals
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ReorderStages(ctx context.Context, funnelID uuid.UUID, orderedIDs []uuid.UUID) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var total int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM funnel_stages WHERE funnel_id = $1`, funnelID).Scan(&total); err != nil {
		return err
	}
	if total != len(orderedIDs) {
		return ErrStagesIncomplete
	}

	for i, id := range orderedIDs {
		tag, err := tx.Exec(ctx, `
			UPDATE funnel_stages SET display_order = $3, updated_at = now()
			WHERE id = $1 AND funnel_id = $2
		`, id, funnelID, i)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrStagesIncomplete
		}
	}

	return tx.Commit(ctx)
}
