package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrStageConflict    = errors.New("deal stage changed concurrently")
	ErrInvalidReference = errors.New("referenced record does not exist")
	ErrStageHasDeals    = errors.New("stage still has deals")
	ErrStagesIncomplete = errors.New("reorder must list every stage of the funnel exactly once")
)

const pgForeignKeyViolation = "23503"

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}
