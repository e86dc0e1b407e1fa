package authority

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Get(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec *Record) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Get(ctx context.Context) (*Record, error) {
	var rec Record
	err := r.db.GetContext(ctx, &rec, "SELECT authority, pending, updated_at FROM authority LIMIT 1")
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading authority record: %w", err)
	}
	return &rec, nil
}

func (r *postgresRepository) Save(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO authority (singleton, authority, pending, updated_at)
		VALUES (TRUE, :authority, :pending, :updated_at)
		ON CONFLICT (singleton) DO UPDATE SET
			authority = :authority,
			pending = :pending,
			updated_at = :updated_at`
	_, err := r.db.NamedExecContext(ctx, query, rec)
	return err
}
