package purchases

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	// Create assigns the next purchase id and persists the record.
	Create(ctx context.Context, p *Purchase) error
	Get(ctx context.Context, id uint64) (*Purchase, error)
	ListByBuyer(ctx context.Context, buyer string) ([]Purchase, error)
	CountByBuyer(ctx context.Context, buyer string) (uint64, error)
	Total(ctx context.Context) (uint64, error)
	SetProcessed(ctx context.Context, id uint64) error
	SetCertificateMinted(ctx context.Context, id uint64) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// Create allocates the id inside a transaction so ids stay gapless even under
// concurrent writers.
func (r *postgresRepository) Create(ctx context.Context, p *Purchase) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning purchase tx: %w", err)
	}
	defer tx.Rollback()

	var next uint64
	if err := tx.GetContext(ctx, &next, "SELECT COALESCE(MAX(id)+1, 0) FROM purchases"); err != nil {
		return fmt.Errorf("allocating purchase id: %w", err)
	}
	p.ID = next

	query := `
		INSERT INTO purchases (
			id, buyer, species_id, project_id, amount_paid_wei, ref_price,
			tx_ref, processed, certificate_minted, created_at
		) VALUES (
			:id, :buyer, :species_id, :project_id, :amount_paid_wei, :ref_price,
			:tx_ref, :processed, :certificate_minted, :created_at
		)`
	if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("inserting purchase: %w", err)
	}
	return tx.Commit()
}

func (r *postgresRepository) Get(ctx context.Context, id uint64) (*Purchase, error) {
	var p Purchase
	err := r.db.GetContext(ctx, &p, "SELECT * FROM purchases WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading purchase %d: %w", id, err)
	}
	return &p, nil
}

func (r *postgresRepository) ListByBuyer(ctx context.Context, buyer string) ([]Purchase, error) {
	var out []Purchase
	err := r.db.SelectContext(ctx, &out, "SELECT * FROM purchases WHERE buyer = $1 ORDER BY id", buyer)
	return out, err
}

func (r *postgresRepository) CountByBuyer(ctx context.Context, buyer string) (uint64, error) {
	var count uint64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM purchases WHERE buyer = $1", buyer)
	return count, err
}

func (r *postgresRepository) Total(ctx context.Context) (uint64, error) {
	var count uint64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM purchases")
	return count, err
}

func (r *postgresRepository) SetProcessed(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE purchases SET processed = TRUE WHERE id = $1 AND processed = FALSE", id)
	if err != nil {
		return err
	}
	return requireOneRow(res, "purchase %d already processed or missing", id)
}

func (r *postgresRepository) SetCertificateMinted(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE purchases SET certificate_minted = TRUE WHERE id = $1 AND processed = TRUE AND certificate_minted = FALSE", id)
	if err != nil {
		return err
	}
	return requireOneRow(res, "purchase %d not mintable", id)
}

func requireOneRow(res sql.Result, format string, args ...interface{}) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf(format, args...)
	}
	return nil
}
