package certificates

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	// Create assigns the next certificate id and persists the record.
	Create(ctx context.Context, cert *Certificate) error
	Get(ctx context.Context, id uint64) (*Certificate, error)
	GetByPurchase(ctx context.Context, purchaseID uint64) (*Certificate, error)
	ListByOwner(ctx context.Context, owner string) ([]Certificate, error)
	UpdateOwner(ctx context.Context, id uint64, owner string) error
	// Delete removes a certificate; used to roll back a mint whose
	// purchase-side flag flip failed.
	Delete(ctx context.Context, id uint64) error
	Total(ctx context.Context) (uint64, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, cert *Certificate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning certificate tx: %w", err)
	}
	defer tx.Rollback()

	var next uint64
	if err := tx.GetContext(ctx, &next, "SELECT COALESCE(MAX(id)+1, 0) FROM certificates"); err != nil {
		return fmt.Errorf("allocating certificate id: %w", err)
	}
	cert.ID = next

	query := `
		INSERT INTO certificates (
			id, purchase_id, owner, metadata_uri, planting_ref, minted_at
		) VALUES (
			:id, :purchase_id, :owner, :metadata_uri, :planting_ref, :minted_at
		)`
	if _, err := tx.NamedExecContext(ctx, query, cert); err != nil {
		return fmt.Errorf("inserting certificate: %w", err)
	}
	return tx.Commit()
}

func (r *postgresRepository) Get(ctx context.Context, id uint64) (*Certificate, error) {
	var cert Certificate
	err := r.db.GetContext(ctx, &cert, "SELECT * FROM certificates WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading certificate %d: %w", id, err)
	}
	return &cert, nil
}

func (r *postgresRepository) GetByPurchase(ctx context.Context, purchaseID uint64) (*Certificate, error) {
	var cert Certificate
	err := r.db.GetContext(ctx, &cert, "SELECT * FROM certificates WHERE purchase_id = $1", purchaseID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading certificate for purchase %d: %w", purchaseID, err)
	}
	return &cert, nil
}

func (r *postgresRepository) ListByOwner(ctx context.Context, owner string) ([]Certificate, error) {
	var out []Certificate
	err := r.db.SelectContext(ctx, &out, "SELECT * FROM certificates WHERE owner = $1 ORDER BY id", owner)
	return out, err
}

func (r *postgresRepository) UpdateOwner(ctx context.Context, id uint64, owner string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE certificates SET owner = $1 WHERE id = $2", owner, id)
	return err
}

func (r *postgresRepository) Delete(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM certificates WHERE id = $1", id)
	return err
}

func (r *postgresRepository) Total(ctx context.Context) (uint64, error) {
	var count uint64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM certificates")
	return count, err
}
