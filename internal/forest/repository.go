package forest

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Get(ctx context.Context, account string) (*VirtualTreeState, error)
	Save(ctx context.Context, state *VirtualTreeState) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Get(ctx context.Context, account string) (*VirtualTreeState, error) {
	var state VirtualTreeState
	err := r.db.GetContext(ctx, &state,
		"SELECT * FROM virtual_tree_states WHERE account = $1", account)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading virtual tree state for %s: %w", account, err)
	}
	return &state, nil
}

func (r *postgresRepository) Save(ctx context.Context, state *VirtualTreeState) error {
	query := `
		INSERT INTO virtual_tree_states (account, free_claimed, virtual_trees, updated_at)
		VALUES (:account, :free_claimed, :virtual_trees, :updated_at)
		ON CONFLICT (account) DO UPDATE SET
			free_claimed = :free_claimed,
			virtual_trees = :virtual_trees,
			updated_at = :updated_at`
	_, err := r.db.NamedExecContext(ctx, query, state)
	return err
}
