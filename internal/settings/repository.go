package settings

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Get(ctx context.Context) (*EconomyParams, error)
	Save(ctx context.Context, params *EconomyParams) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Get(ctx context.Context) (*EconomyParams, error) {
	var params EconomyParams
	err := r.db.GetContext(ctx, &params, `
		SELECT cooldown_seconds, min_purchase_wei, points_per_action,
			streak_bonus_per_day, max_streak_bonus_days, points_per_virtual_tree, updated_at
		FROM economy_params LIMIT 1`)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading economy params: %w", err)
	}
	return &params, nil
}

func (r *postgresRepository) Save(ctx context.Context, params *EconomyParams) error {
	query := `
		INSERT INTO economy_params (
			singleton, cooldown_seconds, min_purchase_wei, points_per_action,
			streak_bonus_per_day, max_streak_bonus_days, points_per_virtual_tree, updated_at
		) VALUES (
			TRUE, :cooldown_seconds, :min_purchase_wei, :points_per_action,
			:streak_bonus_per_day, :max_streak_bonus_days, :points_per_virtual_tree, :updated_at
		)
		ON CONFLICT (singleton) DO UPDATE SET
			cooldown_seconds = :cooldown_seconds,
			min_purchase_wei = :min_purchase_wei,
			points_per_action = :points_per_action,
			streak_bonus_per_day = :streak_bonus_per_day,
			max_streak_bonus_days = :max_streak_bonus_days,
			points_per_virtual_tree = :points_per_virtual_tree,
			updated_at = :updated_at`
	_, err := r.db.NamedExecContext(ctx, query, params)
	return err
}
