package engagement

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	GetState(ctx context.Context, account string) (*EngagementState, error)
	GetBalance(ctx context.Context, account string) (*PointsBalance, error)
	// ApplyAction persists the watering outcome: state and balance update
	// together or not at all.
	ApplyAction(ctx context.Context, state *EngagementState, balance *PointsBalance) error
	SaveBalance(ctx context.Context, balance *PointsBalance) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetState(ctx context.Context, account string) (*EngagementState, error) {
	var state EngagementState
	err := r.db.GetContext(ctx, &state,
		"SELECT * FROM engagement_states WHERE account = $1", account)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading engagement state for %s: %w", account, err)
	}
	return &state, nil
}

func (r *postgresRepository) GetBalance(ctx context.Context, account string) (*PointsBalance, error) {
	var balance PointsBalance
	err := r.db.GetContext(ctx, &balance,
		"SELECT * FROM points_balances WHERE account = $1", account)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading points balance for %s: %w", account, err)
	}
	return &balance, nil
}

func (r *postgresRepository) ApplyAction(ctx context.Context, state *EngagementState, balance *PointsBalance) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning action tx: %w", err)
	}
	defer tx.Rollback()

	if err := upsertState(ctx, tx, state); err != nil {
		return err
	}
	if err := upsertBalance(ctx, tx, balance); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *postgresRepository) SaveBalance(ctx context.Context, balance *PointsBalance) error {
	return upsertBalance(ctx, r.db, balance)
}

type namedExecer interface {
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

func upsertState(ctx context.Context, e namedExecer, state *EngagementState) error {
	query := `
		INSERT INTO engagement_states (account, last_action_at, streak, lifetime_actions)
		VALUES (:account, :last_action_at, :streak, :lifetime_actions)
		ON CONFLICT (account) DO UPDATE SET
			last_action_at = :last_action_at,
			streak = :streak,
			lifetime_actions = :lifetime_actions`
	_, err := e.NamedExecContext(ctx, query, state)
	return err
}

func upsertBalance(ctx context.Context, e namedExecer, balance *PointsBalance) error {
	query := `
		INSERT INTO points_balances (account, balance)
		VALUES (:account, :balance)
		ON CONFLICT (account) DO UPDATE SET balance = :balance`
	_, err := e.NamedExecContext(ctx, query, balance)
	return err
}
