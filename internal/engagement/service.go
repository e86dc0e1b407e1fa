package engagement

import (
	"context"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/canopylabs/treeledger/internal/authority"
	"github.com/canopylabs/treeledger/internal/events"
	"github.com/canopylabs/treeledger/internal/settings"
	"github.com/canopylabs/treeledger/pkg/clock"
	"github.com/canopylabs/treeledger/pkg/errs"
)

// ParamsSource supplies the running economy parameters.
type ParamsSource interface {
	Get(ctx context.Context) (*settings.EconomyParams, error)
}

// TreeCounter supplies an account's total tree count, real plus virtual.
// Watering is gated on owning at least one tree.
type TreeCounter interface {
	TotalTrees(ctx context.Context, account common.Address) (uint64, error)
}

type Service interface {
	Water(ctx context.Context, account common.Address) (*ActionResult, error)
	Preview(ctx context.Context, account common.Address) (*Projection, error)
	CanWater(ctx context.Context, account common.Address) (bool, int64, error)
	State(ctx context.Context, account common.Address) (*EngagementState, error)
	Balance(ctx context.Context, account common.Address) (uint64, error)
	GrantPoints(ctx context.Context, caller, account common.Address, amount uint64) error
	// SpendPoints debits the balance; redemption's half of the atomic swap.
	SpendPoints(ctx context.Context, account common.Address, amount uint64) error
	// RefundPoints re-credits a debit whose downstream write failed.
	RefundPoints(ctx context.Context, account common.Address, amount uint64) error
}

type engagementService struct {
	repo   Repository
	params ParamsSource
	trees  TreeCounter
	guard  authority.Guard
	events events.Publisher
	clock  clock.Clock
	logger *zap.Logger

	// mu serializes watering and point movements so state, streak, lifetime
	// count and balance move together.
	mu sync.Mutex
}

func NewService(repo Repository, params ParamsSource, trees TreeCounter, guard authority.Guard,
	pub events.Publisher, clk clock.Clock, logger *zap.Logger) Service {
	return &engagementService{
		repo:   repo,
		params: params,
		trees:  trees,
		guard:  guard,
		events: pub,
		clock:  clk,
		logger: logger,
	}
}

// nextStreak applies the streak policy for an action happening at now.
func nextStreak(state *EngagementState, now, cooldown int64) uint64 {
	if state.LastActionAt == 0 {
		return 1
	}
	if now-state.LastActionAt > 2*cooldown {
		// Missed the window, start over.
		return 1
	}
	return state.Streak + 1
}

// streakBonus is capped at maxDays worth of bonus and only applies once a
// streak is running.
func streakBonus(streak, bonusPerDay, maxDays uint64) uint64 {
	if streak <= 1 {
		return 0
	}
	days := streak - 1
	if days > maxDays {
		days = maxDays
	}
	return days * bonusPerDay
}

func (s *engagementService) Water(ctx context.Context, account common.Address) (*ActionResult, error) {
	params, err := s.params.Get(ctx)
	if err != nil {
		return nil, err
	}
	trees, err := s.trees.TotalTrees(ctx, account)
	if err != nil {
		return nil, err
	}
	if trees == 0 {
		return nil, errs.Conflict("account %s has no trees to water", account.Hex())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(account.Hex())
	state, err := s.repo.GetState(ctx, key)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &EngagementState{Account: key}
	}

	now := s.clock.Now().Unix()
	if state.LastActionAt != 0 && now <= state.LastActionAt+params.CooldownSeconds {
		remaining := state.LastActionAt + params.CooldownSeconds - now
		return nil, errs.Conflict("cooldown not elapsed, %d seconds remaining", remaining)
	}

	streak := nextStreak(state, now, params.CooldownSeconds)
	base := params.PointsPerAction * trees
	bonus := streakBonus(streak, params.StreakBonusPerDay, params.MaxStreakBonusDays)
	earned := base + bonus

	balance, err := s.repo.GetBalance(ctx, key)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		balance = &PointsBalance{Account: key}
	}

	state.LastActionAt = now
	state.Streak = streak
	state.LifetimeActions++
	balance.Balance += earned
	if err := s.repo.ApplyAction(ctx, state, balance); err != nil {
		return nil, err
	}

	result := &ActionResult{
		Streak:          streak,
		BasePoints:      base,
		StreakBonus:     bonus,
		PointsEarned:    earned,
		TotalPoints:     balance.Balance,
		LifetimeActions: state.LifetimeActions,
	}
	s.events.Publish(ctx, events.Event{
		Type:    events.TypeActionPerformed,
		Account: key,
		Payload: map[string]interface{}{
			"streak":        result.Streak,
			"base_points":   result.BasePoints,
			"streak_bonus":  result.StreakBonus,
			"points_earned": result.PointsEarned,
			"total_points":  result.TotalPoints,
			"trees":         trees,
		},
	})
	s.logger.Info("tree watered",
		zap.String("account", key),
		zap.Uint64("streak", result.Streak),
		zap.Uint64("points_earned", result.PointsEarned))
	return result, nil
}

// Preview replicates the watering arithmetic without mutating anything.
func (s *engagementService) Preview(ctx context.Context, account common.Address) (*Projection, error) {
	params, err := s.params.Get(ctx)
	if err != nil {
		return nil, err
	}
	trees, err := s.trees.TotalTrees(ctx, account)
	if err != nil {
		return nil, err
	}

	key := strings.ToLower(account.Hex())
	state, err := s.repo.GetState(ctx, key)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &EngagementState{Account: key}
	}

	streak := nextStreak(state, s.clock.Now().Unix(), params.CooldownSeconds)
	base := params.PointsPerAction * trees
	bonus := streakBonus(streak, params.StreakBonusPerDay, params.MaxStreakBonusDays)
	return &Projection{
		Streak:      streak,
		BasePoints:  base,
		StreakBonus: bonus,
		Total:       base + bonus,
	}, nil
}

func (s *engagementService) CanWater(ctx context.Context, account common.Address) (bool, int64, error) {
	params, err := s.params.Get(ctx)
	if err != nil {
		return false, 0, err
	}
	state, err := s.repo.GetState(ctx, strings.ToLower(account.Hex()))
	if err != nil {
		return false, 0, err
	}
	if state == nil || state.LastActionAt == 0 {
		return true, 0, nil
	}
	now := s.clock.Now().Unix()
	if now > state.LastActionAt+params.CooldownSeconds {
		return true, 0, nil
	}
	return false, state.LastActionAt + params.CooldownSeconds - now, nil
}

func (s *engagementService) State(ctx context.Context, account common.Address) (*EngagementState, error) {
	key := strings.ToLower(account.Hex())
	state, err := s.repo.GetState(ctx, key)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &EngagementState{Account: key}
	}
	return state, nil
}

func (s *engagementService) Balance(ctx context.Context, account common.Address) (uint64, error) {
	balance, err := s.repo.GetBalance(ctx, strings.ToLower(account.Hex()))
	if err != nil {
		return 0, err
	}
	if balance == nil {
		return 0, nil
	}
	return balance.Balance, nil
}

func (s *engagementService) GrantPoints(ctx context.Context, caller, account common.Address, amount uint64) error {
	if err := s.guard.Require(ctx, caller); err != nil {
		return err
	}
	if amount == 0 {
		return errs.Validation("grant amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(account.Hex())
	balance, err := s.repo.GetBalance(ctx, key)
	if err != nil {
		return err
	}
	if balance == nil {
		balance = &PointsBalance{Account: key}
	}
	balance.Balance += amount
	if err := s.repo.SaveBalance(ctx, balance); err != nil {
		return err
	}

	s.events.Publish(ctx, events.Event{
		Type:    events.TypePointsGranted,
		Account: key,
		Payload: map[string]interface{}{
			"amount":      amount,
			"new_balance": balance.Balance,
			"granted_by":  caller.Hex(),
		},
	})
	s.logger.Info("points granted",
		zap.String("account", key),
		zap.Uint64("amount", amount))
	return nil
}

func (s *engagementService) SpendPoints(ctx context.Context, account common.Address, amount uint64) error {
	if amount == 0 {
		return errs.Validation("spend amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(account.Hex())
	balance, err := s.repo.GetBalance(ctx, key)
	if err != nil {
		return err
	}
	if balance == nil || balance.Balance < amount {
		have := uint64(0)
		if balance != nil {
			have = balance.Balance
		}
		return errs.Conflict("insufficient points: have %d, need %d", have, amount)
	}
	balance.Balance -= amount
	return s.repo.SaveBalance(ctx, balance)
}

func (s *engagementService) RefundPoints(ctx context.Context, account common.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(account.Hex())
	balance, err := s.repo.GetBalance(ctx, key)
	if err != nil {
		return err
	}
	if balance == nil {
		balance = &PointsBalance{Account: key}
	}
	balance.Balance += amount
	if err := s.repo.SaveBalance(ctx, balance); err != nil {
		return err
	}
	s.logger.Warn("points refunded",
		zap.String("account", key),
		zap.Uint64("amount", amount))
	return nil
}
