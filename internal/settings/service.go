package settings

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/canopylabs/treeledger/internal/authority"
	"github.com/canopylabs/treeledger/internal/events"
	"github.com/canopylabs/treeledger/pkg/errs"
)

// Sanity bounds for tunable parameters.
const (
	maxCooldownSeconds    = 30 * 24 * 3600
	maxPointsPerAction    = 1_000_000
	maxStreakBonusPerDay  = 1_000_000
	maxStreakBonusDaysCap = 365
)

// Service owns the running economy parameters. Reads are open; every mutation
// goes through the authority guard.
type Service struct {
	repo     Repository
	guard    authority.Guard
	events   events.Publisher
	logger   *zap.Logger
	defaults EconomyParams
}

func NewService(repo Repository, guard authority.Guard, defaults EconomyParams, pub events.Publisher, logger *zap.Logger) *Service {
	return &Service{repo: repo, guard: guard, events: pub, logger: logger, defaults: defaults}
}

// Get returns the running parameters, seeding the defaults on first use.
func (s *Service) Get(ctx context.Context) (*EconomyParams, error) {
	params, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if params == nil {
		seeded := s.defaults
		seeded.UpdatedAt = time.Now()
		if err := s.repo.Save(ctx, &seeded); err != nil {
			return nil, fmt.Errorf("seeding economy params: %w", err)
		}
		params = &seeded
	}
	return params, nil
}

// MinPurchase returns the minimum purchase amount in wei.
func (s *Service) MinPurchase(ctx context.Context) (*big.Int, error) {
	params, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	min, ok := new(big.Int).SetString(params.MinPurchaseWei, 10)
	if !ok {
		return nil, fmt.Errorf("stored min purchase %q is not a decimal integer", params.MinPurchaseWei)
	}
	return min, nil
}

// SetCooldown updates the watering cooldown. Privileged.
func (s *Service) SetCooldown(ctx context.Context, caller common.Address, seconds int64) error {
	if err := s.guard.Require(ctx, caller); err != nil {
		return err
	}
	if seconds <= 0 {
		return errs.Validation("cooldown must be positive, got %d", seconds)
	}
	if seconds > maxCooldownSeconds {
		return errs.Validation("cooldown %d exceeds maximum %d", seconds, maxCooldownSeconds)
	}
	return s.update(ctx, caller, "cooldown_seconds", seconds, func(p *EconomyParams) {
		p.CooldownSeconds = seconds
	})
}

// SetMinPurchase updates the minimum purchase amount in wei. Privileged.
func (s *Service) SetMinPurchase(ctx context.Context, caller common.Address, wei *big.Int) error {
	if err := s.guard.Require(ctx, caller); err != nil {
		return err
	}
	if wei == nil || wei.Sign() <= 0 {
		return errs.Validation("minimum purchase must be positive")
	}
	return s.update(ctx, caller, "min_purchase_wei", wei.String(), func(p *EconomyParams) {
		p.MinPurchaseWei = wei.String()
	})
}

// RewardParams bundles the point-economy knobs tuned together.
type RewardParams struct {
	PointsPerAction      uint64 `json:"points_per_action"`
	StreakBonusPerDay    uint64 `json:"streak_bonus_per_day"`
	MaxStreakBonusDays   uint64 `json:"max_streak_bonus_days"`
	PointsPerVirtualTree uint64 `json:"points_per_virtual_tree"`
}

// SetRewardParams updates the point economy. Privileged.
func (s *Service) SetRewardParams(ctx context.Context, caller common.Address, rp RewardParams) error {
	if err := s.guard.Require(ctx, caller); err != nil {
		return err
	}
	if rp.PointsPerAction == 0 {
		return errs.Validation("points per action must be positive")
	}
	if rp.PointsPerAction > maxPointsPerAction {
		return errs.Validation("points per action %d exceeds maximum %d", rp.PointsPerAction, maxPointsPerAction)
	}
	if rp.StreakBonusPerDay > maxStreakBonusPerDay {
		return errs.Validation("streak bonus per day %d exceeds maximum %d", rp.StreakBonusPerDay, maxStreakBonusPerDay)
	}
	if rp.MaxStreakBonusDays > maxStreakBonusDaysCap {
		return errs.Validation("max streak bonus days %d exceeds maximum %d", rp.MaxStreakBonusDays, maxStreakBonusDaysCap)
	}
	if rp.PointsPerVirtualTree == 0 {
		return errs.Validation("points per virtual tree must be positive")
	}
	return s.update(ctx, caller, "reward_params", rp, func(p *EconomyParams) {
		p.PointsPerAction = rp.PointsPerAction
		p.StreakBonusPerDay = rp.StreakBonusPerDay
		p.MaxStreakBonusDays = rp.MaxStreakBonusDays
		p.PointsPerVirtualTree = rp.PointsPerVirtualTree
	})
}

func (s *Service) update(ctx context.Context, caller common.Address, name string, value interface{}, apply func(*EconomyParams)) error {
	params, err := s.Get(ctx)
	if err != nil {
		return err
	}
	apply(params)
	params.UpdatedAt = time.Now()
	if err := s.repo.Save(ctx, params); err != nil {
		return fmt.Errorf("saving economy params: %w", err)
	}

	s.events.Publish(ctx, events.Event{
		Type:    events.TypeParameterUpdated,
		Account: caller.Hex(),
		Payload: map[string]interface{}{
			"parameter": name,
			"value":     value,
		},
	})
	s.logger.Info("economy parameter updated",
		zap.String("parameter", name),
		zap.Any("value", value),
		zap.String("by", caller.Hex()))
	return nil
}
