package forest

import (
	"context"
	"math"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/canopylabs/treeledger/internal/events"
	"github.com/canopylabs/treeledger/internal/settings"
	"github.com/canopylabs/treeledger/pkg/clock"
	"github.com/canopylabs/treeledger/pkg/errs"
)

// PointsWallet is the slice of the engagement ledger redemption spends from.
type PointsWallet interface {
	SpendPoints(ctx context.Context, account common.Address, amount uint64) error
	RefundPoints(ctx context.Context, account common.Address, amount uint64) error
	Balance(ctx context.Context, account common.Address) (uint64, error)
}

// PurchaseCounter supplies the real-tree half of the total tree count.
type PurchaseCounter interface {
	CountByAccount(ctx context.Context, account common.Address) (uint64, error)
}

// ParamsSource supplies the redemption exchange rate.
type ParamsSource interface {
	Get(ctx context.Context) (*settings.EconomyParams, error)
}

type Service interface {
	ClaimFreeTree(ctx context.Context, account common.Address) (*VirtualTreeState, error)
	Redeem(ctx context.Context, account common.Address, quantity uint64) (*VirtualTreeState, error)
	VirtualTrees(ctx context.Context, account common.Address) (uint64, error)
	TotalTrees(ctx context.Context, account common.Address) (uint64, error)
	Summary(ctx context.Context, account common.Address) (*Summary, error)
}

type forestService struct {
	repo      Repository
	wallet    PointsWallet
	purchases PurchaseCounter
	params    ParamsSource
	events    events.Publisher
	clock     clock.Clock
	logger    *zap.Logger

	// mu serializes claim and redemption so the points debit and the tree
	// credit land together.
	mu sync.Mutex
}

func NewService(repo Repository, wallet PointsWallet, purchases PurchaseCounter, params ParamsSource,
	pub events.Publisher, clk clock.Clock, logger *zap.Logger) Service {
	return &forestService{
		repo:      repo,
		wallet:    wallet,
		purchases: purchases,
		params:    params,
		events:    pub,
		clock:     clk,
		logger:    logger,
	}
}

// ClaimFreeTree seeds the account with its one free virtual tree. The count
// is set, not incremented: the claim is a one-time seed.
func (s *forestService) ClaimFreeTree(ctx context.Context, account common.Address) (*VirtualTreeState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(account.Hex())
	state, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &VirtualTreeState{Account: key}
	}
	if state.FreeClaimed {
		return nil, errs.Conflict("account %s already claimed its free tree", account.Hex())
	}

	state.FreeClaimed = true
	state.VirtualTrees = 1
	state.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, state); err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.Event{
		Type:    events.TypeFreeTreeClaimed,
		Account: key,
		Payload: map[string]interface{}{
			"virtual_trees": state.VirtualTrees,
		},
	})
	s.logger.Info("free tree claimed", zap.String("account", key))
	return state, nil
}

func (s *forestService) Redeem(ctx context.Context, account common.Address, quantity uint64) (*VirtualTreeState, error) {
	if quantity == 0 {
		return nil, errs.Validation("redeem quantity must be positive")
	}
	params, err := s.params.Get(ctx)
	if err != nil {
		return nil, err
	}
	// The cost must not wrap: a wrapped product would let a huge quantity
	// pass the balance check for pennies.
	if params.PointsPerVirtualTree > 0 && quantity > math.MaxUint64/params.PointsPerVirtualTree {
		return nil, errs.Validation("redeem quantity %d too large", quantity)
	}
	cost := params.PointsPerVirtualTree * quantity

	s.mu.Lock()
	defer s.mu.Unlock()

	// The debit enforces the balance check; it fails with a conflict when
	// points are short and nothing moves.
	if err := s.wallet.SpendPoints(ctx, account, cost); err != nil {
		return nil, err
	}

	key := strings.ToLower(account.Hex())
	state, err := s.repo.Get(ctx, key)
	if err != nil {
		s.refund(ctx, account, cost)
		return nil, err
	}
	if state == nil {
		state = &VirtualTreeState{Account: key}
	}
	state.VirtualTrees += quantity
	state.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, state); err != nil {
		s.refund(ctx, account, cost)
		return nil, err
	}

	s.events.Publish(ctx, events.Event{
		Type:    events.TypeTreesRedeemed,
		Account: key,
		Payload: map[string]interface{}{
			"quantity":      quantity,
			"points_spent":  cost,
			"virtual_trees": state.VirtualTrees,
		},
	})
	s.logger.Info("virtual trees redeemed",
		zap.String("account", key),
		zap.Uint64("quantity", quantity),
		zap.Uint64("points_spent", cost))
	return state, nil
}

// refund hands a debit back when the tree credit could not land; the swap is
// all-or-nothing.
func (s *forestService) refund(ctx context.Context, account common.Address, cost uint64) {
	if err := s.wallet.RefundPoints(ctx, account, cost); err != nil {
		s.logger.Error("refunding points after failed tree credit",
			zap.String("account", account.Hex()),
			zap.Uint64("points", cost),
			zap.Error(err))
	}
}

func (s *forestService) VirtualTrees(ctx context.Context, account common.Address) (uint64, error) {
	state, err := s.repo.Get(ctx, strings.ToLower(account.Hex()))
	if err != nil {
		return 0, err
	}
	if state == nil {
		return 0, nil
	}
	return state.VirtualTrees, nil
}

// TotalTrees counts every purchase toward the total regardless of its
// processing state: funds committed means tree counted.
func (s *forestService) TotalTrees(ctx context.Context, account common.Address) (uint64, error) {
	virtual, err := s.VirtualTrees(ctx, account)
	if err != nil {
		return 0, err
	}
	real, err := s.purchases.CountByAccount(ctx, account)
	if err != nil {
		return 0, err
	}
	return virtual + real, nil
}

func (s *forestService) Summary(ctx context.Context, account common.Address) (*Summary, error) {
	key := strings.ToLower(account.Hex())
	state, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &VirtualTreeState{Account: key}
	}
	real, err := s.purchases.CountByAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	points, err := s.wallet.Balance(ctx, account)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Account:      key,
		VirtualTrees: state.VirtualTrees,
		RealTrees:    real,
		TotalTrees:   state.VirtualTrees + real,
		Points:       points,
		FreeClaimed:  state.FreeClaimed,
	}, nil
}
