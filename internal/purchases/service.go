package purchases

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/canopylabs/treeledger/internal/authority"
	"github.com/canopylabs/treeledger/internal/events"
	"github.com/canopylabs/treeledger/pkg/clock"
	"github.com/canopylabs/treeledger/pkg/errs"
	"github.com/canopylabs/treeledger/pkg/lifecycle"
)

// ParamsSource supplies the minimum purchase amount.
type ParamsSource interface {
	MinPurchase(ctx context.Context) (*big.Int, error)
}

// Forwarder moves the paid amount to the platform payout account. It either
// fully succeeds, returning a transfer reference, or fails with no partial
// effect.
type Forwarder interface {
	Forward(ctx context.Context, amount *big.Int) (string, error)
}

// PurchaseRequest carries the user-supplied purchase intent.
type PurchaseRequest struct {
	Buyer     common.Address
	SpeciesID uint64
	ProjectID uint64
	AmountWei *big.Int
	RefPrice  string
}

type Service interface {
	Purchase(ctx context.Context, req PurchaseRequest) (*Purchase, error)
	MarkProcessed(ctx context.Context, caller common.Address, id uint64) error
	// MarkCertificateMinted flips the final lifecycle flag. Called by the
	// certificate registry during mint, never directly by handlers.
	MarkCertificateMinted(ctx context.Context, id uint64) error
	Get(ctx context.Context, id uint64) (*Purchase, error)
	ListByAccount(ctx context.Context, account common.Address) ([]Purchase, error)
	CountByAccount(ctx context.Context, account common.Address) (uint64, error)
	Total(ctx context.Context) (uint64, error)
}

type purchaseService struct {
	repo     Repository
	params   ParamsSource
	treasury Forwarder
	guard    authority.Guard
	events   events.Publisher
	sm       *lifecycle.StateMachine
	clock    clock.Clock
	logger   *zap.Logger

	// mu serializes the purchase path: the funds-forward must not be able to
	// re-enter the ledger before the record is committed.
	mu sync.Mutex
}

func NewService(repo Repository, params ParamsSource, treasury Forwarder, guard authority.Guard,
	pub events.Publisher, clk clock.Clock, logger *zap.Logger) Service {
	return &purchaseService{
		repo:     repo,
		params:   params,
		treasury: treasury,
		guard:    guard,
		events:   pub,
		sm:       lifecycle.NewStateMachine(),
		clock:    clk,
		logger:   logger,
	}
}

func (s *purchaseService) Purchase(ctx context.Context, req PurchaseRequest) (*Purchase, error) {
	if req.Buyer == (common.Address{}) {
		return nil, errs.Validation("buyer must not be the zero address")
	}
	if req.SpeciesID == 0 {
		return nil, errs.Validation("species id must be positive")
	}
	if req.ProjectID == 0 {
		return nil, errs.Validation("project id must be positive")
	}
	min, err := s.params.MinPurchase(ctx)
	if err != nil {
		return nil, err
	}
	if req.AmountWei == nil || req.AmountWei.Cmp(min) < 0 {
		return nil, errs.Validation("amount below minimum purchase of %s wei", min.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Forward first: if the funds-move fails nothing is persisted. A record
	// write failure after a successful forward is surfaced loudly so the
	// stranded transfer can be reconciled by hand.
	txRef, err := s.treasury.Forward(ctx, req.AmountWei)
	if err != nil {
		s.logger.Warn("funds forward failed",
			zap.String("buyer", req.Buyer.Hex()),
			zap.String("amount_wei", req.AmountWei.String()),
			zap.Error(err))
		return nil, errs.TransferFailed("forwarding purchase funds", err)
	}

	p := &Purchase{
		Buyer:         strings.ToLower(req.Buyer.Hex()),
		SpeciesID:     req.SpeciesID,
		ProjectID:     req.ProjectID,
		AmountPaidWei: req.AmountWei.String(),
		RefPrice:      req.RefPrice,
		TxRef:         txRef,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		s.logger.Error("purchase record write failed after funds forward",
			zap.String("buyer", req.Buyer.Hex()),
			zap.String("tx_ref", txRef),
			zap.Error(err))
		return nil, err
	}

	s.events.Publish(ctx, events.Event{
		Type:    events.TypePurchaseCreated,
		Account: p.Buyer,
		Payload: map[string]interface{}{
			"purchase_id": p.ID,
			"species_id":  p.SpeciesID,
			"project_id":  p.ProjectID,
			"amount_wei":  p.AmountPaidWei,
			"ref_price":   p.RefPrice,
			"tx_ref":      p.TxRef,
			"created_at":  p.CreatedAt,
		},
	})
	s.logger.Info("purchase created",
		zap.Uint64("purchase_id", p.ID),
		zap.String("buyer", p.Buyer),
		zap.String("amount_wei", p.AmountPaidWei))
	return p, nil
}

func (s *purchaseService) MarkProcessed(ctx context.Context, caller common.Address, id uint64) error {
	if err := s.guard.Require(ctx, caller); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if p == nil || p.BuyerAddress() == (common.Address{}) {
		return errs.Conflict("purchase %d not found", id)
	}
	// A repeated call fails loudly rather than no-oping so backend
	// double-processing surfaces immediately.
	if !s.sm.CanTransition(p.Status(), lifecycle.StatusProcessed) {
		return errs.Conflict("purchase %d already processed", id)
	}
	if err := s.repo.SetProcessed(ctx, id); err != nil {
		return err
	}

	s.events.Publish(ctx, events.Event{
		Type:    events.TypePurchaseProcessed,
		Account: p.Buyer,
		Payload: map[string]interface{}{
			"purchase_id": id,
		},
	})
	s.logger.Info("purchase processed", zap.Uint64("purchase_id", id))
	return nil
}

func (s *purchaseService) MarkCertificateMinted(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if p == nil || p.BuyerAddress() == (common.Address{}) {
		return errs.Conflict("purchase %d not found", id)
	}
	if !p.Processed {
		return errs.Conflict("purchase %d not yet processed", id)
	}
	if !s.sm.CanTransition(p.Status(), lifecycle.StatusCertified) {
		return errs.Conflict("purchase %d already has a certificate", id)
	}
	return s.repo.SetCertificateMinted(ctx, id)
}

func (s *purchaseService) Get(ctx context.Context, id uint64) (*Purchase, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || p.BuyerAddress() == (common.Address{}) {
		return nil, errs.Conflict("purchase %d not found", id)
	}
	return p, nil
}

func (s *purchaseService) ListByAccount(ctx context.Context, account common.Address) ([]Purchase, error) {
	return s.repo.ListByBuyer(ctx, strings.ToLower(account.Hex()))
}

func (s *purchaseService) CountByAccount(ctx context.Context, account common.Address) (uint64, error) {
	return s.repo.CountByBuyer(ctx, strings.ToLower(account.Hex()))
}

func (s *purchaseService) Total(ctx context.Context) (uint64, error) {
	return s.repo.Total(ctx)
}
