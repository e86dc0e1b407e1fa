package treasury

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/canopylabs/treeledger/internal/authority"
	"github.com/canopylabs/treeledger/internal/events"
	"github.com/canopylabs/treeledger/pkg/errs"
)

// Mover is the chain-side operation set the service depends on.
type Mover interface {
	Forward(ctx context.Context, amount *big.Int) (string, error)
	Residual(ctx context.Context) (*big.Int, error)
	Sweep(ctx context.Context) (string, *big.Int, error)
}

// Service exposes treasury operations: forwarding purchase funds and
// recovering residual balances stranded in the hot wallet.
type Service interface {
	Forward(ctx context.Context, amount *big.Int) (string, error)
	Residual(ctx context.Context) (*big.Int, error)
	EmergencyRecover(ctx context.Context, caller common.Address) (string, *big.Int, error)
}

type treasuryService struct {
	mover  Mover
	guard  authority.Guard
	events events.Publisher
	logger *zap.Logger
}

func NewService(mover Mover, guard authority.Guard, publisher events.Publisher, logger *zap.Logger) Service {
	return &treasuryService{
		mover:  mover,
		guard:  guard,
		events: publisher,
		logger: logger,
	}
}

func (s *treasuryService) Forward(ctx context.Context, amount *big.Int) (string, error) {
	return s.mover.Forward(ctx, amount)
}

func (s *treasuryService) Residual(ctx context.Context) (*big.Int, error) {
	return s.mover.Residual(ctx)
}

// EmergencyRecover sweeps any residual hot-wallet balance to the payout
// address. Privileged.
func (s *treasuryService) EmergencyRecover(ctx context.Context, caller common.Address) (string, *big.Int, error) {
	if err := s.guard.Require(ctx, caller); err != nil {
		return "", nil, err
	}

	residual, err := s.mover.Residual(ctx)
	if err != nil {
		return "", nil, errs.TransferFailed("checking residual balance", err)
	}
	if residual.Sign() == 0 {
		return "", nil, errs.Conflict("no residual funds to recover")
	}

	hash, amount, err := s.mover.Sweep(ctx)
	if err != nil {
		return "", nil, errs.TransferFailed("recovery sweep failed", err)
	}

	s.events.Publish(ctx, events.Event{
		Type:    events.TypeFundsRecovered,
		Account: strings.ToLower(caller.Hex()),
		Payload: map[string]interface{}{
			"tx_hash":    hash,
			"amount_wei": amount.String(),
		},
	})
	s.logger.Info("residual funds recovered",
		zap.String("tx_hash", hash),
		zap.String("amount_wei", amount.String()))
	return hash, amount, nil
}

// NoopMover satisfies Mover without touching a chain. Used when no RPC
// endpoint is configured, e.g. local development.
type NoopMover struct {
	logger *zap.Logger
}

func NewNoopMover(logger *zap.Logger) *NoopMover {
	return &NoopMover{logger: logger}
}

func (m *NoopMover) Forward(_ context.Context, amount *big.Int) (string, error) {
	m.logger.Warn("noop treasury: forward skipped",
		zap.String("amount_wei", amount.String()))
	return "noop", nil
}

func (m *NoopMover) Residual(context.Context) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (m *NoopMover) Sweep(context.Context) (string, *big.Int, error) {
	return "", big.NewInt(0), nil
}
