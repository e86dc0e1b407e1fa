package treasury

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/canopylabs/treeledger/internal/events"
	"github.com/canopylabs/treeledger/pkg/errs"
)

var (
	testAuthority = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	outsider      = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
)

type stubGuard struct {
	authority common.Address
}

func (g stubGuard) Require(ctx context.Context, caller common.Address) error {
	if caller != g.authority {
		return errs.Unauthorized("caller %s is not the authority", caller.Hex())
	}
	return nil
}

// fakeMover tracks sweeps over a fixed residual balance.
type fakeMover struct {
	residual *big.Int
	sweeps   int
	fail     bool
}

func (m *fakeMover) Forward(ctx context.Context, amount *big.Int) (string, error) {
	if m.fail {
		return "", errors.New("rpc unreachable")
	}
	return "0xforward", nil
}

func (m *fakeMover) Residual(ctx context.Context) (*big.Int, error) {
	if m.fail {
		return nil, errors.New("rpc unreachable")
	}
	return new(big.Int).Set(m.residual), nil
}

func (m *fakeMover) Sweep(ctx context.Context) (string, *big.Int, error) {
	if m.fail {
		return "", nil, errors.New("rpc unreachable")
	}
	m.sweeps++
	swept := new(big.Int).Set(m.residual)
	m.residual = big.NewInt(0)
	return "0xsweep", swept, nil
}

func newTestService(mover Mover) Service {
	return NewService(mover, stubGuard{authority: testAuthority}, events.NopPublisher{}, zap.NewNop())
}

func TestEmergencyRecover(t *testing.T) {
	mover := &fakeMover{residual: big.NewInt(42_000)}
	svc := newTestService(mover)

	hash, amount, err := svc.EmergencyRecover(context.Background(), testAuthority)
	require.NoError(t, err)
	assert.Equal(t, "0xsweep", hash)
	assert.Equal(t, big.NewInt(42_000), amount)
	assert.Equal(t, 1, mover.sweeps)
}

func TestEmergencyRecoverRequiresAuthority(t *testing.T) {
	mover := &fakeMover{residual: big.NewInt(42_000)}
	svc := newTestService(mover)

	_, _, err := svc.EmergencyRecover(context.Background(), outsider)
	assert.True(t, errs.IsKind(err, errs.KindUnauthorized))
	assert.Zero(t, mover.sweeps, "rejected recovery must not move funds")
}

func TestEmergencyRecoverNothingToSweep(t *testing.T) {
	mover := &fakeMover{residual: big.NewInt(0)}
	svc := newTestService(mover)

	_, _, err := svc.EmergencyRecover(context.Background(), testAuthority)
	assert.True(t, errs.IsKind(err, errs.KindConflict))
	assert.Zero(t, mover.sweeps)
}

func TestEmergencyRecoverChainFailure(t *testing.T) {
	mover := &fakeMover{residual: big.NewInt(1), fail: true}
	svc := newTestService(mover)

	_, _, err := svc.EmergencyRecover(context.Background(), testAuthority)
	assert.True(t, errs.IsKind(err, errs.KindTransferFailed))
}

func TestForwardDelegates(t *testing.T) {
	mover := &fakeMover{residual: big.NewInt(0)}
	svc := newTestService(mover)

	hash, err := svc.Forward(context.Background(), big.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, "0xforward", hash)

	mover.fail = true
	_, err = svc.Forward(context.Background(), big.NewInt(100))
	assert.Error(t, err)
}
