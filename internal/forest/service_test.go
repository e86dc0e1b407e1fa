package forest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/canopylabs/treeledger/internal/events"
	"github.com/canopylabs/treeledger/internal/settings"
	"github.com/canopylabs/treeledger/pkg/clock"
	"github.com/canopylabs/treeledger/pkg/errs"
)

var testAccount = common.HexToAddress("0x1111111111111111111111111111111111111111")

// stubWallet is a points balance the tests can seed directly.
type stubWallet struct {
	balances map[common.Address]uint64
}

func newStubWallet() *stubWallet {
	return &stubWallet{balances: make(map[common.Address]uint64)}
}

func (w *stubWallet) SpendPoints(ctx context.Context, account common.Address, amount uint64) error {
	if w.balances[account] < amount {
		return errs.Conflict("insufficient points: have %d, need %d", w.balances[account], amount)
	}
	w.balances[account] -= amount
	return nil
}

func (w *stubWallet) RefundPoints(ctx context.Context, account common.Address, amount uint64) error {
	w.balances[account] += amount
	return nil
}

func (w *stubWallet) Balance(ctx context.Context, account common.Address) (uint64, error) {
	return w.balances[account], nil
}

// fixedPurchases reports a constant real-tree count.
type fixedPurchases uint64

func (f fixedPurchases) CountByAccount(ctx context.Context, account common.Address) (uint64, error) {
	return uint64(f), nil
}

type allowAll struct{}

func (allowAll) Require(ctx context.Context, caller common.Address) error { return nil }

func testParams() ParamsSource {
	return settings.NewService(
		settings.NewMemoryRepository(),
		allowAll{},
		settings.EconomyParams{
			CooldownSeconds:      86400,
			MinPurchaseWei:       "1000000000000000",
			PointsPerAction:      10,
			StreakBonusPerDay:    5,
			MaxStreakBonusDays:   7,
			PointsPerVirtualTree: 100,
		},
		events.NopPublisher{}, zap.NewNop())
}

func newTestService(wallet *stubWallet, real uint64) Service {
	return NewService(
		NewMemoryRepository(),
		wallet,
		fixedPurchases(real),
		testParams(),
		events.NopPublisher{},
		clock.NewSimulated(time.Unix(1_700_000_000, 0)),
		zap.NewNop())
}

func TestClaimFreeTreeOnce(t *testing.T) {
	svc := newTestService(newStubWallet(), 0)
	ctx := context.Background()

	state, err := svc.ClaimFreeTree(ctx, testAccount)
	require.NoError(t, err)
	assert.True(t, state.FreeClaimed)
	assert.Equal(t, uint64(1), state.VirtualTrees)

	_, err = svc.ClaimFreeTree(ctx, testAccount)
	assert.True(t, errs.IsKind(err, errs.KindConflict))

	trees, err := svc.VirtualTrees(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), trees, "repeated claim must not add trees")
}

func TestClaimSeedsCountToOne(t *testing.T) {
	wallet := newStubWallet()
	wallet.balances[testAccount] = 500
	svc := newTestService(wallet, 0)
	ctx := context.Background()

	// The claim seeds the count to exactly one, even when the account
	// redeemed trees beforehand.
	_, err := svc.Redeem(ctx, testAccount, 3)
	require.NoError(t, err)

	state, err := svc.ClaimFreeTree(ctx, testAccount)
	require.NoError(t, err)
	assert.True(t, state.FreeClaimed)
	assert.Equal(t, uint64(1), state.VirtualTrees)
}

func TestRedeem(t *testing.T) {
	wallet := newStubWallet()
	wallet.balances[testAccount] = 250
	svc := newTestService(wallet, 0)
	ctx := context.Background()

	state, err := svc.Redeem(ctx, testAccount, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), state.VirtualTrees)
	assert.Equal(t, uint64(50), wallet.balances[testAccount])

	_, err = svc.Redeem(ctx, testAccount, 0)
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}

func TestRedeemInsufficientPoints(t *testing.T) {
	wallet := newStubWallet()
	wallet.balances[testAccount] = 150
	svc := newTestService(wallet, 0)
	ctx := context.Background()

	_, err := svc.Redeem(ctx, testAccount, 2)
	assert.True(t, errs.IsKind(err, errs.KindConflict))

	assert.Equal(t, uint64(150), wallet.balances[testAccount], "failed redemption must not debit points")
	trees, err := svc.VirtualTrees(ctx, testAccount)
	require.NoError(t, err)
	assert.Zero(t, trees, "failed redemption must not add trees")
}

func TestRedeemRejectsOverflowingQuantity(t *testing.T) {
	wallet := newStubWallet()
	wallet.balances[testAccount] = 84
	svc := newTestService(wallet, 0)
	ctx := context.Background()

	// At 100 points per tree this quantity wraps the 64-bit cost to 84,
	// which the seeded balance would cover if the product were trusted.
	_, err := svc.Redeem(ctx, testAccount, 184467440737095517)
	assert.True(t, errs.IsKind(err, errs.KindValidation))

	assert.Equal(t, uint64(84), wallet.balances[testAccount], "rejected redemption must not debit points")
	trees, err := svc.VirtualTrees(ctx, testAccount)
	require.NoError(t, err)
	assert.Zero(t, trees, "rejected redemption must not add trees")
}

// failingSaveRepo breaks the tree-credit write.
type failingSaveRepo struct {
	*MemoryRepository
}

func (f *failingSaveRepo) Save(ctx context.Context, state *VirtualTreeState) error {
	return errors.New("write failed")
}

func TestFailedTreeCreditRefundsPoints(t *testing.T) {
	wallet := newStubWallet()
	wallet.balances[testAccount] = 250
	svc := NewService(
		&failingSaveRepo{NewMemoryRepository()},
		wallet,
		fixedPurchases(0),
		testParams(),
		events.NopPublisher{},
		clock.NewSimulated(time.Unix(1_700_000_000, 0)),
		zap.NewNop())
	ctx := context.Background()

	_, err := svc.Redeem(ctx, testAccount, 2)
	require.Error(t, err)

	assert.Equal(t, uint64(250), wallet.balances[testAccount], "failed tree credit must hand the points back")
	trees, err := svc.VirtualTrees(ctx, testAccount)
	require.NoError(t, err)
	assert.Zero(t, trees)
}

func TestTotalTrees(t *testing.T) {
	wallet := newStubWallet()
	wallet.balances[testAccount] = 300
	svc := newTestService(wallet, 2)
	ctx := context.Background()

	total, err := svc.TotalTrees(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total, "real trees count before any virtual ones")

	_, err = svc.ClaimFreeTree(ctx, testAccount)
	require.NoError(t, err)
	_, err = svc.Redeem(ctx, testAccount, 3)
	require.NoError(t, err)

	total, err = svc.TotalTrees(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), total)
}

func TestSummary(t *testing.T) {
	wallet := newStubWallet()
	wallet.balances[testAccount] = 120
	svc := newTestService(wallet, 1)
	ctx := context.Background()

	_, err := svc.ClaimFreeTree(ctx, testAccount)
	require.NoError(t, err)

	sum, err := svc.Summary(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), sum.VirtualTrees)
	assert.Equal(t, uint64(1), sum.RealTrees)
	assert.Equal(t, uint64(2), sum.TotalTrees)
	assert.Equal(t, uint64(120), sum.Points)
	assert.True(t, sum.FreeClaimed)
}
