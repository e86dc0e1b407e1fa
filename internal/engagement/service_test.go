package engagement

import (
	"context"
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

var (
	testAccount   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testAuthority = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
)

// fixedTrees returns a constant tree count for every account.
type fixedTrees uint64

func (f fixedTrees) TotalTrees(ctx context.Context, account common.Address) (uint64, error) {
	return uint64(f), nil
}

// stubGuard admits exactly one caller.
type stubGuard struct {
	authority common.Address
}

func (g stubGuard) Require(ctx context.Context, caller common.Address) error {
	if caller != g.authority {
		return errs.Unauthorized("caller %s is not the authority", caller.Hex())
	}
	return nil
}

func testParams() ParamsSource {
	return settings.NewService(
		settings.NewMemoryRepository(),
		stubGuard{authority: testAuthority},
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

func newTestService(trees uint64, clk clock.Clock) Service {
	return NewService(
		NewMemoryRepository(),
		testParams(),
		fixedTrees(trees),
		stubGuard{authority: testAuthority},
		events.NopPublisher{},
		clk,
		zap.NewNop())
}

func TestWaterStreakProgression(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	clk := clock.NewSimulated(start)
	svc := newTestService(1, clk)
	ctx := context.Background()

	// First action: streak starts at 1, no bonus.
	res, err := svc.Water(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Streak)
	assert.Equal(t, uint64(10), res.BasePoints)
	assert.Equal(t, uint64(0), res.StreakBonus)
	assert.Equal(t, uint64(10), res.PointsEarned)
	assert.Equal(t, uint64(10), res.TotalPoints)

	// 90000s later: past the cooldown, inside the 2x window, streak continues.
	clk.Set(start.Add(90000 * time.Second))
	res, err = svc.Water(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Streak)
	assert.Equal(t, uint64(5), res.StreakBonus)
	assert.Equal(t, uint64(15), res.PointsEarned)
	assert.Equal(t, uint64(25), res.TotalPoints)

	// 300000s from the start: the 2x window since the last action has passed,
	// streak resets.
	clk.Set(start.Add(300000 * time.Second))
	res, err = svc.Water(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Streak)
	assert.Equal(t, uint64(0), res.StreakBonus)
	assert.Equal(t, uint64(10), res.PointsEarned)
	assert.Equal(t, uint64(35), res.TotalPoints)
	assert.Equal(t, uint64(3), res.LifetimeActions)
}

func TestWaterCooldownRejection(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	clk := clock.NewSimulated(start)
	svc := newTestService(1, clk)
	ctx := context.Background()

	_, err := svc.Water(ctx, testAccount)
	require.NoError(t, err)

	// Inside the cooldown, including the exact boundary second.
	clk.Advance(10 * time.Second)
	_, err = svc.Water(ctx, testAccount)
	assert.True(t, errs.IsKind(err, errs.KindConflict))

	clk.Set(start.Add(86400 * time.Second))
	_, err = svc.Water(ctx, testAccount)
	assert.True(t, errs.IsKind(err, errs.KindConflict), "boundary second is still inside the cooldown")

	// One second past the boundary it goes through.
	clk.Set(start.Add(86401 * time.Second))
	res, err := svc.Water(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Streak)
}

func TestWaterRejectedCooldownLeavesStateUntouched(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	clk := clock.NewSimulated(start)
	svc := newTestService(1, clk)
	ctx := context.Background()

	_, err := svc.Water(ctx, testAccount)
	require.NoError(t, err)

	before, err := svc.State(ctx, testAccount)
	require.NoError(t, err)

	clk.Advance(time.Second)
	_, err = svc.Water(ctx, testAccount)
	require.Error(t, err)

	after, err := svc.State(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	balance, err := svc.Balance(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), balance)
}

func TestWaterRequiresTrees(t *testing.T) {
	clk := clock.NewSimulated(time.Unix(1_700_000_000, 0))
	svc := newTestService(0, clk)

	_, err := svc.Water(context.Background(), testAccount)
	assert.True(t, errs.IsKind(err, errs.KindConflict))
}

func TestWaterBasePointsScaleWithTrees(t *testing.T) {
	clk := clock.NewSimulated(time.Unix(1_700_000_000, 0))
	svc := newTestService(4, clk)

	res, err := svc.Water(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), res.BasePoints)
	assert.Equal(t, uint64(40), res.PointsEarned)
}

func TestStreakBonusCap(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	clk := clock.NewSimulated(start)
	svc := newTestService(1, clk)
	ctx := context.Background()

	// Water daily for 10 days; the bonus stops growing after 7 bonus days.
	var last *ActionResult
	for day := 0; day < 10; day++ {
		clk.Set(start.Add(time.Duration(day) * 90000 * time.Second))
		res, err := svc.Water(ctx, testAccount)
		require.NoError(t, err)
		last = res
	}
	assert.Equal(t, uint64(10), last.Streak)
	assert.Equal(t, uint64(35), last.StreakBonus)
}

func TestPreviewDoesNotMutate(t *testing.T) {
	clk := clock.NewSimulated(time.Unix(1_700_000_000, 0))
	svc := newTestService(1, clk)
	ctx := context.Background()

	proj, err := svc.Preview(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), proj.Streak)
	assert.Equal(t, uint64(10), proj.Total)

	state, err := svc.State(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), state.LifetimeActions)

	balance, err := svc.Balance(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)
}

func TestCanWater(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	clk := clock.NewSimulated(start)
	svc := newTestService(1, clk)
	ctx := context.Background()

	ok, remaining, err := svc.CanWater(ctx, testAccount)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, remaining)

	_, err = svc.Water(ctx, testAccount)
	require.NoError(t, err)

	clk.Advance(400 * time.Second)
	ok, remaining, err = svc.CanWater(ctx, testAccount)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(86000), remaining)
}

func TestGrantPoints(t *testing.T) {
	clk := clock.NewSimulated(time.Unix(1_700_000_000, 0))
	svc := newTestService(1, clk)
	ctx := context.Background()

	err := svc.GrantPoints(ctx, testAccount, testAccount, 50)
	assert.True(t, errs.IsKind(err, errs.KindUnauthorized))

	balance, err := svc.Balance(ctx, testAccount)
	require.NoError(t, err)
	assert.Zero(t, balance, "rejected grant must not move the balance")

	require.NoError(t, svc.GrantPoints(ctx, testAuthority, testAccount, 50))
	balance, err = svc.Balance(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), balance)

	err = svc.GrantPoints(ctx, testAuthority, testAccount, 0)
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}

func TestSpendPoints(t *testing.T) {
	clk := clock.NewSimulated(time.Unix(1_700_000_000, 0))
	svc := newTestService(1, clk)
	ctx := context.Background()

	require.NoError(t, svc.GrantPoints(ctx, testAuthority, testAccount, 100))

	err := svc.SpendPoints(ctx, testAccount, 150)
	assert.True(t, errs.IsKind(err, errs.KindConflict))

	balance, err := svc.Balance(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balance, "failed spend must not move the balance")

	require.NoError(t, svc.SpendPoints(ctx, testAccount, 60))
	balance, err = svc.Balance(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), balance)
}

func TestRefundPoints(t *testing.T) {
	clk := clock.NewSimulated(time.Unix(1_700_000_000, 0))
	svc := newTestService(1, clk)
	ctx := context.Background()

	require.NoError(t, svc.GrantPoints(ctx, testAuthority, testAccount, 100))
	require.NoError(t, svc.SpendPoints(ctx, testAccount, 60))
	require.NoError(t, svc.RefundPoints(ctx, testAccount, 60))

	balance, err := svc.Balance(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balance)

	// A refund to an account with no balance row creates one.
	other := common.HexToAddress("0x3333333333333333333333333333333333333333")
	require.NoError(t, svc.RefundPoints(ctx, other, 25))
	balance, err = svc.Balance(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, uint64(25), balance)
}

func TestNextStreak(t *testing.T) {
	const cooldown = int64(86400)

	assert.Equal(t, uint64(1), nextStreak(&EngagementState{}, 100, cooldown))
	assert.Equal(t, uint64(4), nextStreak(&EngagementState{LastActionAt: 100, Streak: 3}, 100+cooldown+1, cooldown))
	assert.Equal(t, uint64(4), nextStreak(&EngagementState{LastActionAt: 100, Streak: 3}, 100+2*cooldown, cooldown))
	assert.Equal(t, uint64(1), nextStreak(&EngagementState{LastActionAt: 100, Streak: 3}, 100+2*cooldown+1, cooldown))
}

func TestStreakBonus(t *testing.T) {
	assert.Equal(t, uint64(0), streakBonus(0, 5, 7))
	assert.Equal(t, uint64(0), streakBonus(1, 5, 7))
	assert.Equal(t, uint64(5), streakBonus(2, 5, 7))
	assert.Equal(t, uint64(35), streakBonus(8, 5, 7))
	assert.Equal(t, uint64(35), streakBonus(100, 5, 7))
}
