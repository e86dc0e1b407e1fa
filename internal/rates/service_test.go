package rates

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/canopylabs/treeledger/pkg/clock"
	"github.com/canopylabs/treeledger/pkg/errs"
)

type stubSource struct {
	rate float64
	err  error
}

func (s *stubSource) GetRate() (float64, error) {
	return s.rate, s.err
}

func newTestRateService(rate float64) (Service, *clock.Simulated) {
	clk := clock.NewSimulated(time.Unix(1_700_000_000, 0))
	svc := NewService(&stubSource{rate: rate}, clk, zap.NewNop())
	return svc, clk
}

func TestRefresh(t *testing.T) {
	svc, clk := newTestRateService(2500)

	_, err := svc.LatestRate()
	assert.True(t, errs.IsKind(err, errs.KindConflict), "no rate before the first refresh")

	require.NoError(t, svc.Refresh())

	rate, err := svc.LatestRate()
	require.NoError(t, err)
	assert.Equal(t, "250000000000", rate.String())
	assert.Equal(t, clk.Now(), svc.LastUpdated())
}

func TestRefreshSourceError(t *testing.T) {
	clk := clock.NewSimulated(time.Unix(1_700_000_000, 0))
	src := &stubSource{err: errors.New("unreachable")}
	svc := NewService(src, clk, zap.NewNop())

	assert.Error(t, svc.Refresh())

	// A later failure keeps the previously cached rate.
	src.err = nil
	src.rate = 1800
	require.NoError(t, svc.Refresh())
	src.err = errors.New("unreachable again")
	assert.Error(t, svc.Refresh())

	rate, err := svc.LatestRate()
	require.NoError(t, err)
	assert.Equal(t, "180000000000", rate.String())
}

func TestConversions(t *testing.T) {
	svc, _ := newTestRateService(2500)
	require.NoError(t, svc.Refresh())

	oneEth := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	ref, err := svc.ToReference(oneEth)
	require.NoError(t, err)
	assert.Equal(t, "250000000000", ref.String(), "1 payment unit is worth 2500.00000000 reference units")

	wei, err := svc.ToPayment(ref)
	require.NoError(t, err)
	assert.Equal(t, oneEth, wei)

	_, err = svc.ToReference(big.NewInt(-1))
	assert.True(t, errs.IsKind(err, errs.KindValidation))
	_, err = svc.ToPayment(nil)
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}

func TestConversionRoundTrip(t *testing.T) {
	svc, _ := newTestRateService(1937.55)
	require.NoError(t, svc.Refresh())

	rate, err := svc.LatestRate()
	require.NoError(t, err)

	// Integer division truncates, so a round trip may lose up to the wei
	// value of one reference-decimal, but never gains any.
	oneEth := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	maxLoss := new(big.Int).Quo(oneEth, rate)
	maxLoss.Add(maxLoss, big.NewInt(1))

	for _, wei := range []*big.Int{
		big.NewInt(1_000_000_000_000),
		big.NewInt(5_000_000_000_000_000),
		new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil),
	} {
		ref, err := svc.ToReference(wei)
		require.NoError(t, err)
		back, err := svc.ToPayment(ref)
		require.NoError(t, err)

		assert.LessOrEqual(t, back.Cmp(wei), 0)
		diff := new(big.Int).Sub(wei, back)
		assert.LessOrEqual(t, diff.Cmp(maxLoss), 0, "round trip lost too much: %s of %s", diff, wei)
	}
}

func TestConversionsWithoutRate(t *testing.T) {
	svc, _ := newTestRateService(2500)

	_, err := svc.ToReference(big.NewInt(1))
	assert.True(t, errs.IsKind(err, errs.KindConflict))
	_, err = svc.ToPayment(big.NewInt(1))
	assert.True(t, errs.IsKind(err, errs.KindConflict))
}
