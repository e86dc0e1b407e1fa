package rates

import (
	"math/big"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/canopylabs/treeledger/pkg/clock"
	"github.com/canopylabs/treeledger/pkg/errs"
)

// Decimals is the fixed-point precision of stored rates: a rate of
// 2500.00000000 reference units per payment unit is stored as
// 250000000000.
const Decimals = 8

var (
	rateScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)
	weiPerEth = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

// Source provides the current market rate.
type Source interface {
	GetRate() (float64, error)
}

// Service caches the latest exchange rate and converts between
// payment-currency wei and fixed-point reference-currency amounts.
type Service interface {
	Refresh() error
	LatestRate() (*big.Int, error)
	LastUpdated() time.Time
	ToReference(paymentWei *big.Int) (*big.Int, error)
	ToPayment(refScaled *big.Int) (*big.Int, error)
	StartRefresher(spec string) error
	Stop()
}

type rateService struct {
	source Source
	clock  clock.Clock
	logger *zap.Logger
	cron   *cron.Cron

	mu        sync.RWMutex
	rate      *big.Int
	updatedAt time.Time
}

// NewService creates a new rate service. The rate is unset until the
// first successful Refresh.
func NewService(source Source, clk clock.Clock, logger *zap.Logger) Service {
	return &rateService{
		source: source,
		clock:  clk,
		logger: logger,
	}
}

// Refresh fetches the current rate from the source and caches it.
func (s *rateService) Refresh() error {
	rate, err := s.source.GetRate()
	if err != nil {
		return err
	}

	scaled, _ := new(big.Float).Mul(
		big.NewFloat(rate),
		new(big.Float).SetInt(rateScale),
	).Int(nil)
	if scaled.Sign() <= 0 {
		return errs.Validation("rate source returned non-positive rate")
	}

	s.mu.Lock()
	s.rate = scaled
	s.updatedAt = s.clock.Now()
	s.mu.Unlock()

	s.logger.Info("exchange rate refreshed",
		zap.String("rate_scaled", scaled.String()))
	return nil
}

// LatestRate returns the cached rate scaled by 10^Decimals.
func (s *rateService) LatestRate() (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rate == nil {
		return nil, errs.Conflict("no exchange rate available yet")
	}
	return new(big.Int).Set(s.rate), nil
}

func (s *rateService) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// ToReference converts a wei amount to a fixed-point reference amount:
// wei * rate / 10^18.
func (s *rateService) ToReference(paymentWei *big.Int) (*big.Int, error) {
	if paymentWei == nil || paymentWei.Sign() < 0 {
		return nil, errs.Validation("payment amount must be non-negative")
	}
	rate, err := s.LatestRate()
	if err != nil {
		return nil, err
	}
	out := new(big.Int).Mul(paymentWei, rate)
	return out.Quo(out, weiPerEth), nil
}

// ToPayment converts a fixed-point reference amount back to wei:
// ref * 10^18 / rate.
func (s *rateService) ToPayment(refScaled *big.Int) (*big.Int, error) {
	if refScaled == nil || refScaled.Sign() < 0 {
		return nil, errs.Validation("reference amount must be non-negative")
	}
	rate, err := s.LatestRate()
	if err != nil {
		return nil, err
	}
	out := new(big.Int).Mul(refScaled, weiPerEth)
	return out.Quo(out, rate), nil
}

// StartRefresher schedules periodic refreshes on the given cron spec.
func (s *rateService) StartRefresher(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := s.Refresh(); err != nil {
			s.logger.Warn("scheduled rate refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.logger.Info("rate refresher started", zap.String("spec", spec))
	return nil
}

func (s *rateService) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
