package authority

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/canopylabs/treeledger/internal/events"
	"github.com/canopylabs/treeledger/pkg/errs"
)

// Guard is the capability every privileged operation checks before mutating
// state.
type Guard interface {
	Require(ctx context.Context, caller common.Address) error
}

// Service owns the single-authority record and its two-step handoff.
type Service struct {
	repo     Repository
	events   events.Publisher
	logger   *zap.Logger
	fallback common.Address
}

// NewService creates the authority service. The fallback address seeds the
// record on first use when nothing is persisted yet.
func NewService(repo Repository, fallback common.Address, pub events.Publisher, logger *zap.Logger) *Service {
	return &Service{repo: repo, events: pub, logger: logger, fallback: fallback}
}

// Current returns the acting authority address.
func (s *Service) Current(ctx context.Context) (common.Address, error) {
	rec, err := s.load(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(rec.Authority), nil
}

// Pending returns the proposed successor, or the zero address when no handoff
// is in flight.
func (s *Service) Pending(ctx context.Context) (common.Address, error) {
	rec, err := s.load(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if rec.Pending == "" {
		return common.Address{}, nil
	}
	return common.HexToAddress(rec.Pending), nil
}

// Require rejects callers other than the acting authority.
func (s *Service) Require(ctx context.Context, caller common.Address) error {
	current, err := s.Current(ctx)
	if err != nil {
		return err
	}
	if caller != current {
		return errs.Unauthorized("caller %s is not the authority", caller.Hex())
	}
	return nil
}

// Propose starts a handoff to newAuthority. Only the acting authority may
// propose, and the successor must be a real address.
func (s *Service) Propose(ctx context.Context, caller, newAuthority common.Address) error {
	if err := s.Require(ctx, caller); err != nil {
		return err
	}
	if newAuthority == (common.Address{}) {
		return errs.Validation("proposed authority must not be the zero address")
	}

	rec, err := s.load(ctx)
	if err != nil {
		return err
	}
	rec.Pending = strings.ToLower(newAuthority.Hex())
	rec.UpdatedAt = time.Now()
	if err := s.repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("saving authority record: %w", err)
	}

	s.events.Publish(ctx, events.Event{
		Type:    events.TypeAuthorityProposed,
		Account: caller.Hex(),
		Payload: map[string]interface{}{
			"proposed": newAuthority.Hex(),
		},
	})
	s.logger.Info("authority handoff proposed",
		zap.String("current", caller.Hex()),
		zap.String("proposed", newAuthority.Hex()))
	return nil
}

// Accept completes the handoff. Only the proposed successor may accept.
func (s *Service) Accept(ctx context.Context, caller common.Address) error {
	rec, err := s.load(ctx)
	if err != nil {
		return err
	}
	if rec.Pending == "" {
		return errs.Conflict("no authority handoff in flight")
	}
	if caller != common.HexToAddress(rec.Pending) {
		return errs.Unauthorized("caller %s is not the proposed authority", caller.Hex())
	}

	previous := rec.Authority
	rec.Authority = rec.Pending
	rec.Pending = ""
	rec.UpdatedAt = time.Now()
	if err := s.repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("saving authority record: %w", err)
	}

	s.events.Publish(ctx, events.Event{
		Type:    events.TypeAuthorityAccepted,
		Account: caller.Hex(),
		Payload: map[string]interface{}{
			"previous": previous,
		},
	})
	s.logger.Info("authority handoff accepted",
		zap.String("previous", previous),
		zap.String("authority", caller.Hex()))
	return nil
}

func (s *Service) load(ctx context.Context) (*Record, error) {
	rec, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &Record{
			Authority: strings.ToLower(s.fallback.Hex()),
			UpdatedAt: time.Now(),
		}
		if err := s.repo.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("seeding authority record: %w", err)
		}
	}
	return rec, nil
}
