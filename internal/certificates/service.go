package certificates

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/canopylabs/treeledger/internal/authority"
	"github.com/canopylabs/treeledger/internal/events"
	"github.com/canopylabs/treeledger/internal/purchases"
	"github.com/canopylabs/treeledger/pkg/clock"
	"github.com/canopylabs/treeledger/pkg/errs"
)

// PurchaseLedger is the slice of the purchase service the registry needs:
// reading a purchase and flipping its final lifecycle flag.
type PurchaseLedger interface {
	Get(ctx context.Context, id uint64) (*purchases.Purchase, error)
	MarkCertificateMinted(ctx context.Context, id uint64) error
}

type Service interface {
	Mint(ctx context.Context, caller common.Address, purchaseID uint64, metadataURI, plantingRef string) (*Certificate, error)
	Transfer(ctx context.Context, caller common.Address, certID uint64, to common.Address) error
	Get(ctx context.Context, id uint64) (*Certificate, error)
	GetByPurchase(ctx context.Context, purchaseID uint64) (*Certificate, error)
	ListByOwner(ctx context.Context, owner common.Address) ([]Certificate, error)
	OwnerOf(ctx context.Context, id uint64) (common.Address, error)
	Total(ctx context.Context) (uint64, error)
}

type certificateService struct {
	repo   Repository
	ledger PurchaseLedger
	guard  authority.Guard
	events events.Publisher
	clock  clock.Clock
	logger *zap.Logger
}

func NewService(repo Repository, ledger PurchaseLedger, guard authority.Guard,
	pub events.Publisher, clk clock.Clock, logger *zap.Logger) Service {
	return &certificateService{
		repo:   repo,
		ledger: ledger,
		guard:  guard,
		events: pub,
		clock:  clk,
		logger: logger,
	}
}

func (s *certificateService) Mint(ctx context.Context, caller common.Address, purchaseID uint64, metadataURI, plantingRef string) (*Certificate, error) {
	if err := s.guard.Require(ctx, caller); err != nil {
		return nil, err
	}
	if metadataURI == "" {
		return nil, errs.Validation("metadata URI must not be empty")
	}

	p, err := s.ledger.Get(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if !p.Processed {
		return nil, errs.Conflict("purchase %d not yet processed", purchaseID)
	}
	if p.CertificateMinted {
		return nil, errs.Conflict("purchase %d already has a certificate", purchaseID)
	}

	cert := &Certificate{
		PurchaseID:  purchaseID,
		Owner:       p.Buyer,
		MetadataURI: metadataURI,
		PlantingRef: plantingRef,
		MintedAt:    s.clock.Now(),
	}
	// The registry insert goes first: its unique purchase link stops a
	// concurrent double mint before any purchase state moves.
	if err := s.repo.Create(ctx, cert); err != nil {
		return nil, err
	}
	if err := s.ledger.MarkCertificateMinted(ctx, purchaseID); err != nil {
		// Roll the registry row back so the purchase stays mintable.
		if delErr := s.repo.Delete(ctx, cert.ID); delErr != nil {
			s.logger.Error("removing certificate after failed flag flip",
				zap.Uint64("certificate_id", cert.ID),
				zap.Uint64("purchase_id", purchaseID),
				zap.Error(delErr))
		}
		return nil, err
	}

	s.events.Publish(ctx, events.Event{
		Type:    events.TypeCertificateMinted,
		Account: cert.Owner,
		Payload: map[string]interface{}{
			"certificate_id": cert.ID,
			"purchase_id":    purchaseID,
			"metadata_uri":   metadataURI,
			"planting_ref":   plantingRef,
		},
	})
	s.logger.Info("certificate minted",
		zap.Uint64("certificate_id", cert.ID),
		zap.Uint64("purchase_id", purchaseID),
		zap.String("owner", cert.Owner))
	return cert, nil
}

// Transfer hands a certificate to a new owner. Transfer never touches the
// linked purchase.
func (s *certificateService) Transfer(ctx context.Context, caller common.Address, certID uint64, to common.Address) error {
	if to == (common.Address{}) {
		return errs.Validation("transfer target must not be the zero address")
	}
	cert, err := s.Get(ctx, certID)
	if err != nil {
		return err
	}
	if cert.OwnerAddress() != caller {
		return errs.Unauthorized("caller %s does not own certificate %d", caller.Hex(), certID)
	}
	if err := s.repo.UpdateOwner(ctx, certID, strings.ToLower(to.Hex())); err != nil {
		return err
	}
	s.logger.Info("certificate transferred",
		zap.Uint64("certificate_id", certID),
		zap.String("from", caller.Hex()),
		zap.String("to", to.Hex()))
	return nil
}

func (s *certificateService) Get(ctx context.Context, id uint64) (*Certificate, error) {
	cert, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, errs.Conflict("certificate %d not found", id)
	}
	return cert, nil
}

func (s *certificateService) GetByPurchase(ctx context.Context, purchaseID uint64) (*Certificate, error) {
	cert, err := s.repo.GetByPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, errs.Conflict("purchase %d has no certificate", purchaseID)
	}
	return cert, nil
}

func (s *certificateService) ListByOwner(ctx context.Context, owner common.Address) ([]Certificate, error) {
	return s.repo.ListByOwner(ctx, strings.ToLower(owner.Hex()))
}

func (s *certificateService) OwnerOf(ctx context.Context, id uint64) (common.Address, error) {
	cert, err := s.Get(ctx, id)
	if err != nil {
		return common.Address{}, err
	}
	return cert.OwnerAddress(), nil
}

func (s *certificateService) Total(ctx context.Context) (uint64, error) {
	return s.repo.Total(ctx)
}
