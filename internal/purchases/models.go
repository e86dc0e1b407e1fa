package purchases

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/canopylabs/treeledger/pkg/lifecycle"
)

// Purchase is one donation-for-a-real-tree intent. Buyer, species, project,
// amount and timestamp are immutable after creation; only the two lifecycle
// flags ever change, each exactly once and in order.
type Purchase struct {
	ID                uint64    `db:"id" json:"id"`
	Buyer             string    `db:"buyer" json:"buyer"`
	SpeciesID         uint64    `db:"species_id" json:"species_id"`
	ProjectID         uint64    `db:"project_id" json:"project_id"`
	AmountPaidWei     string    `db:"amount_paid_wei" json:"amount_paid_wei"`
	RefPrice          string    `db:"ref_price" json:"ref_price,omitempty"`
	TxRef             string    `db:"tx_ref" json:"tx_ref,omitempty"`
	Processed         bool      `db:"processed" json:"processed"`
	CertificateMinted bool      `db:"certificate_minted" json:"certificate_minted"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// BuyerAddress returns the buyer as an address.
func (p *Purchase) BuyerAddress() common.Address {
	return common.HexToAddress(p.Buyer)
}

// Amount returns the paid amount as a big integer.
func (p *Purchase) Amount() *big.Int {
	amount, _ := new(big.Int).SetString(p.AmountPaidWei, 10)
	return amount
}

// Status maps the lifecycle flags onto the linear status chain.
func (p *Purchase) Status() string {
	switch {
	case p.CertificateMinted:
		return lifecycle.StatusCertified
	case p.Processed:
		return lifecycle.StatusProcessed
	default:
		return lifecycle.StatusCreated
	}
}
