package certificates

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Certificate is the non-fungible proof token minted for one fully processed
// purchase. The certificate↔purchase mapping is bijective: a purchase yields
// at most one certificate, ever.
type Certificate struct {
	ID          uint64    `db:"id" json:"id"`
	PurchaseID  uint64    `db:"purchase_id" json:"purchase_id"`
	Owner       string    `db:"owner" json:"owner"`
	MetadataURI string    `db:"metadata_uri" json:"metadata_uri"`
	PlantingRef string    `db:"planting_ref" json:"planting_ref"`
	MintedAt    time.Time `db:"minted_at" json:"minted_at"`
}

// OwnerAddress returns the owner as an address.
func (c *Certificate) OwnerAddress() common.Address {
	return common.HexToAddress(c.Owner)
}
