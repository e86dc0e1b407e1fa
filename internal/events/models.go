package events

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Event types, one per ledger state change.
const (
	TypePurchaseCreated   = "purchase.created"
	TypePurchaseProcessed = "purchase.processed"
	TypeCertificateMinted = "certificate.minted"
	TypeActionPerformed   = "action.performed"
	TypeFreeTreeClaimed   = "tree.free_claimed"
	TypeTreesRedeemed     = "tree.redeemed"
	TypeParameterUpdated  = "parameter.updated"
	TypePointsGranted     = "points.granted"
	TypeAuthorityProposed = "authority.proposed"
	TypeAuthorityAccepted = "authority.accepted"
	TypeFundsRecovered    = "funds.recovered"
)

// Event is an outbound notification carrying the full set of changed fields.
type Event struct {
	Type    string                 `json:"type"`
	Account string                 `json:"account"`
	Payload map[string]interface{} `json:"payload"`
}

// LedgerEvent is the persisted form of an emitted event.
type LedgerEvent struct {
	ID        uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Type      string         `json:"type" gorm:"not null;index"`
	Account   string         `json:"account" gorm:"not null;index"`
	Payload   datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// WebSocketMessage is the frame pushed to subscribed clients.
type WebSocketMessage struct {
	Type      string                 `json:"type"`
	Account   string                 `json:"account"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}
