package authority

import "time"

// Record is the persisted authority state. Pending is the proposed successor
// in a two-step handoff; empty when no handoff is in flight.
type Record struct {
	Authority string    `db:"authority" json:"authority"`
	Pending   string    `db:"pending" json:"pending,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
