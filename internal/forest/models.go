package forest

import "time"

// VirtualTreeState tracks one account's gamified tree credits. FreeClaimed
// flips true at most once per account.
type VirtualTreeState struct {
	Account      string    `db:"account" json:"account"`
	FreeClaimed  bool      `db:"free_claimed" json:"free_claimed"`
	VirtualTrees uint64    `db:"virtual_trees" json:"virtual_trees"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Summary bundles an account's whole forest for the dashboard read.
type Summary struct {
	Account      string `json:"account"`
	VirtualTrees uint64 `json:"virtual_trees"`
	RealTrees    uint64 `json:"real_trees"`
	TotalTrees   uint64 `json:"total_trees"`
	Points       uint64 `json:"points"`
	FreeClaimed  bool   `json:"free_claimed"`
}
