package settings

import "time"

// EconomyParams are the process-wide, authority-tunable economy parameters.
// MinPurchaseWei is kept as a decimal string so the full wei range survives
// the database round trip.
type EconomyParams struct {
	CooldownSeconds      int64     `db:"cooldown_seconds" json:"cooldown_seconds"`
	MinPurchaseWei       string    `db:"min_purchase_wei" json:"min_purchase_wei"`
	PointsPerAction      uint64    `db:"points_per_action" json:"points_per_action"`
	StreakBonusPerDay    uint64    `db:"streak_bonus_per_day" json:"streak_bonus_per_day"`
	MaxStreakBonusDays   uint64    `db:"max_streak_bonus_days" json:"max_streak_bonus_days"`
	PointsPerVirtualTree uint64    `db:"points_per_virtual_tree" json:"points_per_virtual_tree"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}
