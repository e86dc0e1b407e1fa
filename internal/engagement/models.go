package engagement

// EngagementState tracks one account's watering history. LastActionAt is a
// unix timestamp in seconds; zero means the account never watered.
type EngagementState struct {
	Account         string `db:"account" json:"account"`
	LastActionAt    int64  `db:"last_action_at" json:"last_action_at"`
	Streak          uint64 `db:"streak" json:"streak"`
	LifetimeActions uint64 `db:"lifetime_actions" json:"lifetime_actions"`
}

// PointsBalance is the account's accumulated reward currency. Not a
// transferable token; it only decreases through redemption.
type PointsBalance struct {
	Account string `db:"account" json:"account"`
	Balance uint64 `db:"balance" json:"balance"`
}

// ActionResult is what one successful watering yields.
type ActionResult struct {
	Streak          uint64 `json:"streak"`
	BasePoints      uint64 `json:"base_points"`
	StreakBonus     uint64 `json:"streak_bonus"`
	PointsEarned    uint64 `json:"points_earned"`
	TotalPoints     uint64 `json:"total_points"`
	LifetimeActions uint64 `json:"lifetime_actions"`
}

// Projection is the read-only preview of the next watering.
type Projection struct {
	Streak      uint64 `json:"streak"`
	BasePoints  uint64 `json:"base_points"`
	StreakBonus uint64 `json:"streak_bonus"`
	Total       uint64 `json:"total"`
}
