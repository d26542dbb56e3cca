package domain

const (
	RoleDistributor = "DISTRIBUTOR"
	RoleAdmin       = "ADMIN"
)

const (
	EventTypePurchase   = "PURCHASE"
	EventTypeActivation = "ACTIVATION"
)

const (
	BonusTypeUnilevel = "UNILEVEL"
	BonusTypeRank     = "RANK"
	BonusTypeInfinity = "INFINITY"
)

const (
	BonusStatusPending = "PENDING"
	BonusStatusPaid    = "PAID"
)

const (
	AttemptStatusStarted   = "STARTED"
	AttemptStatusCompleted = "COMPLETED"
)

const (
	FlagBrokenSponsorLink = "BROKEN_SPONSOR_LINK"
	FlagCycleDetected     = "CYCLE_DETECTED"
)

// System setting keys (admin-tunable compensation parameters).
const (
	SettingUnilevelPercentages = "unilevel_percentages" // CSV, one entry per level
	SettingInfinityEnabled     = "infinity_enabled"     // "true" / "false"
	SettingInfinityPercent     = "infinity_percent"     // flat percentage, e.g. "10"
	SettingInfinityMinRank     = "infinity_min_rank"    // rank name floor for eligibility
	SettingActivityWindowDays  = "activity_window_days" // default 30
)

// UnilevelDepth is the maximum number of active ancestors paid per purchase.
const UnilevelDepth = 15
