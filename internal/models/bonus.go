package models

import "time"

// Bonus is one row of the append-only bonus ledger. The composite unique
// index makes Record idempotent: recomputing an event or period can never
// double-pay. SourceRef is the triggering transaction id for unilevel, the
// rank id for rank bonuses and the period key for infinity.
type Bonus struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index;uniqueIndex:idx_bonus_key" json:"user_id"`
	Type        string     `gorm:"size:16;not null;index;uniqueIndex:idx_bonus_key" json:"type"` // UNILEVEL | RANK | INFINITY
	SourceRef   string     `gorm:"size:64;not null;uniqueIndex:idx_bonus_key" json:"source_ref"`
	Level       int        `gorm:"not null;default:0;uniqueIndex:idx_bonus_key" json:"level"` // unilevel only, 0 otherwise
	PeriodKey   string     `gorm:"size:16;not null;default:'';index;uniqueIndex:idx_bonus_key" json:"period_key"`
	AmountCents int64      `gorm:"not null" json:"amount_cents"`
	Currency    string     `gorm:"size:3;not null;default:'EUR'" json:"currency"`
	Status      string     `gorm:"size:16;not null;index" json:"status"` // PENDING | PAID
	PaidAt      *time.Time `json:"paid_at"`
	CreatedAt   time.Time  `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Bonus) TableName() string { return "bonuses" }

// DistributionAttempt marks one unilevel pass over a transaction. It is
// created before any level is paid and flipped to COMPLETED only after every
// level resolved, so an interrupted run is detectable and safe to re-run.
type DistributionAttempt struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   uint      `gorm:"uniqueIndex;not null" json:"event_id"`
	AttemptID string    `gorm:"size:36;not null" json:"attempt_id"`
	Status    string    `gorm:"size:16;not null" json:"status"` // STARTED | COMPLETED
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DistributionAttempt) TableName() string { return "distribution_attempts" }
