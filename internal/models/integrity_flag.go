package models

import "time"

// IntegrityFlag records a sponsor-graph problem (dangling reference, cycle)
// found during a computation. The affected subtree is skipped, never silently
// dropped: admins review and resolve these.
type IntegrityFlag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Kind      string    `gorm:"size:32;not null;index" json:"kind"` // BROKEN_SPONSOR_LINK | CYCLE_DETECTED
	Detail    string    `gorm:"size:255" json:"detail"`
	Resolved  bool      `gorm:"not null;default:false;index" json:"resolved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (IntegrityFlag) TableName() string { return "integrity_flags" }
