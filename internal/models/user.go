package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a distributor node in the sponsor tree. SponsorID is nil for roots.
// The engine only ever writes ActiveUntil, RankID and HighestRankID; everything
// else belongs to registration.
type User struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Email         string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Username      string         `gorm:"uniqueIndex;size:64;not null;default:''" json:"username"`
	PasswordHash  string         `gorm:"size:255" json:"-"`
	Role          string         `gorm:"size:20;not null;index" json:"role"` // DISTRIBUTOR | ADMIN
	SponsorID     *uint          `gorm:"index" json:"sponsor_id"`
	RankID        uint           `gorm:"not null;default:0;index" json:"rank_id"`         // 0 = no rank yet
	HighestRankID uint           `gorm:"not null;default:0" json:"highest_rank_id"`       // all-time high, drives one-time rank bonuses
	ActiveUntil   *time.Time     `gorm:"index" json:"active_until"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	Sponsor *User `gorm:"foreignKey:SponsorID" json:"-"`
}

func (User) TableName() string { return "users" }

// IsActiveAt reports whether the user's paid activity window covers t.
func (u *User) IsActiveAt(t time.Time) bool {
	return u.ActiveUntil != nil && u.ActiveUntil.After(t)
}
