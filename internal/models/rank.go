package models

import "time"

// Rank is one tier of the qualification table (Amber ... Billion Diamond).
// All amounts are absolute cents, matching the admin UI: the first and second
// leg caps limit how much of those legs counts toward TeamTurnoverCents, and
// OtherLegsMinCents is the diversification floor outside the top two legs.
// Invariant: TeamTurnoverCents strictly increasing by SortOrder.
type Rank struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	SortOrder         int       `gorm:"uniqueIndex;not null" json:"sort_order"`
	TeamTurnoverCents int64     `gorm:"not null" json:"team_turnover_cents"`
	FirstLegCapCents  int64     `gorm:"not null" json:"first_leg_cap_cents"`
	SecondLegCapCents int64     `gorm:"not null" json:"second_leg_cap_cents"`
	OtherLegsMinCents int64     `gorm:"not null;default:0" json:"other_legs_min_cents"`
	BonusCents        int64     `gorm:"not null;default:0" json:"bonus_cents"` // one-time achievement award, 0 = none
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (Rank) TableName() string { return "ranks" }
