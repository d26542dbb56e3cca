package models

import "time"

// Transaction is a purchase/activation event recorded by the payment
// collaborators. Rows are immutable once written; ExternalRef deduplicates
// redelivered webhooks from the gateway side.
type Transaction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ExternalRef string    `gorm:"uniqueIndex;size:128;not null" json:"external_ref"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	AmountCents int64     `gorm:"not null" json:"amount_cents"`
	Currency    string    `gorm:"size:3;not null;default:'EUR'" json:"currency"`
	Type        string    `gorm:"size:20;not null;index" json:"type"` // PURCHASE | ACTIVATION
	OccurredAt  time.Time `gorm:"not null;index" json:"occurred_at"`
	CreatedAt   time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Transaction) TableName() string { return "transactions" }
