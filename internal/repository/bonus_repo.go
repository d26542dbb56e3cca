package repository

import (
	"time"

	"github.com/stanmart1/rest-empire-sub000/internal/domain"
	"github.com/stanmart1/rest-empire-sub000/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BonusRepository struct {
	db *gorm.DB
}

func NewBonusRepository(db *gorm.DB) *BonusRepository {
	return &BonusRepository{db: db}
}

// Record appends a ledger entry. A duplicate of the idempotency key
// (user, type, source_ref, level, period_key) is a successful no-op, never an
// overwrite, so a retried computation is safe to re-run. Returns whether a
// new row was written.
func (r *BonusRepository) Record(b *models.Bonus) (bool, error) {
	if b.Status == "" {
		b.Status = domain.BonusStatusPending
	}
	res := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "type"}, {Name: "source_ref"},
			{Name: "level"}, {Name: "period_key"},
		},
		DoNothing: true,
	}).Create(b)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// History lists a user's bonus entries, newest first, optionally filtered by
// type.
func (r *BonusRepository) History(userID uint, bonusType string, limit, offset int) ([]models.Bonus, error) {
	q := r.db.Where("user_id = ?", userID)
	if bonusType != "" {
		q = q.Where("type = ?", bonusType)
	}
	var list []models.Bonus
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// TypeTotal is one line of a bonus summary.
type TypeTotal struct {
	Type        string `json:"type"`
	AmountCents int64  `json:"amount_cents"`
	Count       int64  `json:"count"`
}

// SummaryFor aggregates a user's committed entries by type, optionally
// restricted to one period.
func (r *BonusRepository) SummaryFor(userID uint, periodKey string) ([]TypeTotal, error) {
	q := r.db.Model(&models.Bonus{}).Where("user_id = ?", userID)
	if periodKey != "" {
		q = q.Where("period_key = ?", periodKey)
	}
	var rows []TypeTotal
	err := q.Select("type", "COALESCE(SUM(amount_cents), 0) as amount_cents", "COUNT(*) as count").
		Group("type").
		Find(&rows).Error
	return rows, err
}

// ListByEvent returns every ledger row produced for one source event.
func (r *BonusRepository) ListByEvent(sourceRef string) ([]models.Bonus, error) {
	var list []models.Bonus
	err := r.db.Where("source_ref = ?", sourceRef).Order("level ASC").Find(&list).Error
	return list, err
}

// MarkPaid flips a pending entry to PAID. Only the external payout subsystem
// calls this; the engine never touches status after the append.
func (r *BonusRepository) MarkPaid(id uint, at time.Time) error {
	return r.db.Model(&models.Bonus{}).
		Where("id = ? AND status = ?", id, domain.BonusStatusPending).
		UpdateColumns(map[string]interface{}{"status": domain.BonusStatusPaid, "paid_at": at}).Error
}
