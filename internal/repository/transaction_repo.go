package repository

import (
	"time"

	"github.com/stanmart1/rest-empire-sub000/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Record inserts a transaction, ignoring duplicates on external_ref so
// gateway webhook redeliveries are harmless. Returns whether a row was
// actually created; on a duplicate the stored row is loaded back so the
// caller always gets the canonical id.
func (r *TransactionRepository) Record(tx *models.Transaction) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_ref"}},
		DoNothing: true,
	}).Create(tx)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		var existing models.Transaction
		if err := r.db.Where("external_ref = ?", tx.ExternalRef).First(&existing).Error; err != nil {
			return false, err
		}
		*tx = existing
		return false, nil
	}
	return true, nil
}

func (r *TransactionRepository) GetByID(id uint) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.First(&tx, id).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

// SumPurchasesByUser returns each user's own purchase volume inside the
// [start, end) window, in one grouped query. Activations count as volume too:
// they are paid product orders that also start the activity clock.
func (r *TransactionRepository) SumPurchasesByUser(start, end time.Time) (map[uint]int64, error) {
	type row struct {
		UserID uint
		Total  int64
	}
	var rows []row
	err := r.db.Model(&models.Transaction{}).
		Select("user_id", "COALESCE(SUM(amount_cents), 0) as total").
		Where("occurred_at >= ? AND occurred_at < ?", start, end).
		Group("user_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]int64, len(rows))
	for _, r := range rows {
		out[r.UserID] = r.Total
	}
	return out, nil
}

func (r *TransactionRepository) ListByUser(userID uint, limit, offset int) ([]models.Transaction, error) {
	var list []models.Transaction
	err := r.db.Where("user_id = ?", userID).
		Order("occurred_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}
