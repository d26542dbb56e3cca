package repository

import (
	"github.com/stanmart1/rest-empire-sub000/internal/models"

	"gorm.io/gorm"
)

type IntegrityRepository struct {
	db *gorm.DB
}

func NewIntegrityRepository(db *gorm.DB) *IntegrityRepository {
	return &IntegrityRepository{db: db}
}

// Flag records an integrity problem unless an unresolved flag of the same
// kind already exists for the user, so sweeps don't pile up duplicates.
func (r *IntegrityRepository) Flag(userID uint, kind, detail string) error {
	var count int64
	r.db.Model(&models.IntegrityFlag{}).
		Where("user_id = ? AND kind = ? AND resolved = ?", userID, kind, false).
		Count(&count)
	if count > 0 {
		return nil
	}
	return r.db.Create(&models.IntegrityFlag{UserID: userID, Kind: kind, Detail: detail}).Error
}

func (r *IntegrityRepository) ListUnresolved(limit, offset int) ([]models.IntegrityFlag, error) {
	var list []models.IntegrityFlag
	err := r.db.Where("resolved = ?", false).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

func (r *IntegrityRepository) Resolve(id uint) error {
	return r.db.Model(&models.IntegrityFlag{}).Where("id = ?", id).
		UpdateColumn("resolved", true).Error
}
