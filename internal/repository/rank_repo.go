package repository

import (
	"github.com/stanmart1/rest-empire-sub000/internal/models"

	"gorm.io/gorm"
)

type RankRepository struct {
	db *gorm.DB
}

func NewRankRepository(db *gorm.DB) *RankRepository {
	return &RankRepository{db: db}
}

// ListOrdered returns the full tier table, lowest tier first.
func (r *RankRepository) ListOrdered() ([]models.Rank, error) {
	var list []models.Rank
	err := r.db.Order("sort_order ASC").Find(&list).Error
	return list, err
}

func (r *RankRepository) GetByID(id uint) (*models.Rank, error) {
	var rank models.Rank
	if err := r.db.First(&rank, id).Error; err != nil {
		return nil, err
	}
	return &rank, nil
}

func (r *RankRepository) GetByName(name string) (*models.Rank, error) {
	var rank models.Rank
	if err := r.db.Where("name = ?", name).First(&rank).Error; err != nil {
		return nil, err
	}
	return &rank, nil
}

// BulkUpdateRequirements applies the admin bulk-edit in one transaction.
// Callers validate monotonicity first; this only persists.
func (r *RankRepository) BulkUpdateRequirements(ranks []models.Rank) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, rank := range ranks {
			err := tx.Model(&models.Rank{}).Where("id = ?", rank.ID).
				UpdateColumns(map[string]interface{}{
					"team_turnover_cents":  rank.TeamTurnoverCents,
					"first_leg_cap_cents":  rank.FirstLegCapCents,
					"second_leg_cap_cents": rank.SecondLegCapCents,
					"other_legs_min_cents": rank.OtherLegsMinCents,
					"bonus_cents":          rank.BonusCents,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
