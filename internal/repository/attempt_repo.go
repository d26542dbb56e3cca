package repository

import (
	"github.com/stanmart1/rest-empire-sub000/internal/domain"
	"github.com/stanmart1/rest-empire-sub000/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Begin opens (or re-opens) the distribution attempt for an event. The unique
// event_id index means a retried event reuses its existing marker.
func (r *AttemptRepository) Begin(eventID uint) (*models.DistributionAttempt, error) {
	a := &models.DistributionAttempt{
		EventID:   eventID,
		AttemptID: uuid.NewString(),
		Status:    domain.AttemptStatusStarted,
	}
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(a)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		var existing models.DistributionAttempt
		if err := r.db.Where("event_id = ?", eventID).First(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	return a, nil
}

// Complete finalizes the marker once every level for the event resolved.
func (r *AttemptRepository) Complete(eventID uint) error {
	return r.db.Model(&models.DistributionAttempt{}).
		Where("event_id = ?", eventID).
		UpdateColumn("status", domain.AttemptStatusCompleted).Error
}
