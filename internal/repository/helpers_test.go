package repository

import (
	"testing"

	"github.com/stanmart1/rest-empire-sub000/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection keeps every session on the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Rank{},
		&models.Transaction{},
		&models.Bonus{},
		&models.DistributionAttempt{},
		&models.IntegrityFlag{},
		&models.SystemSetting{},
	))
	return db
}

func mustUser(t *testing.T, db *gorm.DB, username string, sponsorID *uint) *models.User {
	t.Helper()
	u := &models.User{
		Email:     username + "@example.test",
		Username:  username,
		Role:      "DISTRIBUTOR",
		SponsorID: sponsorID,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}
