package service

import (
	"strconv"
	"testing"
	"time"

	"github.com/stanmart1/rest-empire-sub000/internal/models"
	"github.com/stanmart1/rest-empire-sub000/internal/repository"

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

func seedSettings(t *testing.T, db *gorm.DB, settings map[string]string) {
	t.Helper()
	repo := repository.NewSettingRepository(db)
	for k, v := range settings {
		require.NoError(t, repo.Set(k, v))
	}
}

// mustUser inserts a user and returns it. sponsorID may be nil for roots.
func mustUser(t *testing.T, db *gorm.DB, username string, sponsorID *uint, activeUntil *time.Time) *models.User {
	t.Helper()
	u := &models.User{
		Email:       username + "@example.test",
		Username:    username,
		Role:        "DISTRIBUTOR",
		SponsorID:   sponsorID,
		ActiveUntil: activeUntil,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func mustTx(t *testing.T, db *gorm.DB, user *models.User, ref string, amountCents int64, txType string, at time.Time) *models.Transaction {
	t.Helper()
	tx := &models.Transaction{
		ExternalRef: ref,
		UserID:      user.ID,
		AmountCents: amountCents,
		Currency:    "EUR",
		Type:        txType,
		OccurredAt:  at,
	}
	require.NoError(t, db.Create(tx).Error)
	return tx
}

func ptrTime(t time.Time) *time.Time { return &t }
func ptrUint(v uint) *uint           { return &v }

func itoa(v uint) string { return strconv.FormatUint(uint64(v), 10) }

// snapFrom builds an in-memory snapshot directly from rows, bypassing storage.
func snapFrom(rows []repository.TreeRow, vol map[uint]int64) *TreeSnapshot {
	ts, _ := NewTreeSnapshot(rows, vol, time.Time{}, time.Now())
	return ts
}
