package service

import (
	"context"
	"testing"
	"time"

	"github.com/stanmart1/rest-empire-sub000/internal/domain"
	"github.com/stanmart1/rest-empire-sub000/internal/models"
	"github.com/stanmart1/rest-empire-sub000/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newInfinityService(t *testing.T, db *gorm.DB) *InfinityService {
	t.Helper()
	turnover := NewTurnoverService(
		repository.NewUserRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewIntegrityRepository(db),
	)
	snapshots := NewSnapshotService(repository.NewSettingRepository(db), repository.NewRankRepository(db))
	return NewInfinityService(repository.NewBonusRepository(db), turnover, snapshots, nil, "USD")
}

func seedInfinityRanks(t *testing.T, db *gorm.DB) (amber, diamond models.Rank) {
	t.Helper()
	amber = models.Rank{Name: "Amber", SortOrder: 1, TeamTurnoverCents: 10_000, FirstLegCapCents: 5_000, SecondLegCapCents: 3_000, OtherLegsMinCents: 2_000}
	require.NoError(t, db.Create(&amber).Error)
	diamond = models.Rank{Name: "Diamond", SortOrder: 2, TeamTurnoverCents: 1_000_000, FirstLegCapCents: 500_000, SecondLegCapCents: 300_000, OtherLegsMinCents: 200_000}
	require.NoError(t, db.Create(&diamond).Error)
	return amber, diamond
}

func setRank(t *testing.T, db *gorm.DB, u *models.User, rankID uint) {
	t.Helper()
	require.NoError(t, db.Model(u).Update("rank_id", rankID).Error)
}

func TestInfinity_PaysEligibleRanksOnDownstreamVolume(t *testing.T) {
	db := newTestDB(t)
	amber, diamond := seedInfinityRanks(t, db)
	seedSettings(t, db, map[string]string{
		domain.SettingUnilevelPercentages: "10,6,5,4,3,3,2,2,2,2,1,1,1,1,1",
		domain.SettingInfinityEnabled:     "true",
		domain.SettingInfinityPercent:     "10",
		domain.SettingInfinityMinRank:     "Diamond",
	})
	svc := newInfinityService(t, db)

	now := time.Now()
	top := mustUser(t, db, "top", nil, nil)
	setRank(t, db, top, diamond.ID)
	mid := mustUser(t, db, "mid", &top.ID, nil)
	setRank(t, db, mid, amber.ID) // below the floor, ineligible
	leaf := mustUser(t, db, "leaf", &mid.ID, nil)

	mustTx(t, db, top, "i1", 77_700, domain.EventTypePurchase, now) // own volume, excluded
	mustTx(t, db, mid, "i2", 40_000, domain.EventTypePurchase, now)
	mustTx(t, db, leaf, "i3", 20_000, domain.EventTypePurchase, now)

	key := PeriodKey(now)
	start, end := PeriodWindow(now)
	require.NoError(t, svc.RunPeriod(context.Background(), key, start, end))

	bonusRepo := repository.NewBonusRepository(db)
	rows, err := bonusRepo.ListByEvent(key)
	require.NoError(t, err)
	require.Len(t, rows, 1, "only the rank at the floor gets paid")
	assert.Equal(t, top.ID, rows[0].UserID)
	assert.Equal(t, domain.BonusTypeInfinity, rows[0].Type)
	// 10% of the 60,000 downstream volume; own purchases don't count
	assert.Equal(t, int64(6_000), rows[0].AmountCents)
	assert.Equal(t, key, rows[0].PeriodKey)
	assert.Equal(t, "USD", rows[0].Currency, "ledger rows carry the configured currency")
}

func TestInfinity_OneRowPerUserPerPeriod(t *testing.T) {
	db := newTestDB(t)
	_, diamond := seedInfinityRanks(t, db)
	seedSettings(t, db, map[string]string{
		domain.SettingUnilevelPercentages: "10,6,5,4,3,3,2,2,2,2,1,1,1,1,1",
		domain.SettingInfinityEnabled:     "true",
		domain.SettingInfinityPercent:     "5",
		domain.SettingInfinityMinRank:     "Diamond",
	})
	svc := newInfinityService(t, db)

	now := time.Now()
	top := mustUser(t, db, "top", nil, nil)
	setRank(t, db, top, diamond.ID)
	leaf := mustUser(t, db, "leaf", &top.ID, nil)
	mustTx(t, db, leaf, "i1", 50_000, domain.EventTypePurchase, now)

	key := PeriodKey(now)
	start, end := PeriodWindow(now)
	require.NoError(t, svc.RunPeriod(context.Background(), key, start, end))
	require.NoError(t, svc.RunPeriod(context.Background(), key, start, end))

	var count int64
	require.NoError(t, db.Model(&models.Bonus{}).
		Where("user_id = ? AND type = ?", top.ID, domain.BonusTypeInfinity).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestInfinity_DisabledPaysNothing(t *testing.T) {
	db := newTestDB(t)
	_, diamond := seedInfinityRanks(t, db)
	seedSettings(t, db, map[string]string{
		domain.SettingUnilevelPercentages: "10,6,5,4,3,3,2,2,2,2,1,1,1,1,1",
		domain.SettingInfinityEnabled:     "false",
		domain.SettingInfinityPercent:     "10",
		domain.SettingInfinityMinRank:     "Diamond",
	})
	svc := newInfinityService(t, db)

	now := time.Now()
	top := mustUser(t, db, "top", nil, nil)
	setRank(t, db, top, diamond.ID)
	leaf := mustUser(t, db, "leaf", &top.ID, nil)
	mustTx(t, db, leaf, "i1", 50_000, domain.EventTypePurchase, now)

	key := PeriodKey(now)
	start, end := PeriodWindow(now)
	require.NoError(t, svc.RunPeriod(context.Background(), key, start, end))

	var count int64
	require.NoError(t, db.Model(&models.Bonus{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestInfinity_UnconfiguredFloorExcludesEveryone(t *testing.T) {
	db := newTestDB(t)
	_, diamond := seedInfinityRanks(t, db)
	seedSettings(t, db, map[string]string{
		domain.SettingUnilevelPercentages: "10,6,5,4,3,3,2,2,2,2,1,1,1,1,1",
		domain.SettingInfinityEnabled:     "true",
		domain.SettingInfinityPercent:     "10",
		// no min-rank setting
	})
	svc := newInfinityService(t, db)

	now := time.Now()
	top := mustUser(t, db, "top", nil, nil)
	setRank(t, db, top, diamond.ID)
	leaf := mustUser(t, db, "leaf", &top.ID, nil)
	mustTx(t, db, leaf, "i1", 50_000, domain.EventTypePurchase, now)

	key := PeriodKey(now)
	start, end := PeriodWindow(now)
	require.NoError(t, svc.RunPeriod(context.Background(), key, start, end))

	var count int64
	require.NoError(t, db.Model(&models.Bonus{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
