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
)

// sapphire mirrors the admin UI's example tier: 100,000 team turnover with
// 50,000 / 30,000 leg caps and a 20,000 floor outside the top two legs.
func sapphire() *models.Rank {
	return &models.Rank{
		ID:                4,
		Name:              "Sapphire",
		SortOrder:         4,
		TeamTurnoverCents: 100_000,
		FirstLegCapCents:  50_000,
		SecondLegCapCents: 30_000,
		OtherLegsMinCents: 20_000,
	}
}

func TestQualifiesFor(t *testing.T) {
	tier := sapphire()
	tests := []struct {
		name                   string
		first, second, others  int64
		wantVolume             int64
		wantQualifies          bool
	}{
		{
			// one dominant leg: 100,000 raw volume but only 70,000 counts
			name: "dominant first leg fails despite raw total",
			first: 80_000, second: 15_000, others: 5_000,
			wantVolume: 70_000, wantQualifies: false,
		},
		{
			name: "balanced legs qualify exactly at the floor",
			first: 50_000, second: 30_000, others: 20_000,
			wantVolume: 100_000, wantQualifies: true,
		},
		{
			// capped volume meets the requirement but diversification floor missed
			name: "other legs below minimum",
			first: 50_000, second: 30_000, others: 19_999,
			wantVolume: 99_999, wantQualifies: false,
		},
		{
			name: "excess beyond caps is ignored",
			first: 500_000, second: 300_000, others: 20_000,
			wantVolume: 100_000, wantQualifies: true,
		},
		{
			// 90% concentration in the top leg
			name: "ninety percent in one leg",
			first: 180_000, second: 10_000, others: 10_000,
			wantVolume: 70_000, wantQualifies: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantVolume, QualifyingVolume(tt.first, tt.second, tt.others, tier))
			assert.Equal(t, tt.wantQualifies, QualifiesFor(tt.first, tt.second, tt.others, tier))
		})
	}
}

func TestSortLegs_TieBreaksOnRegistration(t *testing.T) {
	now := time.Now()
	older := now.Add(-48 * time.Hour)
	rows := []repository.TreeRow{
		{ID: 1, SponsorID: nil, CreatedAt: now},
		{ID: 2, SponsorID: ptrUint(1), CreatedAt: now},   // newer child
		{ID: 3, SponsorID: ptrUint(1), CreatedAt: older}, // older child, same turnover
	}
	ts := snapFrom(rows, map[uint]int64{2: 1000, 3: 1000})

	legs := SortLegs(ts, 1)
	require.Len(t, legs, 2)
	assert.Equal(t, uint(3), legs[0].LeaderID, "earlier registration wins the higher leg")
	assert.Equal(t, uint(2), legs[1].LeaderID)
}

func testPlan(ranks ...models.Rank) *CompPlan {
	levels := make([]float64, domain.UnilevelDepth)
	return &CompPlan{Version: "test", Ranks: ranks, Levels: levels}
}

func TestEvaluate_StopsAtFirstFailingTier(t *testing.T) {
	amber := models.Rank{ID: 1, Name: "Amber", SortOrder: 1, TeamTurnoverCents: 10_000, FirstLegCapCents: 5_000, SecondLegCapCents: 3_000, OtherLegsMinCents: 2_000}
	jade := models.Rank{ID: 2, Name: "Jade", SortOrder: 2, TeamTurnoverCents: 40_000, FirstLegCapCents: 20_000, SecondLegCapCents: 12_000, OtherLegsMinCents: 8_000}
	pearl := models.Rank{ID: 3, Name: "Pearl", SortOrder: 3, TeamTurnoverCents: 100_000, FirstLegCapCents: 50_000, SecondLegCapCents: 30_000, OtherLegsMinCents: 20_000}

	now := time.Now()
	rows := []repository.TreeRow{
		{ID: 1, CreatedAt: now},
		{ID: 2, SponsorID: ptrUint(1), CreatedAt: now.Add(-3 * time.Hour)},
		{ID: 3, SponsorID: ptrUint(1), CreatedAt: now.Add(-2 * time.Hour)},
		{ID: 4, SponsorID: ptrUint(1), CreatedAt: now.Add(-1 * time.Hour)},
	}
	// legs 20,000 / 12,000 / 8,000: qualifies Amber and Jade, fails Pearl
	ts := snapFrom(rows, map[uint]int64{2: 20_000, 3: 12_000, 4: 8_000})

	q := Evaluate(ts, testPlan(amber, jade, pearl), 1)
	require.NotNil(t, q.Rank)
	assert.Equal(t, "Jade", q.Rank.Name)
	require.NotNil(t, q.NextRank)
	assert.Equal(t, "Pearl", q.NextRank.Name)
	assert.Equal(t, int64(40_000), q.TotalTurnoverCents)
	// progress toward Pearl: 20,000+12,000+8,000 = 40,000 of 100,000
	assert.Equal(t, int64(40_000), q.QualifyingCents)
	assert.InDelta(t, 40.0, q.OverallPct, 0.001)
	assert.InDelta(t, 40.0, q.FirstLegPct, 0.001)
	assert.InDelta(t, 40.0, q.SecondLegPct, 0.001)
	assert.InDelta(t, 40.0, q.OtherLegsPct, 0.001)
}

func TestEvaluate_NotMonotonicInTotalTurnover(t *testing.T) {
	tier := *sapphire()
	now := time.Now()
	rows := []repository.TreeRow{
		{ID: 1, CreatedAt: now},
		{ID: 2, SponsorID: ptrUint(1), CreatedAt: now},
		{ID: 3, SponsorID: ptrUint(1), CreatedAt: now},
		{ID: 4, SponsorID: ptrUint(1), CreatedAt: now},
	}

	// 90% of 200,000 sits in one leg: double the requirement, still no rank.
	concentrated := snapFrom(rows, map[uint]int64{2: 180_000, 3: 10_000, 4: 10_000})
	q := Evaluate(concentrated, testPlan(tier), 1)
	assert.Nil(t, q.Rank)
	assert.Equal(t, int64(200_000), q.TotalTurnoverCents)

	// half that raw volume, balanced, qualifies
	balanced := snapFrom(rows, map[uint]int64{2: 50_000, 3: 30_000, 4: 20_000})
	q = Evaluate(balanced, testPlan(tier), 1)
	require.NotNil(t, q.Rank)
	assert.Equal(t, "Sapphire", q.Rank.Name)
	assert.Equal(t, float64(100), q.OverallPct)
}

func TestEvaluate_ProgressCappedAt100(t *testing.T) {
	tier := *sapphire()
	now := time.Now()
	rows := []repository.TreeRow{
		{ID: 1, CreatedAt: now},
		{ID: 2, SponsorID: ptrUint(1), CreatedAt: now},
	}
	// single enormous leg: fails the tier but the per-leg progress must not
	// exceed 100%
	ts := snapFrom(rows, map[uint]int64{2: 1_000_000})
	q := Evaluate(ts, testPlan(tier), 1)
	assert.Nil(t, q.Rank)
	assert.Equal(t, float64(100), q.FirstLegPct)
	assert.LessOrEqual(t, q.OverallPct, float64(100))
}

func TestSweep_PersistsRankAndPaysOneTimeBonus(t *testing.T) {
	db := newTestDB(t)
	userRepo := repository.NewUserRepository(db)
	bonusRepo := repository.NewBonusRepository(db)
	rankRepo := repository.NewRankRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	turnover := NewTurnoverService(userRepo, repository.NewTransactionRepository(db), repository.NewIntegrityRepository(db))
	snapshots := NewSnapshotService(settingRepo, rankRepo)
	svc := NewRankService(userRepo, bonusRepo, turnover, snapshots, nil, "USD")

	require.NoError(t, db.Create(&models.Rank{
		Name: "Amber", SortOrder: 1,
		TeamTurnoverCents: 10_000, FirstLegCapCents: 5_000,
		SecondLegCapCents: 3_000, OtherLegsMinCents: 2_000,
		BonusCents: 500,
	}).Error)
	seedSettings(t, db, map[string]string{
		domain.SettingUnilevelPercentages: "10,6,5,4,3,3,2,2,2,2,1,1,1,1,1",
	})

	now := time.Now()
	root := mustUser(t, db, "root", nil, nil)
	l1 := mustUser(t, db, "leg1", &root.ID, nil)
	l2 := mustUser(t, db, "leg2", &root.ID, nil)
	l3 := mustUser(t, db, "leg3", &root.ID, nil)
	mustTx(t, db, l1, "t1", 5_000, domain.EventTypePurchase, now)
	mustTx(t, db, l2, "t2", 3_000, domain.EventTypePurchase, now)
	mustTx(t, db, l3, "t3", 2_000, domain.EventTypePurchase, now)

	start, end := now.Add(-time.Hour), now.Add(time.Hour)
	require.NoError(t, svc.Sweep(context.Background(), start, end))

	got, err := userRepo.GetByID(root.ID)
	require.NoError(t, err)
	amber, err := rankRepo.GetByName("Amber")
	require.NoError(t, err)
	assert.Equal(t, amber.ID, got.RankID)
	assert.Equal(t, amber.ID, got.HighestRankID)

	bonuses, err := bonusRepo.History(root.ID, domain.BonusTypeRank, 10, 0)
	require.NoError(t, err)
	require.Len(t, bonuses, 1)
	assert.Equal(t, int64(500), bonuses[0].AmountCents)
	assert.Equal(t, "USD", bonuses[0].Currency, "ledger rows carry the configured currency")

	// a second sweep is a no-op: rank unchanged, no second achievement bonus
	require.NoError(t, svc.Sweep(context.Background(), start, end))
	bonuses, err = bonusRepo.History(root.ID, domain.BonusTypeRank, 10, 0)
	require.NoError(t, err)
	assert.Len(t, bonuses, 1)
}
