package repository

import (
	"testing"
	"time"

	"github.com/stanmart1/rest-empire-sub000/internal/domain"
	"github.com/stanmart1/rest-empire-sub000/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionRecord_DedupesOnExternalRef(t *testing.T) {
	db := newTestDB(t)
	repo := NewTransactionRepository(db)
	u := mustUser(t, db, "u", nil)

	now := time.Now()
	first := &models.Transaction{
		ExternalRef: "gw-001",
		UserID:      u.ID,
		AmountCents: 10_000,
		Currency:    "EUR",
		Type:        domain.EventTypePurchase,
		OccurredAt:  now,
	}
	created, err := repo.Record(first)
	require.NoError(t, err)
	assert.True(t, created)

	// webhook redelivery with a diverging amount: the stored row wins
	replay := &models.Transaction{
		ExternalRef: "gw-001",
		UserID:      u.ID,
		AmountCents: 99_999,
		Currency:    "EUR",
		Type:        domain.EventTypePurchase,
		OccurredAt:  now,
	}
	created, err = repo.Record(replay)
	require.NoError(t, err)
	assert.False(t, created)
	// the canonical row is loaded back into the argument
	assert.Equal(t, first.ID, replay.ID)
	assert.Equal(t, int64(10_000), replay.AmountCents)

	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSumPurchasesByUser_WindowIsHalfOpen(t *testing.T) {
	db := newTestDB(t)
	repo := NewTransactionRepository(db)
	u := mustUser(t, db, "u", nil)

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	mk := func(ref string, at time.Time, cents int64) {
		_, err := repo.Record(&models.Transaction{
			ExternalRef: ref, UserID: u.ID, AmountCents: cents,
			Currency: "EUR", Type: domain.EventTypePurchase, OccurredAt: at,
		})
		require.NoError(t, err)
	}
	mk("t0", start.Add(-time.Second), 100) // before the window: excluded
	mk("t1", start, 200)                   // exactly at start: included
	mk("t2", end.Add(-time.Second), 400)   // inside
	mk("t3", end, 800)                     // exactly at end: next period

	sums, err := repo.SumPurchasesByUser(start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(600), sums[u.ID])
}

func TestSumPurchasesByUser_MonthBoundaryCountedOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewTransactionRepository(db)
	u := mustUser(t, db, "u", nil)

	augStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	sepStart := augStart.AddDate(0, 1, 0)
	octStart := sepStart.AddDate(0, 1, 0)

	// a purchase timestamped exactly at midnight on the 1st
	_, err := repo.Record(&models.Transaction{
		ExternalRef: "boundary", UserID: u.ID, AmountCents: 10_000,
		Currency: "EUR", Type: domain.EventTypePurchase, OccurredAt: sepStart,
	})
	require.NoError(t, err)

	aug, err := repo.SumPurchasesByUser(augStart, sepStart)
	require.NoError(t, err)
	sep, err := repo.SumPurchasesByUser(sepStart, octStart)
	require.NoError(t, err)
	assert.Zero(t, aug[u.ID], "the closing instant belongs to the next month")
	assert.Equal(t, int64(10_000), sep[u.ID])
}

func TestAttemptBeginAndComplete(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttemptRepository(db)

	a, err := repo.Begin(7)
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptStatusStarted, a.Status)
	assert.NotEmpty(t, a.AttemptID)

	// a second Begin for the same event reuses the existing marker
	b, err := repo.Begin(7)
	require.NoError(t, err)
	assert.Equal(t, a.AttemptID, b.AttemptID)

	require.NoError(t, repo.Complete(7))
	c, err := repo.Begin(7)
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptStatusCompleted, c.Status)
}

func TestIntegrityFlag_DedupesUnresolved(t *testing.T) {
	db := newTestDB(t)
	repo := NewIntegrityRepository(db)
	u := mustUser(t, db, "u", nil)

	require.NoError(t, repo.Flag(u.ID, domain.FlagBrokenSponsorLink, "first"))
	require.NoError(t, repo.Flag(u.ID, domain.FlagBrokenSponsorLink, "second"))

	flags, err := repo.ListUnresolved(10, 0)
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, "first", flags[0].Detail)

	// once resolved, a recurrence is flagged again
	require.NoError(t, repo.Resolve(flags[0].ID))
	require.NoError(t, repo.Flag(u.ID, domain.FlagBrokenSponsorLink, "again"))
	flags, err = repo.ListUnresolved(10, 0)
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, "again", flags[0].Detail)
}
