package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/stanmart1/rest-empire-sub000/internal/domain"
	"github.com/stanmart1/rest-empire-sub000/internal/models"
	"github.com/stanmart1/rest-empire-sub000/internal/monitoring"
	"github.com/stanmart1/rest-empire-sub000/internal/repository"
	"github.com/stanmart1/rest-empire-sub000/internal/ws"
)

// UnilevelService walks the sponsor chain for each purchase event and pays
// the per-level percentages to active ancestors, compressing out inactive
// ones.
type UnilevelService struct {
	userRepo      *repository.UserRepository
	bonusRepo     *repository.BonusRepository
	attemptRepo   *repository.AttemptRepository
	integrityRepo *repository.IntegrityRepository
	snapshots     *SnapshotService
	hub           *ws.Hub
	locks         *userLocks
}

func NewUnilevelService(
	userRepo *repository.UserRepository,
	bonusRepo *repository.BonusRepository,
	attemptRepo *repository.AttemptRepository,
	integrityRepo *repository.IntegrityRepository,
	snapshots *SnapshotService,
	hub *ws.Hub,
) *UnilevelService {
	return &UnilevelService{
		userRepo:      userRepo,
		bonusRepo:     bonusRepo,
		attemptRepo:   attemptRepo,
		integrityRepo: integrityRepo,
		snapshots:     snapshots,
		hub:           hub,
		locks:         newUserLocks(),
	}
}

// Distribute runs one distribution pass for a transaction, retrying transient
// storage errors with backoff. Integrity errors are not retried: the subtree
// is flagged and the event is deferred for manual review.
func (s *UnilevelService) Distribute(ctx context.Context, tx *models.Transaction) error {
	var err error
	backoff := 100 * time.Millisecond
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		err = s.distributeOnce(ctx, tx)
		if err == nil {
			monitoring.DistributionsTotal.WithLabelValues("completed").Inc()
			return nil
		}
		if errors.Is(err, repository.ErrCycleDetected) || errors.Is(err, repository.ErrSponsorNotFound) {
			break
		}
	}
	monitoring.DistributionsTotal.WithLabelValues("deferred").Inc()
	return err
}

func (s *UnilevelService) distributeOnce(ctx context.Context, tx *models.Transaction) error {
	unlock := s.locks.Lock(tx.UserID)
	defer unlock()

	// One immutable config snapshot for the whole pass; admin edits made
	// while this runs are only seen by later events.
	plan, err := s.snapshots.Load()
	if err != nil {
		return err
	}

	attempt, err := s.attemptRepo.Begin(tx.ID)
	if err != nil {
		return fmt.Errorf("begin attempt for event %d: %w", tx.ID, err)
	}
	if attempt.Status == domain.AttemptStatusCompleted {
		monitoring.DistributionsTotal.WithLabelValues("duplicate").Inc()
		return nil
	}

	chain, err := s.userRepo.SponsorChain(tx.UserID)
	if err != nil {
		s.flagIntegrity(tx.UserID, err)
		return err
	}

	sourceRef := "tx:" + strconv.FormatUint(uint64(tx.ID), 10)
	level := 0
	for _, ancestor := range chain {
		if level >= domain.UnilevelDepth {
			break
		}
		// Dynamic compression: an inactive sponsor is passed over entirely
		// and consumes no level slot.
		if !ancestor.IsActiveAt(tx.OccurredAt) {
			continue
		}
		level++
		amount := levelAmount(tx.AmountCents, plan.Levels[level-1])
		if amount <= 0 {
			continue
		}
		created, err := s.bonusRepo.Record(&models.Bonus{
			UserID:      ancestor.ID,
			Type:        domain.BonusTypeUnilevel,
			SourceRef:   sourceRef,
			Level:       level,
			PeriodKey:   PeriodKey(tx.OccurredAt),
			AmountCents: amount,
			Currency:    tx.Currency,
		})
		if err != nil {
			return fmt.Errorf("record level %d for event %d: %w", level, tx.ID, err)
		}
		if created {
			monitoring.BonusCentsTotal.WithLabelValues(domain.BonusTypeUnilevel).Add(float64(amount))
			if s.hub != nil {
				s.hub.BroadcastToUser(ancestor.ID, ws.Event{
					Type:        "bonus",
					BonusType:   domain.BonusTypeUnilevel,
					Level:       level,
					AmountCents: amount,
					Currency:    tx.Currency,
				})
			}
		}
	}

	// An activation starts/extends the 30-day activity clock for the payer
	// and their direct sponsor.
	if tx.Type == domain.EventTypeActivation {
		until := tx.OccurredAt.Add(plan.ActivityWindow)
		ids := []uint{tx.UserID}
		if len(chain) > 0 {
			ids = append(ids, chain[0].ID)
		}
		if err := s.userRepo.ExtendActivity(ids, until); err != nil {
			return fmt.Errorf("extend activity for event %d: %w", tx.ID, err)
		}
	}

	if err := s.attemptRepo.Complete(tx.ID); err != nil {
		return fmt.Errorf("complete attempt for event %d: %w", tx.ID, err)
	}
	return nil
}

func (s *UnilevelService) flagIntegrity(userID uint, err error) {
	kind := domain.FlagBrokenSponsorLink
	if errors.Is(err, repository.ErrCycleDetected) || errors.Is(err, repository.ErrChainTooDeep) {
		kind = domain.FlagCycleDetected
	}
	log.Printf("[unilevel] integrity error for user %d: %v", userID, err)
	monitoring.IntegrityWarningsTotal.Inc()
	if s.integrityRepo != nil {
		_ = s.integrityRepo.Flag(userID, kind, err.Error())
	}
}

// levelAmount computes pct% of the purchase, rounded to the nearest cent.
func levelAmount(amountCents int64, pct float64) int64 {
	return int64(math.Round(float64(amountCents) * pct / 100))
}

// PeriodKey maps a timestamp to its calendar-month period, e.g. "2026-08".
func PeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// PeriodWindow returns the [start, end) window of the period containing t.
// Half-open on the right so consecutive periods tile: the midnight instant
// that ends one month already belongs to the next.
func PeriodWindow(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
