package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/stanmart1/rest-empire-sub000/internal/domain"
	"github.com/stanmart1/rest-empire-sub000/internal/models"
	"github.com/stanmart1/rest-empire-sub000/internal/monitoring"
	"github.com/stanmart1/rest-empire-sub000/internal/repository"
	"github.com/stanmart1/rest-empire-sub000/internal/ws"
)

// InfinityService pays the flat infinity percentage on total downstream
// volume to users at or above the configured rank floor. Unlike the unilevel
// walk this is neither leg-capped nor depth-limited.
type InfinityService struct {
	bonusRepo *repository.BonusRepository
	turnover  *TurnoverService
	snapshots *SnapshotService
	hub       *ws.Hub
	currency  string
}

func NewInfinityService(bonusRepo *repository.BonusRepository, turnover *TurnoverService, snapshots *SnapshotService, hub *ws.Hub, currency string) *InfinityService {
	return &InfinityService{bonusRepo: bonusRepo, turnover: turnover, snapshots: snapshots, hub: hub, currency: currency}
}

// RunPeriod computes the infinity bonus for every eligible user over one
// period. One ledger row per user per period; re-running is a no-op.
func (s *InfinityService) RunPeriod(ctx context.Context, periodKey string, windowStart, windowEnd time.Time) error {
	plan, err := s.snapshots.Load()
	if err != nil {
		return err
	}
	if !plan.InfinityEnabled || plan.InfinityPercent <= 0 {
		return nil
	}
	ts, err := s.turnover.BuildSnapshot(windowStart, windowEnd)
	if err != nil {
		return fmt.Errorf("infinity period %s: %w", periodKey, err)
	}
	for _, id := range ts.UserIDs() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		node := ts.Node(id)
		rank := plan.RankByID(node.RankID)
		if rank == nil || rank.SortOrder < plan.InfinityMinRank {
			continue
		}
		total := ts.TotalTurnover(id)
		amount := int64(math.Round(float64(total) * plan.InfinityPercent / 100))
		if amount <= 0 {
			continue
		}
		created, err := s.bonusRepo.Record(&models.Bonus{
			UserID:      id,
			Type:        domain.BonusTypeInfinity,
			SourceRef:   periodKey,
			PeriodKey:   periodKey,
			AmountCents: amount,
			Currency:    s.currency,
		})
		if err != nil {
			return fmt.Errorf("infinity period %s user %d: %w", periodKey, id, err)
		}
		if created {
			monitoring.BonusCentsTotal.WithLabelValues(domain.BonusTypeInfinity).Add(float64(amount))
			if s.hub != nil {
				s.hub.BroadcastToUser(id, ws.Event{
					Type:        "bonus",
					BonusType:   domain.BonusTypeInfinity,
					AmountCents: amount,
					Currency:    s.currency,
				})
			}
			log.Printf("[infinity] period %s: paid %d cents to user %d", periodKey, amount, id)
		}
	}
	return nil
}
