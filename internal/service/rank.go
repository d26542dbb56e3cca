package service

import (
	"context"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/stanmart1/rest-empire-sub000/internal/domain"
	"github.com/stanmart1/rest-empire-sub000/internal/models"
	"github.com/stanmart1/rest-empire-sub000/internal/monitoring"
	"github.com/stanmart1/rest-empire-sub000/internal/repository"
	"github.com/stanmart1/rest-empire-sub000/internal/ws"
)

// Leg is one direct child of a user together with its whole subtree, treated
// as a unit for qualification.
type Leg struct {
	LeaderID      uint  `json:"leader_id"`
	TurnoverCents int64 `json:"turnover_cents"`
}

// Qualification is the rank-progress view the dashboard consumes.
type Qualification struct {
	Rank     *models.Rank `json:"rank"`      // nil = no rank yet
	NextRank *models.Rank `json:"next_rank"` // nil = top of the table

	TotalTurnoverCents int64 `json:"total_turnover_cents"`
	FirstLegCents      int64 `json:"first_leg_cents"`
	SecondLegCents     int64 `json:"second_leg_cents"`
	OtherLegsCents     int64 `json:"other_legs_cents"`

	// Qualifying volume and progress are measured against NextRank's caps.
	QualifyingCents int64   `json:"qualifying_cents"`
	OverallPct      float64 `json:"overall_pct"`
	FirstLegPct     float64 `json:"first_leg_pct"`
	SecondLegPct    float64 `json:"second_leg_pct"`
	OtherLegsPct    float64 `json:"other_legs_pct"`

	Legs []Leg `json:"legs"`
}

// SortLegs ranks a user's legs descending by turnover. Ties go to the leg
// whose leader registered earlier.
func SortLegs(ts *TreeSnapshot, userID uint) []Leg {
	turnovers := ts.LegTurnovers(userID)
	legs := make([]Leg, 0, len(turnovers))
	for id, v := range turnovers {
		legs = append(legs, Leg{LeaderID: id, TurnoverCents: v})
	}
	sort.Slice(legs, func(i, j int) bool {
		if legs[i].TurnoverCents != legs[j].TurnoverCents {
			return legs[i].TurnoverCents > legs[j].TurnoverCents
		}
		ni, nj := ts.Node(legs[i].LeaderID), ts.Node(legs[j].LeaderID)
		return ni.RegisteredAt.Before(nj.RegisteredAt)
	})
	return legs
}

// splitLegs designates first leg, second leg and the summed remainder.
func splitLegs(legs []Leg) (first, second, others int64) {
	for i, l := range legs {
		switch i {
		case 0:
			first = l.TurnoverCents
		case 1:
			second = l.TurnoverCents
		default:
			others += l.TurnoverCents
		}
	}
	return
}

// QualifyingVolume applies the tier's leg caps: a single dominant leg can
// contribute at most its cap's worth of credit.
func QualifyingVolume(first, second, others int64, tier *models.Rank) int64 {
	return min64(first, tier.FirstLegCapCents) + min64(second, tier.SecondLegCapCents) + others
}

// QualifiesFor tests one tier: capped volume must meet the team requirement
// and the legs outside the top two must meet the diversification floor.
func QualifiesFor(first, second, others int64, tier *models.Rank) bool {
	return QualifyingVolume(first, second, others, tier) >= tier.TeamTurnoverCents &&
		others >= tier.OtherLegsMinCents
}

// RankService evaluates rank qualification and runs the periodic sweep.
type RankService struct {
	userRepo  *repository.UserRepository
	bonusRepo *repository.BonusRepository
	turnover  *TurnoverService
	snapshots *SnapshotService
	hub       *ws.Hub
	currency  string
}

func NewRankService(userRepo *repository.UserRepository, bonusRepo *repository.BonusRepository, turnover *TurnoverService, snapshots *SnapshotService, hub *ws.Hub, currency string) *RankService {
	return &RankService{userRepo: userRepo, bonusRepo: bonusRepo, turnover: turnover, snapshots: snapshots, hub: hub, currency: currency}
}

// Evaluate computes a user's qualification against the plan's tier table.
// Tiers are scanned in ascending order and the scan stops at the first tier
// that fails: leg composition matters, so a previously-held rank is never
// assumed to still be valid.
func Evaluate(ts *TreeSnapshot, plan *CompPlan, userID uint) Qualification {
	legs := SortLegs(ts, userID)
	first, second, others := splitLegs(legs)

	q := Qualification{
		TotalTurnoverCents: ts.TotalTurnover(userID),
		FirstLegCents:      first,
		SecondLegCents:     second,
		OtherLegsCents:     others,
		Legs:               legs,
	}
	for i := range plan.Ranks {
		tier := &plan.Ranks[i]
		if !QualifiesFor(first, second, others, tier) {
			q.NextRank = tier
			break
		}
		q.Rank = tier
	}
	if q.NextRank != nil {
		next := q.NextRank
		q.QualifyingCents = QualifyingVolume(first, second, others, next)
		q.OverallPct = pct(q.QualifyingCents, next.TeamTurnoverCents)
		q.FirstLegPct = pct(min64(first, next.FirstLegCapCents), next.FirstLegCapCents)
		q.SecondLegPct = pct(min64(second, next.SecondLegCapCents), next.SecondLegCapCents)
		q.OtherLegsPct = pct(others, next.OtherLegsMinCents)
	} else if q.Rank != nil {
		// Top of the table: report fully qualified.
		q.QualifyingCents = QualifyingVolume(first, second, others, q.Rank)
		q.OverallPct, q.FirstLegPct, q.SecondLegPct, q.OtherLegsPct = 100, 100, 100, 100
	}
	return q
}

// Progress is the live rank-progress query behind GET /me/status.
func (s *RankService) Progress(userID uint, windowStart, windowEnd time.Time) (*Qualification, error) {
	plan, err := s.snapshots.Load()
	if err != nil {
		return nil, err
	}
	ts, err := s.turnover.BuildSnapshot(windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	q := Evaluate(ts, plan, userID)
	return &q, nil
}

// Sweep recomputes every user's rank over the window and persists changes.
// A first-time achievement appends a one-time rank bonus (idempotent on the
// rank id, so re-running a sweep can't double-pay) and is broadcast to the
// bonus feed.
func (s *RankService) Sweep(ctx context.Context, windowStart, windowEnd time.Time) error {
	plan, err := s.snapshots.Load()
	if err != nil {
		return err
	}
	ts, err := s.turnover.BuildSnapshot(windowStart, windowEnd)
	if err != nil {
		return err
	}
	for _, id := range ts.UserIDs() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		q := Evaluate(ts, plan, id)
		var newRankID uint
		if q.Rank != nil {
			newRankID = q.Rank.ID
		}
		node := ts.Node(id)
		if node.RankID == newRankID && q.Rank == nil {
			continue
		}
		u, err := s.userRepo.GetByID(id)
		if err != nil {
			log.Printf("[rank] load user %d: %v", id, err)
			continue
		}
		highest := u.HighestRankID
		achieved := false
		if q.Rank != nil {
			prev := plan.RankByID(u.HighestRankID)
			if prev == nil || q.Rank.SortOrder > prev.SortOrder {
				highest = q.Rank.ID
				achieved = true
			}
		}
		if u.RankID != newRankID || highest != u.HighestRankID {
			if err := s.userRepo.UpdateRank(id, newRankID, highest); err != nil {
				log.Printf("[rank] update user %d: %v", id, err)
				continue
			}
		}
		if achieved && q.Rank.BonusCents > 0 {
			created, err := s.bonusRepo.Record(&models.Bonus{
				UserID:      id,
				Type:        domain.BonusTypeRank,
				SourceRef:   "rank:" + strconv.FormatUint(uint64(q.Rank.ID), 10),
				AmountCents: q.Rank.BonusCents,
				Currency:    s.currency,
			})
			if err != nil {
				log.Printf("[rank] record achievement bonus for user %d: %v", id, err)
				continue
			}
			if created {
				monitoring.RankAchievementsTotal.Inc()
				monitoring.BonusCentsTotal.WithLabelValues(domain.BonusTypeRank).Add(float64(q.Rank.BonusCents))
				if s.hub != nil {
					s.hub.BroadcastToUser(id, ws.Event{
						Type:        "rank_achieved",
						RankName:    q.Rank.Name,
						AmountCents: q.Rank.BonusCents,
					})
				}
			}
		}
	}
	monitoring.RankSweepsTotal.Inc()
	return nil
}

func pct(have, need int64) float64 {
	if need <= 0 {
		return 100
	}
	p := float64(have) / float64(need) * 100
	if p > 100 {
		return 100
	}
	return p
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
