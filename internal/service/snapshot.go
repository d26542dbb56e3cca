package service

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stanmart1/rest-empire-sub000/internal/domain"
	"github.com/stanmart1/rest-empire-sub000/internal/models"
	"github.com/stanmart1/rest-empire-sub000/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrBadPercentageTable = errors.New("unilevel percentage table must have exactly 15 non-negative entries")
	ErrBadRankTable       = errors.New("rank table thresholds must be strictly increasing with non-negative caps")
	ErrNoValidConfig      = errors.New("no valid compensation config available")
)

// CompPlan is the immutable, versioned view of admin-tunable parameters one
// computation run works against. It is assembled once at the start of a run;
// concurrent admin edits are only picked up by the next run.
type CompPlan struct {
	Version         string
	Ranks           []models.Rank // ascending sort order
	Levels          []float64     // percentage per unilevel depth, len == domain.UnilevelDepth
	InfinityEnabled bool
	InfinityPercent float64
	InfinityMinRank int // sort order floor for infinity eligibility
	ActivityWindow  time.Duration
	LoadedAt        time.Time
}

// RankByOrder returns the tier at the given sort order, or nil.
func (p *CompPlan) RankByOrder(order int) *models.Rank {
	for i := range p.Ranks {
		if p.Ranks[i].SortOrder == order {
			return &p.Ranks[i]
		}
	}
	return nil
}

// RankByID returns the tier with the given id, or nil.
func (p *CompPlan) RankByID(id uint) *models.Rank {
	for i := range p.Ranks {
		if p.Ranks[i].ID == id {
			return &p.Ranks[i]
		}
	}
	return nil
}

// SnapshotService builds CompPlan snapshots from the settings store and the
// rank table. Invalid live config never reaches a computation: validation
// failures fall back to the last valid snapshot.
type SnapshotService struct {
	settingRepo *repository.SettingRepository
	rankRepo    *repository.RankRepository

	mu        sync.Mutex
	lastValid *CompPlan
}

func NewSnapshotService(settingRepo *repository.SettingRepository, rankRepo *repository.RankRepository) *SnapshotService {
	return &SnapshotService{settingRepo: settingRepo, rankRepo: rankRepo}
}

// Load assembles and validates a fresh snapshot. On a validation failure the
// last valid snapshot is returned instead; only a cold start with broken
// config errors out.
func (s *SnapshotService) Load() (*CompPlan, error) {
	plan, err := s.build()
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.lastValid != nil {
			log.Printf("[config] invalid live config, using snapshot %s: %v", s.lastValid.Version, err)
			return s.lastValid, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrNoValidConfig, err)
	}
	s.mu.Lock()
	s.lastValid = plan
	s.mu.Unlock()
	return plan, nil
}

func (s *SnapshotService) build() (*CompPlan, error) {
	ranks, err := s.rankRepo.ListOrdered()
	if err != nil {
		return nil, err
	}
	if err := ValidateRankTable(ranks); err != nil {
		return nil, err
	}
	levels, err := parseLevels(s.getSetting(domain.SettingUnilevelPercentages, ""))
	if err != nil {
		return nil, err
	}
	windowDays := s.getSettingInt(domain.SettingActivityWindowDays, 30)
	if windowDays <= 0 {
		windowDays = 30
	}
	plan := &CompPlan{
		Version:         uuid.NewString(),
		Ranks:           ranks,
		Levels:          levels,
		InfinityEnabled: s.getSetting(domain.SettingInfinityEnabled, "false") == "true",
		InfinityPercent: s.getSettingFloat(domain.SettingInfinityPercent, 0),
		ActivityWindow:  time.Duration(windowDays) * 24 * time.Hour,
		LoadedAt:        time.Now(),
	}
	if plan.InfinityPercent < 0 {
		return nil, fmt.Errorf("infinity percent %v is negative", plan.InfinityPercent)
	}
	minRank := s.getSetting(domain.SettingInfinityMinRank, "")
	plan.InfinityMinRank = len(ranks) + 1 // unreachable unless configured
	for _, r := range ranks {
		if r.Name == minRank {
			plan.InfinityMinRank = r.SortOrder
			break
		}
	}
	return plan, nil
}

// ValidateRankTable enforces the tier invariants: thresholds strictly
// increasing by sort order, all amounts non-negative.
func ValidateRankTable(ranks []models.Rank) error {
	var prev int64 = -1
	for _, r := range ranks {
		if r.TeamTurnoverCents <= prev {
			return fmt.Errorf("%w: %q", ErrBadRankTable, r.Name)
		}
		if r.FirstLegCapCents < 0 || r.SecondLegCapCents < 0 || r.OtherLegsMinCents < 0 || r.BonusCents < 0 {
			return fmt.Errorf("%w: %q has a negative amount", ErrBadRankTable, r.Name)
		}
		prev = r.TeamTurnoverCents
	}
	return nil
}

func parseLevels(csv string) ([]float64, error) {
	parts := strings.Split(csv, ",")
	if len(parts) != domain.UnilevelDepth {
		return nil, fmt.Errorf("%w: got %d entries", ErrBadPercentageTable, len(parts))
	}
	levels := make([]float64, domain.UnilevelDepth)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: entry %d", ErrBadPercentageTable, i+1)
		}
		levels[i] = v
	}
	return levels, nil
}

func (s *SnapshotService) getSetting(key, fallback string) string {
	val, err := s.settingRepo.Get(key)
	if err != nil || val == "" {
		return fallback
	}
	return val
}

func (s *SnapshotService) getSettingInt(key string, fallback int) int {
	val, err := s.settingRepo.Get(key)
	if err != nil || val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func (s *SnapshotService) getSettingFloat(key string, fallback float64) float64 {
	val, err := s.settingRepo.Get(key)
	if err != nil || val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return f
}
