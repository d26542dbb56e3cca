package service

import (
	"context"
	"log"
	"time"
)

// Sweeper runs the lower-frequency batch jobs: the full-tree rank sweep and
// the current period's infinity run. It shares no in-memory state with the
// event-driven path; the ledger's idempotency is the only coordination.
type Sweeper struct {
	ranks    *RankService
	infinity *InfinityService
	interval time.Duration
}

func NewSweeper(ranks *RankService, infinity *InfinityService, interval time.Duration) *Sweeper {
	return &Sweeper{ranks: ranks, infinity: infinity, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping once immediately and then on
// every tick. Intended to be started as a goroutine from main.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// SweepOnce runs a single pass, used by the admin recompute endpoint.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	now := time.Now()
	start, end := PeriodWindow(now)
	if err := s.ranks.Sweep(ctx, start, end); err != nil {
		return err
	}
	return s.infinity.RunPeriod(ctx, PeriodKey(now), start, end)
}

func (s *Sweeper) sweep(ctx context.Context) {
	began := time.Now()
	if err := s.SweepOnce(ctx); err != nil {
		log.Printf("[sweeper] sweep failed: %v", err)
		return
	}
	log.Printf("[sweeper] sweep completed in %s", time.Since(began).Round(time.Millisecond))
}
