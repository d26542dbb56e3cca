// Package monitoring exposes engine counters on /metrics.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DistributionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compengine_distributions_total",
		Help: "Unilevel distribution passes by outcome.",
	}, []string{"outcome"}) // completed | deferred | duplicate

	BonusCentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compengine_bonus_cents_total",
		Help: "Cents appended to the bonus ledger by bonus type.",
	}, []string{"type"})

	IntegrityWarningsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compengine_integrity_warnings_total",
		Help: "Sponsor-graph integrity problems flagged during computation.",
	})

	RankSweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compengine_rank_sweeps_total",
		Help: "Completed full-tree rank sweeps.",
	})

	RankAchievementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compengine_rank_achievements_total",
		Help: "First-time rank achievements recorded.",
	})
)
