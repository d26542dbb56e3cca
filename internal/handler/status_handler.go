package handler

import (
	"net/http"
	"time"

	"github.com/stanmart1/rest-empire-sub000/internal/middleware"
	"github.com/stanmart1/rest-empire-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

// StatusHandler serves the "My Status" rank-progress screen.
type StatusHandler struct {
	ranks *service.RankService
}

func NewStatusHandler(ranks *service.RankService) *StatusHandler {
	return &StatusHandler{ranks: ranks}
}

// GetStatus returns current rank, next rank and leg progress for the current
// period.
// GET /me/status
func (h *StatusHandler) GetStatus(c *gin.Context) {
	userID := middleware.GetUserID(c)
	now := time.Now()
	start, end := service.PeriodWindow(now)
	q, err := h.ranks.Progress(userID, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not compute rank progress"})
		return
	}
	resp := gin.H{
		"period":               service.PeriodKey(now),
		"total_turnover_cents": q.TotalTurnoverCents,
		"first_leg_cents":      q.FirstLegCents,
		"second_leg_cents":     q.SecondLegCents,
		"other_legs_cents":     q.OtherLegsCents,
		"qualifying_cents":     q.QualifyingCents,
		"overall_pct":          q.OverallPct,
		"first_leg_pct":        q.FirstLegPct,
		"second_leg_pct":       q.SecondLegPct,
		"other_legs_pct":       q.OtherLegsPct,
	}
	if q.Rank != nil {
		resp["rank"] = gin.H{"id": q.Rank.ID, "name": q.Rank.Name}
	}
	if q.NextRank != nil {
		resp["next_rank"] = gin.H{
			"id":                   q.NextRank.ID,
			"name":                 q.NextRank.Name,
			"team_turnover_cents":  q.NextRank.TeamTurnoverCents,
			"first_leg_cap_cents":  q.NextRank.FirstLegCapCents,
			"second_leg_cap_cents": q.NextRank.SecondLegCapCents,
			"other_legs_min_cents": q.NextRank.OtherLegsMinCents,
		}
	}
	c.JSON(http.StatusOK, resp)
}
