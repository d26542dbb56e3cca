package handler

import (
	"net/http"
	"time"

	"github.com/stanmart1/rest-empire-sub000/internal/middleware"
	"github.com/stanmart1/rest-empire-sub000/internal/repository"
	"github.com/stanmart1/rest-empire-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

// TeamHandler serves the team screen: direct legs and their turnover.
type TeamHandler struct {
	userRepo *repository.UserRepository
	turnover *service.TurnoverService
}

func NewTeamHandler(userRepo *repository.UserRepository, turnover *service.TurnoverService) *TeamHandler {
	return &TeamHandler{userRepo: userRepo, turnover: turnover}
}

// GetTeam returns the user's direct downline, each with that leg's turnover
// for the current period.
// GET /me/team
func (h *TeamHandler) GetTeam(c *gin.Context) {
	userID := middleware.GetUserID(c)
	now := time.Now()
	start, end := service.PeriodWindow(now)
	snapshot, err := h.turnover.BuildSnapshot(start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not compute turnover"})
		return
	}
	children, err := h.userRepo.ListDirectChildren(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list team"})
		return
	}
	legs := snapshot.LegTurnovers(userID)
	out := make([]gin.H, 0, len(children))
	for _, child := range children {
		out = append(out, gin.H{
			"user_id":            child.ID,
			"username":           child.Username,
			"active":             child.IsActiveAt(now),
			"registered_at":      child.CreatedAt,
			"leg_turnover_cents": legs[child.ID],
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"period":               service.PeriodKey(now),
		"legs":                 out,
		"total_turnover_cents": snapshot.TotalTurnover(userID),
	})
}
