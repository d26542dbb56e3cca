package handler

import (
	"net/http"
	"strconv"

	"github.com/stanmart1/rest-empire-sub000/internal/middleware"
	"github.com/stanmart1/rest-empire-sub000/internal/repository"

	"github.com/gin-gonic/gin"
)

type BonusHandler struct {
	bonusRepo *repository.BonusRepository
}

func NewBonusHandler(bonusRepo *repository.BonusRepository) *BonusHandler {
	return &BonusHandler{bonusRepo: bonusRepo}
}

// List returns the authenticated user's bonus history, newest first.
// GET /me/bonuses?type=UNILEVEL&limit=20&offset=0
func (h *BonusHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list, err := h.bonusRepo.History(userID, c.Query("type"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list bonuses"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bonuses": list, "count": len(list)})
}

// Summary returns per-type totals, optionally for one period.
// GET /me/bonuses/summary?period=2026-08
func (h *BonusHandler) Summary(c *gin.Context) {
	userID := middleware.GetUserID(c)
	totals, err := h.bonusRepo.SummaryFor(userID, c.Query("period"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not summarize bonuses"})
		return
	}
	var total int64
	for _, t := range totals {
		total += t.AmountCents
	}
	c.JSON(http.StatusOK, gin.H{"totals": totals, "total_cents": total})
}
