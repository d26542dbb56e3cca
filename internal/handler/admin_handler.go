package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/stanmart1/rest-empire-sub000/internal/models"
	"github.com/stanmart1/rest-empire-sub000/internal/repository"
	"github.com/stanmart1/rest-empire-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	rankRepo      *repository.RankRepository
	settingRepo   *repository.SettingRepository
	integrityRepo *repository.IntegrityRepository
	userRepo      *repository.UserRepository
	sweeper       *service.Sweeper
}

func NewAdminHandler(
	rankRepo *repository.RankRepository,
	settingRepo *repository.SettingRepository,
	integrityRepo *repository.IntegrityRepository,
	userRepo *repository.UserRepository,
	sweeper *service.Sweeper,
) *AdminHandler {
	return &AdminHandler{
		rankRepo:      rankRepo,
		settingRepo:   settingRepo,
		integrityRepo: integrityRepo,
		userRepo:      userRepo,
		sweeper:       sweeper,
	}
}

// ListRanks returns the full tier table.
// GET /admin/ranks
func (h *AdminHandler) ListRanks(c *gin.Context) {
	ranks, err := h.rankRepo.ListOrdered()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list ranks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ranks": ranks})
}

type RankUpdate struct {
	ID                uint  `json:"id" binding:"required"`
	TeamTurnoverCents int64 `json:"team_turnover_cents"`
	FirstLegCapCents  int64 `json:"first_leg_cap_cents"`
	SecondLegCapCents int64 `json:"second_leg_cap_cents"`
	OtherLegsMinCents int64 `json:"other_legs_min_cents"`
	BonusCents        int64 `json:"bonus_cents"`
}

// BulkUpdateRanks applies the tier bulk-edit. The merged table is validated
// before anything is persisted: non-monotonic thresholds or negative amounts
// reject the whole batch and the engine keeps using the last valid snapshot.
// PUT /admin/ranks
func (h *AdminHandler) BulkUpdateRanks(c *gin.Context) {
	var req struct {
		Ranks []RankUpdate `json:"ranks" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	current, err := h.rankRepo.ListOrdered()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load ranks"})
		return
	}
	byID := make(map[uint]*models.Rank, len(current))
	for i := range current {
		byID[current[i].ID] = &current[i]
	}
	updated := make([]models.Rank, 0, len(req.Ranks))
	for _, u := range req.Ranks {
		rank, ok := byID[u.ID]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown rank id", "id": u.ID})
			return
		}
		rank.TeamTurnoverCents = u.TeamTurnoverCents
		rank.FirstLegCapCents = u.FirstLegCapCents
		rank.SecondLegCapCents = u.SecondLegCapCents
		rank.OtherLegsMinCents = u.OtherLegsMinCents
		rank.BonusCents = u.BonusCents
		updated = append(updated, *rank)
	}
	if err := service.ValidateRankTable(current); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err := h.rankRepo.BulkUpdateRequirements(updated); err != nil {
		log.Printf("[admin] rank bulk update: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update ranks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": len(updated)})
}

// GetSettings returns all system settings.
// GET /admin/settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	list, err := h.settingRepo.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load settings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": list})
}

// UpdateSettings upserts the given keys. Values are validated lazily: a bad
// percentage table is rejected at the next snapshot load, which falls back to
// the last valid snapshot.
// PUT /admin/settings
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req map[string]string
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for k, v := range req {
		if err := h.settingRepo.Set(k, v); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save setting", "key": k})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"updated": len(req)})
}

// Recompute triggers an immediate full sweep (rank + infinity for the
// current period).
// POST /admin/recompute
func (h *AdminHandler) Recompute(c *gin.Context) {
	if err := h.sweeper.SweepOnce(c.Request.Context()); err != nil {
		log.Printf("[admin] recompute: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "recompute failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

// ListIntegrityFlags returns unresolved sponsor-graph problems.
// GET /admin/integrity-flags
func (h *AdminHandler) ListIntegrityFlags(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, err := h.integrityRepo.ListUnresolved(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list flags"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"flags": list})
}

// ResolveIntegrityFlag marks a flag handled.
// POST /admin/integrity-flags/:id/resolve
func (h *AdminHandler) ResolveIntegrityFlag(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.integrityRepo.Resolve(uint(id)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resolve flag"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolved": id})
}

// ReassignSponsor moves a user under a new sponsor with a cycle check.
// POST /admin/users/:id/sponsor
func (h *AdminHandler) ReassignSponsor(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req struct {
		SponsorID uint `json:"sponsor_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.userRepo.AssignSponsor(uint(id), req.SponsorID); err != nil {
		switch err {
		case repository.ErrCycleDetected:
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case repository.ErrSponsorNotFound:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reassign sponsor"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": id, "sponsor_id": req.SponsorID})
}
