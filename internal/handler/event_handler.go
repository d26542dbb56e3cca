package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/stanmart1/rest-empire-sub000/config"
	"github.com/stanmart1/rest-empire-sub000/internal/models"
	"github.com/stanmart1/rest-empire-sub000/internal/repository"
	"github.com/stanmart1/rest-empire-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

// EventHandler ingests purchase/activation events from the payment
// collaborators and triggers the unilevel distribution.
type EventHandler struct {
	cfg      *config.Config
	txRepo   *repository.TransactionRepository
	userRepo *repository.UserRepository
	unilevel *service.UnilevelService
}

func NewEventHandler(cfg *config.Config, txRepo *repository.TransactionRepository, userRepo *repository.UserRepository, unilevel *service.UnilevelService) *EventHandler {
	return &EventHandler{cfg: cfg, txRepo: txRepo, userRepo: userRepo, unilevel: unilevel}
}

type EventRequest struct {
	ExternalRef string `json:"external_ref" binding:"required"`
	UserID      uint   `json:"user_id" binding:"required"`
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	Currency    string `json:"currency"`
	Type        string `json:"type" binding:"required,oneof=PURCHASE ACTIVATION"`
	OccurredAt  string `json:"occurred_at"` // RFC3339; defaults to now
}

// Ingest records the transaction and runs the distribution pass. A failed
// distribution returns 502 so the producer redelivers; redelivery is safe
// because both the transaction insert and every ledger write are idempotent.
// POST /events
func (h *EventHandler) Ingest(c *gin.Context) {
	if secret := h.cfg.Events.WebhookSecret; secret != "" {
		if c.GetHeader("X-Webhook-Secret") != secret {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}
	}
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.userRepo.GetByID(req.UserID); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown user"})
		return
	}
	occurredAt := time.Now()
	if req.OccurredAt != "" {
		t, err := time.Parse(time.RFC3339, req.OccurredAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid occurred_at (use RFC3339)"})
			return
		}
		occurredAt = t
	}
	currency := req.Currency
	if currency == "" {
		currency = h.cfg.Engine.DefaultCurrency
	}
	tx := &models.Transaction{
		ExternalRef: req.ExternalRef,
		UserID:      req.UserID,
		AmountCents: req.AmountCents,
		Currency:    currency,
		Type:        req.Type,
		OccurredAt:  occurredAt,
	}
	created, err := h.txRepo.Record(tx)
	if err != nil {
		log.Printf("[events] record %s: %v", req.ExternalRef, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record event"})
		return
	}
	if err := h.unilevel.Distribute(c.Request.Context(), tx); err != nil {
		log.Printf("[events] distribution for %s deferred: %v", req.ExternalRef, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "distribution deferred, retry delivery"})
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"transaction_id": tx.ID,
		"duplicate":      !created,
		"type":           tx.Type,
	})
}
