package membership

import (
	"errors"
	"io"
	"net/http"

	"semzo-prive/internal/api/respond"
	memberships "semzo-prive/internal/membership"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	svc *memberships.Service
	log *zap.Logger
}

func NewHandler(svc *memberships.Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// POST /membership/create-intent
func (h *Handler) CreateIntent(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		return
	}

	var req memberships.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed JSON", "details": "malformed_body"})
		return
	}

	res, err := h.svc.CreateIntent(c.Request.Context(), userID, req)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /membership/status?intentId=
func (h *Handler) Status(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		return
	}

	res, err := h.svc.Status(c.Request.Context(), userID, c.Query("intentId"))
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /membership/reconcile
// Failures other than an unknown intent are reported as success=false so the poller keeps going.
func (h *Handler) Reconcile(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		return
	}

	var body struct {
		IntentID string `json:"intentId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed JSON", "details": "malformed_body"})
		return
	}

	res, err := h.svc.Reconcile(c.Request.Context(), userID, body.IntentID)
	switch {
	case errors.Is(err, memberships.ErrIntentNotFound):
		respond.Error(c, h.log, err)
	case err != nil:
		h.log.Error("reconcile failed", zap.String("user_id", userID), zap.String("intent_id", body.IntentID), zap.Error(err))
		c.JSON(http.StatusOK, memberships.ReconcileResult{Success: false, Status: "pending"})
	default:
		c.JSON(http.StatusOK, res)
	}
}
