package stripewebhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"semzo-prive/internal/alerts"
	"semzo-prive/internal/domain/ops"
	"semzo-prive/internal/infra/stripe"
	memberships "semzo-prive/internal/membership"
	"semzo-prive/internal/store"
	"semzo-prive/internal/verification"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxBodyBytes = 65536

const (
	endpointPayments = "payments"
	endpointIdentity = "identity"
)

type Secrets struct {
	Payments string
	Identity string
}

type Handler struct {
	store       store.Store
	memberships *memberships.Service
	identities  *verification.Service
	alerts      *alerts.Raiser
	secrets     Secrets
	log         *zap.Logger
}

func NewHandler(s store.Store, m *memberships.Service, v *verification.Service, raiser *alerts.Raiser, secrets Secrets, log *zap.Logger) *Handler {
	return &Handler{store: s, memberships: m, identities: v, alerts: raiser, secrets: secrets, log: log}
}

// POST /webhooks/stripe
// Retryable failures answer 500 so Stripe redelivers; events we can never apply answer 200.
func (h *Handler) Payments(c *gin.Context) {
	ev, ok := h.verify(c, h.secrets.Payments)
	if !ok {
		return
	}
	log := h.log.With(zap.String("event_id", ev.ID), zap.String("event_type", ev.Type))

	var apply func(context.Context, memberships.PaymentOutcome) error
	switch ev.Type {
	case "payment_intent.succeeded":
		apply = h.memberships.MarkPaid
	case "payment_intent.payment_failed":
		apply = h.memberships.MarkPaymentFailed
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	rec, fresh, err := h.claim(c.Request.Context(), endpointPayments, ev)
	if err != nil {
		log.Error("record webhook event", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record event"})
		return
	}
	if !fresh {
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}

	pi, err := stripe.DecodePaymentIntent(ev.Raw)
	if err != nil {
		h.finish(c.Request.Context(), rec, err, log)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse payment intent"})
		return
	}
	intentID := pi.Metadata["membership_intent_id"]
	if intentID == "" {
		h.finish(c.Request.Context(), rec, nil, log)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	err = apply(c.Request.Context(), memberships.PaymentOutcome{
		IntentID:        intentID,
		PaymentIntentID: pi.PaymentIntentID,
		AmountCents:     pi.AmountCents,
		Currency:        pi.Currency,
		FailureMessage:  firstNonEmpty(pi.FailureMessage, pi.FailureCode),
	})
	h.finish(c.Request.Context(), rec, err, log)

	switch {
	case errors.Is(err, memberships.ErrIntentNotFound):
		log.Warn("payment for unknown membership intent", zap.String("intent_id", intentID))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	case err != nil:
		log.Error("payment webhook failed", zap.String("intent_id", intentID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "received"})
	}
}

// POST /webhooks/stripe-identity
// Once the signature checks out the answer is always 200; failures become admin alerts.
func (h *Handler) Identity(c *gin.Context) {
	ev, ok := h.verify(c, h.secrets.Identity)
	if !ok {
		return
	}
	log := h.log.With(zap.String("event_id", ev.ID), zap.String("event_type", ev.Type))

	switch ev.Type {
	case "identity.verification_session.verified",
		"identity.verification_session.requires_input",
		"identity.verification_session.canceled",
		"identity.verification_session.processing":
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ctx := c.Request.Context()
	rec, fresh, err := h.claim(ctx, endpointIdentity, ev)
	if err != nil {
		log.Error("record webhook event", zap.Error(err))
		h.raiseFailure(ctx, ev, err, log)
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return
	}
	if !fresh {
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}

	session, err := stripe.DecodeVerificationSession(ev.Raw)
	if err == nil {
		err = h.identities.ApplySessionUpdate(ctx, session)
	}
	h.finish(ctx, rec, err, log)
	if err != nil {
		log.Error("identity webhook failed", zap.String("session_id", session.SessionID), zap.Error(err))
		h.raiseFailure(ctx, ev, err, log)
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func (h *Handler) verify(c *gin.Context, secret string) (stripe.Event, bool) {
	if secret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook secret not configured"})
		return stripe.Event{}, false
	}
	payload, err := readStripeBody(c, maxBodyBytes)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return stripe.Event{}, false
	}
	ev, err := stripe.ParseEvent(payload, c.GetHeader("Stripe-Signature"), secret)
	if err != nil {
		h.log.Warn("stripe signature verification failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return stripe.Event{}, false
	}
	return ev, true
}

// claim records the event and reports whether it still needs processing. Events that previously
// failed are handed out again.
func (h *Handler) claim(ctx context.Context, endpoint string, ev stripe.Event) (*ops.WebhookEvent, bool, error) {
	_, stored, err := h.store.RecordWebhookEvent(ctx, &ops.WebhookEvent{
		Endpoint:  endpoint,
		EventID:   ev.ID,
		EventType: ev.Type,
	})
	if err != nil {
		return nil, false, err
	}
	return stored, !stored.Done(), nil
}

func (h *Handler) finish(ctx context.Context, rec *ops.WebhookEvent, procErr error, log *zap.Logger) {
	msg := ""
	if procErr != nil {
		msg = procErr.Error()
	}
	if err := h.store.MarkWebhookProcessed(ctx, rec.ID, msg); err != nil {
		log.Error("mark webhook processed", zap.Error(err))
	}
}

func (h *Handler) raiseFailure(ctx context.Context, ev stripe.Event, cause error, log *zap.Logger) {
	msg := "identity webhook " + ev.ID + " (" + ev.Type + ") failed: " + cause.Error()
	if err := h.alerts.Raise(ctx, ops.AlertWebhookFailure, "webhook_failure:"+ev.ID, "", msg); err != nil {
		log.Error("raise webhook failure alert", zap.Error(err))
	}
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
