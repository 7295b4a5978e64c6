package plans

import (
	"context"
	"net/http"
	"strings"

	"semzo-prive/internal/api/respond"
	"semzo-prive/internal/domain/membership"
	"semzo-prive/internal/domain/plans"
	"semzo-prive/internal/infra/stripe"
	"semzo-prive/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PriceLister interface {
	ListMembershipPrices(ctx context.Context) ([]stripe.Price, error)
}

type Handler struct {
	store    store.Store
	prices   PriceLister
	currency string
	log      *zap.Logger
}

func NewHandler(s store.Store, prices PriceLister, currency string, log *zap.Logger) *Handler {
	return &Handler{store: s, prices: prices, currency: currency, log: log}
}

type PlanDTO struct {
	MembershipType string  `json:"membership_type"`
	BillingCycle   string  `json:"billing_cycle"`
	Name           string  `json:"name"`
	Amount         float64 `json:"amount"`
	AmountCents    int64   `json:"amount_cents"`
	Currency       string  `json:"currency"`
}

// GET /plans
func (h *Handler) ListPlans(c *gin.Context) {
	list, err := h.store.ListPlans(c.Request.Context(), true)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	out := make([]PlanDTO, 0, len(list))
	for _, p := range list {
		out = append(out, PlanDTO{
			MembershipType: string(p.MembershipType),
			BillingCycle:   string(p.BillingCycle),
			Name:           p.Name,
			Amount:         plans.MinorToMajor(p.AmountCents),
			AmountCents:    p.AmountCents,
			Currency:       p.Currency,
		})
	}
	c.JSON(http.StatusOK, out)
}

type SyncResult struct {
	Synced  int `json:"synced"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// POST /admin/sync-plans
func (h *Handler) SyncPlansFromStripe(c *gin.Context) {
	res, err := h.Sync(c.Request.Context())
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	h.log.Info("plans synced from stripe",
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped),
	)
	c.JSON(http.StatusOK, res)
}

// Sync copies the amounts of tagged Stripe prices onto the catalog. Prices in another currency or
// with unknown type/cycle metadata are skipped.
func (h *Handler) Sync(ctx context.Context) (SyncResult, error) {
	prices, err := h.prices.ListMembershipPrices(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	var res SyncResult
	for _, p := range prices {
		t, terr := membership.ParseType(p.MembershipType)
		bc, cerr := membership.ParseBillingCycle(p.BillingCycle)
		if terr != nil || cerr != nil || !strings.EqualFold(p.Currency, h.currency) || p.AmountCents <= 0 {
			res.Skipped++
			continue
		}

		priceID := p.ID
		plan := &plans.Plan{
			MembershipType: t,
			BillingCycle:   bc,
			Name:           p.Name,
			AmountCents:    p.AmountCents,
			Currency:       strings.ToLower(p.Currency),
			StripePriceID:  &priceID,
			Active:         true,
		}
		if plan.Name == "" {
			plan.Name = string(t)
		}

		created, err := h.store.UpsertPlan(ctx, plan)
		if err != nil {
			return res, err
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
		res.Synced++
	}
	return res, nil
}
