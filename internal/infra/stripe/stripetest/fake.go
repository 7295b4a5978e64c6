// Package stripetest provides an in-process stand-in for the Stripe gateway.
package stripetest

import (
	"context"
	"fmt"
	"sync"

	"semzo-prive/internal/infra/stripe"
)

// Gateway records calls and returns deterministic ids. Set the *Err fields to force failures.
type Gateway struct {
	mu sync.Mutex

	PaymentIntents []stripe.PaymentIntentRequest
	Sessions       []stripe.VerificationSessionRequest
	Prices         []stripe.Price

	PaymentIntentErr error
	SessionErr       error
	PricesErr        error
}

func (g *Gateway) CreatePaymentIntent(ctx context.Context, req stripe.PaymentIntentRequest) (*stripe.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.PaymentIntentErr != nil {
		return nil, g.PaymentIntentErr
	}
	g.PaymentIntents = append(g.PaymentIntents, req)
	id := fmt.Sprintf("pi_test_%d", len(g.PaymentIntents))
	return &stripe.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret_test",
		AmountCents:  req.AmountCents,
		Currency:     req.Currency,
	}, nil
}

func (g *Gateway) CreateVerificationSession(ctx context.Context, req stripe.VerificationSessionRequest) (*stripe.VerificationSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.SessionErr != nil {
		return nil, g.SessionErr
	}
	g.Sessions = append(g.Sessions, req)
	id := fmt.Sprintf("vs_test_%d", len(g.Sessions))
	return &stripe.VerificationSession{
		ID:           id,
		URL:          "https://verify.stripe.test/" + id,
		ClientSecret: id + "_secret_test",
		Status:       "requires_input",
	}, nil
}

func (g *Gateway) ListMembershipPrices(ctx context.Context) ([]stripe.Price, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.PricesErr != nil {
		return nil, g.PricesErr
	}
	return append([]stripe.Price(nil), g.Prices...), nil
}

func (g *Gateway) PaymentIntentCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.PaymentIntents)
}
