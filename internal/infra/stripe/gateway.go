package stripe

import (
	"context"
	"strings"

	stripego "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/identity/verificationsession"
	"github.com/stripe/stripe-go/v75/paymentintent"
	"github.com/stripe/stripe-go/v75/price"
)

type PaymentIntentRequest struct {
	AmountCents    int64
	Currency       string
	Description    string
	ReceiptEmail   string
	IdempotencyKey string
	Metadata       map[string]string
}

type PaymentIntent struct {
	ID           string
	ClientSecret string
	AmountCents  int64
	Currency     string
}

type VerificationSessionRequest struct {
	ReturnURL      string
	IdempotencyKey string
	Metadata       map[string]string
}

type VerificationSession struct {
	ID           string
	URL          string
	ClientSecret string
	Status       string
}

// Price is an active recurring Stripe price tagged for the membership catalog.
type Price struct {
	ID             string
	AmountCents    int64
	Currency       string
	MembershipType string
	BillingCycle   string
	Name           string
}

// Gateway is the slice of Stripe the service depends on. *Client implements it.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error)
	CreateVerificationSession(ctx context.Context, req VerificationSessionRequest) (*VerificationSession, error)
	ListMembershipPrices(ctx context.Context) ([]Price, error)
}

var _ Gateway = (*Client)(nil)

// Client talks to Stripe with its own key instead of the package-global stripe.Key.
type Client struct {
	intents  paymentintent.Client
	sessions verificationsession.Client
	prices   price.Client
}

func NewClient(secretKey string) *Client {
	backend := stripego.GetBackend(stripego.APIBackend)
	return &Client{
		intents:  paymentintent.Client{B: backend, Key: secretKey},
		sessions: verificationsession.Client{B: backend, Key: secretKey},
		prices:   price.Client{B: backend, Key: secretKey},
	}
}

func (c *Client) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error) {
	params := &stripego.PaymentIntentParams{
		Amount:   stripego.Int64(req.AmountCents),
		Currency: stripego.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripego.Bool(true),
		},
	}
	params.Context = ctx
	if req.Description != "" {
		params.Description = stripego.String(req.Description)
	}
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripego.String(req.ReceiptEmail)
	}
	if req.IdempotencyKey != "" {
		params.IdempotencyKey = stripego.String(req.IdempotencyKey)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := c.intents.New(params)
	if err != nil {
		return nil, wrapError(err)
	}
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

func (c *Client) CreateVerificationSession(ctx context.Context, req VerificationSessionRequest) (*VerificationSession, error) {
	params := &stripego.IdentityVerificationSessionParams{
		Type: stripego.String(string(stripego.IdentityVerificationSessionTypeDocument)),
	}
	params.Context = ctx
	if req.ReturnURL != "" {
		params.ReturnURL = stripego.String(req.ReturnURL)
	}
	if req.IdempotencyKey != "" {
		params.IdempotencyKey = stripego.String(req.IdempotencyKey)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	vs, err := c.sessions.New(params)
	if err != nil {
		return nil, wrapError(err)
	}
	return &VerificationSession{
		ID:           vs.ID,
		URL:          vs.URL,
		ClientSecret: vs.ClientSecret,
		Status:       string(vs.Status),
	}, nil
}

// ListMembershipPrices returns active recurring prices whose metadata names a membership type and cycle.
func (c *Client) ListMembershipPrices(ctx context.Context) ([]Price, error) {
	params := &stripego.PriceListParams{}
	params.Context = ctx
	params.Active = stripego.Bool(true)
	params.AddExpand("data.product")

	it := c.prices.List(params)

	var out []Price
	for it.Next() {
		p := it.Price()
		if !p.Active || p.Metadata == nil {
			continue
		}
		if p.Metadata["visible"] == "false" {
			continue
		}
		mt, bc := p.Metadata["membership_type"], p.Metadata["billing_cycle"]
		if mt == "" || bc == "" {
			continue
		}
		name := p.Metadata["name"]
		if name == "" && p.Product != nil {
			name = p.Product.Name
		}
		out = append(out, Price{
			ID:             p.ID,
			AmountCents:    p.UnitAmount,
			Currency:       string(p.Currency),
			MembershipType: mt,
			BillingCycle:   bc,
			Name:           name,
		})
	}
	if err := it.Err(); err != nil {
		return nil, wrapError(err)
	}
	return out, nil
}
