package membership

import (
	"math"
	"strings"

	domain "semzo-prive/internal/domain/membership"
)

const itemTypeMembership = "membership"

// Item is one line of the checkout cart.
type Item struct {
	ItemType       string `json:"itemType"`
	ID             string `json:"id"`
	MembershipType string `json:"membershipType"`
	Name           string `json:"name"`
	BillingCycle   string `json:"billingCycle"`
}

// CreateIntentRequest is the create-intent body. Amount is in major currency units.
type CreateIntentRequest struct {
	Amount     *float64 `json:"amount"`
	Items      []Item   `json:"items"`
	CouponCode string   `json:"couponCode"`
	IntentID   string   `json:"intentId"`
}

// order is a request that passed the contract.
type order struct {
	membershipType domain.Type
	billingCycle   domain.BillingCycle
	amountCents    int64
	couponCode     string
	intentID       string
}

// validate checks shape only. Prices and coupons are checked against the catalog afterwards.
func validate(req CreateIntentRequest) (order, error) {
	if len(req.Items) == 0 {
		return order{}, violation("items missing", "items_missing")
	}

	var line *Item
	for i := range req.Items {
		it := &req.Items[i]
		switch strings.ToLower(strings.TrimSpace(it.ItemType)) {
		case itemTypeMembership:
			if line != nil {
				return order{}, violation("multiple membership items", "multiple_membership_items")
			}
			line = it
		case "":
			return order{}, violation("itemType missing", "item_type_missing")
		default:
			return order{}, violation("unsupported item type "+it.ItemType, "unsupported_item_type")
		}
	}
	if line == nil {
		return order{}, violation("membership item missing", "membership_item_missing")
	}

	rawType := firstNonEmpty(line.MembershipType, line.ID, line.Name)
	if rawType == "" {
		return order{}, violation("membershipType missing", "membership_type_missing")
	}
	mt, err := domain.ParseType(rawType)
	if err != nil {
		return order{}, violation("membershipType invalid", "membership_type_invalid")
	}

	if strings.TrimSpace(line.BillingCycle) == "" {
		return order{}, violation("billingCycle missing", "billing_cycle_missing")
	}
	bc, err := domain.ParseBillingCycle(line.BillingCycle)
	if err != nil {
		return order{}, violation("billingCycle invalid", "billing_cycle_invalid")
	}

	if req.Amount == nil {
		return order{}, violation("amount missing", "amount_missing")
	}
	if *req.Amount < 0 || math.IsNaN(*req.Amount) || math.IsInf(*req.Amount, 0) {
		return order{}, violation("amount invalid", "amount_invalid")
	}

	return order{
		membershipType: mt,
		billingCycle:   bc,
		amountCents:    int64(math.Round(*req.Amount * 100)),
		couponCode:     strings.TrimSpace(req.CouponCode),
		intentID:       strings.TrimSpace(req.IntentID),
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
