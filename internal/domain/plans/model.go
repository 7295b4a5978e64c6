package plans

import (
	"time"

	"semzo-prive/internal/domain/membership"
)

// Plan is one purchasable (membership type, billing cycle) price.
type Plan struct {
	ID             uint                    `gorm:"primaryKey" json:"id"`
	MembershipType membership.Type         `gorm:"type:varchar(20);not null;uniqueIndex:idx_plans_type_cycle" json:"membership_type"`
	BillingCycle   membership.BillingCycle `gorm:"type:varchar(20);not null;uniqueIndex:idx_plans_type_cycle" json:"billing_cycle"`
	Name           string                  `json:"name"`
	AmountCents    int64                   `gorm:"not null" json:"amount_cents"`
	Currency       string                  `gorm:"type:varchar(3);not null;default:'eur'" json:"currency"`
	StripePriceID  *string                 `gorm:"column:stripe_price_id;uniqueIndex:idx_plans_stripe_price_id" json:"stripe_price_id,omitempty"`
	Active         bool                    `gorm:"not null" json:"active"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

func (Plan) TableName() string { return "plans" }
