package billing

import (
	"strings"
	"time"
)

type Coupon struct {
	Code       string     `gorm:"type:varchar(32);primaryKey" json:"code"`
	PercentOff int        `gorm:"not null" json:"percent_off"`
	Active     bool       `gorm:"not null" json:"active"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (Coupon) TableName() string { return "coupons" }

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (c Coupon) Usable(now time.Time) bool {
	if !c.Active || c.PercentOff <= 0 || c.PercentOff > 100 {
		return false
	}
	return c.ExpiresAt == nil || now.Before(*c.ExpiresAt)
}

// Apply returns the discounted amount, rounding the discount down to whole cents.
func (c Coupon) Apply(amountCents int64) int64 {
	discount := amountCents * int64(c.PercentOff) / 100
	return amountCents - discount
}
