package billing

import "time"

const (
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

// Payment is a ledger row per Stripe payment intent outcome.
type Payment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	IntentID        string    `gorm:"type:varchar(36);not null;index" json:"intent_id"`
	PaymentIntentID string    `gorm:"column:payment_intent_id;not null;uniqueIndex:idx_payments_payment_intent_status" json:"payment_intent_id"`
	Status          string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_payments_payment_intent_status" json:"status"`
	AmountCents     int64     `json:"amount_cents"`
	Currency        string    `gorm:"type:varchar(3)" json:"currency"`
	FailureMessage  *string   `gorm:"type:text" json:"failure_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func (Payment) TableName() string { return "payments" }
