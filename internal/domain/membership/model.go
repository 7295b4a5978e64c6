package membership

import "time"

type Intent struct {
	ID             string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID         string       `gorm:"type:varchar(64);not null;index" json:"user_id"`
	MembershipType Type         `gorm:"type:varchar(20);not null" json:"membership_type"`
	BillingCycle   BillingCycle `gorm:"type:varchar(20);not null" json:"billing_cycle"`
	Status         Status       `gorm:"type:varchar(40);not null;index" json:"status"`
	AmountCents    int64        `gorm:"not null" json:"amount_cents"`
	Currency       string       `gorm:"type:varchar(3);not null;default:'eur'" json:"currency"`
	CouponCode     *string      `gorm:"type:varchar(32)" json:"coupon_code,omitempty"`

	PaymentIntentID *string `gorm:"column:payment_intent_id;uniqueIndex:idx_membership_intents_payment_intent" json:"payment_intent_id,omitempty"`

	// Tracking fields stamped by the identity webhook; they never drive Status.
	VerificationSessionID *string    `gorm:"column:verification_session_id;index" json:"verification_session_id,omitempty"`
	VerificationStatus    *string    `gorm:"column:verification_status;type:varchar(20)" json:"verification_status,omitempty"`
	VerificationUpdatedAt *time.Time `gorm:"column:verification_updated_at" json:"verification_updated_at,omitempty"`

	PaidAt                *time.Time `json:"paid_at,omitempty"`
	ActivatedAt           *time.Time `json:"activated_at,omitempty"`
	ActivationEmailSentAt *time.Time `gorm:"column:activation_email_sent_at" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Intent) TableName() string { return "membership_intents" }
