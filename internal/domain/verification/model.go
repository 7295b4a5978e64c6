package verification

import "time"

const (
	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusRejected = "rejected"
)

// IdentityVerification tracks one Stripe Identity session for a profile.
type IdentityVerification struct {
	ID                   string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID               string     `gorm:"type:varchar(64);not null;index" json:"user_id"`
	StripeVerificationID string     `gorm:"column:stripe_verification_id;not null;uniqueIndex:idx_identity_verifications_session" json:"stripe_verification_id"`
	Status               string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	LastError            *string    `gorm:"type:text" json:"last_error,omitempty"`
	VerifiedAt           *time.Time `json:"verified_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (IdentityVerification) TableName() string { return "identity_verifications" }
