package users

import "time"

type MeResponse struct {
	User       UserDTO        `json:"user"`
	Membership *MembershipDTO `json:"membership"`
	Access     AccessDTO      `json:"access"`
}

type UserDTO struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	FullName         string     `json:"full_name"`
	Role             string     `json:"role"`
	AuthProvider     string     `json:"auth_provider"`
	IdentityVerified bool       `json:"identity_verified"`
	VerifiedAt       *time.Time `json:"identity_verified_at"`
}

type MembershipDTO struct {
	IntentID           string     `json:"intent_id"`
	Type               string     `json:"membership_type"`
	BillingCycle       string     `json:"billing_cycle"`
	Status             string     `json:"status"`
	Amount             float64    `json:"amount"`
	Currency           string     `json:"currency"`
	CouponCode         *string    `json:"coupon_code,omitempty"`
	VerificationStatus *string    `json:"verification_status,omitempty"`
	PaidAt             *time.Time `json:"paid_at"`
	ActivatedAt        *time.Time `json:"activated_at"`
}

type AccessDTO struct {
	State        string   `json:"state"` // locked|pending_verification|limited|full
	Capabilities []string `json:"capabilities"`
}
