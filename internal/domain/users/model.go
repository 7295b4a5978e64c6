package users

import "time"

const (
	RoleMember = "member"
	RoleAdmin  = "admin"

	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

type Profile struct {
	ID           string  `gorm:"type:varchar(64);primaryKey" json:"id"`
	Email        string  `gorm:"not null;uniqueIndex:idx_profiles_email" json:"email"`
	FullName     string  `json:"full_name"`
	PasswordHash *string `gorm:"column:password_hash" json:"-"`
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'" json:"auth_provider"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_profiles_google_sub" json:"-"`
	Role         string  `gorm:"type:varchar(20);not null;default:'member'" json:"role"`

	// IdentityVerified only ever flips false -> true, from the identity webhook.
	IdentityVerified      bool       `gorm:"not null;default:false" json:"identity_verified"`
	IdentityVerifiedAt    *time.Time `json:"identity_verified_at,omitempty"`
	VerificationSessionID *string    `gorm:"column:verification_session_id;index" json:"verification_session_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
