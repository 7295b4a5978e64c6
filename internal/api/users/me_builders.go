package users

import (
	"semzo-prive/internal/domain/access"
	"semzo-prive/internal/domain/membership"
	"semzo-prive/internal/domain/plans"
	"semzo-prive/internal/domain/users"
)

func BuildUserDTO(p *users.Profile) UserDTO {
	return UserDTO{
		ID:               p.ID,
		Email:            p.Email,
		FullName:         p.FullName,
		Role:             p.Role,
		AuthProvider:     p.AuthProvider,
		IdentityVerified: p.IdentityVerified,
		VerifiedAt:       p.IdentityVerifiedAt,
	}
}

func BuildMembershipDTO(in *membership.Intent) *MembershipDTO {
	if in == nil {
		return nil
	}
	return &MembershipDTO{
		IntentID:           in.ID,
		Type:               string(in.MembershipType),
		BillingCycle:       string(in.BillingCycle),
		Status:             string(in.Status),
		Amount:             plans.MinorToMajor(in.AmountCents),
		Currency:           in.Currency,
		CouponCode:         in.CouponCode,
		VerificationStatus: in.VerificationStatus,
		PaidAt:             in.PaidAt,
		ActivatedAt:        in.ActivatedAt,
	}
}

func BuildAccessDTO(policy access.Policy) AccessDTO {
	return AccessDTO{
		State:        string(policy.State),
		Capabilities: policy.Capabilities,
	}
}
