package access

import (
	"semzo-prive/internal/domain/membership"
	"semzo-prive/internal/domain/users"
)

type Policy struct {
	State        AccessState
	Capabilities []string
}

func ComputePolicy(p users.Profile, in *membership.Intent) Policy {
	state := ComputeEffectiveAccessState(p, in)

	var t membership.Type
	if in != nil {
		t = in.MembershipType
	}
	return Policy{
		State:        state,
		Capabilities: CapabilitiesFor(state, t),
	}
}
