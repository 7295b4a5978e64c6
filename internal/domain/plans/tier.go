package plans

import "semzo-prive/internal/domain/membership"

// DefaultCatalog is seeded on migrate; Stripe price sync overrides amounts later.
func DefaultCatalog(currency string) []Plan {
	p := func(t membership.Type, c membership.BillingCycle, name string, cents int64) Plan {
		return Plan{MembershipType: t, BillingCycle: c, Name: name, AmountCents: cents, Currency: currency, Active: true}
	}
	return []Plan{
		p(membership.TypeEssentiel, membership.CycleMonthly, "L'Essentiel", 5900),
		p(membership.TypeEssentiel, membership.CycleQuarterly, "L'Essentiel", 15900),
		p(membership.TypeSignature, membership.CycleMonthly, "Signature", 12900),
		p(membership.TypeSignature, membership.CycleQuarterly, "Signature", 34900),
		p(membership.TypePrive, membership.CycleMonthly, "Privé", 18900),
		p(membership.TypePrive, membership.CycleQuarterly, "Privé", 49900),
		p(membership.TypePetite, membership.CycleWeekly, "Petite", 1999),
		p(membership.TypePetite, membership.CycleMonthly, "Petite", 4900),
	}
}

// MinorToMajor converts cents to currency units for display.
func MinorToMajor(cents int64) float64 {
	return float64(cents) / 100.0
}
