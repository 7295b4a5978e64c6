package membership

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Type is the membership tier being purchased.
type Type string

const (
	TypeEssentiel Type = "essentiel"
	TypeSignature Type = "signature"
	TypePrive     Type = "prive"
	TypePetite    Type = "petite"
)

// BillingCycle is how often a membership is charged.
type BillingCycle string

const (
	CycleWeekly    BillingCycle = "weekly"
	CycleMonthly   BillingCycle = "monthly"
	CycleQuarterly BillingCycle = "quarterly"
)

// Status is the lifecycle state of a MembershipIntent.
type Status string

const (
	StatusPending                 Status = "pending"
	StatusPaidPendingVerification Status = "paid_pending_verification"
	StatusActive                  Status = "active"
	StatusLimitedAccess           Status = "limited_access"
)

var (
	ErrUnknownType  = errors.New("unknown membership type")
	ErrUnknownCycle = errors.New("unknown billing cycle")
)

var typeAliases = map[string]Type{
	"essentiel":   TypeEssentiel,
	"essential":   TypeEssentiel,
	"l'essentiel": TypeEssentiel,
	"signature":   TypeSignature,
	"prive":       TypePrive,
	"semzo prive": TypePrive,
	"petite":      TypePetite,
}

// ParseType resolves a catalog identifier ("Privé", "L'Essentiel", "signature") to a Type.
func ParseType(raw string) (Type, error) {
	key := foldKey(raw)
	if t, ok := typeAliases[key]; ok {
		return t, nil
	}
	return "", ErrUnknownType
}

// ParseBillingCycle accepts only the exact cycle names.
func ParseBillingCycle(raw string) (BillingCycle, error) {
	switch c := BillingCycle(strings.TrimSpace(raw)); c {
	case CycleWeekly, CycleMonthly, CycleQuarterly:
		return c, nil
	}
	return "", ErrUnknownCycle
}

// foldKey lower-cases, trims and strips diacritics so "Privé" and "prive" collide.
func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ReplaceAll(out, "’", "'")
	out = strings.Join(strings.Fields(strings.ToLower(out)), " ")
	return out
}

func (t Type) Valid() bool {
	switch t {
	case TypeEssentiel, TypeSignature, TypePrive, TypePetite:
		return true
	}
	return false
}

// Rank orders tiers for capability decisions; higher is more exclusive.
func (t Type) Rank() int {
	switch t {
	case TypePetite:
		return 1
	case TypeEssentiel:
		return 2
	case TypeSignature:
		return 3
	case TypePrive:
		return 4
	default:
		return 0
	}
}
