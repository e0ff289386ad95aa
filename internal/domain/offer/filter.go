package offer

import (
	"fmt"
	"math/big"
	"strings"

	"peerlend-backend/internal/domain/ledger"
)

// Filter is the user-supplied offer search. Zero values match everything.
type Filter struct {
	From               string
	AssetIsNative      *bool
	AssetToken         string
	CollateralIsNative *bool
	CollateralToken    string
	MinAmount          *big.Int
	MaxAmount          *big.Int
	MaxSinglePayment   *big.Int
}

// Sanitize normalizes the form input into the gateway filter: addresses
// are trimmed and lowercased, token fields are dropped when the matching
// native flag excludes them.
func (f Filter) Sanitize() ledger.OfferFilter {
	out := ledger.OfferFilter{
		From:               normalizeAddr(f.From),
		AssetIsNative:      f.AssetIsNative,
		AssetToken:         normalizeAddr(f.AssetToken),
		CollateralIsNative: f.CollateralIsNative,
		CollateralToken:    normalizeAddr(f.CollateralToken),
		MinAmount:          f.MinAmount,
		MaxAmount:          f.MaxAmount,
		MaxSinglePayment:   f.MaxSinglePayment,
	}
	if f.AssetIsNative != nil && *f.AssetIsNative {
		out.AssetToken = ""
	}
	if f.CollateralIsNative != nil && *f.CollateralIsNative {
		out.CollateralToken = ""
	}
	return out
}

// Key is a stable cache key component: equal filters produce equal keys,
// any change in the filter produces a different key.
func (f Filter) Key() string {
	s := f.Sanitize()
	var b strings.Builder
	fmt.Fprintf(&b, "from=%s|an=%s|at=%s|cn=%s|ct=%s",
		s.From, boolKey(s.AssetIsNative), s.AssetToken,
		boolKey(s.CollateralIsNative), s.CollateralToken)
	fmt.Fprintf(&b, "|min=%s|max=%s|sp=%s",
		intKey(s.MinAmount), intKey(s.MaxAmount), intKey(s.MaxSinglePayment))
	return b.String()
}

func normalizeAddr(a string) string {
	return strings.ToLower(strings.TrimSpace(a))
}

func boolKey(v *bool) string {
	if v == nil {
		return "-"
	}
	if *v {
		return "1"
	}
	return "0"
}

func intKey(v *big.Int) string {
	if v == nil {
		return "-"
	}
	return v.String()
}
