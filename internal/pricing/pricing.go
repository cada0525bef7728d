// Package pricing computes reservation totals from authoritative inputs.
// All amounts are integers in the smallest currency unit.
package pricing

import "github.com/iliyamo/intercity-reservation/internal/model"

// FeePercent is the surcharge applied on top of the subtotal.
const FeePercent = 5

// Policy selects which payment methods pay the surcharge.
type Policy int

const (
	// PolicyCardOnly charges the fee for card payments only.
	PolicyCardOnly Policy = iota
	// PolicyAllMethods charges the fee whatever the method.
	PolicyAllMethods
)

// Quote is the breakdown returned by ComputeTotal.
type Quote struct {
	Subtotal int64 `json:"subtotal"`
	Fee      int64 `json:"fee"`
	Total    int64 `json:"total"`
}

// Engine prices drafts under a fixed fee policy.  The zero value uses
// PolicyCardOnly.
type Engine struct {
	Policy Policy
}

// ComputeTotal prices units of basePrice paid with method.  The unit
// multiplier is floored at one and negative inputs are treated as zero
// so a quote is never negative.
func (e Engine) ComputeTotal(basePrice, units int64, method model.PaymentMethod) Quote {
	if basePrice < 0 {
		basePrice = 0
	}
	if units < 1 {
		units = 1
	}
	subtotal := basePrice * units
	var fee int64
	if e.charges(method) {
		fee = percentHalfUp(subtotal, FeePercent)
	}
	return Quote{Subtotal: subtotal, Fee: fee, Total: subtotal + fee}
}

// Draft prices a draft from its route, unit count and payment method.
func (e Engine) Draft(d model.Draft) Quote {
	return e.ComputeTotal(d.BasePrice(), d.Units(), d.Method())
}

func (e Engine) charges(method model.PaymentMethod) bool {
	switch e.Policy {
	case PolicyAllMethods:
		return true
	default:
		return method == model.MethodCard
	}
}

// ComputeTotal prices with the default card-only policy.
func ComputeTotal(basePrice, units int64, method model.PaymentMethod) Quote {
	return Engine{}.ComputeTotal(basePrice, units, method)
}

// percentHalfUp returns amount*pct/100 rounded half up.  amount must be
// non-negative.
func percentHalfUp(amount, pct int64) int64 {
	return (amount*pct + 50) / 100
}

// ParsePolicy maps a configuration value to a Policy.  "all" charges
// every method; anything else keeps the card-only default.
func ParsePolicy(s string) Policy {
	if s == "all" {
		return PolicyAllMethods
	}
	return PolicyCardOnly
}
