// Package discount validates and applies discount codes against cart
// subtotals.
package discount

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-souq/internal/db"
	"github.com/noah-isme/backend-souq/internal/pricing"
)

// Rejection reasons surfaced to clients. The wording is part of the API
// contract; frontends match on it.
const (
	ReasonInvalid  = "Invalid discount code"
	ReasonInactive = "This discount code is no longer active"
	ReasonNotYet   = "This discount code is not yet valid"
	ReasonExpired  = "This discount code has expired"
	ReasonMaxedOut = "This discount code has reached its maximum number of uses"
)

// Validate checks a code's full set of eligibility rules against a subtotal
// at a given instant. It returns an empty string when the code applies, or
// the rejection reason otherwise.
func Validate(code db.DiscountCode, subtotal decimal.Decimal, now time.Time) string {
	if !code.Active {
		return ReasonInactive
	}
	if code.ValidFrom.Valid && now.Before(code.ValidFrom.Time) {
		return ReasonNotYet
	}
	if code.ValidTo.Valid && now.After(code.ValidTo.Time) {
		return ReasonExpired
	}
	if code.MaxUses.Valid && code.UsedCount >= code.MaxUses.Int32 {
		return ReasonMaxedOut
	}
	if code.MinPurchase.Valid && subtotal.LessThan(code.MinPurchase.Decimal) {
		return fmt.Sprintf("Minimum purchase of %s required", code.MinPurchase.Decimal.StringFixed(2))
	}
	return ""
}

// Amount computes the monetary reduction a valid code grants on a subtotal.
// Percentage codes take their share of the subtotal; fixed codes are capped
// at the subtotal so the payable amount never goes negative.
func Amount(code db.DiscountCode, subtotal decimal.Decimal) decimal.Decimal {
	switch code.Kind {
	case db.DiscountPercentage:
		return pricing.Round2(subtotal.Mul(code.Value).Div(decimal.NewFromInt(100)))
	case db.DiscountFixed:
		amount := pricing.Round2(code.Value)
		if amount.GreaterThan(subtotal) {
			return pricing.Round2(subtotal)
		}
		return amount
	default:
		return decimal.Zero
	}
}
