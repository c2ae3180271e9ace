// Package pricing holds the monetary arithmetic used by carts, checkout and
// the payment webhook. All amounts are decimals rounded half-up to two
// places at every boundary so that totals recomputed later match what the
// customer was shown.
package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 rounds half-up to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FinalPrice applies a product-level percentage discount to a base price.
// A nil or zero percent leaves the price untouched apart from rounding.
func FinalPrice(base decimal.Decimal, discountPercent decimal.NullDecimal) decimal.Decimal {
	if !discountPercent.Valid || discountPercent.Decimal.IsZero() {
		return Round2(base)
	}
	factor := hundred.Sub(discountPercent.Decimal).Div(hundred)
	return Round2(base.Mul(factor))
}

// LineTotal is unit price times quantity, rounded.
func LineTotal(unit decimal.Decimal, quantity int32) decimal.Decimal {
	return Round2(unit.Mul(decimal.NewFromInt32(quantity)))
}

// Totals is the complete monetary breakdown of a cart or order.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Taxable        decimal.Decimal
	Tax            decimal.Decimal
	Shipping       decimal.Decimal
	Total          decimal.Decimal
}

// Compute derives the full breakdown from an item subtotal. Tax and shipping
// apply to the post-discount amount; the discount is clamped so the taxable
// base never goes negative.
func Compute(subtotal, discountAmount, taxRate, shippingRate decimal.Decimal) Totals {
	subtotal = Round2(subtotal)
	discountAmount = Round2(discountAmount)
	if discountAmount.GreaterThan(subtotal) {
		discountAmount = subtotal
	}
	taxable := subtotal.Sub(discountAmount)
	tax := Round2(taxable.Mul(taxRate))
	shipping := Round2(taxable.Mul(shippingRate))
	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		Taxable:        taxable,
		Tax:            tax,
		Shipping:       shipping,
		Total:          Round2(taxable.Add(tax).Add(shipping)),
	}
}

// SplitBundlePrice spreads a bundle's fixed price evenly across its
// constituent rows. Each row gets the same rounded share.
func SplitBundlePrice(bundlePrice decimal.Decimal, constituents int) decimal.Decimal {
	if constituents <= 0 {
		return decimal.Zero
	}
	return Round2(bundlePrice.Div(decimal.NewFromInt(int64(constituents))))
}
