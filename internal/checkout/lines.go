package checkout

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-souq/internal/db"
	"github.com/noah-isme/backend-souq/internal/pricing"
)

// Line is one order item to persist. Bundles are expanded so every line
// references a concrete product.
type Line struct {
	ProductID pgtype.UUID
	Quantity  int32
	Price     decimal.Decimal
}

// BuildLines turns priced cart rows into order lines. A product row maps to
// one line at its discounted unit price. A bundle row maps to one line per
// constituent: quantity is the constituent quantity times the bundle
// quantity, and the bundle's fixed price is split evenly across its
// constituents so the order items still sum close to what was charged.
func BuildLines(items []db.CartItemDetail, constituents map[string][]db.BundleProduct) []Line {
	var out []Line
	for _, item := range items {
		switch item.ItemType {
		case db.ItemTypeProduct:
			out = append(out, Line{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     pricing.FinalPrice(item.ProductPrice.Decimal, item.ProductDiscountPercent),
			})
		case db.ItemTypeBundle:
			bps := constituents[db.UUIDString(item.BundleID)]
			share := pricing.SplitBundlePrice(item.BundlePrice.Decimal, len(bps))
			for _, bp := range bps {
				out = append(out, Line{
					ProductID: bp.ProductID,
					Quantity:  bp.Quantity * item.Quantity,
					Price:     share,
				})
			}
		}
	}
	return out
}
