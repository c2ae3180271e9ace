package checkout

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-souq/internal/db"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func uid(t *testing.T) pgtype.UUID {
	t.Helper()
	id, err := db.ToUUID(uuid.NewString())
	require.NoError(t, err)
	return id
}

func TestBuildLinesProduct(t *testing.T) {
	prodID := uid(t)
	items := []db.CartItemDetail{{
		ItemType:               db.ItemTypeProduct,
		ProductID:              prodID,
		Quantity:               3,
		ProductPrice:           decimal.NewNullDecimal(dec("100.00")),
		ProductDiscountPercent: decimal.NewNullDecimal(dec("10")),
	}}

	lines := BuildLines(items, nil)
	require.Len(t, lines, 1)
	assert.True(t, db.UUIDEqual(prodID, lines[0].ProductID))
	assert.Equal(t, int32(3), lines[0].Quantity)
	assert.Equal(t, "90.00", lines[0].Price.StringFixed(2))
}

func TestBuildLinesBundleExpansion(t *testing.T) {
	prodA, prodB, bundleID := uid(t), uid(t), uid(t)
	items := []db.CartItemDetail{{
		ItemType:    db.ItemTypeBundle,
		BundleID:    bundleID,
		Quantity:    2,
		BundlePrice: decimal.NewNullDecimal(dec("99.99")),
	}}
	constituents := map[string][]db.BundleProduct{
		db.UUIDString(bundleID): {
			{ProductID: prodA, Quantity: 1},
			{ProductID: prodB, Quantity: 3},
		},
	}

	lines := BuildLines(items, constituents)
	require.Len(t, lines, 2)

	assert.Equal(t, int32(2), lines[0].Quantity, "1 per bundle x 2 bundles")
	assert.Equal(t, int32(6), lines[1].Quantity, "3 per bundle x 2 bundles")
	assert.Equal(t, "50.00", lines[0].Price.StringFixed(2), "99.99 / 2 rounded half up")
	assert.Equal(t, "50.00", lines[1].Price.StringFixed(2))
}

func TestBuildLinesMixed(t *testing.T) {
	prodA, prodB, bundleID := uid(t), uid(t), uid(t)
	items := []db.CartItemDetail{
		{
			ItemType:     db.ItemTypeProduct,
			ProductID:    prodA,
			Quantity:     1,
			ProductPrice: decimal.NewNullDecimal(dec("25.50")),
		},
		{
			ItemType:    db.ItemTypeBundle,
			BundleID:    bundleID,
			Quantity:    1,
			BundlePrice: decimal.NewNullDecimal(dec("100.00")),
		},
	}
	constituents := map[string][]db.BundleProduct{
		db.UUIDString(bundleID): {
			{ProductID: prodA, Quantity: 2},
			{ProductID: prodB, Quantity: 1},
		},
	}

	lines := BuildLines(items, constituents)
	require.Len(t, lines, 3)
	assert.Equal(t, "25.50", lines[0].Price.StringFixed(2))
	assert.Equal(t, "33.33", lines[1].Price.StringFixed(2))
	assert.Equal(t, "33.33", lines[2].Price.StringFixed(2))
}
