package catalog

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
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

type stubQuerier struct {
	products  map[string]db.Product
	inventory map[string]db.Inventory
	bundle    db.Bundle
	bundleErr error
	bps       []db.BundleProduct
}

func (s *stubQuerier) GetProductByID(_ context.Context, id pgtype.UUID) (db.Product, error) {
	p, ok := s.products[db.UUIDString(id)]
	if !ok {
		return db.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (s *stubQuerier) GetProductBySKU(_ context.Context, sku string) (db.Product, error) {
	for _, p := range s.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return db.Product{}, pgx.ErrNoRows
}

func (s *stubQuerier) ListProducts(context.Context, int32, int32) ([]db.Product, error) {
	var out []db.Product
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubQuerier) GetInventoryByProduct(_ context.Context, productID pgtype.UUID) (db.Inventory, error) {
	inv, ok := s.inventory[db.UUIDString(productID)]
	if !ok {
		return db.Inventory{}, pgx.ErrNoRows
	}
	return inv, nil
}

func (s *stubQuerier) GetBundleByID(context.Context, pgtype.UUID) (db.Bundle, error) {
	return s.bundle, s.bundleErr
}

func (s *stubQuerier) ListBundleProducts(context.Context, pgtype.UUID) ([]db.BundleProduct, error) {
	return s.bps, nil
}

func (s *stubQuerier) ListCategories(context.Context) ([]db.Category, error) {
	return nil, nil
}

func TestDeriveAvailability(t *testing.T) {
	t.Run("in stock", func(t *testing.T) {
		got := DeriveAvailability(db.Product{}, 5)
		assert.Equal(t, StatusInStock, got.Status)
		assert.Equal(t, int32(5), got.Quantity)
	})

	t.Run("out of stock", func(t *testing.T) {
		got := DeriveAvailability(db.Product{}, 0)
		assert.Equal(t, StatusOutOfStock, got.Status)
	})

	t.Run("override wins over stock", func(t *testing.T) {
		p := db.Product{StockStatusOverride: pgtype.Text{String: db.StockPreOrder, Valid: true}}
		got := DeriveAvailability(p, 100)
		assert.Equal(t, db.StockPreOrder, got.Status)
	})

	t.Run("discontinued with zero stock", func(t *testing.T) {
		p := db.Product{StockStatusOverride: pgtype.Text{String: db.StockDiscontinued, Valid: true}}
		got := DeriveAvailability(p, 0)
		assert.Equal(t, db.StockDiscontinued, got.Status)
	})
}

func TestGetProduct(t *testing.T) {
	prodID := uid(t)
	stub := &stubQuerier{
		products: map[string]db.Product{
			db.UUIDString(prodID): {
				ID:              prodID,
				Name:            "Keyboard",
				Price:           dec("199.99"),
				DiscountPercent: decimal.NewNullDecimal(dec("15")),
			},
		},
		inventory: map[string]db.Inventory{
			db.UUIDString(prodID): {ProductID: prodID, Quantity: 7},
		},
	}
	svc := &Service{Q: stub}

	view, err := svc.GetProduct(context.Background(), prodID)
	require.NoError(t, err)
	assert.Equal(t, "199.99", view.Price.StringFixed(2))
	assert.Equal(t, "169.99", view.FinalPrice.StringFixed(2))
	assert.Equal(t, StatusInStock, view.Availability.Status)
	assert.Equal(t, int32(7), view.Availability.Quantity)

	_, err = svc.GetProduct(context.Background(), uid(t))
	require.Error(t, err)
}

func TestGetBundle(t *testing.T) {
	prodA, prodB, bundleID := uid(t), uid(t), uid(t)
	stub := &stubQuerier{
		products: map[string]db.Product{
			db.UUIDString(prodA): {ID: prodA, Name: "Keyboard", Price: dec("100")},
			db.UUIDString(prodB): {ID: prodB, Name: "Mouse", Price: dec("50")},
		},
		inventory: map[string]db.Inventory{
			db.UUIDString(prodA): {ProductID: prodA, Quantity: 5},
			db.UUIDString(prodB): {ProductID: prodB, Quantity: 1},
		},
		bundle: db.Bundle{ID: bundleID, Name: "Desk Set", Price: dec("120"), Active: true},
		bps: []db.BundleProduct{
			{BundleID: bundleID, ProductID: prodA, Quantity: 1},
			{BundleID: bundleID, ProductID: prodB, Quantity: 2},
		},
	}
	svc := &Service{Q: stub}

	view, err := svc.GetBundle(context.Background(), bundleID)
	require.NoError(t, err)
	assert.Equal(t, "120.00", view.Price.StringFixed(2))
	require.Len(t, view.Constituents, 2)
	assert.False(t, view.Available, "second constituent cannot cover one bundle")

	stub.inventory[db.UUIDString(prodB)] = db.Inventory{ProductID: prodB, Quantity: 2}
	view, err = svc.GetBundle(context.Background(), bundleID)
	require.NoError(t, err)
	assert.True(t, view.Available)
}
