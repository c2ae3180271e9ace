package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-souq/internal/db"
)

func uid(t *testing.T) pgtype.UUID {
	t.Helper()
	id, err := db.ToUUID(uuid.NewString())
	require.NoError(t, err)
	return id
}

type stubQuerier struct {
	inventory map[string]db.Inventory
	products  map[string]db.Product
	bundles   map[string][]db.BundleProduct
	restocked map[string]int32
}

func (s *stubQuerier) GetInventoryByProduct(_ context.Context, productID pgtype.UUID) (db.Inventory, error) {
	inv, ok := s.inventory[db.UUIDString(productID)]
	if !ok {
		return db.Inventory{}, pgx.ErrNoRows
	}
	return inv, nil
}

func (s *stubQuerier) IncrementInventory(_ context.Context, productID pgtype.UUID, qty int32) (int32, error) {
	if s.restocked == nil {
		s.restocked = map[string]int32{}
	}
	key := db.UUIDString(productID)
	s.restocked[key] += qty
	return s.inventory[key].Quantity + s.restocked[key], nil
}

func (s *stubQuerier) ListBundleProducts(_ context.Context, bundleID pgtype.UUID) ([]db.BundleProduct, error) {
	return s.bundles[db.UUIDString(bundleID)], nil
}

func (s *stubQuerier) GetProductByID(_ context.Context, id pgtype.UUID) (db.Product, error) {
	p, ok := s.products[db.UUIDString(id)]
	if !ok {
		return db.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func TestExpandRequirements(t *testing.T) {
	prodA, prodB, bundleID := uid(t), uid(t), uid(t)

	items := []db.CartItemDetail{
		{ItemType: db.ItemTypeProduct, ProductID: prodA, Quantity: 2},
		{ItemType: db.ItemTypeBundle, BundleID: bundleID, Quantity: 3},
	}
	constituents := map[string][]db.BundleProduct{
		db.UUIDString(bundleID): {
			{ProductID: prodA, Quantity: 1},
			{ProductID: prodB, Quantity: 2},
		},
	}

	reqs := ExpandRequirements(items, constituents)
	require.Len(t, reqs, 2)

	byID := map[string]int32{}
	for _, r := range reqs {
		byID[db.UUIDString(r.ProductID)] = r.Quantity
	}
	assert.Equal(t, int32(5), byID[db.UUIDString(prodA)], "2 direct + 1x3 via bundle")
	assert.Equal(t, int32(6), byID[db.UUIDString(prodB)], "2x3 via bundle")
}

func TestValidateStock(t *testing.T) {
	prodA, prodB := uid(t), uid(t)
	stub := &stubQuerier{
		inventory: map[string]db.Inventory{
			db.UUIDString(prodA): {ProductID: prodA, Quantity: 3},
		},
		products: map[string]db.Product{
			db.UUIDString(prodA): {ID: prodA, Name: "Keyboard"},
			db.UUIDString(prodB): {ID: prodB, Name: "Mouse"},
		},
	}
	svc := &Service{Q: stub}

	t.Run("reports every shortfall", func(t *testing.T) {
		short, err := svc.ValidateStock(context.Background(), []Requirement{
			{ProductID: prodA, Quantity: 5},
			{ProductID: prodB, Quantity: 1},
		})
		require.NoError(t, err)
		require.Len(t, short, 2)
		assert.Equal(t, "Keyboard", short[0].Name)
		assert.Equal(t, int32(5), short[0].Required)
		assert.Equal(t, int32(3), short[0].Available)
		assert.Equal(t, int32(0), short[1].Available, "missing inventory row reads as zero")
	})

	t.Run("sufficient stock passes", func(t *testing.T) {
		short, err := svc.ValidateStock(context.Background(), []Requirement{
			{ProductID: prodA, Quantity: 3},
		})
		require.NoError(t, err)
		assert.Empty(t, short)
	})
}

func TestAddStock(t *testing.T) {
	prodA := uid(t)
	stub := &stubQuerier{
		inventory: map[string]db.Inventory{db.UUIDString(prodA): {ProductID: prodA, Quantity: 10}},
		products:  map[string]db.Product{db.UUIDString(prodA): {ID: prodA, Name: "Keyboard"}},
	}
	svc := &Service{Q: stub}

	t.Run("positive restock", func(t *testing.T) {
		qty, err := svc.AddStock(context.Background(), prodA, 5)
		require.NoError(t, err)
		assert.Equal(t, int32(15), qty)
	})

	t.Run("rejects non-positive", func(t *testing.T) {
		_, err := svc.AddStock(context.Background(), prodA, 0)
		require.Error(t, err)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := svc.AddStock(context.Background(), uid(t), 5)
		require.Error(t, err)
	})
}
