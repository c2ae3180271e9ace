package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-souq/internal/db"
	"github.com/noah-isme/backend-souq/internal/discount"
	"github.com/noah-isme/backend-souq/internal/location"
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

type stubQuerier struct {
	cart        db.Cart
	cartErr     error
	created     bool
	items       []db.CartItemDetail
	products    map[string]db.Product
	bundles     map[string]db.Bundle
	byProduct   map[string]db.CartItem
	byBundle    map[string]db.CartItem
	cartItems   map[string]db.CartItem
	lastCreate  db.CreateCartItemParams
	lastUpdate  int32
	deletedItem string
}

func (s *stubQuerier) GetCartByUser(context.Context, pgtype.UUID) (db.Cart, error) {
	return s.cart, s.cartErr
}

func (s *stubQuerier) CreateCart(_ context.Context, userID pgtype.UUID) (db.Cart, error) {
	s.created = true
	s.cart = db.Cart{ID: s.cart.ID, UserID: userID}
	return s.cart, nil
}

func (s *stubQuerier) ListCartItemDetails(context.Context, pgtype.UUID) ([]db.CartItemDetail, error) {
	return s.items, nil
}

func (s *stubQuerier) FindCartItemByProduct(_ context.Context, _, productID pgtype.UUID) (db.CartItem, error) {
	it, ok := s.byProduct[db.UUIDString(productID)]
	if !ok {
		return db.CartItem{}, pgx.ErrNoRows
	}
	return it, nil
}

func (s *stubQuerier) FindCartItemByBundle(_ context.Context, _, bundleID pgtype.UUID) (db.CartItem, error) {
	it, ok := s.byBundle[db.UUIDString(bundleID)]
	if !ok {
		return db.CartItem{}, pgx.ErrNoRows
	}
	return it, nil
}

func (s *stubQuerier) GetCartItem(_ context.Context, id, _ pgtype.UUID) (db.CartItem, error) {
	it, ok := s.cartItems[db.UUIDString(id)]
	if !ok {
		return db.CartItem{}, pgx.ErrNoRows
	}
	return it, nil
}

func (s *stubQuerier) CreateCartItem(_ context.Context, arg db.CreateCartItemParams) (db.CartItem, error) {
	s.lastCreate = arg
	return db.CartItem{CartID: arg.CartID, ItemType: arg.ItemType, ProductID: arg.ProductID, BundleID: arg.BundleID, Quantity: arg.Quantity}, nil
}

func (s *stubQuerier) UpdateCartItemQuantity(_ context.Context, id pgtype.UUID, quantity int32) (db.CartItem, error) {
	s.lastUpdate = quantity
	it := s.cartItems[db.UUIDString(id)]
	it.Quantity = quantity
	return it, nil
}

func (s *stubQuerier) DeleteCartItem(_ context.Context, id, _ pgtype.UUID) error {
	s.deletedItem = db.UUIDString(id)
	return nil
}

func (s *stubQuerier) GetProductByID(_ context.Context, id pgtype.UUID) (db.Product, error) {
	p, ok := s.products[db.UUIDString(id)]
	if !ok {
		return db.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (s *stubQuerier) GetBundleByID(_ context.Context, id pgtype.UUID) (db.Bundle, error) {
	b, ok := s.bundles[db.UUIDString(id)]
	if !ok {
		return db.Bundle{}, pgx.ErrNoRows
	}
	return b, nil
}

type stubDiscountQuerier struct {
	code db.DiscountCode
	err  error
}

func (s *stubDiscountQuerier) GetDiscountByCode(context.Context, string) (db.DiscountCode, error) {
	return s.code, s.err
}

func (s *stubDiscountQuerier) CreateDiscountCode(context.Context, db.CreateDiscountCodeParams) (db.DiscountCode, error) {
	return db.DiscountCode{}, nil
}

type stubLocationQuerier struct {
	loc db.Location
	err error
}

func (s *stubLocationQuerier) GetLocationByID(context.Context, pgtype.UUID) (db.Location, error) {
	return s.loc, s.err
}

func newService(q *stubQuerier, dq *stubDiscountQuerier, lq *stubLocationQuerier) *Service {
	if dq == nil {
		dq = &stubDiscountQuerier{err: pgx.ErrNoRows}
	}
	if lq == nil {
		lq = &stubLocationQuerier{err: pgx.ErrNoRows}
	}
	return &Service{
		Q:         q,
		Discounts: &discount.Service{Q: dq},
		Locations: &location.Service{Q: lq},
	}
}

func TestAddItem(t *testing.T) {
	userID := uid(t)

	t.Run("rejects zero quantity", func(t *testing.T) {
		svc := newService(&stubQuerier{}, nil, nil)
		_, err := svc.AddItem(context.Background(), userID, AddItemParams{ProductID: uuid.NewString(), Quantity: 0})
		require.Error(t, err)
	})

	t.Run("rejects both product and bundle", func(t *testing.T) {
		svc := newService(&stubQuerier{}, nil, nil)
		_, err := svc.AddItem(context.Background(), userID, AddItemParams{ProductID: uuid.NewString(), BundleID: uuid.NewString(), Quantity: 1})
		require.Error(t, err)
	})

	t.Run("rejects neither", func(t *testing.T) {
		svc := newService(&stubQuerier{}, nil, nil)
		_, err := svc.AddItem(context.Background(), userID, AddItemParams{Quantity: 1})
		require.Error(t, err)
	})

	t.Run("creates cart on first touch", func(t *testing.T) {
		prodID := uid(t)
		stub := &stubQuerier{
			cartErr:  pgx.ErrNoRows,
			products: map[string]db.Product{db.UUIDString(prodID): {ID: prodID}},
		}
		svc := newService(stub, nil, nil)
		_, err := svc.AddItem(context.Background(), userID, AddItemParams{ProductID: db.UUIDString(prodID), Quantity: 2})
		require.NoError(t, err)
		assert.True(t, stub.created)
		assert.Equal(t, int32(2), stub.lastCreate.Quantity)
		assert.Equal(t, db.ItemTypeProduct, stub.lastCreate.ItemType)
	})

	t.Run("merges into existing line", func(t *testing.T) {
		prodID, itemID := uid(t), uid(t)
		stub := &stubQuerier{
			products: map[string]db.Product{db.UUIDString(prodID): {ID: prodID}},
			byProduct: map[string]db.CartItem{
				db.UUIDString(prodID): {ID: itemID, ProductID: prodID, Quantity: 3},
			},
			cartItems: map[string]db.CartItem{db.UUIDString(itemID): {ID: itemID, Quantity: 3}},
		}
		svc := newService(stub, nil, nil)
		_, err := svc.AddItem(context.Background(), userID, AddItemParams{ProductID: db.UUIDString(prodID), Quantity: 2})
		require.NoError(t, err)
		assert.Equal(t, int32(5), stub.lastUpdate)
	})

	t.Run("unknown product", func(t *testing.T) {
		svc := newService(&stubQuerier{products: map[string]db.Product{}}, nil, nil)
		_, err := svc.AddItem(context.Background(), userID, AddItemParams{ProductID: uuid.NewString(), Quantity: 1})
		require.Error(t, err)
	})

	t.Run("inactive bundle rejected", func(t *testing.T) {
		bundleID := uid(t)
		stub := &stubQuerier{
			bundles: map[string]db.Bundle{db.UUIDString(bundleID): {ID: bundleID, Active: false}},
		}
		svc := newService(stub, nil, nil)
		_, err := svc.AddItem(context.Background(), userID, AddItemParams{BundleID: db.UUIDString(bundleID), Quantity: 1})
		require.Error(t, err)
	})

	t.Run("active bundle added", func(t *testing.T) {
		bundleID := uid(t)
		stub := &stubQuerier{
			bundles: map[string]db.Bundle{db.UUIDString(bundleID): {ID: bundleID, Active: true}},
		}
		svc := newService(stub, nil, nil)
		it, err := svc.AddItem(context.Background(), userID, AddItemParams{BundleID: db.UUIDString(bundleID), Quantity: 1})
		require.NoError(t, err)
		assert.Equal(t, db.ItemTypeBundle, it.ItemType)
	})
}

func TestUpdateItemQuantity(t *testing.T) {
	userID, itemID := uid(t), uid(t)

	t.Run("missing item", func(t *testing.T) {
		svc := newService(&stubQuerier{cartItems: map[string]db.CartItem{}}, nil, nil)
		_, err := svc.UpdateItemQuantity(context.Background(), userID, itemID, 2)
		require.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("zero quantity removes", func(t *testing.T) {
		stub := &stubQuerier{cartItems: map[string]db.CartItem{db.UUIDString(itemID): {ID: itemID, Quantity: 2}}}
		svc := newService(stub, nil, nil)
		updated, err := svc.UpdateItemQuantity(context.Background(), userID, itemID, 0)
		require.NoError(t, err)
		assert.Nil(t, updated)
		assert.Equal(t, db.UUIDString(itemID), stub.deletedItem)
	})

	t.Run("positive quantity updates", func(t *testing.T) {
		stub := &stubQuerier{cartItems: map[string]db.CartItem{db.UUIDString(itemID): {ID: itemID, Quantity: 2}}}
		svc := newService(stub, nil, nil)
		updated, err := svc.UpdateItemQuantity(context.Background(), userID, itemID, 7)
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, int32(7), updated.Quantity)
	})
}

func TestPriceItems(t *testing.T) {
	prodID, bundleID := uid(t), uid(t)
	items := []db.CartItemDetail{
		{
			ItemType:               db.ItemTypeProduct,
			ProductID:              prodID,
			Quantity:               2,
			ProductName:            pgtype.Text{String: "Keyboard", Valid: true},
			ProductPrice:           decimal.NewNullDecimal(dec("100.00")),
			ProductDiscountPercent: decimal.NewNullDecimal(dec("10")),
		},
		{
			ItemType:    db.ItemTypeBundle,
			BundleID:    bundleID,
			Quantity:    1,
			BundleName:  pgtype.Text{String: "Starter Kit", Valid: true},
			BundlePrice: decimal.NewNullDecimal(dec("59.99")),
		},
	}

	lines, subtotal := PriceItems(items)
	require.Len(t, lines, 2)
	assert.Equal(t, "90.00", lines[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "180.00", lines[0].LineTotal.StringFixed(2))
	assert.Equal(t, "59.99", lines[1].UnitPrice.StringFixed(2))
	assert.Equal(t, "239.99", subtotal.StringFixed(2))
}

func TestGet(t *testing.T) {
	userID, prodID := uid(t), uid(t)
	items := []db.CartItemDetail{
		{
			ItemType:     db.ItemTypeProduct,
			ProductID:    prodID,
			Quantity:     2,
			ProductName:  pgtype.Text{String: "Keyboard", Valid: true},
			ProductPrice: decimal.NewNullDecimal(dec("100.00")),
		},
	}

	t.Run("no location no discount", func(t *testing.T) {
		svc := newService(&stubQuerier{items: items}, nil, nil)
		view, err := svc.Get(context.Background(), userID, "", "")
		require.NoError(t, err)
		assert.Equal(t, "200.00", view.Subtotal.StringFixed(2))
		assert.Equal(t, "200.00", view.Total.StringFixed(2))
		assert.Nil(t, view.Discount)
	})

	t.Run("invalid discount degrades gracefully", func(t *testing.T) {
		svc := newService(&stubQuerier{items: items}, &stubDiscountQuerier{err: pgx.ErrNoRows}, nil)
		view, err := svc.Get(context.Background(), userID, "", "NOPE")
		require.NoError(t, err)
		require.NotNil(t, view.Discount)
		assert.False(t, view.Discount.Applied)
		assert.Equal(t, discount.ReasonInvalid, view.Discount.Reason)
		assert.Equal(t, "200.00", view.Total.StringFixed(2))
	})

	t.Run("valid discount and location", func(t *testing.T) {
		dq := &stubDiscountQuerier{code: db.DiscountCode{
			Code: "SAVE10", Kind: db.DiscountPercentage, Value: dec("10"), Active: true,
		}}
		lq := &stubLocationQuerier{loc: db.Location{TaxRate: dec("0.14"), ShippingRate: dec("0.05"), Active: true}}
		svc := newService(&stubQuerier{items: items}, dq, lq)

		view, err := svc.Get(context.Background(), userID, uuid.NewString(), "SAVE10")
		require.NoError(t, err)
		require.NotNil(t, view.Discount)
		assert.True(t, view.Discount.Applied)
		assert.Equal(t, "20.00", view.Discount.Amount.StringFixed(2))
		assert.Equal(t, "25.20", view.Tax.StringFixed(2))
		assert.Equal(t, "9.00", view.Shipping.StringFixed(2))
		assert.Equal(t, "214.20", view.Total.StringFixed(2))
	})

	t.Run("unknown location prices without tax or shipping", func(t *testing.T) {
		svc := newService(&stubQuerier{items: items}, nil, &stubLocationQuerier{err: pgx.ErrNoRows})
		view, err := svc.Get(context.Background(), userID, uuid.NewString(), "")
		require.NoError(t, err)
		assert.Equal(t, "0.00", view.Tax.StringFixed(2))
		assert.Equal(t, "0.00", view.Shipping.StringFixed(2))
		assert.Equal(t, "200.00", view.Total.StringFixed(2))
	})

	t.Run("malformed location id prices without tax or shipping", func(t *testing.T) {
		svc := newService(&stubQuerier{items: items}, nil, nil)
		view, err := svc.Get(context.Background(), userID, "not-a-uuid", "")
		require.NoError(t, err)
		assert.Equal(t, "0.00", view.Tax.StringFixed(2))
		assert.Equal(t, "200.00", view.Total.StringFixed(2))
	})
}
