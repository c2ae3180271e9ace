// Package cart manages a user's single open cart and prices its contents.
package cart

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-souq/internal/common"
	"github.com/noah-isme/backend-souq/internal/db"
	"github.com/noah-isme/backend-souq/internal/discount"
	"github.com/noah-isme/backend-souq/internal/location"
	"github.com/noah-isme/backend-souq/internal/pricing"
)

// ErrItemNotFound is returned for updates or removals of items that are not
// in the user's cart.
var ErrItemNotFound = common.NotFound("Item not found in cart")

// Querier is the subset of db queries the cart service needs.
type Querier interface {
	GetCartByUser(ctx context.Context, userID pgtype.UUID) (db.Cart, error)
	CreateCart(ctx context.Context, userID pgtype.UUID) (db.Cart, error)
	ListCartItemDetails(ctx context.Context, cartID pgtype.UUID) ([]db.CartItemDetail, error)
	FindCartItemByProduct(ctx context.Context, cartID, productID pgtype.UUID) (db.CartItem, error)
	FindCartItemByBundle(ctx context.Context, cartID, bundleID pgtype.UUID) (db.CartItem, error)
	GetCartItem(ctx context.Context, id, cartID pgtype.UUID) (db.CartItem, error)
	CreateCartItem(ctx context.Context, arg db.CreateCartItemParams) (db.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, id pgtype.UUID, quantity int32) (db.CartItem, error)
	DeleteCartItem(ctx context.Context, id, cartID pgtype.UUID) error
	GetProductByID(ctx context.Context, id pgtype.UUID) (db.Product, error)
	GetBundleByID(ctx context.Context, id pgtype.UUID) (db.Bundle, error)
}

type Service struct {
	Q         Querier
	Discounts *discount.Service
	Locations *location.Service
}

// PricedItem is one cart line with its resolved unit price.
type PricedItem struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	ProductID string          `json:"productId,omitempty"`
	BundleID  string          `json:"bundleId,omitempty"`
	Name      string          `json:"name"`
	Quantity  int32           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// AppliedDiscount reports what happened to the discount code the caller
// supplied. A rejected code carries its reason instead of failing the view.
type AppliedDiscount struct {
	Code    string          `json:"code"`
	Applied bool            `json:"applied"`
	Amount  decimal.Decimal `json:"amount"`
	Reason  string          `json:"reason,omitempty"`
}

// View is the fully priced cart returned to clients.
type View struct {
	CartID   string           `json:"cartId"`
	Items    []PricedItem     `json:"items"`
	Subtotal decimal.Decimal  `json:"subtotal"`
	Discount *AppliedDiscount `json:"discount,omitempty"`
	Tax      decimal.Decimal  `json:"tax"`
	Shipping decimal.Decimal  `json:"shipping"`
	Total    decimal.Decimal  `json:"total"`
}

// getOrCreate returns the user's cart, creating it on first touch.
func (s *Service) getOrCreate(ctx context.Context, userID pgtype.UUID) (db.Cart, error) {
	c, err := s.Q.GetCartByUser(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.Q.CreateCart(ctx, userID)
	}
	return c, err
}

// Items returns the raw cart rows with their product/bundle projections.
func (s *Service) Items(ctx context.Context, userID pgtype.UUID) ([]db.CartItemDetail, error) {
	c, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Q.ListCartItemDetails(ctx, c.ID)
}

// AddItemParams carries the request body for adding a cart item.
type AddItemParams struct {
	ProductID string `json:"productId"`
	BundleID  string `json:"bundleId"`
	Quantity  int32  `json:"quantity"`
}

// AddItem puts a product or bundle into the cart. Adding something already
// present increments its quantity instead of creating a second row.
func (s *Service) AddItem(ctx context.Context, userID pgtype.UUID, p AddItemParams) (db.CartItem, error) {
	if p.Quantity < 1 {
		return db.CartItem{}, common.Validation("Quantity must be at least 1")
	}
	if (p.ProductID == "") == (p.BundleID == "") {
		return db.CartItem{}, common.Validation("Provide exactly one of productId or bundleId")
	}

	c, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return db.CartItem{}, err
	}

	if p.ProductID != "" {
		productID, err := db.ToUUID(p.ProductID)
		if err != nil {
			return db.CartItem{}, common.Validation("Invalid product id")
		}
		if _, err := s.Q.GetProductByID(ctx, productID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return db.CartItem{}, common.NotFound("Product not found")
			}
			return db.CartItem{}, err
		}
		existing, err := s.Q.FindCartItemByProduct(ctx, c.ID, productID)
		if err == nil {
			return s.Q.UpdateCartItemQuantity(ctx, existing.ID, existing.Quantity+p.Quantity)
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return db.CartItem{}, err
		}
		return s.Q.CreateCartItem(ctx, db.CreateCartItemParams{
			CartID:    c.ID,
			ItemType:  db.ItemTypeProduct,
			ProductID: productID,
			Quantity:  p.Quantity,
		})
	}

	bundleID, err := db.ToUUID(p.BundleID)
	if err != nil {
		return db.CartItem{}, common.Validation("Invalid bundle id")
	}
	b, err := s.Q.GetBundleByID(ctx, bundleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.CartItem{}, common.NotFound("Bundle not found")
		}
		return db.CartItem{}, err
	}
	if !b.Active {
		return db.CartItem{}, common.Conflict("BUNDLE_INACTIVE", "Bundle is not available", nil)
	}
	existing, err := s.Q.FindCartItemByBundle(ctx, c.ID, bundleID)
	if err == nil {
		return s.Q.UpdateCartItemQuantity(ctx, existing.ID, existing.Quantity+p.Quantity)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return db.CartItem{}, err
	}
	return s.Q.CreateCartItem(ctx, db.CreateCartItemParams{
		CartID:   c.ID,
		ItemType: db.ItemTypeBundle,
		BundleID: bundleID,
		Quantity: p.Quantity,
	})
}

// UpdateItemQuantity sets an item's quantity. Zero or less removes the item.
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, itemID pgtype.UUID, quantity int32) (*db.CartItem, error) {
	c, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Q.GetCartItem(ctx, itemID, c.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	if quantity <= 0 {
		if err := s.Q.DeleteCartItem(ctx, itemID, c.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	updated, err := s.Q.UpdateCartItemQuantity(ctx, itemID, quantity)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// RemoveItem deletes an item from the user's cart.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID pgtype.UUID) error {
	c, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := s.Q.GetCartItem(ctx, itemID, c.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrItemNotFound
		}
		return err
	}
	return s.Q.DeleteCartItem(ctx, itemID, c.ID)
}

// PriceItems turns raw cart rows into priced lines plus their subtotal.
// Product lines take the product's discounted unit price; bundle lines take
// the bundle's own fixed price.
func PriceItems(items []db.CartItemDetail) ([]PricedItem, decimal.Decimal) {
	out := make([]PricedItem, 0, len(items))
	subtotal := decimal.Zero
	for _, item := range items {
		line := PricedItem{
			ID:       db.UUIDString(item.ID),
			Type:     item.ItemType,
			Quantity: item.Quantity,
		}
		switch item.ItemType {
		case db.ItemTypeProduct:
			line.ProductID = db.UUIDString(item.ProductID)
			line.Name = item.ProductName.String
			line.UnitPrice = pricing.FinalPrice(item.ProductPrice.Decimal, item.ProductDiscountPercent)
		case db.ItemTypeBundle:
			line.BundleID = db.UUIDString(item.BundleID)
			line.Name = item.BundleName.String
			line.UnitPrice = pricing.Round2(item.BundlePrice.Decimal)
		}
		line.LineTotal = pricing.LineTotal(line.UnitPrice, item.Quantity)
		subtotal = subtotal.Add(line.LineTotal)
		out = append(out, line)
	}
	return out, pricing.Round2(subtotal)
}

// Get prices the user's cart. A discount code that fails validation is
// reported in the view with its reason instead of aborting, and an unknown
// or malformed location prices with zero tax and shipping. The preview never
// rejects; checkout is where a bad location becomes a hard failure.
func (s *Service) Get(ctx context.Context, userID pgtype.UUID, locationID, discountCode string) (View, error) {
	c, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return View{}, err
	}
	items, err := s.Q.ListCartItemDetails(ctx, c.ID)
	if err != nil {
		return View{}, err
	}
	lines, subtotal := PriceItems(items)

	view := View{CartID: db.UUIDString(c.ID), Items: lines, Subtotal: subtotal}

	discountAmount := decimal.Zero
	if discountCode != "" {
		out, err := s.Discounts.Resolve(ctx, discountCode, subtotal)
		if err != nil {
			return View{}, err
		}
		view.Discount = &AppliedDiscount{
			Code:    discount.NormalizeCode(discountCode),
			Applied: out.Applied(),
			Amount:  out.Amount,
			Reason:  out.Reason,
		}
		discountAmount = out.Amount
	}

	taxRate, shippingRate := decimal.Zero, decimal.Zero
	if locationID != "" {
		if locID, err := db.ToUUID(locationID); err == nil {
			loc, err := s.Locations.Resolve(ctx, locID)
			switch {
			case errors.Is(err, location.ErrInvalidLocation):
				// no location applied
			case err != nil:
				return View{}, err
			default:
				taxRate, shippingRate = location.Rates(loc)
			}
		}
	}

	totals := pricing.Compute(subtotal, discountAmount, taxRate, shippingRate)
	view.Tax = totals.Tax
	view.Shipping = totals.Shipping
	view.Total = totals.Total
	if view.Discount != nil {
		view.Discount.Amount = totals.DiscountAmount
	}
	return view, nil
}
