// Package catalog is the storefront read model: products, bundles and the
// category tree.
package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-souq/internal/common"
	"github.com/noah-isme/backend-souq/internal/db"
	"github.com/noah-isme/backend-souq/internal/pricing"
)

// Availability statuses derived from inventory counts.
const (
	StatusInStock    = "in_stock"
	StatusOutOfStock = "out_of_stock"
)

// Querier is the subset of db queries the catalog service needs.
type Querier interface {
	GetProductByID(ctx context.Context, id pgtype.UUID) (db.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (db.Product, error)
	ListProducts(ctx context.Context, limit, offset int32) ([]db.Product, error)
	GetInventoryByProduct(ctx context.Context, productID pgtype.UUID) (db.Inventory, error)
	GetBundleByID(ctx context.Context, id pgtype.UUID) (db.Bundle, error)
	ListBundleProducts(ctx context.Context, bundleID pgtype.UUID) ([]db.BundleProduct, error)
	ListCategories(ctx context.Context) ([]db.Category, error)
}

type Service struct {
	Q Querier
}

// Availability is a product's purchasable state. An explicit override on the
// product wins over the inventory-derived status.
type Availability struct {
	Status   string `json:"status"`
	Quantity int32  `json:"quantity"`
}

// ProductView is the storefront projection of a product.
type ProductView struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	SKU             string              `json:"sku"`
	Price           decimal.Decimal     `json:"price"`
	FinalPrice      decimal.Decimal     `json:"finalPrice"`
	DiscountPercent decimal.NullDecimal `json:"discountPercent,omitempty"`
	Availability    Availability        `json:"availability"`
}

// DeriveAvailability resolves a product's availability from its override and
// its inventory count.
func DeriveAvailability(p db.Product, quantity int32) Availability {
	if p.StockStatusOverride.Valid && p.StockStatusOverride.String != "" {
		return Availability{Status: p.StockStatusOverride.String, Quantity: quantity}
	}
	if quantity > 0 {
		return Availability{Status: StatusInStock, Quantity: quantity}
	}
	return Availability{Status: StatusOutOfStock}
}

func (s *Service) productView(ctx context.Context, p db.Product) ProductView {
	quantity := int32(0)
	if inv, err := s.Q.GetInventoryByProduct(ctx, p.ID); err == nil {
		quantity = inv.Quantity
	}
	return ProductView{
		ID:              db.UUIDString(p.ID),
		Name:            p.Name,
		SKU:             p.SKU,
		Price:           pricing.Round2(p.Price),
		FinalPrice:      pricing.FinalPrice(p.Price, p.DiscountPercent),
		DiscountPercent: p.DiscountPercent,
		Availability:    DeriveAvailability(p, quantity),
	}
}

// GetProduct loads one product with availability and final pricing.
func (s *Service) GetProduct(ctx context.Context, id pgtype.UUID) (ProductView, error) {
	p, err := s.Q.GetProductByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductView{}, common.NotFound("Product not found")
	}
	if err != nil {
		return ProductView{}, err
	}
	return s.productView(ctx, p), nil
}

// GetProductBySKU loads one product by its SKU.
func (s *Service) GetProductBySKU(ctx context.Context, sku string) (ProductView, error) {
	p, err := s.Q.GetProductBySKU(ctx, sku)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductView{}, common.NotFound("Product not found")
	}
	if err != nil {
		return ProductView{}, err
	}
	return s.productView(ctx, p), nil
}

// ListProducts returns a page of storefront product views.
func (s *Service) ListProducts(ctx context.Context, page common.Pagination) ([]ProductView, error) {
	products, err := s.Q.ListProducts(ctx, page.Limit(), page.Offset())
	if err != nil {
		return nil, err
	}
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, s.productView(ctx, p))
	}
	return out, nil
}

// BundleConstituent is one product inside a bundle with its per-bundle
// quantity.
type BundleConstituent struct {
	Product  ProductView `json:"product"`
	Quantity int32       `json:"quantity"`
}

// BundleView is a bundle with its fixed price and expanded constituents.
// A bundle is available only while every constituent can cover one more
// bundle's worth of stock.
type BundleView struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Price        decimal.Decimal     `json:"price"`
	Active       bool                `json:"active"`
	Available    bool                `json:"available"`
	Constituents []BundleConstituent `json:"constituents"`
}

// GetBundle loads a bundle and expands its constituents.
func (s *Service) GetBundle(ctx context.Context, id pgtype.UUID) (BundleView, error) {
	b, err := s.Q.GetBundleByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return BundleView{}, common.NotFound("Bundle not found")
	}
	if err != nil {
		return BundleView{}, err
	}
	bps, err := s.Q.ListBundleProducts(ctx, id)
	if err != nil {
		return BundleView{}, err
	}

	view := BundleView{
		ID:        db.UUIDString(b.ID),
		Name:      b.Name,
		Price:     pricing.Round2(b.Price),
		Active:    b.Active,
		Available: b.Active && len(bps) > 0,
	}
	for _, bp := range bps {
		p, err := s.Q.GetProductByID(ctx, bp.ProductID)
		if err != nil {
			return BundleView{}, err
		}
		pv := s.productView(ctx, p)
		if pv.Availability.Quantity < bp.Quantity {
			view.Available = false
		}
		view.Constituents = append(view.Constituents, BundleConstituent{Product: pv, Quantity: bp.Quantity})
	}
	return view, nil
}
