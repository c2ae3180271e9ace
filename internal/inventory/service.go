// Package inventory tracks per-product stock and validates availability for
// carts whose items may be single products or bundles of products.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-souq/internal/common"
	"github.com/noah-isme/backend-souq/internal/db"
)

// Querier is the subset of db queries the inventory service needs.
type Querier interface {
	GetInventoryByProduct(ctx context.Context, productID pgtype.UUID) (db.Inventory, error)
	IncrementInventory(ctx context.Context, productID pgtype.UUID, qty int32) (int32, error)
	ListBundleProducts(ctx context.Context, bundleID pgtype.UUID) ([]db.BundleProduct, error)
	GetProductByID(ctx context.Context, id pgtype.UUID) (db.Product, error)
}

type Service struct {
	Q Querier
}

// Insufficiency describes one product that cannot cover the requested
// quantity. Checkout reports every failing product at once rather than
// stopping at the first.
type Insufficiency struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Required  int32  `json:"required"`
	Available int32  `json:"available"`
}

// ErrInsufficientStock wraps the full list of shortfalls.
func ErrInsufficientStock(items []Insufficiency) error {
	return common.Conflict("INSUFFICIENT_STOCK", "Insufficient stock for one or more items", items)
}

// Requirement is a flattened demand for a single product.
type Requirement struct {
	ProductID pgtype.UUID
	Quantity  int32
}

// ExpandRequirements flattens cart items into per-product demands. Product
// items map one-to-one; bundle items multiply each constituent's quantity by
// the bundle quantity. Demands for the same product accumulate.
func ExpandRequirements(items []db.CartItemDetail, constituents map[string][]db.BundleProduct) []Requirement {
	index := make(map[string]int)
	var out []Requirement
	add := func(productID pgtype.UUID, qty int32) {
		key := db.UUIDString(productID)
		if i, ok := index[key]; ok {
			out[i].Quantity += qty
			return
		}
		index[key] = len(out)
		out = append(out, Requirement{ProductID: productID, Quantity: qty})
	}
	for _, item := range items {
		switch item.ItemType {
		case db.ItemTypeProduct:
			add(item.ProductID, item.Quantity)
		case db.ItemTypeBundle:
			for _, bp := range constituents[db.UUIDString(item.BundleID)] {
				add(bp.ProductID, bp.Quantity*item.Quantity)
			}
		}
	}
	return out
}

// LoadConstituents fetches the constituent lists for every bundle item,
// keyed by bundle id.
func (s *Service) LoadConstituents(ctx context.Context, items []db.CartItemDetail) (map[string][]db.BundleProduct, error) {
	out := make(map[string][]db.BundleProduct)
	for _, item := range items {
		if item.ItemType != db.ItemTypeBundle {
			continue
		}
		key := db.UUIDString(item.BundleID)
		if _, ok := out[key]; ok {
			continue
		}
		bps, err := s.Q.ListBundleProducts(ctx, item.BundleID)
		if err != nil {
			return nil, fmt.Errorf("load bundle %s constituents: %w", key, err)
		}
		out[key] = bps
	}
	return out, nil
}

// ValidateStock checks every flattened requirement against current stock
// without locking anything. It returns the complete list of shortfalls, or
// nil when everything is coverable.
func (s *Service) ValidateStock(ctx context.Context, reqs []Requirement) ([]Insufficiency, error) {
	var short []Insufficiency
	for _, req := range reqs {
		inv, err := s.Q.GetInventoryByProduct(ctx, req.ProductID)
		available := inv.Quantity
		if errors.Is(err, pgx.ErrNoRows) {
			available = 0
		} else if err != nil {
			return nil, err
		}
		if available < req.Quantity {
			name := ""
			if p, perr := s.Q.GetProductByID(ctx, req.ProductID); perr == nil {
				name = p.Name
			}
			short = append(short, Insufficiency{
				ProductID: db.UUIDString(req.ProductID),
				Name:      name,
				Required:  req.Quantity,
				Available: available,
			})
		}
	}
	return short, nil
}

// CheckItems validates a whole cart read-only: bundle items are expanded
// into constituent demands and every shortfall is reported.
func (s *Service) CheckItems(ctx context.Context, items []db.CartItemDetail) ([]Insufficiency, error) {
	constituents, err := s.LoadConstituents(ctx, items)
	if err != nil {
		return nil, err
	}
	return s.ValidateStock(ctx, ExpandRequirements(items, constituents))
}

// AddStock increases a product's on-hand quantity. Restocks must be positive.
func (s *Service) AddStock(ctx context.Context, productID pgtype.UUID, qty int32) (int32, error) {
	if qty <= 0 {
		return 0, common.Validation("Restock quantity must be positive")
	}
	if _, err := s.Q.GetProductByID(ctx, productID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, common.NotFound("Product not found")
		}
		return 0, err
	}
	return s.Q.IncrementInventory(ctx, productID, qty)
}
