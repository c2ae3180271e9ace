package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getProductByID = `
SELECT id, name, sku, price, discount_percent, stock_status_override, created_at, updated_at
FROM products WHERE id = $1
`

func (q *Queries) GetProductByID(ctx context.Context, id pgtype.UUID) (Product, error) {
	var p Product
	err := q.db.QueryRow(ctx, getProductByID, id).Scan(
		&p.ID, &p.Name, &p.SKU, &p.Price, &p.DiscountPercent, &p.StockStatusOverride, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

const getProductBySKU = `
SELECT id, name, sku, price, discount_percent, stock_status_override, created_at, updated_at
FROM products WHERE sku = $1
`

func (q *Queries) GetProductBySKU(ctx context.Context, sku string) (Product, error) {
	var p Product
	err := q.db.QueryRow(ctx, getProductBySKU, sku).Scan(
		&p.ID, &p.Name, &p.SKU, &p.Price, &p.DiscountPercent, &p.StockStatusOverride, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

const listProducts = `
SELECT id, name, sku, price, discount_percent, stock_status_override, created_at, updated_at
FROM products ORDER BY name LIMIT $1 OFFSET $2
`

func (q *Queries) ListProducts(ctx context.Context, limit, offset int32) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.DiscountPercent, &p.StockStatusOverride, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const getBundleByID = `
SELECT id, name, price, active, created_at FROM bundles WHERE id = $1
`

func (q *Queries) GetBundleByID(ctx context.Context, id pgtype.UUID) (Bundle, error) {
	var b Bundle
	err := q.db.QueryRow(ctx, getBundleByID, id).Scan(&b.ID, &b.Name, &b.Price, &b.Active, &b.CreatedAt)
	return b, err
}

const listBundleProducts = `
SELECT bundle_id, product_id, quantity FROM bundle_products WHERE bundle_id = $1 ORDER BY product_id
`

func (q *Queries) ListBundleProducts(ctx context.Context, bundleID pgtype.UUID) ([]BundleProduct, error) {
	rows, err := q.db.Query(ctx, listBundleProducts, bundleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BundleProduct
	for rows.Next() {
		var bp BundleProduct
		if err := rows.Scan(&bp.BundleID, &bp.ProductID, &bp.Quantity); err != nil {
			return nil, err
		}
		out = append(out, bp)
	}
	return out, rows.Err()
}

const getInventoryByProduct = `
SELECT product_id, quantity, reserved, updated_at FROM inventory WHERE product_id = $1
`

func (q *Queries) GetInventoryByProduct(ctx context.Context, productID pgtype.UUID) (Inventory, error) {
	var inv Inventory
	err := q.db.QueryRow(ctx, getInventoryByProduct, productID).Scan(&inv.ProductID, &inv.Quantity, &inv.Reserved, &inv.UpdatedAt)
	return inv, err
}

const getInventoryForUpdate = `
SELECT product_id, quantity, reserved, updated_at FROM inventory WHERE product_id = $1 FOR UPDATE
`

// GetInventoryForUpdate locks the inventory row for the remainder of the
// surrounding transaction.
func (q *Queries) GetInventoryForUpdate(ctx context.Context, productID pgtype.UUID) (Inventory, error) {
	var inv Inventory
	err := q.db.QueryRow(ctx, getInventoryForUpdate, productID).Scan(&inv.ProductID, &inv.Quantity, &inv.Reserved, &inv.UpdatedAt)
	return inv, err
}

const decrementInventory = `
UPDATE inventory SET quantity = quantity - $2, updated_at = now()
WHERE product_id = $1
RETURNING quantity
`

// DecrementInventory applies an atomic SQL-level decrement and returns the
// resulting quantity so callers can validate the non-negative invariant.
func (q *Queries) DecrementInventory(ctx context.Context, productID pgtype.UUID, qty int32) (int32, error) {
	var remaining int32
	err := q.db.QueryRow(ctx, decrementInventory, productID, qty).Scan(&remaining)
	return remaining, err
}

const incrementInventory = `
UPDATE inventory SET quantity = quantity + $2, updated_at = now()
WHERE product_id = $1
RETURNING quantity
`

func (q *Queries) IncrementInventory(ctx context.Context, productID pgtype.UUID, qty int32) (int32, error) {
	var quantity int32
	err := q.db.QueryRow(ctx, incrementInventory, productID, qty).Scan(&quantity)
	return quantity, err
}
