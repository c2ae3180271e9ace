package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getCartByUser = `
SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1
`

func (q *Queries) GetCartByUser(ctx context.Context, userID pgtype.UUID) (Cart, error) {
	var c Cart
	err := q.db.QueryRow(ctx, getCartByUser, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const getCartForUpdate = `
SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1 FOR UPDATE
`

// GetCartForUpdate locks the user's cart row, serialising concurrent
// checkouts of the same cart.
func (q *Queries) GetCartForUpdate(ctx context.Context, userID pgtype.UUID) (Cart, error) {
	var c Cart
	err := q.db.QueryRow(ctx, getCartForUpdate, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const createCart = `
INSERT INTO carts (user_id) VALUES ($1)
RETURNING id, user_id, created_at, updated_at
`

func (q *Queries) CreateCart(ctx context.Context, userID pgtype.UUID) (Cart, error) {
	var c Cart
	err := q.db.QueryRow(ctx, createCart, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const cartItemDetailColumns = `
ci.id, ci.cart_id, ci.item_type, ci.product_id, ci.bundle_id, ci.quantity,
p.name, p.sku, p.price, p.discount_percent,
b.name, b.price, b.active
`

const listCartItemDetails = `
SELECT ` + cartItemDetailColumns + `
FROM cart_items ci
LEFT JOIN products p ON p.id = ci.product_id
LEFT JOIN bundles b ON b.id = ci.bundle_id
WHERE ci.cart_id = $1
ORDER BY ci.created_at
`

func (q *Queries) ListCartItemDetails(ctx context.Context, cartID pgtype.UUID) ([]CartItemDetail, error) {
	return q.queryCartItemDetails(ctx, listCartItemDetails, cartID)
}

const listCartItemDetailsForUpdate = listCartItemDetails + `
FOR UPDATE OF ci
`

// ListCartItemDetailsForUpdate locks the cart item rows while leaving the
// joined catalog rows unlocked.
func (q *Queries) ListCartItemDetailsForUpdate(ctx context.Context, cartID pgtype.UUID) ([]CartItemDetail, error) {
	return q.queryCartItemDetails(ctx, listCartItemDetailsForUpdate, cartID)
}

func (q *Queries) queryCartItemDetails(ctx context.Context, sql string, cartID pgtype.UUID) ([]CartItemDetail, error) {
	rows, err := q.db.Query(ctx, sql, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CartItemDetail
	for rows.Next() {
		var d CartItemDetail
		if err := rows.Scan(
			&d.ID, &d.CartID, &d.ItemType, &d.ProductID, &d.BundleID, &d.Quantity,
			&d.ProductName, &d.ProductSKU, &d.ProductPrice, &d.ProductDiscountPercent,
			&d.BundleName, &d.BundlePrice, &d.BundleActive,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const findCartItemByProduct = `
SELECT id, cart_id, item_type, product_id, bundle_id, quantity, created_at
FROM cart_items WHERE cart_id = $1 AND product_id = $2
`

func (q *Queries) FindCartItemByProduct(ctx context.Context, cartID, productID pgtype.UUID) (CartItem, error) {
	var it CartItem
	err := q.db.QueryRow(ctx, findCartItemByProduct, cartID, productID).Scan(
		&it.ID, &it.CartID, &it.ItemType, &it.ProductID, &it.BundleID, &it.Quantity, &it.CreatedAt,
	)
	return it, err
}

const findCartItemByBundle = `
SELECT id, cart_id, item_type, product_id, bundle_id, quantity, created_at
FROM cart_items WHERE cart_id = $1 AND bundle_id = $2
`

func (q *Queries) FindCartItemByBundle(ctx context.Context, cartID, bundleID pgtype.UUID) (CartItem, error) {
	var it CartItem
	err := q.db.QueryRow(ctx, findCartItemByBundle, cartID, bundleID).Scan(
		&it.ID, &it.CartID, &it.ItemType, &it.ProductID, &it.BundleID, &it.Quantity, &it.CreatedAt,
	)
	return it, err
}

const getCartItem = `
SELECT id, cart_id, item_type, product_id, bundle_id, quantity, created_at
FROM cart_items WHERE id = $1 AND cart_id = $2
`

func (q *Queries) GetCartItem(ctx context.Context, id, cartID pgtype.UUID) (CartItem, error) {
	var it CartItem
	err := q.db.QueryRow(ctx, getCartItem, id, cartID).Scan(
		&it.ID, &it.CartID, &it.ItemType, &it.ProductID, &it.BundleID, &it.Quantity, &it.CreatedAt,
	)
	return it, err
}

type CreateCartItemParams struct {
	CartID    pgtype.UUID
	ItemType  string
	ProductID pgtype.UUID
	BundleID  pgtype.UUID
	Quantity  int32
}

const createCartItem = `
INSERT INTO cart_items (cart_id, item_type, product_id, bundle_id, quantity)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, cart_id, item_type, product_id, bundle_id, quantity, created_at
`

func (q *Queries) CreateCartItem(ctx context.Context, arg CreateCartItemParams) (CartItem, error) {
	var it CartItem
	err := q.db.QueryRow(ctx, createCartItem, arg.CartID, arg.ItemType, arg.ProductID, arg.BundleID, arg.Quantity).Scan(
		&it.ID, &it.CartID, &it.ItemType, &it.ProductID, &it.BundleID, &it.Quantity, &it.CreatedAt,
	)
	return it, err
}

const updateCartItemQuantity = `
UPDATE cart_items SET quantity = $2 WHERE id = $1
RETURNING id, cart_id, item_type, product_id, bundle_id, quantity, created_at
`

func (q *Queries) UpdateCartItemQuantity(ctx context.Context, id pgtype.UUID, quantity int32) (CartItem, error) {
	var it CartItem
	err := q.db.QueryRow(ctx, updateCartItemQuantity, id, quantity).Scan(
		&it.ID, &it.CartID, &it.ItemType, &it.ProductID, &it.BundleID, &it.Quantity, &it.CreatedAt,
	)
	return it, err
}

const deleteCartItem = `
DELETE FROM cart_items WHERE id = $1 AND cart_id = $2
`

func (q *Queries) DeleteCartItem(ctx context.Context, id, cartID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, deleteCartItem, id, cartID)
	return err
}

const deleteCartItems = `
DELETE FROM cart_items WHERE cart_id = $1
`

// DeleteCartItems clears the cart; checkout consumes the cart through this.
func (q *Queries) DeleteCartItems(ctx context.Context, cartID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, deleteCartItems, cartID)
	return err
}
