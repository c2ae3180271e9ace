package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const orderColumns = `
id, user_id, location_id, subtotal, tax, shipping, total, currency, status, payment_status, metadata, placed_at, updated_at
`

type CreateOrderParams struct {
	UserID     pgtype.UUID
	LocationID pgtype.UUID
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Shipping   decimal.Decimal
	Total      decimal.Decimal
	Currency   string
	Status     string
	PayStatus  string
	Metadata   []byte
}

const createOrder = `
INSERT INTO orders (user_id, location_id, subtotal, tax, shipping, total, currency, status, payment_status, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return q.scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.UserID, arg.LocationID, arg.Subtotal, arg.Tax, arg.Shipping, arg.Total,
		arg.Currency, arg.Status, arg.PayStatus, arg.Metadata,
	))
}

type CreateOrderItemParams struct {
	OrderID         pgtype.UUID
	ProductID       pgtype.UUID
	Quantity        int32
	PriceAtPurchase decimal.Decimal
}

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
VALUES ($1, $2, $3, $4)
`

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) error {
	_, err := q.db.Exec(ctx, createOrderItem, arg.OrderID, arg.ProductID, arg.Quantity, arg.PriceAtPurchase)
	return err
}

const getOrderByID = `
SELECT ` + orderColumns + ` FROM orders WHERE id = $1
`

func (q *Queries) GetOrderByID(ctx context.Context, id pgtype.UUID) (Order, error) {
	return q.scanOrder(q.db.QueryRow(ctx, getOrderByID, id))
}

const listOrderItemsByOrder = `
SELECT id, order_id, product_id, quantity, price_at_purchase
FROM order_items WHERE order_id = $1 ORDER BY id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.PriceAtPurchase); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ListOrdersParams filters the order list. Zero values mean "no filter";
// From/To bound placed_at as a half-open [From, To) window.
type ListOrdersParams struct {
	UserID pgtype.UUID
	Status string
	From   pgtype.Timestamptz
	To     pgtype.Timestamptz
	Search string
	Limit  int32
	Offset int32
}

func buildOrderFilter(arg ListOrdersParams) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if arg.UserID.Valid {
		add("o.user_id = $%d", arg.UserID)
	}
	if arg.Status != "" {
		add("o.status = $%d", arg.Status)
	}
	if arg.From.Valid {
		add("o.placed_at >= $%d", arg.From)
	}
	if arg.To.Valid {
		add("o.placed_at < $%d", arg.To)
	}
	if s := strings.TrimSpace(arg.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(o.id::text ILIKE $%d OR u.email ILIKE $%d)", n, n))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	where, args := buildOrderFilter(arg)
	sql := `SELECT o.id, o.user_id, o.location_id, o.subtotal, o.tax, o.shipping, o.total, o.currency,
o.status, o.payment_status, o.metadata, o.placed_at, o.updated_at
FROM orders o LEFT JOIN users u ON u.id = o.user_id` + where +
		fmt.Sprintf(" ORDER BY o.placed_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, arg.Limit, arg.Offset)

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.LocationID, &o.Subtotal, &o.Tax, &o.Shipping, &o.Total,
			&o.Currency, &o.Status, &o.PaymentStatus, &o.Metadata, &o.PlacedAt, &o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (q *Queries) CountOrders(ctx context.Context, arg ListOrdersParams) (int64, error) {
	where, args := buildOrderFilter(arg)
	sql := `SELECT count(*) FROM orders o LEFT JOIN users u ON u.id = o.user_id` + where
	var total int64
	err := q.db.QueryRow(ctx, sql, args...).Scan(&total)
	return total, err
}

// UpdateOrderParams patches an order. Empty strings and nil metadata leave
// the corresponding columns untouched.
type UpdateOrderParams struct {
	ID            pgtype.UUID
	Status        string
	PaymentStatus string
	Metadata      []byte
}

const updateOrder = `
UPDATE orders SET
  status = COALESCE(NULLIF($2, ''), status),
  payment_status = COALESCE(NULLIF($3, ''), payment_status),
  metadata = COALESCE($4, metadata),
  updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) UpdateOrder(ctx context.Context, arg UpdateOrderParams) (Order, error) {
	return q.scanOrder(q.db.QueryRow(ctx, updateOrder, arg.ID, arg.Status, arg.PaymentStatus, arg.Metadata))
}

func (q *Queries) scanOrder(row rowScanner) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.LocationID, &o.Subtotal, &o.Tax, &o.Shipping, &o.Total,
		&o.Currency, &o.Status, &o.PaymentStatus, &o.Metadata, &o.PlacedAt, &o.UpdatedAt,
	)
	return o, err
}
