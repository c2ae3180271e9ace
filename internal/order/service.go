// Package order is the read and admin side of placed orders.
package order

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-souq/internal/common"
	"github.com/noah-isme/backend-souq/internal/db"
	"github.com/noah-isme/backend-souq/internal/events"
)

// ErrOrderNotFound is returned for lookups of orders that do not exist.
var ErrOrderNotFound = common.NotFound("Order not found")

// Querier is the subset of db queries the order service needs.
type Querier interface {
	GetOrderByID(ctx context.Context, id pgtype.UUID) (db.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID pgtype.UUID) ([]db.OrderItem, error)
	ListOrders(ctx context.Context, arg db.ListOrdersParams) ([]db.Order, error)
	CountOrders(ctx context.Context, arg db.ListOrdersParams) (int64, error)
	UpdateOrder(ctx context.Context, arg db.UpdateOrderParams) (db.Order, error)
}

type Service struct {
	Q   Querier
	Bus *events.Bus
}

// Detail is an order plus its expanded items.
type Detail struct {
	Order db.Order
	Items []db.OrderItem
}

// Get loads one order with its items.
func (s *Service) Get(ctx context.Context, id pgtype.UUID) (Detail, error) {
	o, err := s.Q.GetOrderByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Detail{}, ErrOrderNotFound
	}
	if err != nil {
		return Detail{}, err
	}
	items, err := s.Q.ListOrderItemsByOrder(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Order: o, Items: items}, nil
}

// ListFilter is the caller-facing order list filter.
type ListFilter struct {
	UserID pgtype.UUID
	Status string
	Range  DateRange
	Search string
	Page   common.Pagination
}

// Page is one page of orders with the unfiltered match count.
type Page struct {
	Orders []db.Order
	Total  int64
}

// List returns a filtered, paginated page of orders, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) (Page, error) {
	from, to := f.Range.Bounds()
	arg := db.ListOrdersParams{
		UserID: f.UserID,
		Status: f.Status,
		From:   from,
		To:     to,
		Search: f.Search,
		Limit:  f.Page.Limit(),
		Offset: f.Page.Offset(),
	}
	orders, err := s.Q.ListOrders(ctx, arg)
	if err != nil {
		return Page{}, err
	}
	total, err := s.Q.CountOrders(ctx, arg)
	if err != nil {
		return Page{}, err
	}
	return Page{Orders: orders, Total: total}, nil
}

// UpdateStatus transitions an order's fulfilment or payment status. A paid
// transition emits order.paid.
func (s *Service) UpdateStatus(ctx context.Context, id pgtype.UUID, status, paymentStatus string) (db.Order, error) {
	current, err := s.Q.GetOrderByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return db.Order{}, err
	}
	if status != "" && !validStatus(status) {
		return db.Order{}, common.Validation("Unknown order status")
	}
	if paymentStatus != "" && !validPaymentStatus(paymentStatus) {
		return db.Order{}, common.Validation("Unknown payment status")
	}
	updated, err := s.Q.UpdateOrder(ctx, db.UpdateOrderParams{ID: id, Status: status, PaymentStatus: paymentStatus})
	if err != nil {
		return db.Order{}, err
	}
	if s.Bus != nil && paymentStatus == db.PaymentStatusPaid && current.PaymentStatus != db.PaymentStatusPaid {
		s.Bus.Emit(ctx, events.TopicOrderPaid, id, map[string]any{
			"orderId": db.UUIDString(id),
			"total":   updated.Total,
		})
	}
	return updated, nil
}

// MergeMetadata deep-merges a patch into the order's metadata blob,
// preserving keys the patch does not touch.
func (s *Service) MergeMetadata(ctx context.Context, id pgtype.UUID, patch map[string]any) (db.Order, error) {
	current, err := s.Q.GetOrderByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return db.Order{}, err
	}
	meta := map[string]any{}
	if len(current.Metadata) > 0 {
		if err := json.Unmarshal(current.Metadata, &meta); err != nil {
			meta = map[string]any{}
		}
	}
	for k, v := range patch {
		meta[k] = v
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return db.Order{}, err
	}
	return s.Q.UpdateOrder(ctx, db.UpdateOrderParams{ID: id, Metadata: raw})
}

func validStatus(s string) bool {
	switch s {
	case db.OrderStatusPending, db.OrderStatusProcessing, db.OrderStatusCompleted, db.OrderStatusCanceled:
		return true
	}
	return false
}

func validPaymentStatus(s string) bool {
	switch s {
	case db.PaymentStatusUnpaid, db.PaymentStatusPaid, db.PaymentStatusRefunded:
		return true
	}
	return false
}
