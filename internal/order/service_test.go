package order

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-souq/internal/common"
	"github.com/noah-isme/backend-souq/internal/db"
)

func uid(t *testing.T) pgtype.UUID {
	t.Helper()
	id, err := db.ToUUID(uuid.NewString())
	require.NoError(t, err)
	return id
}

type stubQuerier struct {
	order      db.Order
	orderErr   error
	items      []db.OrderItem
	listArg    db.ListOrdersParams
	listOut    []db.Order
	count      int64
	updateArg  db.UpdateOrderParams
	updatedOut db.Order
}

func (s *stubQuerier) GetOrderByID(context.Context, pgtype.UUID) (db.Order, error) {
	return s.order, s.orderErr
}

func (s *stubQuerier) ListOrderItemsByOrder(context.Context, pgtype.UUID) ([]db.OrderItem, error) {
	return s.items, nil
}

func (s *stubQuerier) ListOrders(_ context.Context, arg db.ListOrdersParams) ([]db.Order, error) {
	s.listArg = arg
	return s.listOut, nil
}

func (s *stubQuerier) CountOrders(context.Context, db.ListOrdersParams) (int64, error) {
	return s.count, nil
}

func (s *stubQuerier) UpdateOrder(_ context.Context, arg db.UpdateOrderParams) (db.Order, error) {
	s.updateArg = arg
	if s.updatedOut.ID.Valid {
		return s.updatedOut, nil
	}
	out := s.order
	if arg.Status != "" {
		out.Status = arg.Status
	}
	if arg.PaymentStatus != "" {
		out.PaymentStatus = arg.PaymentStatus
	}
	if arg.Metadata != nil {
		out.Metadata = arg.Metadata
	}
	return out, nil
}

func TestGet(t *testing.T) {
	t.Run("missing order", func(t *testing.T) {
		svc := &Service{Q: &stubQuerier{orderErr: pgx.ErrNoRows}}
		_, err := svc.Get(context.Background(), uid(t))
		require.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("order with items", func(t *testing.T) {
		orderID := uid(t)
		stub := &stubQuerier{
			order: db.Order{ID: orderID, Status: db.OrderStatusPending},
			items: []db.OrderItem{{OrderID: orderID, Quantity: 2}},
		}
		svc := &Service{Q: stub}
		detail, err := svc.Get(context.Background(), orderID)
		require.NoError(t, err)
		assert.Len(t, detail.Items, 1)
	})
}

func TestListPassesFilter(t *testing.T) {
	userID := uid(t)
	stub := &stubQuerier{count: 42}
	svc := &Service{Q: stub}

	rng, err := BuildDateRange("day", "2026-03-15", "", "", cairo)
	require.NoError(t, err)

	page, err := svc.List(context.Background(), ListFilter{
		UserID: userID,
		Status: db.OrderStatusCompleted,
		Range:  rng,
		Search: "ali",
		Page:   commonPage(2, 10),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), page.Total)

	assert.True(t, db.UUIDEqual(userID, stub.listArg.UserID))
	assert.Equal(t, db.OrderStatusCompleted, stub.listArg.Status)
	assert.True(t, stub.listArg.From.Valid)
	assert.True(t, stub.listArg.To.Valid)
	assert.Equal(t, "ali", stub.listArg.Search)
	assert.Equal(t, int32(10), stub.listArg.Limit)
	assert.Equal(t, int32(10), stub.listArg.Offset)
}

func TestUpdateStatus(t *testing.T) {
	orderID := uid(t)

	t.Run("valid transition", func(t *testing.T) {
		stub := &stubQuerier{order: db.Order{ID: orderID, Status: db.OrderStatusPending, PaymentStatus: db.PaymentStatusUnpaid}}
		svc := &Service{Q: stub}
		updated, err := svc.UpdateStatus(context.Background(), orderID, db.OrderStatusProcessing, "")
		require.NoError(t, err)
		assert.Equal(t, db.OrderStatusProcessing, updated.Status)
		assert.Equal(t, "", stub.updateArg.PaymentStatus, "payment status untouched")
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		stub := &stubQuerier{order: db.Order{ID: orderID}}
		svc := &Service{Q: stub}
		_, err := svc.UpdateStatus(context.Background(), orderID, "shipped", "")
		require.Error(t, err)
	})

	t.Run("missing order", func(t *testing.T) {
		svc := &Service{Q: &stubQuerier{orderErr: pgx.ErrNoRows}}
		_, err := svc.UpdateStatus(context.Background(), orderID, db.OrderStatusCompleted, "")
		require.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestMergeMetadataPreservesKeys(t *testing.T) {
	orderID := uid(t)
	existing, err := json.Marshal(map[string]any{
		"paymentMethod": "card",
		"addressId":     "addr-1",
	})
	require.NoError(t, err)

	stub := &stubQuerier{order: db.Order{ID: orderID, Metadata: existing}}
	svc := &Service{Q: stub}

	updated, err := svc.MergeMetadata(context.Background(), orderID, map[string]any{
		"paymob": map[string]any{"transactionId": 42},
	})
	require.NoError(t, err)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(updated.Metadata, &meta))
	assert.Equal(t, "card", meta["paymentMethod"])
	assert.Equal(t, "addr-1", meta["addressId"])
	require.Contains(t, meta, "paymob")
}

func commonPage(page, perPage int) common.Pagination {
	return common.Pagination{Page: page, PerPage: perPage}
}
