// Package checkout runs the order creation pipeline: lock the cart, verify
// stock, price everything, persist the order, consume inventory and the
// cart, all inside one transaction.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-souq/internal/cart"
	"github.com/noah-isme/backend-souq/internal/common"
	"github.com/noah-isme/backend-souq/internal/db"
	"github.com/noah-isme/backend-souq/internal/discount"
	"github.com/noah-isme/backend-souq/internal/events"
	"github.com/noah-isme/backend-souq/internal/inventory"
	"github.com/noah-isme/backend-souq/internal/location"
	"github.com/noah-isme/backend-souq/internal/obs"
	"github.com/noah-isme/backend-souq/internal/pricing"
)

// Payment methods accepted at checkout.
const (
	MethodCash = "cash"
	MethodCard = "card"
)

// ErrCartEmpty rejects checkouts of carts with no items.
var ErrCartEmpty = common.Conflict("CART_EMPTY", "Cart is empty", nil)

// Querier is the query surface the pipeline uses inside its transaction.
type Querier interface {
	GetCartForUpdate(ctx context.Context, userID pgtype.UUID) (db.Cart, error)
	GetLocationByID(ctx context.Context, id pgtype.UUID) (db.Location, error)
	ListCartItemDetailsForUpdate(ctx context.Context, cartID pgtype.UUID) ([]db.CartItemDetail, error)
	ListBundleProducts(ctx context.Context, bundleID pgtype.UUID) ([]db.BundleProduct, error)
	GetInventoryForUpdate(ctx context.Context, productID pgtype.UUID) (db.Inventory, error)
	GetProductByID(ctx context.Context, id pgtype.UUID) (db.Product, error)
	GetDiscountByCodeForUpdate(ctx context.Context, code string) (db.DiscountCode, error)
	CreateOrder(ctx context.Context, arg db.CreateOrderParams) (db.Order, error)
	CreateOrderItem(ctx context.Context, arg db.CreateOrderItemParams) error
	DecrementInventory(ctx context.Context, productID pgtype.UUID, qty int32) (int32, error)
	IncrementDiscountUsage(ctx context.Context, id pgtype.UUID) (int32, error)
	DeleteCartItems(ctx context.Context, cartID pgtype.UUID) error
	ListOrderItemsByOrder(ctx context.Context, orderID pgtype.UUID) ([]db.OrderItem, error)
	InsertDomainEvent(ctx context.Context, topic string, aggregateID pgtype.UUID, payload []byte) (db.DomainEvent, error)
}

// Store opens the pipeline's transaction and serves its post-commit reads.
type Store interface {
	WithinTx(ctx context.Context, fn func(Querier) error) error
	GetAddressByID(ctx context.Context, id pgtype.UUID) (db.Address, error)
	UpdateOrder(ctx context.Context, arg db.UpdateOrderParams) (db.Order, error)
}

// PGStore adapts db.Store to the pipeline's Store interface.
type PGStore struct {
	DB *db.Store
}

func (s PGStore) WithinTx(ctx context.Context, fn func(Querier) error) error {
	return s.DB.WithinTx(ctx, func(q *db.Queries) error { return fn(q) })
}

func (s PGStore) GetAddressByID(ctx context.Context, id pgtype.UUID) (db.Address, error) {
	return s.DB.GetAddressByID(ctx, id)
}

func (s PGStore) UpdateOrder(ctx context.Context, arg db.UpdateOrderParams) (db.Order, error) {
	return s.DB.UpdateOrder(ctx, arg)
}

type Service struct {
	Store    Store
	Bus      *events.Bus
	Log      zerolog.Logger
	Currency string
	Now      func() time.Time
}

// Params is everything the pipeline needs to place an order.
type Params struct {
	UserID       pgtype.UUID
	LocationID   pgtype.UUID
	AddressID    string
	DiscountCode string
	Method       string
	// MarkPaid creates the order already paid. Set by the payment webhook
	// after the gateway confirmed the charge.
	MarkPaid bool
}

// Result is the created order plus its expanded items.
type Result struct {
	Order db.Order
	Items []db.OrderItem
}

// orderMetadata is the JSON blob stored on the order row.
type orderMetadata struct {
	PaymentMethod  string          `json:"paymentMethod"`
	AddressID      string          `json:"addressId,omitempty"`
	DiscountCodeID string          `json:"discountCodeId,omitempty"`
	DiscountCode   string          `json:"discountCode,omitempty"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Run executes the checkout pipeline for one user. Every mutation happens
// inside a single transaction; any rejection leaves the cart, inventory and
// discount counters untouched.
func (s *Service) Run(ctx context.Context, p Params) (Result, error) {
	var res Result
	err := s.Store.WithinTx(ctx, func(q Querier) error {
		c, err := q.GetCartForUpdate(ctx, p.UserID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCartEmpty
		}
		if err != nil {
			return err
		}

		loc, err := q.GetLocationByID(ctx, p.LocationID)
		if errors.Is(err, pgx.ErrNoRows) {
			return location.ErrInvalidLocation
		}
		if err != nil {
			return err
		}

		items, err := q.ListCartItemDetailsForUpdate(ctx, c.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrCartEmpty
		}

		constituents, err := loadConstituents(ctx, q, items)
		if err != nil {
			return err
		}
		reqs := inventory.ExpandRequirements(items, constituents)

		short, err := lockAndCheckStock(ctx, q, reqs)
		if err != nil {
			return err
		}
		if len(short) > 0 {
			incStockRejections()
			return inventory.ErrInsufficientStock(short)
		}

		_, subtotal := cart.PriceItems(items)

		meta := orderMetadata{PaymentMethod: p.Method, AddressID: p.AddressID}
		discountAmount := decimal.Zero
		var appliedCode *db.DiscountCode
		if p.DiscountCode != "" {
			code, err := q.GetDiscountByCodeForUpdate(ctx, discount.NormalizeCode(p.DiscountCode))
			if errors.Is(err, pgx.ErrNoRows) {
				incDiscount("invalid")
				return common.Conflict("DISCOUNT_REJECTED", discount.ReasonInvalid, nil)
			}
			if err != nil {
				return err
			}
			if reason := discount.Validate(code, subtotal, s.now()); reason != "" {
				incDiscount("rejected")
				return common.Conflict("DISCOUNT_REJECTED", reason, nil)
			}
			discountAmount = discount.Amount(code, subtotal)
			appliedCode = &code
			meta.DiscountCodeID = db.UUIDString(code.ID)
			meta.DiscountCode = code.Code
		}
		meta.DiscountAmount = discountAmount

		taxRate, shippingRate := location.Rates(loc)
		totals := pricing.Compute(subtotal, discountAmount, taxRate, shippingRate)

		metaRaw, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		payStatus := db.PaymentStatusUnpaid
		if p.MarkPaid {
			payStatus = db.PaymentStatusPaid
		}
		order, err := q.CreateOrder(ctx, db.CreateOrderParams{
			UserID:     p.UserID,
			LocationID: p.LocationID,
			Subtotal:   totals.Subtotal,
			Tax:        totals.Tax,
			Shipping:   totals.Shipping,
			Total:      totals.Total,
			Currency:   s.Currency,
			Status:     db.OrderStatusPending,
			PayStatus:  payStatus,
			Metadata:   metaRaw,
		})
		if err != nil {
			return err
		}

		for _, line := range BuildLines(items, constituents) {
			if err := q.CreateOrderItem(ctx, db.CreateOrderItemParams{
				OrderID:         order.ID,
				ProductID:       line.ProductID,
				Quantity:        line.Quantity,
				PriceAtPurchase: line.Price,
			}); err != nil {
				return err
			}
		}

		for _, req := range reqs {
			remaining, err := q.DecrementInventory(ctx, req.ProductID, req.Quantity)
			if err != nil {
				// the non-negative quantity constraint turns a shortfall
				// into a check violation before the row can go negative
				if isCheckViolation(err) {
					incStockRejections()
					return inventory.ErrInsufficientStock([]inventory.Insufficiency{{
						ProductID: db.UUIDString(req.ProductID),
						Required:  req.Quantity,
					}})
				}
				return err
			}
			if remaining < 0 {
				incStockRejections()
				return inventory.ErrInsufficientStock([]inventory.Insufficiency{{
					ProductID: db.UUIDString(req.ProductID),
					Required:  req.Quantity,
					Available: remaining + req.Quantity,
				}})
			}
		}

		if appliedCode != nil {
			used, err := q.IncrementDiscountUsage(ctx, appliedCode.ID)
			if err != nil {
				return err
			}
			if appliedCode.MaxUses.Valid && used > appliedCode.MaxUses.Int32 {
				incDiscount("rejected")
				return common.Conflict("DISCOUNT_REJECTED", discount.ReasonMaxedOut, nil)
			}
			incDiscount("applied")
		}

		if err := q.DeleteCartItems(ctx, c.ID); err != nil {
			return err
		}

		if err := s.Bus.EmitTx(ctx, q, events.TopicOrderCreated, order.ID, map[string]any{
			"orderId":       db.UUIDString(order.ID),
			"userId":        db.UUIDString(order.UserID),
			"total":         order.Total,
			"currency":      order.Currency,
			"paymentMethod": p.Method,
		}); err != nil {
			return err
		}

		res.Order = order
		res.Items, err = q.ListOrderItemsByOrder(ctx, order.ID)
		return err
	})
	if err != nil {
		incCheckout(p.Method, "rejected")
		return Result{}, err
	}
	incCheckout(p.Method, "created")

	s.snapshotAddress(ctx, &res.Order, p.AddressID)
	return res, nil
}

// snapshotAddress copies the shipping address onto the order metadata after
// commit. The order stands even if the snapshot fails.
func (s *Service) snapshotAddress(ctx context.Context, order *db.Order, addressID string) {
	if addressID == "" {
		return
	}
	addrID, err := db.ToUUID(addressID)
	if err != nil {
		return
	}
	addr, err := s.Store.GetAddressByID(ctx, addrID)
	if err != nil {
		s.Log.Warn().Err(err).Str("order_id", db.UUIDString(order.ID)).Msg("address snapshot skipped")
		return
	}
	var meta map[string]any
	if err := json.Unmarshal(order.Metadata, &meta); err != nil || meta == nil {
		meta = map[string]any{}
	}
	meta["shippingAddress"] = map[string]string{
		"receiverName": addr.ReceiverName,
		"phone":        addr.Phone,
		"street":       addr.Street,
		"city":         addr.City,
		"postalCode":   addr.PostalCode,
		"country":      addr.Country,
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return
	}
	updated, err := s.Store.UpdateOrder(ctx, db.UpdateOrderParams{ID: order.ID, Metadata: raw})
	if err != nil {
		s.Log.Warn().Err(err).Str("order_id", db.UUIDString(order.ID)).Msg("address snapshot failed")
		return
	}
	*order = updated
}

func isCheckViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	return errors.As(err, &pgErr) && pgErr.SQLState() == "23514"
}

func loadConstituents(ctx context.Context, q Querier, items []db.CartItemDetail) (map[string][]db.BundleProduct, error) {
	out := make(map[string][]db.BundleProduct)
	for _, item := range items {
		if item.ItemType != db.ItemTypeBundle {
			continue
		}
		key := db.UUIDString(item.BundleID)
		if _, ok := out[key]; ok {
			continue
		}
		bps, err := q.ListBundleProducts(ctx, item.BundleID)
		if err != nil {
			return nil, err
		}
		out[key] = bps
	}
	return out, nil
}

// lockAndCheckStock locks every inventory row the order touches and returns
// all shortfalls at once.
func lockAndCheckStock(ctx context.Context, q Querier, reqs []inventory.Requirement) ([]inventory.Insufficiency, error) {
	var short []inventory.Insufficiency
	for _, req := range reqs {
		inv, err := q.GetInventoryForUpdate(ctx, req.ProductID)
		available := inv.Quantity
		if errors.Is(err, pgx.ErrNoRows) {
			available = 0
		} else if err != nil {
			return nil, err
		}
		if available < req.Quantity {
			name := ""
			if p, perr := q.GetProductByID(ctx, req.ProductID); perr == nil {
				name = p.Name
			}
			short = append(short, inventory.Insufficiency{
				ProductID: db.UUIDString(req.ProductID),
				Name:      name,
				Required:  req.Quantity,
				Available: available,
			})
		}
	}
	return short, nil
}

func incCheckout(method, result string) {
	if obs.CheckoutTotal != nil {
		obs.CheckoutTotal.WithLabelValues(method, result).Inc()
	}
}

func incStockRejections() {
	if obs.StockRejectionsTotal != nil {
		obs.StockRejectionsTotal.Inc()
	}
}

func incDiscount(result string) {
	if obs.DiscountApplicationsTotal != nil {
		obs.DiscountApplicationsTotal.WithLabelValues(result).Inc()
	}
}
