package checkout

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-souq/internal/cart"
	"github.com/noah-isme/backend-souq/internal/common"
	"github.com/noah-isme/backend-souq/internal/db"
	"github.com/noah-isme/backend-souq/internal/inventory"
)

// CardSession is the hosted payment session handed back for card checkouts.
type CardSession struct {
	IntentionID string `json:"intentionId"`
	CheckoutURL string `json:"checkoutUrl"`
}

// CardParams carries everything the gateway needs to start a card payment
// that can later be replayed into the order pipeline.
type CardParams struct {
	UserID       string
	LocationID   string
	AddressID    string
	DiscountCode string
	Amount       decimal.Decimal
	Currency     string
}

// CardStarter opens a hosted payment session with the gateway.
type CardStarter interface {
	StartCardCheckout(ctx context.Context, p CardParams) (CardSession, error)
}

type Handler struct {
	Svc      *Service
	Carts    *cart.Service
	Stock    *inventory.Service
	Cards    CardStarter
	Validate *validator.Validate
}

type checkoutRequest struct {
	LocationID    string `json:"locationId" validate:"required,uuid"`
	AddressID     string `json:"addressId" validate:"omitempty,uuid"`
	DiscountCode  string `json:"discountCode"`
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=cash card"`
}

// Checkout handles POST /cart/checkout. Cash orders are placed synchronously
// and return 201. Card orders return a hosted payment session; the order
// itself is created when the gateway webhook confirms the charge.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	rawUser, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	userID, err := db.ToUUID(rawUser)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	switch req.PaymentMethod {
	case MethodCash:
		h.cashCheckout(w, r, userID, req)
	case MethodCard:
		h.cardCheckout(w, r, rawUser, userID, req)
	}
}

func (h *Handler) cashCheckout(w http.ResponseWriter, r *http.Request, userID pgtype.UUID, req checkoutRequest) {
	locationID, err := db.ToUUID(req.LocationID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid location id", nil)
		return
	}
	res, err := h.Svc.Run(r.Context(), Params{
		UserID:       userID,
		LocationID:   locationID,
		AddressID:    req.AddressID,
		DiscountCode: req.DiscountCode,
		Method:       MethodCash,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, orderResponse(res))
}

// cardCheckout prices the cart up front so the gateway charges the exact
// amount the pipeline will later recompute at webhook time.
func (h *Handler) cardCheckout(w http.ResponseWriter, r *http.Request, rawUser string, userID pgtype.UUID, req checkoutRequest) {
	view, err := h.Carts.Get(r.Context(), userID, req.LocationID, req.DiscountCode)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if len(view.Items) == 0 {
		common.WriteError(w, ErrCartEmpty)
		return
	}
	if view.Discount != nil && !view.Discount.Applied {
		common.WriteError(w, common.Conflict("DISCOUNT_REJECTED", view.Discount.Reason, nil))
		return
	}

	// Read-only stock check before sending the customer to the gateway. The
	// pipeline re-checks under locks at webhook time; this just avoids
	// charging for a cart that cannot be fulfilled.
	if h.Stock != nil {
		details, err := h.Carts.Items(r.Context(), userID)
		if err != nil {
			common.WriteError(w, err)
			return
		}
		short, err := h.Stock.CheckItems(r.Context(), details)
		if err != nil {
			common.WriteError(w, err)
			return
		}
		if len(short) > 0 {
			common.WriteError(w, inventory.ErrInsufficientStock(short))
			return
		}
	}

	session, err := h.Cards.StartCardCheckout(r.Context(), CardParams{
		UserID:       rawUser,
		LocationID:   req.LocationID,
		AddressID:    req.AddressID,
		DiscountCode: req.DiscountCode,
		Amount:       view.Total,
		Currency:     h.Svc.Currency,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, session)
}

func orderResponse(res Result) map[string]any {
	items := make([]map[string]any, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, map[string]any{
			"id":              db.UUIDString(it.ID),
			"productId":       db.UUIDString(it.ProductID),
			"quantity":        it.Quantity,
			"priceAtPurchase": it.PriceAtPurchase,
		})
	}
	o := res.Order
	return map[string]any{
		"id":            db.UUIDString(o.ID),
		"status":        o.Status,
		"paymentStatus": o.PaymentStatus,
		"subtotal":      o.Subtotal,
		"tax":           o.Tax,
		"shipping":      o.Shipping,
		"total":         o.Total,
		"currency":      o.Currency,
		"items":         items,
	}
}
