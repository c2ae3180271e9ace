package order

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-souq/internal/common"
	"github.com/noah-isme/backend-souq/internal/db"
)

type Handler struct {
	Svc *Service
}

// List handles GET /orders, scoped to the authenticated user.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := authUser(r)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	h.serveList(w, r, userID)
}

// AdminList handles GET /admin/orders across all users.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, pgtype.UUID{})
}

func (h *Handler) serveList(w http.ResponseWriter, r *http.Request, userID pgtype.UUID) {
	q := r.URL.Query()
	rng, err := BuildDateRange(q.Get("period"), q.Get("date"), q.Get("startDate"), q.Get("endDate"), time.Local)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	page, perPage := common.ParsePagination(r, 20)

	res, err := h.Svc.List(r.Context(), ListFilter{
		UserID: userID,
		Status: q.Get("status"),
		Range:  rng,
		Search: q.Get("search"),
		Page:   common.Pagination{Page: page, PerPage: perPage},
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}

	orders := make([]map[string]any, 0, len(res.Orders))
	for _, o := range res.Orders {
		orders = append(orders, orderSummary(o))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"orders": orders,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(res.Total),
		},
	})
}

// Get handles GET /orders/{orderID}. Users can only read their own orders.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := authUser(r)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	orderID, err := db.ToUUID(chi.URLParam(r, "orderID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid order id", nil)
		return
	}
	detail, err := h.Svc.Get(r.Context(), orderID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if !db.UUIDEqual(detail.Order.UserID, userID) {
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "not your order", nil)
		return
	}
	common.JSON(w, http.StatusOK, detailResponse(detail))
}

// PatchStatus handles PATCH /admin/orders/{orderID}.
func (h *Handler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := db.ToUUID(chi.URLParam(r, "orderID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid order id", nil)
		return
	}
	var body struct {
		Status        string `json:"status"`
		PaymentStatus string `json:"paymentStatus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	if body.Status == "" && body.PaymentStatus == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "nothing to update", nil)
		return
	}
	updated, err := h.Svc.UpdateStatus(r.Context(), orderID, body.Status, body.PaymentStatus)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, orderSummary(updated))
}

func authUser(r *http.Request) (pgtype.UUID, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok {
		return pgtype.UUID{}, false
	}
	id, err := db.ToUUID(raw)
	if err != nil {
		return pgtype.UUID{}, false
	}
	return id, true
}

func orderSummary(o db.Order) map[string]any {
	return map[string]any{
		"id":            db.UUIDString(o.ID),
		"status":        o.Status,
		"paymentStatus": o.PaymentStatus,
		"subtotal":      o.Subtotal,
		"tax":           o.Tax,
		"shipping":      o.Shipping,
		"total":         o.Total,
		"currency":      o.Currency,
		"placedAt":      o.PlacedAt.Time,
	}
}

func detailResponse(d Detail) map[string]any {
	items := make([]map[string]any, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, map[string]any{
			"id":              db.UUIDString(it.ID),
			"productId":       db.UUIDString(it.ProductID),
			"quantity":        it.Quantity,
			"priceAtPurchase": it.PriceAtPurchase,
		})
	}
	resp := orderSummary(d.Order)
	resp["items"] = items
	if len(d.Order.Metadata) > 0 {
		var meta map[string]any
		if err := json.Unmarshal(d.Order.Metadata, &meta); err == nil {
			resp["metadata"] = meta
		}
	}
	return resp
}
