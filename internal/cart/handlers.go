package cart

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-souq/internal/common"
	"github.com/noah-isme/backend-souq/internal/db"
)

type Handler struct {
	Svc *Service
}

// Get handles GET /cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := authUser(r)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	view, err := h.Svc.Get(r.Context(), userID, r.URL.Query().Get("locationId"), r.URL.Query().Get("discountCode"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, view)
}

// AddItem handles POST /cart/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := authUser(r)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var p AddItemParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	item, err := h.Svc.AddItem(r.Context(), userID, p)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, itemResponse(item))
}

// UpdateItem handles PUT /cart/items/{itemID}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := authUser(r)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	itemID, err := db.ToUUID(chi.URLParam(r, "itemID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid item id", nil)
		return
	}
	var body struct {
		Quantity *int32 `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Quantity == nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "quantity is required", nil)
		return
	}
	updated, err := h.Svc.UpdateItemQuantity(r.Context(), userID, itemID, *body.Quantity)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if updated == nil {
		common.JSON(w, http.StatusOK, map[string]any{"removed": true})
		return
	}
	common.JSON(w, http.StatusOK, itemResponse(*updated))
}

// RemoveItem handles DELETE /cart/items/{itemID}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := authUser(r)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	itemID, err := db.ToUUID(chi.URLParam(r, "itemID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid item id", nil)
		return
	}
	if err := h.Svc.RemoveItem(r.Context(), userID, itemID); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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

func itemResponse(it db.CartItem) map[string]any {
	resp := map[string]any{
		"id":       db.UUIDString(it.ID),
		"cartId":   db.UUIDString(it.CartID),
		"type":     it.ItemType,
		"quantity": it.Quantity,
	}
	if it.ProductID.Valid {
		resp["productId"] = db.UUIDString(it.ProductID)
	}
	if it.BundleID.Valid {
		resp["bundleId"] = db.UUIDString(it.BundleID)
	}
	return resp
}
