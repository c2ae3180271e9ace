package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-souq/internal/common"
	"github.com/noah-isme/backend-souq/internal/db"
	"github.com/noah-isme/backend-souq/internal/discount"
	"github.com/noah-isme/backend-souq/internal/inventory"
)

type Handler struct {
	Svc *Service
}

// Products handles GET /products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	products, err := h.Svc.ListProducts(r.Context(), common.Pagination{Page: page, PerPage: perPage})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"products": products})
}

// ProductDetail handles GET /products/{productID}. A path segment that is
// not a UUID is treated as a SKU.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	param := chi.URLParam(r, "productID")
	id, err := db.ToUUID(param)
	if err != nil {
		view, err := h.Svc.GetProductBySKU(r.Context(), param)
		if err != nil {
			common.WriteError(w, err)
			return
		}
		common.JSON(w, http.StatusOK, view)
		return
	}
	view, err := h.Svc.GetProduct(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, view)
}

// BundleDetail handles GET /bundles/{bundleID}.
func (h *Handler) BundleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := db.ToUUID(chi.URLParam(r, "bundleID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid bundle id", nil)
		return
	}
	view, err := h.Svc.GetBundle(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, view)
}

// CategoryTree handles GET /categories/tree.
func (h *Handler) CategoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.Svc.CategoryTree(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"categories": tree})
}

// AdminHandler exposes back-office mutations on catalog data.
type AdminHandler struct {
	Inventory *inventory.Service
	Discounts *discount.Service
}

// Restock handles POST /admin/inventory/{productID}/restock.
func (h *AdminHandler) Restock(w http.ResponseWriter, r *http.Request) {
	productID, err := db.ToUUID(chi.URLParam(r, "productID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid product id", nil)
		return
	}
	var body struct {
		Quantity int32 `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	quantity, err := h.Inventory.AddStock(r.Context(), productID, body.Quantity)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"productId": db.UUIDString(productID),
		"quantity":  quantity,
	})
}

// CreateDiscount handles POST /admin/discounts.
func (h *AdminHandler) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	var p discount.CreateParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	created, err := h.Discounts.Create(r.Context(), p)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{
		"id":    db.UUIDString(created.ID),
		"code":  created.Code,
		"kind":  created.Kind,
		"value": created.Value,
	})
}
