package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-souq/internal/common"
	"github.com/noah-isme/backend-souq/internal/db"
)

// OrderGetter is the read access the verify endpoint needs.
type OrderGetter interface {
	GetOrderByID(ctx context.Context, id pgtype.UUID) (db.Order, error)
}

type Handler struct {
	Webhook         *Webhook
	Orders          OrderGetter
	FrontendBaseURL string
}

// HandleWebhook receives the gateway's server-to-server transaction
// callback. A bad signature gets 401; once verified the response is always
// 200 regardless of processing outcome.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var env webhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid webhook body", nil)
		return
	}
	var txn Transaction
	if err := json.Unmarshal(env.Obj, &txn); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid transaction object", nil)
		return
	}

	sig := r.URL.Query().Get("hmac")
	if sig == "" {
		sig = r.Header.Get("x-hmac")
	}
	if !VerifySignature(h.Webhook.HMACSecret, txn, sig) {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "signature mismatch", nil)
		return
	}

	outcome, _ := h.Webhook.Process(r.Context(), txn)
	common.JSON(w, http.StatusOK, map[string]string{"status": outcome})
}

// HandleRedirect receives the customer's browser after the hosted checkout.
// It verifies the signed query parameters and bounces to the storefront
// result page.
func (h *Handler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	txn := transactionFromQuery(q)

	verified := VerifySignature(h.Webhook.HMACSecret, txn, q.Get("hmac"))
	success := verified && txn.Success && !txn.Pending

	target := h.FrontendBaseURL + "/checkout/result?" + url.Values{
		"success":     {strconv.FormatBool(success)},
		"transaction": {strconv.FormatInt(txn.ID, 10)},
	}.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}

// HandleVerify reports an order's payment state. The storefront polls it
// after the redirect instead of trusting the redirect query alone.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	orderID, err := db.ToUUID(chi.URLParam(r, "orderID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid order id", nil)
		return
	}
	o, err := h.Orders.GetOrderByID(r.Context(), orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		common.WriteError(w, common.NotFound("Order not found"))
		return
	}
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"orderId":       db.UUIDString(o.ID),
		"status":        o.Status,
		"paymentStatus": o.PaymentStatus,
		"paid":          o.PaymentStatus == "paid",
	})
}

// transactionFromQuery rebuilds the signed transaction fields from the
// redirect callback's flat query parameters.
func transactionFromQuery(q url.Values) Transaction {
	var t Transaction
	t.ID = parseInt(q.Get("id"))
	t.AmountCents = parseInt(q.Get("amount_cents"))
	t.CreatedAt = q.Get("created_at")
	t.Currency = q.Get("currency")
	t.ErrorOccured = parseBool(q.Get("error_occured"))
	t.HasParentTransaction = parseBool(q.Get("has_parent_transaction"))
	t.IntegrationID = parseInt(q.Get("integration_id"))
	t.Is3DSecure = parseBool(q.Get("is_3d_secure"))
	t.IsAuth = parseBool(q.Get("is_auth"))
	t.IsCapture = parseBool(q.Get("is_capture"))
	t.IsRefunded = parseBool(q.Get("is_refunded"))
	t.IsStandalonePayment = parseBool(q.Get("is_standalone_payment"))
	t.IsVoided = parseBool(q.Get("is_voided"))
	t.Order.ID = parseInt(q.Get("order"))
	t.Owner = parseInt(q.Get("owner"))
	t.Pending = parseBool(q.Get("pending"))
	t.Success = parseBool(q.Get("success"))
	t.SourceData.Pan = q.Get("source_data.pan")
	t.SourceData.SubType = q.Get("source_data.sub_type")
	t.SourceData.Type = q.Get("source_data.type")
	return t
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func parseBool(s string) bool {
	v, _ := strconv.ParseBool(s)
	return v
}
