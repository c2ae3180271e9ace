// Package payment integrates with the Paymob gateway: hosted checkout
// sessions, webhook signature verification and post-payment order creation.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-souq/internal/checkout"
	"github.com/noah-isme/backend-souq/internal/common"
)

// Client talks to the Paymob intention API.
type Client struct {
	HTTP            *http.Client
	BaseURL         string
	CheckoutBaseURL string
	SecretKey       string
	PublicKey       string
	HMACSecret      string
	NotificationURL string
	RedirectionURL  string
}

type intentionRequest struct {
	Amount           int64    `json:"amount"`
	Currency         string   `json:"currency"`
	PaymentMethods   []string `json:"payment_methods,omitempty"`
	SpecialReference string   `json:"special_reference"`
	NotificationURL  string   `json:"notification_url,omitempty"`
	RedirectionURL   string   `json:"redirection_url,omitempty"`
}

type intentionResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// StartCardCheckout opens a hosted payment session for the priced cart. The
// checkout context is encoded into the special reference so the webhook can
// rebuild it.
func (c *Client) StartCardCheckout(ctx context.Context, p checkout.CardParams) (checkout.CardSession, error) {
	ref, err := EncodeReference(Reference{
		UserID:       p.UserID,
		LocationID:   p.LocationID,
		AddressID:    p.AddressID,
		DiscountCode: p.DiscountCode,
		Timestamp:    time.Now().UnixMilli(),
	})
	if err != nil {
		return checkout.CardSession{}, err
	}

	body, err := json.Marshal(intentionRequest{
		Amount:           toCents(p.Amount),
		Currency:         p.Currency,
		SpecialReference: ref,
		NotificationURL:  c.NotificationURL,
		RedirectionURL:   c.RedirectionURL,
	})
	if err != nil {
		return checkout.CardSession{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/intention/", bytes.NewReader(body))
	if err != nil {
		return checkout.CardSession{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.SecretKey)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return checkout.CardSession{}, common.Gateway("payment gateway unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return checkout.CardSession{}, common.Gateway(
			fmt.Sprintf("payment gateway rejected intention (status %d)", resp.StatusCode), nil)
	}

	var out intentionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return checkout.CardSession{}, common.Gateway("malformed gateway response", err)
	}
	if out.ClientSecret == "" {
		return checkout.CardSession{}, common.Gateway("gateway response missing client secret", nil)
	}

	return checkout.CardSession{
		IntentionID: out.ID,
		CheckoutURL: c.checkoutURL(out.ClientSecret),
	}, nil
}

func (c *Client) checkoutURL(clientSecret string) string {
	q := url.Values{}
	q.Set("publicKey", c.PublicKey)
	q.Set("clientSecret", clientSecret)
	return c.CheckoutBaseURL + "/unifiedcheckout/?" + q.Encode()
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// toCents converts a decimal amount to gateway minor units.
func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Transaction is the gateway's transaction object as delivered on webhooks
// and redirect callbacks. Only the signed fields plus the merchant reference
// are modelled.
type Transaction struct {
	ID                   int64  `json:"id"`
	AmountCents          int64  `json:"amount_cents"`
	CreatedAt            string `json:"created_at"`
	Currency             string `json:"currency"`
	ErrorOccured         bool   `json:"error_occured"`
	HasParentTransaction bool   `json:"has_parent_transaction"`
	IntegrationID        int64  `json:"integration_id"`
	Is3DSecure           bool   `json:"is_3d_secure"`
	IsAuth               bool   `json:"is_auth"`
	IsCapture            bool   `json:"is_capture"`
	IsRefunded           bool   `json:"is_refunded"`
	IsStandalonePayment  bool   `json:"is_standalone_payment"`
	IsVoided             bool   `json:"is_voided"`
	Owner                int64  `json:"owner"`
	Pending              bool   `json:"pending"`
	Success              bool   `json:"success"`
	Order                struct {
		ID              int64  `json:"id"`
		MerchantOrderID string `json:"merchant_order_id"`
	} `json:"order"`
	SourceData struct {
		Pan     string `json:"pan"`
		SubType string `json:"sub_type"`
		Type    string `json:"type"`
	} `json:"source_data"`
}

// SignaturePayload concatenates the signed transaction fields in the fixed
// alphabetical order the gateway documents. Changing the order or the
// boolean formatting breaks verification.
func SignaturePayload(t Transaction) string {
	fields := []string{
		strconv.FormatInt(t.AmountCents, 10),
		t.CreatedAt,
		t.Currency,
		strconv.FormatBool(t.ErrorOccured),
		strconv.FormatBool(t.HasParentTransaction),
		strconv.FormatInt(t.ID, 10),
		strconv.FormatInt(t.IntegrationID, 10),
		strconv.FormatBool(t.Is3DSecure),
		strconv.FormatBool(t.IsAuth),
		strconv.FormatBool(t.IsCapture),
		strconv.FormatBool(t.IsRefunded),
		strconv.FormatBool(t.IsStandalonePayment),
		strconv.FormatBool(t.IsVoided),
		strconv.FormatInt(t.Order.ID, 10),
		strconv.FormatInt(t.Owner, 10),
		strconv.FormatBool(t.Pending),
		t.SourceData.Pan,
		t.SourceData.SubType,
		t.SourceData.Type,
		strconv.FormatBool(t.Success),
	}
	return strings.Join(fields, "")
}

// Sign computes the hex HMAC-SHA512 signature of a transaction.
func Sign(secret string, t Transaction) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(SignaturePayload(t)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a provided signature in constant time.
func VerifySignature(secret string, t Transaction, provided string) bool {
	if provided == "" {
		return false
	}
	expected := Sign(secret, t)
	return hmac.Equal([]byte(expected), []byte(provided))
}
