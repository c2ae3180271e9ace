package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-souq/internal/checkout"
	"github.com/noah-isme/backend-souq/internal/db"
	"github.com/noah-isme/backend-souq/internal/obs"
)

// CheckoutRunner replays the order pipeline for a confirmed payment.
type CheckoutRunner interface {
	Run(ctx context.Context, p checkout.Params) (checkout.Result, error)
}

// MetadataMerger patches gateway details onto the created order.
type MetadataMerger interface {
	MergeMetadata(ctx context.Context, orderID pgtype.UUID, patch map[string]any) (db.Order, error)
}

// Webhook processes gateway transaction callbacks. Verification failures are
// the only rejections; everything after the signature check acknowledges
// with 200 so the gateway does not retry forever.
type Webhook struct {
	HMACSecret string
	Redis      *redis.Client
	ReplayTTL  time.Duration
	Checkout   CheckoutRunner
	Orders     MetadataMerger
	Log        zerolog.Logger
	Now        func() time.Time
}

// Outcome labels for logs and metrics.
const (
	outcomeOrderCreated = "order_created"
	outcomeDuplicate    = "duplicate"
	outcomeIgnored      = "ignored"
	outcomeFailed       = "failed"
)

func (wh *Webhook) now() time.Time {
	if wh.Now != nil {
		return wh.Now()
	}
	return time.Now()
}

// Process handles one verified transaction callback. The caller has already
// checked the signature.
func (wh *Webhook) Process(ctx context.Context, t Transaction) (string, error) {
	log := wh.Log.With().
		Int64("transaction_id", t.ID).
		Int64("gateway_order_id", t.Order.ID).
		Logger()

	fresh, err := wh.claimTransaction(ctx, t.ID)
	if err != nil {
		log.Error().Err(err).Msg("webhook dedupe check failed")
		return outcomeFailed, err
	}
	if !fresh {
		log.Info().Msg("webhook replay ignored")
		incWebhook(outcomeDuplicate)
		return outcomeDuplicate, nil
	}

	if !t.Success || t.Pending {
		log.Info().Bool("success", t.Success).Bool("pending", t.Pending).Msg("non-final transaction ignored")
		incWebhook(outcomeIgnored)
		return outcomeIgnored, nil
	}

	ref, err := DecodeReference(t.Order.MerchantOrderID)
	if err != nil {
		log.Error().Err(err).Str("reference", t.Order.MerchantOrderID).Msg("webhook reference unusable")
		wh.releaseTransaction(ctx, t.ID)
		incWebhook(outcomeFailed)
		return outcomeFailed, err
	}

	params, err := referenceToParams(ref)
	if err != nil {
		log.Error().Err(err).Msg("webhook reference invalid")
		incWebhook(outcomeFailed)
		return outcomeFailed, err
	}

	res, err := wh.Checkout.Run(ctx, params)
	if err != nil {
		log.Error().Err(err).Str("user_id", ref.UserID).Msg("post-payment order creation failed")
		wh.releaseTransaction(ctx, t.ID)
		incWebhook(outcomeFailed)
		return outcomeFailed, err
	}

	patch := map[string]any{
		"paymob": map[string]any{
			"transactionId": t.ID,
			"paymobOrderId": t.Order.ID,
			"amountCents":   t.AmountCents,
			"currency":      t.Currency,
			"sourceType":    t.SourceData.Type,
			"processedAt":   wh.now().UTC().Format(time.RFC3339),
		},
	}
	if _, err := wh.Orders.MergeMetadata(ctx, res.Order.ID, patch); err != nil {
		log.Warn().Err(err).Str("order_id", db.UUIDString(res.Order.ID)).Msg("gateway metadata merge failed")
	}

	log.Info().Str("order_id", db.UUIDString(res.Order.ID)).Msg("order created from payment webhook")
	incWebhook(outcomeOrderCreated)
	return outcomeOrderCreated, nil
}

// claimTransaction marks a gateway transaction as seen. Returns false when
// another delivery already claimed it.
func (wh *Webhook) claimTransaction(ctx context.Context, txnID int64) (bool, error) {
	key := fmt.Sprintf("paymob:txn:%d", txnID)
	return wh.Redis.SetNX(ctx, key, wh.now().Unix(), wh.ReplayTTL).Result()
}

// releaseTransaction frees the claim so the gateway's retry can succeed
// after a transient failure.
func (wh *Webhook) releaseTransaction(ctx context.Context, txnID int64) {
	key := fmt.Sprintf("paymob:txn:%d", txnID)
	if err := wh.Redis.Del(ctx, key).Err(); err != nil {
		wh.Log.Warn().Err(err).Int64("transaction_id", txnID).Msg("release webhook claim failed")
	}
}

func referenceToParams(ref Reference) (checkout.Params, error) {
	userID, err := db.ToUUID(ref.UserID)
	if err != nil {
		return checkout.Params{}, fmt.Errorf("reference user id: %w", err)
	}
	locationID, err := db.ToUUID(ref.LocationID)
	if err != nil {
		return checkout.Params{}, fmt.Errorf("reference location id: %w", err)
	}
	return checkout.Params{
		UserID:       userID,
		LocationID:   locationID,
		AddressID:    ref.AddressID,
		DiscountCode: ref.DiscountCode,
		Method:       checkout.MethodCard,
		MarkPaid:     true,
	}, nil
}

// webhookEnvelope is the outer shape of the gateway's POST body.
type webhookEnvelope struct {
	Type string          `json:"type"`
	Obj  json.RawMessage `json:"obj"`
}

func incWebhook(result string) {
	if obs.PaymentWebhookTotal != nil {
		obs.PaymentWebhookTotal.WithLabelValues(result).Inc()
	}
}
