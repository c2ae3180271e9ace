// Package events persists domain events to the outbox table so downstream
// consumers can react to order lifecycle changes.
package events

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-souq/internal/db"
)

// Topics emitted by the order pipeline.
const (
	TopicOrderCreated = "order.created"
	TopicOrderPaid    = "order.paid"
)

// Recorder is the subset of db queries the bus needs.
type Recorder interface {
	InsertDomainEvent(ctx context.Context, topic string, aggregateID pgtype.UUID, payload []byte) (db.DomainEvent, error)
}

// Bus writes domain events. Emission failures are logged and swallowed so a
// missing event never rolls back the business operation that produced it.
type Bus struct {
	Q   Recorder
	Log zerolog.Logger
}

// Emit records one event. The payload must be JSON-marshalable.
func (b *Bus) Emit(ctx context.Context, topic string, aggregateID pgtype.UUID, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		b.Log.Error().Err(err).Str("topic", topic).Msg("marshal event payload")
		return
	}
	if _, err := b.Q.InsertDomainEvent(ctx, topic, aggregateID, raw); err != nil {
		b.Log.Error().Err(err).Str("topic", topic).Msg("persist domain event")
	}
}

// EmitTx records one event inside the caller's transaction; unlike Emit the
// error propagates so the transaction can decide what to do with it.
func (b *Bus) EmitTx(ctx context.Context, q Recorder, topic string, aggregateID pgtype.UUID, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = q.InsertDomainEvent(ctx, topic, aggregateID, raw)
	return err
}
