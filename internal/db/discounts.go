package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const discountColumns = `
id, code, kind, value, min_purchase, max_uses, used_count, valid_from, valid_to, active, created_at
`

const getDiscountByCode = `
SELECT ` + discountColumns + ` FROM discount_codes WHERE code = $1
`

func (q *Queries) GetDiscountByCode(ctx context.Context, code string) (DiscountCode, error) {
	return q.scanDiscount(q.db.QueryRow(ctx, getDiscountByCode, code))
}

const getDiscountByCodeForUpdate = `
SELECT ` + discountColumns + ` FROM discount_codes WHERE code = $1 FOR UPDATE
`

// GetDiscountByCodeForUpdate locks the code row so the usage-cap check and
// the subsequent increment cannot interleave with another checkout.
func (q *Queries) GetDiscountByCodeForUpdate(ctx context.Context, code string) (DiscountCode, error) {
	return q.scanDiscount(q.db.QueryRow(ctx, getDiscountByCodeForUpdate, code))
}

type CreateDiscountCodeParams struct {
	Code        string
	Kind        string
	Value       decimal.Decimal
	MinPurchase decimal.NullDecimal
	MaxUses     pgtype.Int4
	ValidFrom   pgtype.Timestamptz
	ValidTo     pgtype.Timestamptz
	Active      bool
}

const createDiscountCode = `
INSERT INTO discount_codes (code, kind, value, min_purchase, max_uses, valid_from, valid_to, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + discountColumns

func (q *Queries) CreateDiscountCode(ctx context.Context, arg CreateDiscountCodeParams) (DiscountCode, error) {
	return q.scanDiscount(q.db.QueryRow(ctx, createDiscountCode,
		arg.Code, arg.Kind, arg.Value, arg.MinPurchase, arg.MaxUses, arg.ValidFrom, arg.ValidTo, arg.Active,
	))
}

const incrementDiscountUsage = `
UPDATE discount_codes SET used_count = used_count + 1 WHERE id = $1
RETURNING used_count
`

// IncrementDiscountUsage applies the atomic usage increment and returns the
// new counter value.
func (q *Queries) IncrementDiscountUsage(ctx context.Context, id pgtype.UUID) (int32, error) {
	var used int32
	err := q.db.QueryRow(ctx, incrementDiscountUsage, id).Scan(&used)
	return used, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (q *Queries) scanDiscount(row rowScanner) (DiscountCode, error) {
	var d DiscountCode
	err := row.Scan(
		&d.ID, &d.Code, &d.Kind, &d.Value, &d.MinPurchase, &d.MaxUses,
		&d.UsedCount, &d.ValidFrom, &d.ValidTo, &d.Active, &d.CreatedAt,
	)
	return d, err
}
