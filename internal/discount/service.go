package discount

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-souq/internal/common"
	"github.com/noah-isme/backend-souq/internal/db"
)

// Querier is the subset of db queries the discount service needs.
type Querier interface {
	GetDiscountByCode(ctx context.Context, code string) (db.DiscountCode, error)
	CreateDiscountCode(ctx context.Context, arg db.CreateDiscountCodeParams) (db.DiscountCode, error)
}

type Service struct {
	Q   Querier
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Outcome describes the result of resolving a code against a subtotal.
type Outcome struct {
	Code   db.DiscountCode
	Amount decimal.Decimal
	Reason string
}

// Applied reports whether the code passed validation and yields a reduction.
func (o Outcome) Applied() bool {
	return o.Reason == ""
}

// Resolve looks up a code (case-insensitively) and validates it against the
// subtotal. Unknown codes come back with ReasonInvalid rather than an error
// so callers can degrade gracefully.
func (s *Service) Resolve(ctx context.Context, raw string, subtotal decimal.Decimal) (Outcome, error) {
	code, err := s.Q.GetDiscountByCode(ctx, NormalizeCode(raw))
	if errors.Is(err, pgx.ErrNoRows) {
		return Outcome{Reason: ReasonInvalid, Amount: decimal.Zero}, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	if reason := Validate(code, subtotal, s.now()); reason != "" {
		return Outcome{Code: code, Reason: reason, Amount: decimal.Zero}, nil
	}
	return Outcome{Code: code, Amount: Amount(code, subtotal)}, nil
}

// CreateParams is the admin-facing shape for minting a new code.
type CreateParams struct {
	Code        string           `json:"code" validate:"required,min=3,max=32"`
	Kind        string           `json:"kind" validate:"required,oneof=percentage fixed"`
	Value       decimal.Decimal  `json:"value" validate:"required"`
	MinPurchase *decimal.Decimal `json:"minPurchase"`
	MaxUses     *int32           `json:"maxUses"`
	ValidFrom   *time.Time       `json:"validFrom"`
	ValidTo     *time.Time       `json:"validTo"`
}

// Create mints a new discount code, normalizing to upper case and rejecting
// duplicates and nonsensical values.
func (s *Service) Create(ctx context.Context, p CreateParams) (db.DiscountCode, error) {
	if p.Value.LessThanOrEqual(decimal.Zero) {
		return db.DiscountCode{}, common.Validation("Discount value must be positive")
	}
	if p.Kind == db.DiscountPercentage && p.Value.GreaterThan(decimal.NewFromInt(100)) {
		return db.DiscountCode{}, common.Validation("Percentage discount cannot exceed 100")
	}
	arg := db.CreateDiscountCodeParams{
		Code:   NormalizeCode(p.Code),
		Kind:   p.Kind,
		Value:  p.Value,
		Active: true,
	}
	if p.MinPurchase != nil {
		arg.MinPurchase = decimal.NewNullDecimal(*p.MinPurchase)
	}
	if p.MaxUses != nil {
		arg.MaxUses.Int32 = *p.MaxUses
		arg.MaxUses.Valid = true
	}
	if p.ValidFrom != nil {
		arg.ValidFrom.Time = *p.ValidFrom
		arg.ValidFrom.Valid = true
	}
	if p.ValidTo != nil {
		arg.ValidTo.Time = *p.ValidTo
		arg.ValidTo.Valid = true
	}
	created, err := s.Q.CreateDiscountCode(ctx, arg)
	if err != nil {
		if isUniqueViolation(err) {
			return db.DiscountCode{}, common.Conflict("DUPLICATE_CODE", "Discount code already exists", nil)
		}
		return db.DiscountCode{}, err
	}
	return created, nil
}

// NormalizeCode canonicalizes user input before lookup or storage.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	return errors.As(err, &pgErr) && pgErr.SQLState() == "23505"
}
