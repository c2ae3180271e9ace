// Package location resolves per-location tax and shipping rates.
package location

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-souq/internal/common"
	"github.com/noah-isme/backend-souq/internal/db"
	"github.com/noah-isme/backend-souq/internal/pricing"
)

// ErrInvalidLocation is returned when the location does not exist.
var ErrInvalidLocation = common.NotFound("Invalid location")

// Querier is the subset of db queries the location service needs.
type Querier interface {
	GetLocationByID(ctx context.Context, id pgtype.UUID) (db.Location, error)
}

type Service struct {
	Q Querier
}

// Resolve loads a location by id, mapping a missing row to ErrInvalidLocation.
func (s *Service) Resolve(ctx context.Context, id pgtype.UUID) (db.Location, error) {
	loc, err := s.Q.GetLocationByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.Location{}, ErrInvalidLocation
	}
	if err != nil {
		return db.Location{}, err
	}
	return loc, nil
}

// Rates returns the tax and shipping rates to apply for a location.
// An inactive location contributes zero for both.
func Rates(loc db.Location) (tax, shipping decimal.Decimal) {
	if !loc.Active {
		return decimal.Zero, decimal.Zero
	}
	return loc.TaxRate, loc.ShippingRate
}

// CalculateTax computes the tax charge on a post-discount subtotal.
func CalculateTax(loc db.Location, taxable decimal.Decimal) decimal.Decimal {
	rate, _ := Rates(loc)
	return pricing.Round2(taxable.Mul(rate))
}

// CalculateShipping computes the shipping charge on a post-discount subtotal.
func CalculateShipping(loc db.Location, taxable decimal.Decimal) decimal.Decimal {
	_, rate := Rates(loc)
	return pricing.Round2(taxable.Mul(rate))
}
