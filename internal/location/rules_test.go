package location

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-souq/internal/db"
)

type stubQuerier struct {
	loc db.Location
	err error
}

func (s *stubQuerier) GetLocationByID(context.Context, pgtype.UUID) (db.Location, error) {
	return s.loc, s.err
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestResolve(t *testing.T) {
	t.Run("missing row maps to invalid location", func(t *testing.T) {
		svc := &Service{Q: &stubQuerier{err: pgx.ErrNoRows}}
		_, err := svc.Resolve(context.Background(), pgtype.UUID{})
		require.ErrorIs(t, err, ErrInvalidLocation)
	})

	t.Run("found", func(t *testing.T) {
		want := db.Location{Name: "Cairo", TaxRate: dec("0.14"), Active: true}
		svc := &Service{Q: &stubQuerier{loc: want}}
		got, err := svc.Resolve(context.Background(), pgtype.UUID{})
		require.NoError(t, err)
		assert.Equal(t, "Cairo", got.Name)
	})
}

func TestRates(t *testing.T) {
	active := db.Location{TaxRate: dec("0.14"), ShippingRate: dec("0.05"), Active: true}
	inactive := db.Location{TaxRate: dec("0.14"), ShippingRate: dec("0.05"), Active: false}

	tax, ship := Rates(active)
	assert.True(t, tax.Equal(dec("0.14")))
	assert.True(t, ship.Equal(dec("0.05")))

	tax, ship = Rates(inactive)
	assert.True(t, tax.IsZero())
	assert.True(t, ship.IsZero())
}

func TestCharges(t *testing.T) {
	loc := db.Location{TaxRate: dec("0.14"), ShippingRate: dec("0.05"), Active: true}
	taxable := dec("150.00")

	assert.Equal(t, "21.00", CalculateTax(loc, taxable).StringFixed(2))
	assert.Equal(t, "7.50", CalculateShipping(loc, taxable).StringFixed(2))

	loc.Active = false
	assert.Equal(t, "0.00", CalculateTax(loc, taxable).StringFixed(2))
	assert.Equal(t, "0.00", CalculateShipping(loc, taxable).StringFixed(2))
}
