package order

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-souq/internal/common"
)

// DateRange bounds placed_at as a half-open [From, To) window. Zero-valued
// bounds mean unbounded.
type DateRange struct {
	From time.Time
	To   time.Time
}

// BuildDateRange interprets the list filter's period selectors. "day",
// "month" and "year" window around the given date; "range" spans startDate
// through endDate inclusive; "all" (or empty) applies no bounds. Dates are
// interpreted at local midnight.
func BuildDateRange(period, date, startDate, endDate string, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.Local
	}
	switch period {
	case "", "all":
		return DateRange{}, nil
	case "day":
		d, err := parseDay(date, loc)
		if err != nil {
			return DateRange{}, err
		}
		return DateRange{From: d, To: d.AddDate(0, 0, 1)}, nil
	case "month":
		d, err := parseDay(date, loc)
		if err != nil {
			return DateRange{}, err
		}
		start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, loc)
		return DateRange{From: start, To: start.AddDate(0, 1, 0)}, nil
	case "year":
		d, err := parseDay(date, loc)
		if err != nil {
			return DateRange{}, err
		}
		start := time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, loc)
		return DateRange{From: start, To: start.AddDate(1, 0, 0)}, nil
	case "range":
		from, err := parseDay(startDate, loc)
		if err != nil {
			return DateRange{}, err
		}
		to, err := parseDay(endDate, loc)
		if err != nil {
			return DateRange{}, err
		}
		if to.Before(from) {
			return DateRange{}, common.Validation("endDate must not be before startDate")
		}
		// endDate is inclusive, so the exclusive bound is the next day
		return DateRange{From: from, To: to.AddDate(0, 0, 1)}, nil
	default:
		return DateRange{}, common.Validation(fmt.Sprintf("Unknown period %q", period))
	}
}

func parseDay(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, common.Validation("A date is required for this period")
	}
	d, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, common.Validation(fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD", value))
	}
	return d, nil
}

// Bounds converts the range into pgtype timestamps for the query layer.
func (r DateRange) Bounds() (from, to pgtype.Timestamptz) {
	if !r.From.IsZero() {
		from = pgtype.Timestamptz{Time: r.From, Valid: true}
	}
	if !r.To.IsZero() {
		to = pgtype.Timestamptz{Time: r.To, Valid: true}
	}
	return from, to
}
