package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSource tells where a resolved nightly price came from.
type PriceSource string

const (
	SourceOverride  PriceSource = "override"
	SourceDateRange PriceSource = "dateRange"
	SourceNone      PriceSource = "none"
)

// DateRangeRule prices an inclusive calendar interval [Start, End] with
// separate weekday and weekend rates. An inactive rule contributes nothing.
type DateRangeRule struct {
	ID           int64
	RoomTypeID   int64
	Start        time.Time
	End          time.Time
	WeekdayPrice decimal.Decimal
	WeekendPrice decimal.Decimal
	MinNights    int
	Inactive     bool
}

func (r DateRangeRule) Covers(day time.Time) bool {
	return !day.Before(r.Start) && !day.After(r.End)
}

// CalendarOverride is a single-date exception. A non-nil Price beats any
// covering range rule for that date; Inactive is tracked independently.
type CalendarOverride struct {
	ID         int64
	RoomTypeID int64
	Day        time.Time
	Price      *decimal.Decimal
	MinNights  *int
	Inactive   bool
}

// RateCalendar is the rule set for one room type as read from the store.
// Both slices keep storage order; when ranges overlap despite the CRUD
// layer's guard, the first covering rule wins.
type RateCalendar struct {
	Ranges    []DateRangeRule
	Overrides []CalendarOverride
}

// NightlyPrice is one resolved night of a stay.
type NightlyPrice struct {
	Date    time.Time
	Price   decimal.Decimal
	Source  PriceSource
	Weekend bool
}

// Day normalizes a timestamp to its UTC calendar date. All rate and overlap
// arithmetic works on Day-normalized values; time-of-day is ignored.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsWeekendNight reports whether the night starting on d is charged at the
// weekend rate. Friday and Saturday nights are weekend nights.
func IsWeekendNight(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Friday || wd == time.Saturday
}

// Nights returns the number of charged nights between check-in and check-out,
// never less than one. The check-out day itself is not charged.
func Nights(checkIn, checkOut time.Time) int {
	n := int(Day(checkOut).Sub(Day(checkIn)).Hours() / 24)
	if n < 1 {
		return 1
	}
	return n
}

// nightResolver is one step of the lookup chain; nil means "no answer here".
type nightResolver func(day time.Time, weekend bool) *NightlyPrice

func (c RateCalendar) overrideResolver() nightResolver {
	return func(day time.Time, weekend bool) *NightlyPrice {
		for _, o := range c.Overrides {
			if o.Price != nil && Day(o.Day).Equal(day) {
				return &NightlyPrice{Date: day, Price: *o.Price, Source: SourceOverride, Weekend: weekend}
			}
		}
		return nil
	}
}

func (c RateCalendar) rangeResolver() nightResolver {
	return func(day time.Time, weekend bool) *NightlyPrice {
		for _, r := range c.Ranges {
			if r.Inactive || !r.Covers(day) {
				continue
			}
			p := r.WeekdayPrice
			if weekend {
				p = r.WeekendPrice
			}
			return &NightlyPrice{Date: day, Price: p, Source: SourceDateRange, Weekend: weekend}
		}
		return nil
	}
}

// ResolveNightly produces the per-night price sequence for [checkIn, checkOut).
// The lookup chain is evaluated in fixed order, first non-nil answer wins:
// calendar override, then active date-range rule, then a zero-priced night
// with SourceNone. Zero/SourceNone nights signal missing rate configuration;
// they are returned as-is, never substituted.
func (c RateCalendar) ResolveNightly(checkIn, checkOut time.Time) ([]NightlyPrice, error) {
	in, out := Day(checkIn), Day(checkOut)
	if !out.After(in) {
		return nil, &ValidationError{Reason: "check-out must be after check-in"}
	}
	chain := []nightResolver{c.overrideResolver(), c.rangeResolver()}
	var nights []NightlyPrice
	for day := in; day.Before(out); day = day.AddDate(0, 0, 1) {
		weekend := IsWeekendNight(day)
		resolved := NightlyPrice{Date: day, Price: decimal.Zero, Source: SourceNone, Weekend: weekend}
		for _, resolve := range chain {
			if np := resolve(day, weekend); np != nil {
				resolved = *np
				break
			}
		}
		nights = append(nights, resolved)
	}
	return nights, nil
}

// AccommodationTotal sums a resolved nightly sequence.
func AccommodationTotal(nights []NightlyPrice) decimal.Decimal {
	total := decimal.Zero
	for _, n := range nights {
		total = total.Add(n.Price)
	}
	return total
}

// MissingRateDays lists the dates that resolved with SourceNone so callers
// can flag incomplete rate configuration to an operator.
func MissingRateDays(nights []NightlyPrice) []time.Time {
	var days []time.Time
	for _, n := range nights {
		if n.Source == SourceNone {
			days = append(days, n.Date)
		}
	}
	return days
}
