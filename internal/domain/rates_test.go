package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func pdec(v int64) *decimal.Decimal {
	x := decimal.NewFromInt(v)
	return &x
}

func calendar(ranges []DateRangeRule, overrides []CalendarOverride) RateCalendar {
	return RateCalendar{Ranges: ranges, Overrides: overrides}
}

// 2026-09-07 is a Monday.
var mon = d(2026, time.September, 7)

func TestResolveNightly_WeekendSplit(t *testing.T) {
	cal := calendar([]DateRangeRule{{
		Start: d(2026, time.September, 1), End: d(2026, time.September, 30),
		WeekdayPrice: dec(100), WeekendPrice: dec(150),
	}}, nil)

	// Mon..Sun = 7 nights, Fri+Sat at weekend rate.
	nights, err := cal.ResolveNightly(mon, mon.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, nights, 7)
	for _, n := range nights {
		assert.Equal(t, SourceDateRange, n.Source)
		switch n.Date.Weekday() {
		case time.Friday, time.Saturday:
			assert.True(t, n.Weekend)
			assert.True(t, n.Price.Equal(dec(150)), "weekend night %s", n.Date)
		default:
			assert.False(t, n.Weekend)
			assert.True(t, n.Price.Equal(dec(100)), "weekday night %s", n.Date)
		}
	}
	assert.True(t, AccommodationTotal(nights).Equal(dec(5*100+2*150)))
}

func TestResolveNightly_OverrideBeatsRange(t *testing.T) {
	cal := calendar(
		[]DateRangeRule{{
			Start: d(2026, time.September, 1), End: d(2026, time.September, 30),
			WeekdayPrice: dec(100), WeekendPrice: dec(150),
		}},
		[]CalendarOverride{{Day: mon.AddDate(0, 0, 1), Price: pdec(80)}},
	)

	nights, err := cal.ResolveNightly(mon, mon.AddDate(0, 0, 3))
	require.NoError(t, err)
	require.Len(t, nights, 3)
	assert.Equal(t, SourceDateRange, nights[0].Source)
	assert.Equal(t, SourceOverride, nights[1].Source)
	assert.True(t, nights[1].Price.Equal(dec(80)))
	assert.Equal(t, SourceDateRange, nights[2].Source)
}

func TestResolveNightly_ZeroOverrideReplacesRangePrice(t *testing.T) {
	cal := calendar(
		[]DateRangeRule{{
			Start: d(2026, time.September, 1), End: d(2026, time.September, 30),
			WeekdayPrice: dec(100), WeekendPrice: dec(100),
		}},
		[]CalendarOverride{{Day: mon, Price: pdec(0)}},
	)

	nights, err := cal.ResolveNightly(mon, mon.AddDate(0, 0, 2))
	require.NoError(t, err)
	// Override replaces, never adds: 0 + 100.
	assert.True(t, AccommodationTotal(nights).Equal(dec(100)))
	assert.Equal(t, SourceOverride, nights[0].Source)
}

func TestResolveNightly_NilOverridePriceFallsThrough(t *testing.T) {
	cal := calendar(
		[]DateRangeRule{{
			Start: d(2026, time.September, 1), End: d(2026, time.September, 30),
			WeekdayPrice: dec(100), WeekendPrice: dec(150),
		}},
		// Override row exists (e.g. min-nights only) but has no price.
		[]CalendarOverride{{Day: mon, MinNights: pint(3)}},
	)

	nights, err := cal.ResolveNightly(mon, mon.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, SourceDateRange, nights[0].Source)
	assert.True(t, nights[0].Price.Equal(dec(100)))
}

func TestResolveNightly_InactiveRangeSkipped(t *testing.T) {
	cal := calendar([]DateRangeRule{{
		Start: d(2026, time.September, 1), End: d(2026, time.September, 30),
		WeekdayPrice: dec(100), WeekendPrice: dec(150), Inactive: true,
	}}, nil)

	nights, err := cal.ResolveNightly(mon, mon.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, SourceNone, nights[0].Source)
	assert.True(t, nights[0].Price.IsZero())
}

func TestResolveNightly_GapResolvesToZeroWithWarning(t *testing.T) {
	cal := calendar([]DateRangeRule{{
		Start: d(2026, time.September, 1), End: d(2026, time.September, 7),
		WeekdayPrice: dec(100), WeekendPrice: dec(100),
	}}, nil)

	// Second night falls outside every range.
	nights, err := cal.ResolveNightly(mon, mon.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, SourceDateRange, nights[0].Source)
	assert.Equal(t, SourceNone, nights[1].Source)
	missing := MissingRateDays(nights)
	require.Len(t, missing, 1)
	assert.Equal(t, mon.AddDate(0, 0, 1), missing[0])
}

func TestResolveNightly_OverlappingRangesFirstMatchWins(t *testing.T) {
	cal := calendar([]DateRangeRule{
		{Start: d(2026, time.September, 1), End: d(2026, time.September, 30), WeekdayPrice: dec(100), WeekendPrice: dec(100)},
		{Start: d(2026, time.September, 5), End: d(2026, time.September, 10), WeekdayPrice: dec(999), WeekendPrice: dec(999)},
	}, nil)

	nights, err := cal.ResolveNightly(mon, mon.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, nights[0].Price.Equal(dec(100)))
}

func TestResolveNightly_RejectsBadDateOrder(t *testing.T) {
	cal := calendar(nil, nil)
	_, err := cal.ResolveNightly(mon, mon)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = cal.ResolveNightly(mon, mon.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestResolveNightly_CheckoutNightExcluded(t *testing.T) {
	cal := calendar([]DateRangeRule{{
		Start: d(2026, time.September, 1), End: d(2026, time.September, 30),
		WeekdayPrice: dec(100), WeekendPrice: dec(150),
	}}, nil)

	nights, err := cal.ResolveNightly(mon, mon.AddDate(0, 0, 3))
	require.NoError(t, err)
	require.Len(t, nights, 3)
	assert.Equal(t, mon.AddDate(0, 0, 2), nights[2].Date)
}

func TestNights(t *testing.T) {
	assert.Equal(t, 3, Nights(mon, mon.AddDate(0, 0, 3)))
	assert.Equal(t, 1, Nights(mon, mon.AddDate(0, 0, 1)))
	// Time-of-day is ignored.
	assert.Equal(t, 1, Nights(mon.Add(22*time.Hour), mon.AddDate(0, 0, 1).Add(6*time.Hour)))
}

func pint(i int) *int { return &i }
