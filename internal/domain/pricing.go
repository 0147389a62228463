package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoomQuote is one room's full pricing breakdown.
type RoomQuote struct {
	RoomID             int64
	RoomName           string
	Nights             int
	NightlyPrices      []NightlyPrice
	AccommodationTotal decimal.Decimal
	Fees               []ResolvedFee
	FeesTotal          decimal.Decimal
	GrandTotal         decimal.Decimal
	// MissingRateDays flags nights that resolved with no configured rate.
	// The quote still totals them at zero; operators decide what to do.
	MissingRateDays []time.Time
}

// PriceRoom composes the nightly resolver and the fee resolver into one
// room's breakdown. Pure: everything it needs is passed in.
func PriceRoom(room Room, cal RateCalendar, buildingDefs, roomTypeDefs []FeeDefinition,
	checkIn, checkOut time.Time, guests int, selected []FeeRef) (RoomQuote, error) {

	if !room.Active {
		return RoomQuote{}, &ValidationError{Reason: "room is inactive"}
	}
	if guests < 1 {
		return RoomQuote{}, &ValidationError{Reason: "guest count must be positive"}
	}
	nightly, err := cal.ResolveNightly(checkIn, checkOut)
	if err != nil {
		return RoomQuote{}, err
	}
	nights := Nights(checkIn, checkOut)
	fees := ResolveFees(buildingDefs, roomTypeDefs, nights, guests, selected)

	accomTotal := AccommodationTotal(nightly)
	feesTotal := ResolvedFeesTotal(fees)
	return RoomQuote{
		RoomID:             room.ID,
		RoomName:           room.Name,
		Nights:             nights,
		NightlyPrices:      nightly,
		AccommodationTotal: accomTotal,
		Fees:               fees,
		FeesTotal:          feesTotal,
		GrandTotal:         accomTotal.Add(feesTotal),
		MissingRateDays:    MissingRateDays(nightly),
	}, nil
}

// GroupRoomQuote is one member booking's share of a group quote.
// AccommodationTotal is always re-resolved live from the current rate
// calendar; FeesTotal comes from the booking's persisted snapshot lines.
type GroupRoomQuote struct {
	BookingID          int64
	RoomID             int64
	RoomName           string
	Guests             int
	AccommodationTotal decimal.Decimal
	FeesTotal          decimal.Decimal
	RoomTotal          decimal.Decimal
}

// GroupQuote aggregates member room quotes under the group's shared stay
// window.
type GroupQuote struct {
	GroupID            int64
	Nights             int
	Rooms              []GroupRoomQuote
	AccommodationTotal decimal.Decimal
	FeesTotal          decimal.Decimal
	GrandTotal         decimal.Decimal
}

// AddRoom appends a member quote and folds it into the group totals.
func (q *GroupQuote) AddRoom(r GroupRoomQuote) {
	q.Rooms = append(q.Rooms, r)
	q.AccommodationTotal = q.AccommodationTotal.Add(r.AccommodationTotal)
	q.FeesTotal = q.FeesTotal.Add(r.FeesTotal)
	q.GrandTotal = q.GrandTotal.Add(r.RoomTotal)
}
