package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	StatusActive    BookingStatus = "active"
	StatusCancelled BookingStatus = "cancelled"
)

// Booking is one room's stay. TotalAmount is derived and persisted for
// display/audit; nil means "not yet priced" (a zero total is stored as nil,
// the rest of the system relies on that convention). Group members read their
// stay window from the group; standalone bookings carry their own.
type Booking struct {
	ID             int64
	RoomID         int64
	GroupID        *int64
	CheckIn        time.Time
	CheckOut       time.Time
	Guests         int
	Status         BookingStatus
	GuestName      string
	InvoiceSent    bool
	CleaningDone   bool
	CustomHUFPrice *decimal.Decimal
	TotalAmount    *decimal.Decimal
	FeeLines       []FeeLine
}

func (b Booking) Cancelled() bool { return b.Status == StatusCancelled }

// BookingGroup applies one guest identity and one stay window to two or more
// member bookings. TotalAmount is the derived sum of member room totals, same
// nil-for-zero convention as Booking. The tracking flags travel to the
// surviving booking when the group dissolves.
type BookingGroup struct {
	ID             int64
	CheckIn        time.Time
	CheckOut       time.Time
	GuestName      string
	InvoiceSent    bool
	CleaningDone   bool
	CustomHUFPrice *decimal.Decimal
	TotalAmount    *decimal.Decimal
}

// Payment is a recorded payment against a booking or a whole group. Group
// payments are re-homed onto the survivor on dissolution.
type Payment struct {
	ID        int64
	BookingID *int64
	GroupID   *int64
	Amount    decimal.Decimal
	Method    string
	PaidAt    time.Time
}

// StaysOverlap implements the half-open overlap rule: two stays collide iff
// one starts before the other ends and ends after the other starts.
// Back-to-back stays sharing a turnover day do not overlap.
func StaysOverlap(aIn, aOut, bIn, bOut time.Time) bool {
	return Day(bIn).Before(Day(aOut)) && Day(bOut).After(Day(aIn))
}

// StoreTotal maps a computed total onto the persisted representation:
// positive totals as-is, anything else as nil ("unpriced").
func StoreTotal(total decimal.Decimal) *decimal.Decimal {
	if total.IsPositive() {
		t := total
		return &t
	}
	return nil
}
