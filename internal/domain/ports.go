package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository is the persistence port for the pricing core. Rate data is
// always read live through it; nothing in this core caches rules across
// requests.
type Repository interface {
	// Property & rates (read)
	GetRoom(ctx context.Context, id int64) (Room, error)
	GetRoomType(ctx context.Context, id int64) (RoomType, error)
	GetRateCalendar(ctx context.Context, roomTypeID int64) (RateCalendar, error)
	// ListFeeDefinitions returns the building-scoped and room-type-scoped
	// definitions, each in storage order.
	ListFeeDefinitions(ctx context.Context, buildingID, roomTypeID int64) (building, roomType []FeeDefinition, err error)

	// Bookings & groups (read)
	GetBooking(ctx context.Context, id int64) (Booking, error)
	GetGroup(ctx context.Context, id int64) (BookingGroup, error)
	ListGroupBookings(ctx context.Context, groupID int64) ([]Booking, error)
	ListGroups(ctx context.Context) ([]BookingGroup, error)
	ListStandaloneBookings(ctx context.Context) ([]Booking, error)

	// FindOverlap returns the first non-cancelled booking on roomID whose
	// stay collides with [checkIn, checkOut), skipping excludeBookingID
	// (0 = exclude nothing). ErrNotFound when the room is free.
	FindOverlap(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeBookingID int64) (Booking, error)

	// Writes. Callers needing multi-step atomicity wrap them in WithTx.
	CreateBooking(ctx context.Context, b Booking) (int64, error)
	UpdateBookingRoom(ctx context.Context, bookingID, roomID int64) error
	UpdateBookingGuests(ctx context.Context, bookingID int64, guests int) error
	// ReplaceFeeLines deletes the booking's snapshot lines and inserts the
	// given set. Never patches in place.
	ReplaceFeeLines(ctx context.Context, bookingID int64, lines []FeeLine) error
	SetBookingTotal(ctx context.Context, bookingID int64, total *decimal.Decimal) error
	SetGroupTotal(ctx context.Context, groupID int64, total *decimal.Decimal) error
	// DetachBooking makes a group member standalone: group_id goes NULL and
	// the group's stay window, guest identity and tracking flags are copied
	// onto the booking row.
	DetachBooking(ctx context.Context, bookingID int64, g BookingGroup) error
	ReassignGroupPayments(ctx context.Context, groupID, bookingID int64) error
	// ReassignBookingPayments re-homes a booking's payments before the row
	// is deleted: onto another booking or up to the group, exactly one of
	// toBookingID/toGroupID set.
	ReassignBookingPayments(ctx context.Context, fromBookingID int64, toBookingID, toGroupID *int64) error
	DeleteBooking(ctx context.Context, bookingID int64) error
	DeleteGroup(ctx context.Context, groupID int64) error

	// WithTx runs fn against a transactional view of the repository. fn
	// returning an error rolls everything back.
	WithTx(ctx context.Context, fn func(Repository) error) error
}

// GroupLocker serializes mutations against one group across processes.
// Lock blocks (bounded by ctx) until the lock is held; the returned function
// releases it.
type GroupLocker interface {
	Lock(ctx context.Context, groupID int64) (unlock func(context.Context) error, err error)
}
