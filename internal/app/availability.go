package app

import (
	"context"
	"errors"
	"time"

	"innkeeper/internal/domain"
)

// guardAvailability rejects a room assignment when a non-cancelled booking
// already occupies any night of [checkIn, checkOut). Back-to-back stays that
// meet on the turnover day pass. excludeBookingID keeps a booking being moved
// from colliding with itself.
func guardAvailability(ctx context.Context, tx domain.Repository, roomID int64, checkIn, checkOut time.Time, excludeBookingID int64) error {
	conflict, err := tx.FindOverlap(ctx, roomID, checkIn, checkOut, excludeBookingID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return &domain.ConflictError{
		RoomID:    roomID,
		BookingID: conflict.ID,
		CheckIn:   conflict.CheckIn,
		CheckOut:  conflict.CheckOut,
	}
}

// newGroupMember builds the booking row for a room joining a group: the stay
// window and guest identity are copied from the group so overlap checks can
// run against booking rows alone.
func newGroupMember(g domain.BookingGroup, roomID int64, guests int) domain.Booking {
	gid := g.ID
	return domain.Booking{
		RoomID:    roomID,
		GroupID:   &gid,
		CheckIn:   g.CheckIn,
		CheckOut:  g.CheckOut,
		Guests:    guests,
		Status:    domain.StatusActive,
		GuestName: g.GuestName,
	}
}
