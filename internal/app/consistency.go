package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"innkeeper/internal/adapters/observability"
	"innkeeper/internal/domain"
)

// BookingService owns the write path: every mutation that can move a booking
// total or a group total goes through here. Each operation takes the group's
// lock (when one is involved) and runs its persisted writes in a single
// repository transaction, so stored fee lines and totals can never diverge.
type BookingService struct {
	repo  domain.Repository
	locks domain.GroupLocker
}

func NewBookingService(r domain.Repository, locks domain.GroupLocker) *BookingService {
	return &BookingService{repo: r, locks: locks}
}

// Totals is the immediate feedback pair for the caller's UI. Nil follows the
// storage convention: zero or absent totals are "unpriced".
type Totals struct {
	RoomTotal  *decimal.Decimal
	GroupTotal *decimal.Decimal
}

func (s *BookingService) lockGroup(ctx context.Context, groupID int64) (func(context.Context) error, error) {
	if s.locks == nil {
		return func(context.Context) error { return nil }, nil
	}
	return s.locks.Lock(ctx, groupID)
}

// AddRoomToGroup books one more room under the group's shared stay window.
// The room must exist, be active, not already belong to the group, and be
// free for the window. Fee lines are snapshotted from the definitions active
// at add-time.
func (s *BookingService) AddRoomToGroup(ctx context.Context, groupID, roomID int64, guests int, selected []domain.FeeRef) (int64, Totals, error) {
	unlock, err := s.lockGroup(ctx, groupID)
	if err != nil {
		return 0, Totals{}, err
	}
	defer func() { _ = unlock(ctx) }()

	var bookingID int64
	var totals Totals
	err = s.repo.WithTx(ctx, func(tx domain.Repository) error {
		g, err := tx.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		_, rt, err := s.activeRoom(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if err := validateGuests(rt, guests); err != nil {
			return err
		}
		members, err := tx.ListGroupBookings(ctx, groupID)
		if err != nil {
			return err
		}
		for _, m := range members {
			if m.RoomID == roomID {
				return &domain.ValidationError{Reason: fmt.Sprintf("room %d is already part of group %d", roomID, groupID)}
			}
		}
		if err := guardAvailability(ctx, tx, roomID, g.CheckIn, g.CheckOut, 0); err != nil {
			return err
		}

		lines, err := s.snapshotFees(ctx, tx, rt, domain.Nights(g.CheckIn, g.CheckOut), guests, selected)
		if err != nil {
			return err
		}
		bookingID, err = tx.CreateBooking(ctx, newGroupMember(g, roomID, guests))
		if err != nil {
			return err
		}
		if err := tx.ReplaceFeeLines(ctx, bookingID, lines); err != nil {
			return err
		}
		totals, err = s.recomputeTx(ctx, tx, bookingID)
		return err
	})
	observability.ObserveGroupMutation("room_added", outcome(err))
	if err != nil {
		return 0, Totals{}, err
	}
	return bookingID, totals, nil
}

// MoveBookingRoom reassigns a booking to a different physical room, keeping
// its fee snapshot. Works for group members (group window) and standalone
// bookings (own window).
func (s *BookingService) MoveBookingRoom(ctx context.Context, bookingID, newRoomID int64) (Totals, error) {
	// Pre-lock read, used only to pick the lock. A booking can leave its
	// group concurrently but never join one after creation, so the lock
	// chosen here is never the wrong one.
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return Totals{}, err
	}
	unlock := func(context.Context) error { return nil }
	if b.GroupID != nil {
		if unlock, err = s.lockGroup(ctx, *b.GroupID); err != nil {
			return Totals{}, err
		}
	}
	defer func() { _ = unlock(ctx) }()

	var totals Totals
	err = s.repo.WithTx(ctx, func(tx domain.Repository) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if _, _, err := s.activeRoom(ctx, tx, newRoomID); err != nil {
			return err
		}
		checkIn, checkOut := b.CheckIn, b.CheckOut
		if b.GroupID != nil {
			g, err := tx.GetGroup(ctx, *b.GroupID)
			if err != nil {
				return err
			}
			checkIn, checkOut = g.CheckIn, g.CheckOut
			members, err := tx.ListGroupBookings(ctx, *b.GroupID)
			if err != nil {
				return err
			}
			for _, m := range members {
				if m.ID != bookingID && m.RoomID == newRoomID {
					return &domain.ValidationError{Reason: fmt.Sprintf("room %d is already part of group %d", newRoomID, *b.GroupID)}
				}
			}
		}
		if err := guardAvailability(ctx, tx, newRoomID, checkIn, checkOut, bookingID); err != nil {
			return err
		}
		if err := tx.UpdateBookingRoom(ctx, bookingID, newRoomID); err != nil {
			return err
		}
		totals, err = s.recomputeTx(ctx, tx, bookingID)
		return err
	})
	observability.ObserveGroupMutation("room_changed", outcome(err))
	return totals, err
}

// UpdateBookingGuests changes the guest count and re-derives the fee
// snapshot (guest count never moves the accommodation price, only fee
// quantities). The selection set is recovered from the current lines;
// definitions deleted since then are logged and dropped.
func (s *BookingService) UpdateBookingGuests(ctx context.Context, bookingID int64, guests int) (Totals, error) {
	return s.refreshFees(ctx, bookingID, "guest_count_changed", func(b domain.Booking) (int, []domain.FeeRef) {
		return guests, domain.SelectedRefs(b.FeeLines)
	})
}

// UpdateBookingFees replaces the booking's optional-fee selection. The old
// snapshot lines are deleted and recreated wholesale, never patched.
func (s *BookingService) UpdateBookingFees(ctx context.Context, bookingID int64, selected []domain.FeeRef) (Totals, error) {
	return s.refreshFees(ctx, bookingID, "fee_selections_changed", func(b domain.Booking) (int, []domain.FeeRef) {
		return b.Guests, selected
	})
}

func (s *BookingService) refreshFees(ctx context.Context, bookingID int64, op string, pick func(domain.Booking) (int, []domain.FeeRef)) (Totals, error) {
	// Pre-lock read, used only to pick the lock; GroupID never goes
	// nil to non-nil, so it cannot select a stale lock.
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return Totals{}, err
	}
	unlock := func(context.Context) error { return nil }
	if b.GroupID != nil {
		if unlock, err = s.lockGroup(ctx, *b.GroupID); err != nil {
			return Totals{}, err
		}
	}
	defer func() { _ = unlock(ctx) }()

	var totals Totals
	err = s.repo.WithTx(ctx, func(tx domain.Repository) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		guests, selected := pick(b)
		room, err := tx.GetRoom(ctx, b.RoomID)
		if err != nil {
			return err
		}
		rt, err := tx.GetRoomType(ctx, room.RoomTypeID)
		if err != nil {
			return err
		}
		if err := validateGuests(rt, guests); err != nil {
			return err
		}
		checkIn, checkOut := b.CheckIn, b.CheckOut
		if b.GroupID != nil {
			g, err := tx.GetGroup(ctx, *b.GroupID)
			if err != nil {
				return err
			}
			checkIn, checkOut = g.CheckIn, g.CheckOut
		}
		lines, err := s.snapshotFees(ctx, tx, rt, domain.Nights(checkIn, checkOut), guests, selected)
		if err != nil {
			return err
		}
		if guests != b.Guests {
			if err := tx.UpdateBookingGuests(ctx, bookingID, guests); err != nil {
				return err
			}
		}
		if err := tx.ReplaceFeeLines(ctx, bookingID, lines); err != nil {
			return err
		}
		totals, err = s.recomputeTx(ctx, tx, bookingID)
		return err
	})
	observability.ObserveGroupMutation(op, outcome(err))
	return totals, err
}

// RemoveBookingFromGroup deletes a member booking. With two or more rooms
// left the group is repriced; with exactly one left the group dissolves: the
// survivor becomes standalone, inherits the group's window, identity,
// tracking flags and payments, and keeps its own room total. A group that
// would drop to zero members means a caller bypassed this service.
func (s *BookingService) RemoveBookingFromGroup(ctx context.Context, bookingID int64) (Totals, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return Totals{}, err
	}
	if b.GroupID == nil {
		return Totals{}, &domain.ValidationError{Reason: "booking is not part of a group"}
	}
	groupID := *b.GroupID
	unlock, err := s.lockGroup(ctx, groupID)
	if err != nil {
		return Totals{}, err
	}
	defer func() { _ = unlock(ctx) }()

	var totals Totals
	err = s.repo.WithTx(ctx, func(tx domain.Repository) error {
		g, err := tx.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		members, err := tx.ListGroupBookings(ctx, groupID)
		if err != nil {
			return err
		}
		var remaining []domain.Booking
		found := false
		for _, m := range members {
			if m.ID == bookingID {
				found = true
				continue
			}
			remaining = append(remaining, m)
		}
		if !found {
			return domain.ErrNotFound
		}

		switch len(remaining) {
		case 0:
			ie := &domain.InvariantError{GroupID: groupID, Detail: "removal would leave an empty group"}
			log.Error().Int64("group_id", groupID).Int64("booking_id", bookingID).Msg(ie.Detail)
			return ie
		case 1:
			survivor := remaining[0]
			if err := tx.DetachBooking(ctx, survivor.ID, g); err != nil {
				return err
			}
			if err := tx.ReassignGroupPayments(ctx, groupID, survivor.ID); err != nil {
				return err
			}
			if err := tx.ReassignBookingPayments(ctx, bookingID, &survivor.ID, nil); err != nil {
				return err
			}
			if err := tx.DeleteBooking(ctx, bookingID); err != nil {
				return err
			}
			if err := tx.DeleteGroup(ctx, groupID); err != nil {
				return err
			}
			// Survivor keeps its own room total, not the old group total.
			totals, err = s.recomputeTx(ctx, tx, survivor.ID)
			if err != nil {
				return err
			}
			totals.GroupTotal = nil
			log.Info().Int64("group_id", groupID).Int64("survivor", survivor.ID).Msg("group dissolved")
			return nil
		default:
			if err := tx.ReassignBookingPayments(ctx, bookingID, nil, &groupID); err != nil {
				return err
			}
			if err := tx.DeleteBooking(ctx, bookingID); err != nil {
				return err
			}
			gt, err := s.recomputeGroupTx(ctx, tx, g, remaining)
			if err != nil {
				return err
			}
			totals = Totals{GroupTotal: gt}
			return nil
		}
	})
	observability.ObserveGroupMutation("room_removed", outcome(err))
	return totals, err
}

// recomputeTx reloads the booking with its current fee lines, re-resolves
// accommodation against the live rule set and persists booking and group
// totals (zero stored as NULL). Runs inside the caller's transaction.
func (s *BookingService) recomputeTx(ctx context.Context, tx domain.Repository, bookingID int64) (Totals, error) {
	b, err := tx.GetBooking(ctx, bookingID)
	if err != nil {
		return Totals{}, err
	}
	if b.GroupID == nil {
		room, err := tx.GetRoom(ctx, b.RoomID)
		if err != nil {
			return Totals{}, err
		}
		cal, err := tx.GetRateCalendar(ctx, room.RoomTypeID)
		if err != nil {
			return Totals{}, err
		}
		nightly, err := cal.ResolveNightly(b.CheckIn, b.CheckOut)
		if err != nil {
			return Totals{}, err
		}
		total := domain.AccommodationTotal(nightly).Add(domain.FeeLinesTotal(b.FeeLines))
		stored := domain.StoreTotal(total)
		if err := tx.SetBookingTotal(ctx, b.ID, stored); err != nil {
			return Totals{}, err
		}
		return Totals{RoomTotal: stored}, nil
	}

	g, err := tx.GetGroup(ctx, *b.GroupID)
	if err != nil {
		return Totals{}, err
	}
	members, err := tx.ListGroupBookings(ctx, *b.GroupID)
	if err != nil {
		return Totals{}, err
	}
	var roomTotal *decimal.Decimal
	gq, err := quoteGroup(ctx, tx, g, members)
	if err != nil {
		return Totals{}, err
	}
	// Persist every member total so the stored group total always equals the
	// stored sum of its members, not just the edited one.
	for _, r := range gq.Rooms {
		stored := domain.StoreTotal(r.RoomTotal)
		if err := tx.SetBookingTotal(ctx, r.BookingID, stored); err != nil {
			return Totals{}, err
		}
		if r.BookingID == bookingID {
			roomTotal = stored
		}
	}
	groupTotal := domain.StoreTotal(gq.GrandTotal)
	if err := tx.SetGroupTotal(ctx, g.ID, groupTotal); err != nil {
		return Totals{}, err
	}
	return Totals{RoomTotal: roomTotal, GroupTotal: groupTotal}, nil
}

func (s *BookingService) recomputeGroupTx(ctx context.Context, tx domain.Repository, g domain.BookingGroup, members []domain.Booking) (*decimal.Decimal, error) {
	gq, err := quoteGroup(ctx, tx, g, members)
	if err != nil {
		return nil, err
	}
	for _, r := range gq.Rooms {
		if err := tx.SetBookingTotal(ctx, r.BookingID, domain.StoreTotal(r.RoomTotal)); err != nil {
			return nil, err
		}
	}
	groupTotal := domain.StoreTotal(gq.GrandTotal)
	if err := tx.SetGroupTotal(ctx, g.ID, groupTotal); err != nil {
		return nil, err
	}
	return groupTotal, nil
}

func (s *BookingService) snapshotFees(ctx context.Context, tx domain.Repository, rt domain.RoomType, nights, guests int, selected []domain.FeeRef) ([]domain.FeeLine, error) {
	buildingDefs, roomTypeDefs, err := tx.ListFeeDefinitions(ctx, rt.BuildingID, rt.ID)
	if err != nil {
		return nil, err
	}
	warnUnknownRefs(buildingDefs, roomTypeDefs, selected)
	resolved := domain.ResolveFees(buildingDefs, roomTypeDefs, nights, guests, selected)
	lines := make([]domain.FeeLine, 0, len(resolved))
	for _, f := range resolved {
		lines = append(lines, f.Line(0))
	}
	return lines, nil
}

func (s *BookingService) activeRoom(ctx context.Context, tx domain.Repository, roomID int64) (domain.Room, domain.RoomType, error) {
	room, err := tx.GetRoom(ctx, roomID)
	if err != nil {
		return domain.Room{}, domain.RoomType{}, err
	}
	if !room.Active {
		return domain.Room{}, domain.RoomType{}, &domain.ValidationError{Reason: fmt.Sprintf("room %d is inactive", roomID)}
	}
	rt, err := tx.GetRoomType(ctx, room.RoomTypeID)
	if err != nil {
		return domain.Room{}, domain.RoomType{}, err
	}
	return room, rt, nil
}

func validateGuests(rt domain.RoomType, guests int) error {
	if guests < 1 {
		return &domain.ValidationError{Reason: "guest count must be positive"}
	}
	if rt.Capacity > 0 && guests > rt.Capacity {
		return &domain.ValidationError{Reason: fmt.Sprintf("guest count %d exceeds capacity %d of %s", guests, rt.Capacity, rt.Name)}
	}
	return nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if domain.IsClientError(err) {
		return "rejected"
	}
	return "failed"
}
