package app

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"innkeeper/internal/adapters/observability"
	"innkeeper/internal/domain"
)

// Reprice re-derives stored totals from the live rule set and reports drift
// (rules edited after a booking was priced leave stale totals behind). With
// apply set, corrections run under the usual lock + transaction.

func totalsEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// RepriceGroup returns whether the group's stored totals differ from a fresh
// computation, fixing them when apply is set.
func (s *BookingService) RepriceGroup(ctx context.Context, groupID int64, apply bool) (bool, error) {
	g, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return false, err
	}
	members, err := s.repo.ListGroupBookings(ctx, groupID)
	if err != nil {
		return false, err
	}
	gq, err := quoteGroup(ctx, s.repo, g, members)
	if err != nil {
		return false, err
	}

	drift := !totalsEqual(g.TotalAmount, domain.StoreTotal(gq.GrandTotal))
	for _, r := range gq.Rooms {
		for _, m := range members {
			if m.ID == r.BookingID && !totalsEqual(m.TotalAmount, domain.StoreTotal(r.RoomTotal)) {
				drift = true
			}
		}
	}
	if !drift {
		return false, nil
	}
	observability.ObserveRepriceDrift()
	log.Warn().Int64("group_id", groupID).
		Str("stored", totalString(g.TotalAmount)).
		Str("computed", gq.GrandTotal.String()).
		Msg("group total drift")
	if !apply {
		return true, nil
	}

	unlock, err := s.lockGroup(ctx, groupID)
	if err != nil {
		return true, err
	}
	defer func() { _ = unlock(ctx) }()
	err = s.repo.WithTx(ctx, func(tx domain.Repository) error {
		g, err := tx.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		members, err := tx.ListGroupBookings(ctx, groupID)
		if err != nil {
			return err
		}
		_, err = s.recomputeGroupTx(ctx, tx, g, members)
		return err
	})
	return true, err
}

// RepriceBooking handles standalone bookings; group members are covered by
// RepriceGroup.
func (s *BookingService) RepriceBooking(ctx context.Context, bookingID int64, apply bool) (bool, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return false, err
	}
	if b.GroupID != nil {
		return false, nil
	}
	room, err := s.repo.GetRoom(ctx, b.RoomID)
	if err != nil {
		return false, err
	}
	cal, err := s.repo.GetRateCalendar(ctx, room.RoomTypeID)
	if err != nil {
		return false, err
	}
	nightly, err := cal.ResolveNightly(b.CheckIn, b.CheckOut)
	if err != nil {
		return false, err
	}
	total := domain.AccommodationTotal(nightly).Add(domain.FeeLinesTotal(b.FeeLines))
	stored := domain.StoreTotal(total)
	if totalsEqual(b.TotalAmount, stored) {
		return false, nil
	}
	observability.ObserveRepriceDrift()
	log.Warn().Int64("booking_id", bookingID).
		Str("stored", totalString(b.TotalAmount)).
		Str("computed", total.String()).
		Msg("booking total drift")
	if !apply {
		return true, nil
	}
	err = s.repo.WithTx(ctx, func(tx domain.Repository) error {
		return tx.SetBookingTotal(ctx, bookingID, stored)
	})
	return true, err
}

func totalString(d *decimal.Decimal) string {
	if d == nil {
		return "null"
	}
	return d.String()
}
