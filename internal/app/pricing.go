package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"innkeeper/internal/adapters/observability"
	"innkeeper/internal/domain"
)

// PricingService answers read-only quote requests. Rate calendars are read
// live on every call; quotes are never cached (rules can change between a
// group's creation and a later edit).
type PricingService struct {
	repo domain.Repository
}

func NewPricingService(r domain.Repository) *PricingService {
	return &PricingService{repo: r}
}

// QuoteRoom prices one room for a stay window, guest count and optional-fee
// selection.
func (s *PricingService) QuoteRoom(ctx context.Context, roomID int64, checkIn, checkOut time.Time, guests int, selected []domain.FeeRef) (domain.RoomQuote, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return domain.RoomQuote{}, err
	}
	rt, err := s.repo.GetRoomType(ctx, room.RoomTypeID)
	if err != nil {
		return domain.RoomQuote{}, err
	}
	cal, err := s.repo.GetRateCalendar(ctx, rt.ID)
	if err != nil {
		return domain.RoomQuote{}, err
	}
	buildingDefs, roomTypeDefs, err := s.repo.ListFeeDefinitions(ctx, rt.BuildingID, rt.ID)
	if err != nil {
		return domain.RoomQuote{}, err
	}
	warnUnknownRefs(buildingDefs, roomTypeDefs, selected)

	q, err := domain.PriceRoom(room, cal, buildingDefs, roomTypeDefs, checkIn, checkOut, guests, selected)
	if err != nil {
		observability.ObservePricing("quote_room", "rejected")
		return domain.RoomQuote{}, err
	}
	observeMissingRates(q.MissingRateDays, room.ID)
	observability.ObservePricing("quote_room", "ok")
	return q, nil
}

// QuoteGroup prices every member booking under the group's shared stay window.
func (s *PricingService) QuoteGroup(ctx context.Context, groupID int64) (domain.GroupQuote, error) {
	g, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return domain.GroupQuote{}, err
	}
	members, err := s.repo.ListGroupBookings(ctx, groupID)
	if err != nil {
		return domain.GroupQuote{}, err
	}
	q, err := quoteGroup(ctx, s.repo, g, members)
	if err != nil {
		observability.ObservePricing("quote_group", "failed")
		return domain.GroupQuote{}, err
	}
	observability.ObservePricing("quote_group", "ok")
	return q, nil
}

// quoteGroup re-resolves each member's accommodation live and reads fee
// totals from the persisted snapshot lines. Shared by the read path and the
// write-path recompute.
func quoteGroup(ctx context.Context, repo domain.Repository, g domain.BookingGroup, members []domain.Booking) (domain.GroupQuote, error) {
	q := domain.GroupQuote{GroupID: g.ID, Nights: domain.Nights(g.CheckIn, g.CheckOut)}
	for _, b := range members {
		if b.Cancelled() {
			continue
		}
		room, err := repo.GetRoom(ctx, b.RoomID)
		if err != nil {
			return domain.GroupQuote{}, err
		}
		cal, err := repo.GetRateCalendar(ctx, room.RoomTypeID)
		if err != nil {
			return domain.GroupQuote{}, err
		}
		nightly, err := cal.ResolveNightly(g.CheckIn, g.CheckOut)
		if err != nil {
			return domain.GroupQuote{}, err
		}
		observeMissingRates(domain.MissingRateDays(nightly), room.ID)
		accom := domain.AccommodationTotal(nightly)
		fees := domain.FeeLinesTotal(b.FeeLines)
		q.AddRoom(domain.GroupRoomQuote{
			BookingID:          b.ID,
			RoomID:             room.ID,
			RoomName:           room.Name,
			Guests:             b.Guests,
			AccommodationTotal: accom,
			FeesTotal:          fees,
			RoomTotal:          accom.Add(fees),
		})
	}
	return q, nil
}

func warnUnknownRefs(buildingDefs, roomTypeDefs []domain.FeeDefinition, selected []domain.FeeRef) {
	for _, ref := range domain.UnknownFeeRefs(buildingDefs, roomTypeDefs, selected) {
		log.Warn().Str("scope", string(ref.Scope)).Int64("fee_id", ref.ID).
			Msg("selected fee definition not found, skipping")
	}
}

func observeMissingRates(days []time.Time, roomID int64) {
	if len(days) == 0 {
		return
	}
	observability.ObserveMissingRateNights(len(days))
	log.Warn().Int64("room_id", roomID).Int("nights", len(days)).
		Msg("stay has nights with no configured rate, priced at zero")
}
