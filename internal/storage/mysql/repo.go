package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"innkeeper/internal/domain"
)

const dateLayout = "2006-01-02"

func valDec(p *decimal.Decimal) any {
	if p == nil {
		return nil
	}
	return p.String()
}

func valDate(t time.Time) string { return domain.Day(t).Format(dateLayout) }

func decFromNull(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, fmt.Errorf("bad decimal %q: %w", ns.String, err)
	}
	return &d, nil
}

func mustDec(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("bad decimal %q: %w", s, err)
	}
	return d, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx so the same repo code
// serves plain calls and WithTx calls.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repo struct {
	db *sql.DB
	q  querier
}

func New(db *sql.DB) *Repo { return &Repo{db: db, q: db} }

// WithTx runs fn against a transactional repo. Nested calls reuse the open
// transaction.
func (r *Repo) WithTx(ctx context.Context, fn func(domain.Repository) error) error {
	if _, nested := r.q.(*sql.Tx); nested {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&Repo{db: r.db, q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ---- property & rates ----

func (r *Repo) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	var room domain.Room
	err := r.q.QueryRowContext(ctx, getRoomSQL, id).
		Scan(&room.ID, &room.RoomTypeID, &room.Name, &room.Active)
	if err == sql.ErrNoRows {
		return domain.Room{}, fmt.Errorf("room %d: %w", id, domain.ErrNotFound)
	}
	return room, err
}

func (r *Repo) GetRoomType(ctx context.Context, id int64) (domain.RoomType, error) {
	var rt domain.RoomType
	err := r.q.QueryRowContext(ctx, getRoomTypeSQL, id).
		Scan(&rt.ID, &rt.BuildingID, &rt.Name, &rt.Capacity)
	if err == sql.ErrNoRows {
		return domain.RoomType{}, fmt.Errorf("room type %d: %w", id, domain.ErrNotFound)
	}
	return rt, err
}

func (r *Repo) GetRateCalendar(ctx context.Context, roomTypeID int64) (domain.RateCalendar, error) {
	var cal domain.RateCalendar

	rows, err := r.q.QueryContext(ctx, listRateRangesSQL, roomTypeID)
	if err != nil {
		return domain.RateCalendar{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var rr domain.DateRangeRule
		var wd, we string
		if err := rows.Scan(&rr.ID, &rr.RoomTypeID, &rr.Start, &rr.End, &wd, &we, &rr.MinNights, &rr.Inactive); err != nil {
			return domain.RateCalendar{}, err
		}
		if rr.WeekdayPrice, err = mustDec(wd); err != nil {
			return domain.RateCalendar{}, err
		}
		if rr.WeekendPrice, err = mustDec(we); err != nil {
			return domain.RateCalendar{}, err
		}
		cal.Ranges = append(cal.Ranges, rr)
	}
	if err := rows.Err(); err != nil {
		return domain.RateCalendar{}, err
	}

	orows, err := r.q.QueryContext(ctx, listRateOverridesSQL, roomTypeID)
	if err != nil {
		return domain.RateCalendar{}, err
	}
	defer orows.Close()
	for orows.Next() {
		var o domain.CalendarOverride
		var price sql.NullString
		var minNights sql.NullInt64
		if err := orows.Scan(&o.ID, &o.RoomTypeID, &o.Day, &price, &minNights, &o.Inactive); err != nil {
			return domain.RateCalendar{}, err
		}
		if o.Price, err = decFromNull(price); err != nil {
			return domain.RateCalendar{}, err
		}
		if minNights.Valid {
			n := int(minNights.Int64)
			o.MinNights = &n
		}
		cal.Overrides = append(cal.Overrides, o)
	}
	if err := orows.Err(); err != nil {
		return domain.RateCalendar{}, err
	}
	return cal, nil
}

func (r *Repo) ListFeeDefinitions(ctx context.Context, buildingID, roomTypeID int64) ([]domain.FeeDefinition, []domain.FeeDefinition, error) {
	building, err := r.listFeeDefs(ctx, domain.ScopeBuilding, buildingID)
	if err != nil {
		return nil, nil, err
	}
	roomType, err := r.listFeeDefs(ctx, domain.ScopeRoomType, roomTypeID)
	if err != nil {
		return nil, nil, err
	}
	return building, roomType, nil
}

func (r *Repo) listFeeDefs(ctx context.Context, scope domain.FeeScope, ownerID int64) ([]domain.FeeDefinition, error) {
	rows, err := r.q.QueryContext(ctx, listFeeDefinitionsSQL, string(scope), ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FeeDefinition
	for rows.Next() {
		var d domain.FeeDefinition
		var scopeS, price string
		if err := rows.Scan(&d.ID, &scopeS, &d.OwnerID, &d.Title, &price, &d.Mandatory, &d.PerNight, &d.PerGuest); err != nil {
			return nil, err
		}
		d.Scope = domain.FeeScope(scopeS)
		if d.PriceEUR, err = mustDec(price); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ---- bookings & groups ----

type rowScanner interface{ Scan(dest ...any) error }

func scanBooking(sc rowScanner) (domain.Booking, error) {
	var b domain.Booking
	var groupID sql.NullInt64
	var status string
	var guestName sql.NullString
	var customHUF, total sql.NullString
	err := sc.Scan(&b.ID, &b.RoomID, &groupID, &b.CheckIn, &b.CheckOut, &b.Guests, &status,
		&guestName, &b.InvoiceSent, &b.CleaningDone, &customHUF, &total)
	if err != nil {
		return domain.Booking{}, err
	}
	if groupID.Valid {
		g := groupID.Int64
		b.GroupID = &g
	}
	b.Status = domain.BookingStatus(status)
	if guestName.Valid {
		b.GuestName = guestName.String
	}
	if b.CustomHUFPrice, err = decFromNull(customHUF); err != nil {
		return domain.Booking{}, err
	}
	if b.TotalAmount, err = decFromNull(total); err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

func (r *Repo) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	b, err := scanBooking(r.q.QueryRowContext(ctx, getBookingSQL, id))
	if err == sql.ErrNoRows {
		return domain.Booking{}, fmt.Errorf("booking %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Booking{}, err
	}
	if b.FeeLines, err = r.loadFeeLines(ctx, b.ID); err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

func (r *Repo) loadFeeLines(ctx context.Context, bookingID int64) ([]domain.FeeLine, error) {
	rows, err := r.q.QueryContext(ctx, listFeeLinesSQL, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FeeLine
	for rows.Next() {
		var l domain.FeeLine
		var scope, price string
		if err := rows.Scan(&l.ID, &l.BookingID, &scope, &l.DefID, &l.Title, &price, &l.Quantity); err != nil {
			return nil, err
		}
		l.Scope = domain.FeeScope(scope)
		if l.PriceEUR, err = mustDec(price); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repo) listBookings(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].FeeLines, err = r.loadFeeLines(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) ListGroupBookings(ctx context.Context, groupID int64) ([]domain.Booking, error) {
	return r.listBookings(ctx, listGroupBookingsSQL, groupID)
}

func (r *Repo) ListStandaloneBookings(ctx context.Context) ([]domain.Booking, error) {
	return r.listBookings(ctx, listStandaloneBookingsSQL)
}

func scanGroup(sc rowScanner) (domain.BookingGroup, error) {
	var g domain.BookingGroup
	var guestName sql.NullString
	var customHUF, total sql.NullString
	err := sc.Scan(&g.ID, &g.CheckIn, &g.CheckOut, &guestName, &g.InvoiceSent, &g.CleaningDone, &customHUF, &total)
	if err != nil {
		return domain.BookingGroup{}, err
	}
	if guestName.Valid {
		g.GuestName = guestName.String
	}
	if g.CustomHUFPrice, err = decFromNull(customHUF); err != nil {
		return domain.BookingGroup{}, err
	}
	if g.TotalAmount, err = decFromNull(total); err != nil {
		return domain.BookingGroup{}, err
	}
	return g, nil
}

func (r *Repo) GetGroup(ctx context.Context, id int64) (domain.BookingGroup, error) {
	g, err := scanGroup(r.q.QueryRowContext(ctx, getGroupSQL, id))
	if err == sql.ErrNoRows {
		return domain.BookingGroup{}, fmt.Errorf("group %d: %w", id, domain.ErrNotFound)
	}
	return g, err
}

func (r *Repo) ListGroups(ctx context.Context) ([]domain.BookingGroup, error) {
	rows, err := r.q.QueryContext(ctx, listGroupsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BookingGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repo) FindOverlap(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeBookingID int64) (domain.Booking, error) {
	b, err := scanBooking(r.q.QueryRowContext(ctx, findOverlapSQL,
		roomID, excludeBookingID, valDate(checkOut), valDate(checkIn)))
	if err == sql.ErrNoRows {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, err
}

// ---- writes ----

func (r *Repo) CreateBooking(ctx context.Context, b domain.Booking) (int64, error) {
	var groupID any
	if b.GroupID != nil {
		groupID = *b.GroupID
	}
	res, err := r.q.ExecContext(ctx, insertBookingSQL,
		b.RoomID,
		groupID,
		valDate(b.CheckIn),
		valDate(b.CheckOut),
		b.Guests,
		string(b.Status),
		b.GuestName,
		b.InvoiceSent,
		b.CleaningDone,
		valDec(b.CustomHUFPrice),
		valDec(b.TotalAmount),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) UpdateBookingRoom(ctx context.Context, bookingID, roomID int64) error {
	_, err := r.q.ExecContext(ctx, updateBookingRoomSQL, roomID, bookingID)
	return err
}

func (r *Repo) UpdateBookingGuests(ctx context.Context, bookingID int64, guests int) error {
	_, err := r.q.ExecContext(ctx, updateBookingGuestsSQL, guests, bookingID)
	return err
}

func (r *Repo) ReplaceFeeLines(ctx context.Context, bookingID int64, lines []domain.FeeLine) error {
	if _, err := r.q.ExecContext(ctx, deleteFeeLinesSQL, bookingID); err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	values := make([]string, 0, len(lines))
	args := make([]any, 0, len(lines)*6)
	for _, l := range lines {
		values = append(values, "(?,?,?,?,?,?)")
		args = append(args, bookingID, string(l.Scope), l.DefID, l.Title, l.PriceEUR.String(), l.Quantity)
	}
	_, err := r.q.ExecContext(ctx, insertFeeLinesPrefix+strings.Join(values, ","), args...)
	return err
}

func (r *Repo) SetBookingTotal(ctx context.Context, bookingID int64, total *decimal.Decimal) error {
	_, err := r.q.ExecContext(ctx, setBookingTotalSQL, valDec(total), bookingID)
	return err
}

func (r *Repo) SetGroupTotal(ctx context.Context, groupID int64, total *decimal.Decimal) error {
	_, err := r.q.ExecContext(ctx, setGroupTotalSQL, valDec(total), groupID)
	return err
}

func (r *Repo) DetachBooking(ctx context.Context, bookingID int64, g domain.BookingGroup) error {
	_, err := r.q.ExecContext(ctx, detachBookingSQL,
		valDate(g.CheckIn),
		valDate(g.CheckOut),
		g.GuestName,
		g.InvoiceSent,
		g.CleaningDone,
		valDec(g.CustomHUFPrice),
		bookingID,
	)
	return err
}

func (r *Repo) ReassignGroupPayments(ctx context.Context, groupID, bookingID int64) error {
	_, err := r.q.ExecContext(ctx, reassignGroupPaymentsSQL, bookingID, groupID)
	return err
}

func (r *Repo) ReassignBookingPayments(ctx context.Context, fromBookingID int64, toBookingID, toGroupID *int64) error {
	var bID, gID any
	if toBookingID != nil {
		bID = *toBookingID
	}
	if toGroupID != nil {
		gID = *toGroupID
	}
	_, err := r.q.ExecContext(ctx, reassignBookingPaymentsSQL, bID, gID, fromBookingID)
	return err
}

func (r *Repo) DeleteBooking(ctx context.Context, bookingID int64) error {
	_, err := r.q.ExecContext(ctx, deleteBookingSQL, bookingID)
	return err
}

func (r *Repo) DeleteGroup(ctx context.Context, groupID int64) error {
	_, err := r.q.ExecContext(ctx, deleteGroupSQL, groupID)
	return err
}
