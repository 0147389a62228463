//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/shopspring/decimal"

	"innkeeper/internal/domain"
	mysqlrepo "innkeeper/internal/storage/mysql"
)

// ---------- small helpers ----------

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func exec(t *testing.T, db *sql.DB, query string, args ...any) int64 {
	t.Helper()
	res, err := db.Exec(query, args...)
	if err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
	id, _ := res.LastInsertId()
	return id
}

// seed builds one room type with two rooms, a September rate range plus one
// override, and a mandatory building fee.
func seed(t *testing.T, db *sql.DB) (roomTypeID, room1, room2 int64) {
	t.Helper()
	buildingID := exec(t, db, `INSERT INTO buildings (name) VALUES ('Main house')`)
	roomTypeID = exec(t, db, `INSERT INTO room_types (building_id, name, capacity) VALUES (?, 'Double', 4)`, buildingID)
	room1 = exec(t, db, `INSERT INTO rooms (room_type_id, name) VALUES (?, 'R1')`, roomTypeID)
	room2 = exec(t, db, `INSERT INTO rooms (room_type_id, name) VALUES (?, 'R2')`, roomTypeID)
	exec(t, db, `INSERT INTO rate_ranges (room_type_id, start_date, end_date, weekday_price, weekend_price)
		VALUES (?, '2026-09-01', '2026-09-30', 100.00, 150.00)`, roomTypeID)
	exec(t, db, `INSERT INTO rate_overrides (room_type_id, day, price) VALUES (?, '2026-09-08', 80.00)`, roomTypeID)
	exec(t, db, `INSERT INTO fee_definitions (scope, owner_id, title, price_eur, mandatory)
		VALUES ('building', ?, 'Cleaning', 30.00, 1)`, buildingID)
	return roomTypeID, room1, room2
}

// ---------- the test ----------

func TestRepo_MySQL_BookingLifecycle(t *testing.T) {
	// Start isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=innkeeper",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "innkeeper")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	roomTypeID, room1, room2 := seed(t, db)

	repo := mysqlrepo.New(db)
	ctx := context.Background()

	// Rate calendar round-trip: one range, one override.
	cal, err := repo.GetRateCalendar(ctx, roomTypeID)
	if err != nil {
		t.Fatalf("GetRateCalendar: %v", err)
	}
	if len(cal.Ranges) != 1 || len(cal.Overrides) != 1 {
		t.Fatalf("unexpected calendar: %+v", cal)
	}
	if !cal.Ranges[0].WeekdayPrice.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("weekday price: %s", cal.Ranges[0].WeekdayPrice)
	}
	if cal.Overrides[0].Price == nil || !cal.Overrides[0].Price.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("override price: %+v", cal.Overrides[0])
	}

	rt, err := repo.GetRoomType(ctx, roomTypeID)
	if err != nil {
		t.Fatalf("GetRoomType: %v", err)
	}
	buildingDefs, roomTypeDefs, err := repo.ListFeeDefinitions(ctx, rt.BuildingID, rt.ID)
	if err != nil {
		t.Fatalf("ListFeeDefinitions: %v", err)
	}
	if len(buildingDefs) != 1 || len(roomTypeDefs) != 0 {
		t.Fatalf("unexpected fee defs: %d building, %d room type", len(buildingDefs), len(roomTypeDefs))
	}
	cleaning := buildingDefs[0]

	// Create a booking with a fee snapshot and read it back.
	checkIn := time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)
	checkOut := checkIn.AddDate(0, 0, 3)
	id, err := repo.CreateBooking(ctx, domain.Booking{
		RoomID: room1, CheckIn: checkIn, CheckOut: checkOut,
		Guests: 2, Status: domain.StatusActive, GuestName: "Kovács",
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	line := domain.FeeLine{
		Scope: cleaning.Scope, DefID: cleaning.ID,
		Title: cleaning.Title, PriceEUR: cleaning.PriceEUR, Quantity: 1,
	}
	if err := repo.ReplaceFeeLines(ctx, id, []domain.FeeLine{line}); err != nil {
		t.Fatalf("ReplaceFeeLines: %v", err)
	}

	b, err := repo.GetBooking(ctx, id)
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if b.GuestName != "Kovács" || len(b.FeeLines) != 1 || b.FeeLines[0].Title != "Cleaning" {
		t.Fatalf("unexpected booking: %+v", b)
	}
	if !b.CheckIn.Equal(checkIn) || !b.CheckOut.Equal(checkOut) {
		t.Fatalf("dates did not survive the round-trip: %v..%v", b.CheckIn, b.CheckOut)
	}

	// Overlap detection: colliding stay found, back-to-back stay is not, and
	// the excluded booking does not collide with itself.
	hit, err := repo.FindOverlap(ctx, room1, checkIn.AddDate(0, 0, 1), checkOut.AddDate(0, 0, 2), 0)
	if err != nil {
		t.Fatalf("FindOverlap: %v", err)
	}
	if hit.ID != id {
		t.Fatalf("expected booking %d, got %d", id, hit.ID)
	}
	if _, err := repo.FindOverlap(ctx, room1, checkOut, checkOut.AddDate(0, 0, 2), 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("back-to-back stay should not collide: %v", err)
	}
	if _, err := repo.FindOverlap(ctx, room1, checkIn, checkOut, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("excluded booking should not collide with itself: %v", err)
	}
	if _, err := repo.FindOverlap(ctx, room2, checkIn, checkOut, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("other room should be free: %v", err)
	}

	// Totals: a value persists, nil stores NULL.
	total := decimal.NewFromInt(330)
	if err := repo.SetBookingTotal(ctx, id, &total); err != nil {
		t.Fatalf("SetBookingTotal: %v", err)
	}
	b, _ = repo.GetBooking(ctx, id)
	if b.TotalAmount == nil || !b.TotalAmount.Equal(total) {
		t.Fatalf("stored total: %v", b.TotalAmount)
	}
	if err := repo.SetBookingTotal(ctx, id, nil); err != nil {
		t.Fatalf("SetBookingTotal nil: %v", err)
	}
	b, _ = repo.GetBooking(ctx, id)
	if b.TotalAmount != nil {
		t.Fatalf("expected NULL total, got %v", b.TotalAmount)
	}

	// WithTx rolls everything back when fn fails.
	boom := errors.New("boom")
	err = repo.WithTx(ctx, func(tx domain.Repository) error {
		if _, err := tx.CreateBooking(ctx, domain.Booking{
			RoomID: room2, CheckIn: checkIn, CheckOut: checkOut,
			Guests: 1, Status: domain.StatusActive,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx: %v", err)
	}
	if _, err := repo.FindOverlap(ctx, room2, checkIn, checkOut, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("rolled-back booking still visible: %v", err)
	}

	// Group dissolution plumbing: detach copies the group's window and flags,
	// payment re-homing clears the group reference.
	gRes, err := db.Exec(`INSERT INTO booking_groups (check_in, check_out, guest_name, invoice_sent)
		VALUES ('2026-09-07', '2026-09-10', 'Szabó', 1)`)
	if err != nil {
		t.Fatalf("insert group: %v", err)
	}
	groupID, _ := gRes.LastInsertId()
	member, err := repo.CreateBooking(ctx, domain.Booking{
		RoomID: room2, GroupID: &groupID, CheckIn: checkIn, CheckOut: checkOut,
		Guests: 1, Status: domain.StatusActive,
	})
	if err != nil {
		t.Fatalf("CreateBooking member: %v", err)
	}
	exec(t, db, `INSERT INTO payments (group_id, amount, method) VALUES (?, 500.00, 'card')`, groupID)

	g, err := repo.GetGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if err := repo.DetachBooking(ctx, member, g); err != nil {
		t.Fatalf("DetachBooking: %v", err)
	}
	if err := repo.ReassignGroupPayments(ctx, groupID, member); err != nil {
		t.Fatalf("ReassignGroupPayments: %v", err)
	}
	if err := repo.DeleteGroup(ctx, groupID); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}

	detached, err := repo.GetBooking(ctx, member)
	if err != nil {
		t.Fatalf("GetBooking detached: %v", err)
	}
	if detached.GroupID != nil || detached.GuestName != "Szabó" || !detached.InvoiceSent {
		t.Fatalf("detach did not copy group fields: %+v", detached)
	}
	if _, err := repo.GetGroup(ctx, groupID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("deleted group still readable: %v", err)
	}

	var payBooking sql.NullInt64
	var payGroup sql.NullInt64
	if err := db.QueryRow(`SELECT booking_id, group_id FROM payments WHERE amount = 500.00`).Scan(&payBooking, &payGroup); err != nil {
		t.Fatalf("read payment: %v", err)
	}
	if !payBooking.Valid || payBooking.Int64 != member || payGroup.Valid {
		t.Fatalf("payment not re-homed: booking=%v group=%v", payBooking, payGroup)
	}
}
