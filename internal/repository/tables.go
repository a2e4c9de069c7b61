package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/stayseat/booking-api/internal/model"
)

// Tables names the physical tables and foreign key columns backing one
// inventory kind.  Cabins and hostels share a schema shape, so the same
// repositories serve both by swapping the table set.  Values are compile
// time constants and never come from user input.
type Tables struct {
	Kind      model.Kind
	Parents   string // cabins | hostel_rooms
	Units     string // seats | hostel_beds
	ParentCol string // cabin_id | room_id
	UnitCol   string // seat_id | bed_id
	Bookings  string
	Dues      string
	Receipts  string
	Transfers string
}

var tableSets = map[model.Kind]Tables{
	model.KindCabin: {
		Kind:      model.KindCabin,
		Parents:   "cabins",
		Units:     "seats",
		ParentCol: "cabin_id",
		UnitCol:   "seat_id",
		Bookings:  "bookings",
		Dues:      "dues",
		Receipts:  "receipts",
		Transfers: "seat_transfers",
	},
	model.KindHostel: {
		Kind:      model.KindHostel,
		Parents:   "hostel_rooms",
		Units:     "hostel_beds",
		ParentCol: "room_id",
		UnitCol:   "bed_id",
		Bookings:  "hostel_bookings",
		Dues:      "hostel_dues",
		Receipts:  "hostel_receipts",
		Transfers: "bed_transfers",
	},
}

// TablesFor returns the table set of a kind.  It panics on an unknown
// kind because kinds are validated at the HTTP boundary.
func TablesFor(kind model.Kind) Tables {
	t, ok := tableSets[kind]
	if !ok {
		panic("repository: unknown inventory kind " + string(kind))
	}
	return t
}

// queryer is satisfied by both *sql.DB and *sql.Tx so that read helpers
// can be shared between plain and transactional methods.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*2-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
