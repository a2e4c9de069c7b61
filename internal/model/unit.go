package model

import "time"

// Kind selects one of the two inventory families served by the API.  A
// cabin is a reading room made of numbered seats; a hostel room is made
// of numbered beds.  Both behave the same way for availability, booking,
// transfer and cancellation, so every operation is parameterised by Kind
// instead of being implemented twice.
type Kind string

const (
	KindCabin  Kind = "cabin"
	KindHostel Kind = "hostel"
)

// Kinds lists every inventory kind served.
var Kinds = []Kind{KindCabin, KindHostel}

// ParseKind converts a path segment into a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindCabin:
		return KindCabin, true
	case KindHostel:
		return KindHostel, true
	}
	return "", false
}

// Parent is the rentable container of units: a cabin (reading room) or a
// hostel room.  VendorID is the partner who owns it and receives payouts
// for bookings made on its units.
type Parent struct {
	ID       uint64 `json:"id"`
	VendorID uint64 `json:"vendor_id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// RatePeriodDays is the length of stay a unit's Price covers.
const RatePeriodDays = 30

// Unit is a single bookable seat or bed.
//
// IsAvailable mirrors whether an active booking currently holds the unit
// and is rewritten inside the same transaction as every booking mutation.
// IsBlocked is set by the vendor to take a unit out of sale.  Version is
// bumped on every flag write and checked on update.  Price is the rate for
// RatePeriodDays consecutive days.
type Unit struct {
	ID          uint64    `json:"id"`
	ParentID    uint64    `json:"parent_id"`
	Label       string    `json:"label"`
	Category    string    `json:"category"`
	Sharing     string    `json:"sharing,omitempty"`
	Price       int64     `json:"price"`
	IsAvailable bool      `json:"is_available"`
	IsBlocked   bool      `json:"is_blocked"`
	Version     uint32    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
