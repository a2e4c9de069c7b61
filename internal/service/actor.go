package service

import (
	"context"
	"database/sql"

	"github.com/stayseat/booking-api/internal/model"
	"github.com/stayseat/booking-api/internal/repository"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uint64
	Role   string
}

func (a Actor) IsAdmin() bool  { return a.Role == model.RoleAdmin }
func (a Actor) IsVendor() bool { return a.Role == model.RoleVendor }

// vendorLookup resolves the vendor owning a cabin or hostel room.
type vendorLookup interface {
	ParentVendorTx(ctx context.Context, tx *sql.Tx, parentID uint64) (uint64, error)
}

// authorizeParent allows admins, and vendors owning the parent.
func authorizeParent(ctx context.Context, tx *sql.Tx, units vendorLookup, a Actor, parentID uint64) error {
	if a.IsAdmin() {
		return nil
	}
	if !a.IsVendor() {
		return repository.ErrForbidden
	}
	vendorID, err := units.ParentVendorTx(ctx, tx, parentID)
	if err != nil {
		return err
	}
	if vendorID != a.UserID {
		return repository.ErrForbidden
	}
	return nil
}

// authorizeBooking additionally lets students act on their own bookings.
func authorizeBooking(ctx context.Context, tx *sql.Tx, units vendorLookup, a Actor, b *model.Booking) error {
	if a.Role == model.RoleStudent {
		if b.UserID == a.UserID {
			return nil
		}
		return repository.ErrForbidden
	}
	return authorizeParent(ctx, tx, units, a, b.ParentID)
}
