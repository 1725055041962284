package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBookingNotFound     = errors.New("booking not found")
	ErrDetailNotFound      = errors.New("booking detail not found")
	ErrRoomTypeNotFound    = errors.New("room type not found")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrPolicyNotFound      = errors.New("cancellation policy not found")
	ErrPromoNotFound       = errors.New("promo code not found")
	ErrPromoInactive       = errors.New("promo code is not active")
	ErrPromoExpired        = errors.New("promo code is outside its validity window")
	ErrPromoExhausted      = errors.New("promo code usage limit reached")
	ErrPromoMinAmount      = errors.New("booking amount below promo minimum")
	ErrHoldExpired         = errors.New("reservation hold has expired")
	ErrRoomHeld            = errors.New("room is currently held by another request")
)

// AvailabilityError names the first date of the stay that cannot satisfy the
// requested number of rooms. No partial decrement happens when it is returned.
type AvailabilityError struct {
	RoomTypeID uuid.UUID
	Date       time.Time
	Requested  int
	Available  int
}

func (e *AvailabilityError) Error() string {
	return fmt.Sprintf("insufficient availability for room %s on %s: requested %d, available %d",
		e.RoomTypeID, e.Date.Format("2006-01-02"), e.Requested, e.Available)
}

// InventoryLockError wraps a failed channel-manager operation. Callers mark
// the booking PAYMENT_FAILED and release any partial lock when they see it.
type InventoryLockError struct {
	Op  string
	Ref string
	Err error
}

func (e *InventoryLockError) Error() string {
	return fmt.Sprintf("inventory lock %s failed (ref %q): %v", e.Op, e.Ref, e.Err)
}

func (e *InventoryLockError) Unwrap() error { return e.Err }

// TransitionError rejects a state-machine transition from an ineligible
// status.
type TransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition booking from %s to %s", e.From, e.To)
}
