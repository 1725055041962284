package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingType string

const (
	BookingTypeHotel   BookingType = "HOTEL"
	BookingTypeBus     BookingType = "BUS"
	BookingTypePackage BookingType = "PACKAGE"
)

type BookingStatus string

const (
	BookingStatusReserved       BookingStatus = "RESERVED"
	BookingStatusPaymentPending BookingStatus = "PAYMENT_PENDING"
	BookingStatusConfirmed      BookingStatus = "CONFIRMED"
	BookingStatusPaymentFailed  BookingStatus = "PAYMENT_FAILED"
	BookingStatusExpired        BookingStatus = "EXPIRED"
	BookingStatusCancelled      BookingStatus = "CANCELLED"
	BookingStatusCompleted      BookingStatus = "COMPLETED"
	BookingStatusRefunded       BookingStatus = "REFUNDED"
	BookingStatusDeleted        BookingStatus = "DELETED"
)

// Booking is the aggregate root of the reservation lifecycle. All monetary
// amounts are integer paise. Status and timestamps change only through the
// transition methods below; expires_at in particular is never written
// directly, so it cannot drift from reserved_at + hold.
type Booking struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Type        BookingType
	Status      BookingStatus
	TotalPaise  int64
	PaidPaise   int64
	RefundPaise int64
	PromoCode   string
	Email       string
	ReservedAt  time.Time
	ConfirmedAt *time.Time
	ExpiresAt   *time.Time
	CancelledAt *time.Time
	ChannelRef  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewReserved creates a booking in its initial state with the hold window
// derived from reservedAt.
func NewReserved(userID uuid.UUID, bookingType BookingType, totalPaise int64, email string, reservedAt time.Time, hold time.Duration) *Booking {
	expiresAt := reservedAt.Add(hold)
	return &Booking{
		ID:         uuid.New(),
		UserID:     userID,
		Type:       bookingType,
		Status:     BookingStatusReserved,
		TotalPaise: totalPaise,
		Email:      email,
		ReservedAt: reservedAt,
		ExpiresAt:  &expiresAt,
	}
}

// HoldActive reports whether the booking is still inside its payment hold.
func (b *Booking) HoldActive(now time.Time) bool {
	if b.Status != BookingStatusReserved && b.Status != BookingStatusPaymentPending {
		return false
	}
	return b.ExpiresAt != nil && now.Before(*b.ExpiresAt)
}

// HoldRemaining returns the seconds left on the payment hold, zero once the
// hold is gone or the booking left the held states.
func (b *Booking) HoldRemaining(now time.Time) int64 {
	if b.Status != BookingStatusReserved && b.Status != BookingStatusPaymentPending {
		return 0
	}
	if b.ExpiresAt == nil || !now.Before(*b.ExpiresAt) {
		return 0
	}
	return int64(b.ExpiresAt.Sub(now) / time.Second)
}

// Cancellable reports whether the booking may enter the cancellation flow.
func (b *Booking) Cancellable() bool {
	switch b.Status {
	case BookingStatusReserved, BookingStatusPaymentPending, BookingStatusConfirmed:
		return true
	}
	return false
}

// MarkPaymentPending records that a payment attempt has started. The hold
// window is unchanged.
func (b *Booking) MarkPaymentPending() error {
	if b.Status != BookingStatusReserved {
		return &TransitionError{From: b.Status, To: BookingStatusPaymentPending}
	}
	b.Status = BookingStatusPaymentPending
	return nil
}

// Confirm finalizes a paid booking: the hold is cleared and no timeout
// applies afterwards.
func (b *Booking) Confirm(paidPaise int64, now time.Time) error {
	if b.Status != BookingStatusReserved && b.Status != BookingStatusPaymentPending {
		return &TransitionError{From: b.Status, To: BookingStatusConfirmed}
	}
	b.Status = BookingStatusConfirmed
	b.PaidPaise = paidPaise
	b.ConfirmedAt = &now
	b.ExpiresAt = nil
	return nil
}

func (b *Booking) MarkPaymentFailed() error {
	if b.Status != BookingStatusReserved && b.Status != BookingStatusPaymentPending {
		return &TransitionError{From: b.Status, To: BookingStatusPaymentFailed}
	}
	b.Status = BookingStatusPaymentFailed
	return nil
}

// Expire moves an overdue hold to its terminal state. Only held bookings
// expire; the repository re-checks this under a row lock before persisting.
func (b *Booking) Expire() error {
	if b.Status != BookingStatusReserved && b.Status != BookingStatusPaymentPending {
		return &TransitionError{From: b.Status, To: BookingStatusExpired}
	}
	b.Status = BookingStatusExpired
	b.ExpiresAt = nil
	return nil
}

// Cancel records the cancellation along with the refund amount computed from
// the policy snapshot.
func (b *Booking) Cancel(refundPaise int64, now time.Time) error {
	if !b.Cancellable() {
		return &TransitionError{From: b.Status, To: BookingStatusCancelled}
	}
	b.Status = BookingStatusCancelled
	b.RefundPaise = refundPaise
	b.CancelledAt = &now
	b.ExpiresAt = nil
	return nil
}

func (b *Booking) MarkRefunded() error {
	if b.Status != BookingStatusCancelled {
		return &TransitionError{From: b.Status, To: BookingStatusRefunded}
	}
	b.Status = BookingStatusRefunded
	return nil
}

func (b *Booking) Complete() error {
	if b.Status != BookingStatusConfirmed {
		return &TransitionError{From: b.Status, To: BookingStatusCompleted}
	}
	b.Status = BookingStatusCompleted
	return nil
}

// SoftDelete is the admin-only terminal branch. Rows are never hard-deleted.
func (b *Booking) SoftDelete() {
	b.Status = BookingStatusDeleted
}
