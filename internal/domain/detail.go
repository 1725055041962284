package domain

import (
	"time"

	"github.com/google/uuid"
)

// BookingDetail is the type-specific record owned 1:1 by a Booking. Exactly
// one variant exists per booking; callers switch on the concrete type.
type BookingDetail interface {
	BookingType() BookingType
}

type PolicyType string

const (
	PolicyFree          PolicyType = "FREE"
	PolicyPartial       PolicyType = "PARTIAL"
	PolicyNonRefundable PolicyType = "NON_REFUNDABLE"
)

// PolicySnapshot is the cancellation policy copied from the room at booking
// time. Once LockedAt is set the snapshot is immutable; refund math reads
// these fields and never the room's live policy. FreeCancelUntil is
// display-only once locked.
type PolicySnapshot struct {
	Type            PolicyType
	RefundPercent   int
	FreeCancelUntil *time.Time
	Text            string
	LockedAt        *time.Time
}

func (p PolicySnapshot) Locked() bool {
	return p.LockedAt != nil
}

// RefundFor computes the refundable amount for a paid total from the
// snapshot alone.
func (p PolicySnapshot) RefundFor(paidPaise int64) int64 {
	switch p.Type {
	case PolicyFree:
		return paidPaise
	case PolicyNonRefundable:
		return 0
	case PolicyPartial:
		if p.RefundPercent <= 0 {
			return 0
		}
		if p.RefundPercent >= 100 {
			return paidPaise
		}
		return paidPaise * int64(p.RefundPercent) / 100
	}
	return 0
}

// RoomPolicy is the live cancellation policy attached to a room type. It is
// only ever read to produce a snapshot; later edits to it never affect
// existing bookings.
type RoomPolicy struct {
	RoomTypeID      uuid.UUID
	Type            PolicyType
	RefundPercent   int
	FreeCancelHours int
	Text            string
}

// Snapshot freezes the policy for a booking. FreeCancelUntil is derived from
// the check-in date for display.
func (p RoomPolicy) Snapshot(checkIn, now time.Time) PolicySnapshot {
	snap := PolicySnapshot{
		Type:          p.Type,
		RefundPercent: p.RefundPercent,
		Text:          p.Text,
		LockedAt:      &now,
	}
	if p.FreeCancelHours > 0 {
		until := checkIn.Add(-time.Duration(p.FreeCancelHours) * time.Hour)
		snap.FreeCancelUntil = &until
	}
	return snap
}

type HotelDetail struct {
	BookingID  uuid.UUID
	RoomTypeID uuid.UUID
	CheckIn    time.Time
	CheckOut   time.Time
	NumRooms   int
	NumGuests  int
	Policy     PolicySnapshot
}

func (d *HotelDetail) BookingType() BookingType { return BookingTypeHotel }

// Nights counts calendar nights in [CheckIn, CheckOut).
func (d *HotelDetail) Nights() int {
	return int(d.CheckOut.Sub(d.CheckIn) / (24 * time.Hour))
}

type BusDetail struct {
	BookingID   uuid.UUID
	RouteID     uuid.UUID
	TravelDate  time.Time
	SeatNumbers []string
	Travelers   []Traveler
}

func (d *BusDetail) BookingType() BookingType { return BookingTypeBus }

type PackageDetail struct {
	BookingID uuid.UUID
	PackageID uuid.UUID
	StartDate time.Time
	Travelers []Traveler
}

func (d *PackageDetail) BookingType() BookingType { return BookingTypePackage }

type Traveler struct {
	Name string
	Age  int
}
