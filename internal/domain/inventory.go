package domain

import (
	"time"

	"github.com/google/uuid"
)

type LockSource string

const (
	LockSourceInternal LockSource = "INTERNAL_CM"
	LockSourceExternal LockSource = "EXTERNAL_CM"
)

type LockStatus string

const (
	LockStatusActive    LockStatus = "ACTIVE"
	LockStatusConfirmed LockStatus = "CONFIRMED"
	LockStatusReleased  LockStatus = "RELEASED"
	LockStatusExpired   LockStatus = "EXPIRED"
	LockStatusFailed    LockStatus = "FAILED"
)

// InventoryLock is the persisted record of a hold against room-date capacity.
// Internal locks are backed by room_availability rows and settle in the same
// transaction as the booking; external locks reference a channel manager via
// ExternalRef.
type InventoryLock struct {
	ID          uuid.UUID
	BookingID   *uuid.UUID
	Source      LockSource
	Status      LockStatus
	RoomTypeID  uuid.UUID
	CheckIn     time.Time
	CheckOut    time.Time
	NumRooms    int
	ExpiresAt   time.Time
	ExternalRef string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Settled reports whether the lock already reached a terminal state, in which
// case a release is a no-op.
func (l *InventoryLock) Settled() bool {
	switch l.Status {
	case LockStatusReleased, LockStatusExpired, LockStatusFailed:
		return true
	}
	return false
}

// RoomAvailability is the per-room-type, per-date counter the internal
// inventory ledger operates on. AvailableRooms never goes negative.
type RoomAvailability struct {
	RoomTypeID     uuid.UUID
	Date           time.Time
	AvailableRooms int
	PricePaise     int64
}

// RoomType carries the static capacity and channel routing for a room.
type RoomType struct {
	ID             uuid.UUID
	HotelID        uuid.UUID
	Name           string
	TotalRooms     int
	BasePricePaise int64
	Source         LockSource
}
