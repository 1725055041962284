package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicySnapshot_RefundFor(t *testing.T) {
	testCases := []struct {
		name     string
		snap     PolicySnapshot
		paid     int64
		expected int64
	}{
		{"free refunds everything", PolicySnapshot{Type: PolicyFree}, 1000000, 1000000},
		{"non-refundable refunds nothing", PolicySnapshot{Type: PolicyNonRefundable, RefundPercent: 50}, 1000000, 0},
		{"partial at 50 percent", PolicySnapshot{Type: PolicyPartial, RefundPercent: 50}, 1000000, 500000},
		{"partial at 25 percent", PolicySnapshot{Type: PolicyPartial, RefundPercent: 25}, 999900, 249975},
		{"partial clamped above 100", PolicySnapshot{Type: PolicyPartial, RefundPercent: 150}, 1000000, 1000000},
		{"partial clamped below 0", PolicySnapshot{Type: PolicyPartial, RefundPercent: -10}, 1000000, 0},
		{"unknown policy refunds nothing", PolicySnapshot{Type: PolicyType("BOGUS")}, 1000000, 0},
		{"zero paid", PolicySnapshot{Type: PolicyPartial, RefundPercent: 50}, 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.snap.RefundFor(tc.paid))
		})
	}
}

func TestRoomPolicy_Snapshot(t *testing.T) {
	checkIn := time.Date(2026, 4, 1, 14, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	policy := RoomPolicy{Type: PolicyPartial, RefundPercent: 50, FreeCancelHours: 48, Text: "50% refund"}
	snap := policy.Snapshot(checkIn, now)

	assert.Equal(t, PolicyPartial, snap.Type)
	assert.Equal(t, 50, snap.RefundPercent)
	assert.True(t, snap.Locked())
	if assert.NotNil(t, snap.LockedAt) {
		assert.Equal(t, now, *snap.LockedAt)
	}
	if assert.NotNil(t, snap.FreeCancelUntil) {
		assert.Equal(t, checkIn.Add(-48*time.Hour), *snap.FreeCancelUntil)
	}
}

func TestRoomPolicy_SnapshotWithoutFreeCancelWindow(t *testing.T) {
	policy := RoomPolicy{Type: PolicyNonRefundable}
	snap := policy.Snapshot(time.Now(), time.Now())
	assert.Nil(t, snap.FreeCancelUntil)
}

func TestHotelDetail_Nights(t *testing.T) {
	d := &HotelDetail{
		CheckIn:  time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, 2, d.Nights())
}

func TestBookingDetail_Variants(t *testing.T) {
	var detail BookingDetail

	detail = &HotelDetail{}
	assert.Equal(t, BookingTypeHotel, detail.BookingType())

	detail = &BusDetail{}
	assert.Equal(t, BookingTypeBus, detail.BookingType())

	detail = &PackageDetail{}
	assert.Equal(t, BookingTypePackage, detail.BookingType())
}

func TestInventoryLock_Settled(t *testing.T) {
	for _, status := range []LockStatus{LockStatusReleased, LockStatusExpired, LockStatusFailed} {
		lock := &InventoryLock{Status: status}
		assert.True(t, lock.Settled(), "status %s", status)
	}
	for _, status := range []LockStatus{LockStatusActive, LockStatusConfirmed} {
		lock := &InventoryLock{Status: status}
		assert.False(t, lock.Settled(), "status %s", status)
	}
}
