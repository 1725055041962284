package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tripora/booking/internal/domain"
)

type BookingRepository interface {
	CreateReserved(ctx context.Context, booking *domain.Booking, detail domain.BookingDetail, lock *domain.InventoryLock) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	GetDetail(ctx context.Context, id uuid.UUID, bookingType domain.BookingType) (domain.BookingDetail, error)
	GetLock(ctx context.Context, bookingID uuid.UUID) (*domain.InventoryLock, error)
	ConfirmPayment(ctx context.Context, id uuid.UUID, walletAppliedPaise int64, now time.Time) (*domain.Booking, error)
	MarkPaymentFailed(ctx context.Context, id uuid.UUID, now time.Time) (*domain.Booking, error)
	CancelWithRefund(ctx context.Context, id uuid.UUID, refundPaise int64, actor string, now time.Time) (*domain.Booking, bool, error)
	ListExpirable(ctx context.Context, deadline time.Time, limit int) ([]domain.Booking, error)
	Expire(ctx context.Context, id uuid.UUID, now time.Time) (*domain.Booking, bool, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) *PGBookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, user_id, booking_type, status, total_paise, paid_paise, refund_paise, promo_code, email,
	reserved_at, confirmed_at, expires_at, cancelled_at, channel_ref, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.UserID, &b.Type, &b.Status, &b.TotalPaise, &b.PaidPaise, &b.RefundPaise, &b.PromoCode, &b.Email,
		&b.ReservedAt, &b.ConfirmedAt, &b.ExpiresAt, &b.CancelledAt, &b.ChannelRef, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateReserved persists the booking, its detail record and the inventory
// lock in one transaction. For an internal lock the room-date ledger is
// decremented in the same transaction, so a crash can never leave the ledger
// and the lock out of sync.
func (r *PGBookingRepository) CreateReserved(ctx context.Context, booking *domain.Booking, detail domain.BookingDetail, lock *domain.InventoryLock) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if lock != nil && lock.Source == domain.LockSourceInternal {
		if err := reserveRoomsTx(ctx, tx, lock.RoomTypeID, lock.CheckIn, lock.CheckOut, lock.NumRooms); err != nil {
			return err
		}
	}

	if err := tx.QueryRow(ctx, `INSERT INTO bookings (id, user_id, booking_type, status, total_paise, paid_paise, refund_paise, promo_code, email, reserved_at, expires_at, channel_ref)
		VALUES ($1, $2, $3, $4, $5, 0, 0, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		booking.ID, booking.UserID, booking.Type, booking.Status, booking.TotalPaise, booking.PromoCode, booking.Email,
		booking.ReservedAt, booking.ExpiresAt, booking.ChannelRef).
		Scan(&booking.CreatedAt, &booking.UpdatedAt); err != nil {
		return err
	}

	if err := insertDetailTx(ctx, tx, booking.ID, detail); err != nil {
		return err
	}

	if lock != nil {
		lock.BookingID = &booking.ID
		if err := tx.QueryRow(ctx, `INSERT INTO inventory_locks (id, booking_id, source, status, room_type_id, check_in, check_out, num_rooms, expires_at, external_ref)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at, updated_at`,
			lock.ID, lock.BookingID, lock.Source, lock.Status, lock.RoomTypeID, lock.CheckIn, lock.CheckOut, lock.NumRooms, lock.ExpiresAt, lock.ExternalRef).
			Scan(&lock.CreatedAt, &lock.UpdatedAt); err != nil {
			return err
		}
	}

	if err := auditTx(ctx, tx, booking.ID, "status", "", string(booking.Status), "system"); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertDetailTx(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID, detail domain.BookingDetail) error {
	switch d := detail.(type) {
	case *domain.HotelDetail:
		_, err := tx.Exec(ctx, `INSERT INTO hotel_booking_details (booking_id, room_type_id, check_in, check_out, num_rooms, num_guests,
			policy_type, policy_refund_percent, policy_free_cancel_until, policy_text, policy_locked_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			bookingID, d.RoomTypeID, d.CheckIn, d.CheckOut, d.NumRooms, d.NumGuests,
			d.Policy.Type, d.Policy.RefundPercent, d.Policy.FreeCancelUntil, d.Policy.Text, d.Policy.LockedAt)
		return err
	case *domain.BusDetail:
		travelers, err := json.Marshal(d.Travelers)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO bus_booking_details (booking_id, route_id, travel_date, seat_numbers, travelers)
			VALUES ($1, $2, $3, $4, $5)`, bookingID, d.RouteID, d.TravelDate, d.SeatNumbers, travelers)
		return err
	case *domain.PackageDetail:
		travelers, err := json.Marshal(d.Travelers)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO package_booking_details (booking_id, package_id, start_date, travelers)
			VALUES ($1, $2, $3, $4)`, bookingID, d.PackageID, d.StartDate, travelers)
		return err
	default:
		return fmt.Errorf("unknown booking detail type %T", detail)
	}
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	return b, err
}

func (r *PGBookingRepository) GetDetail(ctx context.Context, id uuid.UUID, bookingType domain.BookingType) (domain.BookingDetail, error) {
	switch bookingType {
	case domain.BookingTypeHotel:
		row := r.db.QueryRow(ctx, `SELECT booking_id, room_type_id, check_in, check_out, num_rooms, num_guests,
			policy_type, policy_refund_percent, policy_free_cancel_until, policy_text, policy_locked_at
			FROM hotel_booking_details WHERE booking_id=$1`, id)
		var d domain.HotelDetail
		if err := row.Scan(&d.BookingID, &d.RoomTypeID, &d.CheckIn, &d.CheckOut, &d.NumRooms, &d.NumGuests,
			&d.Policy.Type, &d.Policy.RefundPercent, &d.Policy.FreeCancelUntil, &d.Policy.Text, &d.Policy.LockedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrDetailNotFound
			}
			return nil, err
		}
		return &d, nil
	case domain.BookingTypeBus:
		row := r.db.QueryRow(ctx, `SELECT booking_id, route_id, travel_date, seat_numbers, travelers FROM bus_booking_details WHERE booking_id=$1`, id)
		var d domain.BusDetail
		var travelers []byte
		if err := row.Scan(&d.BookingID, &d.RouteID, &d.TravelDate, &d.SeatNumbers, &travelers); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrDetailNotFound
			}
			return nil, err
		}
		if err := json.Unmarshal(travelers, &d.Travelers); err != nil {
			return nil, err
		}
		return &d, nil
	case domain.BookingTypePackage:
		row := r.db.QueryRow(ctx, `SELECT booking_id, package_id, start_date, travelers FROM package_booking_details WHERE booking_id=$1`, id)
		var d domain.PackageDetail
		var travelers []byte
		if err := row.Scan(&d.BookingID, &d.PackageID, &d.StartDate, &travelers); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrDetailNotFound
			}
			return nil, err
		}
		if err := json.Unmarshal(travelers, &d.Travelers); err != nil {
			return nil, err
		}
		return &d, nil
	default:
		return nil, fmt.Errorf("unknown booking type %q", bookingType)
	}
}

func (r *PGBookingRepository) GetLock(ctx context.Context, bookingID uuid.UUID) (*domain.InventoryLock, error) {
	row := r.db.QueryRow(ctx, `SELECT id, booking_id, source, status, room_type_id, check_in, check_out, num_rooms, expires_at, external_ref, created_at, updated_at
		FROM inventory_locks WHERE booking_id=$1`, bookingID)
	var l domain.InventoryLock
	if err := row.Scan(&l.ID, &l.BookingID, &l.Source, &l.Status, &l.RoomTypeID, &l.CheckIn, &l.CheckOut, &l.NumRooms, &l.ExpiresAt, &l.ExternalRef, &l.CreatedAt, &l.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// ConfirmPayment moves a held booking to CONFIRMED under a row lock. The
// wallet debit, the lock confirmation and the status change commit together.
func (r *PGBookingRepository) ConfirmPayment(ctx context.Context, id uuid.UUID, walletAppliedPaise int64, now time.Time) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	b, err := lockBookingTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	prev := b.Status
	if err := b.Confirm(b.TotalPaise, now); err != nil {
		return nil, err
	}

	if walletAppliedPaise > 0 {
		note := fmt.Sprintf("payment for booking %s", b.ID)
		if _, err := debitWalletTx(ctx, tx, b.UserID, walletAppliedPaise, &b.ID, note); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE bookings SET status=$1, paid_paise=$2, confirmed_at=$3, expires_at=NULL, updated_at=now() WHERE id=$4`,
		b.Status, b.PaidPaise, b.ConfirmedAt, b.ID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE inventory_locks SET status=$1, updated_at=now() WHERE booking_id=$2 AND status=$3`,
		domain.LockStatusConfirmed, b.ID, domain.LockStatusActive); err != nil {
		return nil, err
	}
	if err := auditTx(ctx, tx, b.ID, "status", string(prev), string(b.Status), "payment"); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// MarkPaymentFailed releases the hold after a failed gateway attempt: status
// flips, an internal lock's rooms go back to the ledger, and the lock row is
// released, all in one transaction.
func (r *PGBookingRepository) MarkPaymentFailed(ctx context.Context, id uuid.UUID, now time.Time) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	b, err := lockBookingTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	prev := b.Status
	if err := b.MarkPaymentFailed(); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE id=$2`, b.Status, b.ID); err != nil {
		return nil, err
	}
	if err := releaseLockTx(ctx, tx, b.ID, domain.LockStatusReleased); err != nil {
		return nil, err
	}
	if err := auditTx(ctx, tx, b.ID, "status", string(prev), string(b.Status), "payment"); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// CancelWithRefund performs the whole cancellation in one transaction:
// status change, wallet refund with its ledger row, ledger restore and lock
// release. Cancelling an already-cancelled or refunded booking returns the
// current row with applied=false and no second refund.
func (r *PGBookingRepository) CancelWithRefund(ctx context.Context, id uuid.UUID, refundPaise int64, actor string, now time.Time) (*domain.Booking, bool, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	b, err := lockBookingTx(ctx, tx, id)
	if err != nil {
		return nil, false, err
	}
	switch b.Status {
	case domain.BookingStatusCancelled, domain.BookingStatusRefunded, domain.BookingStatusExpired:
		return b, false, nil
	}
	prev := b.Status
	if err := b.Cancel(refundPaise, now); err != nil {
		return nil, false, err
	}

	if _, err := tx.Exec(ctx, `UPDATE bookings SET status=$1, refund_paise=$2, cancelled_at=$3, expires_at=NULL, updated_at=now() WHERE id=$4`,
		b.Status, b.RefundPaise, b.CancelledAt, b.ID); err != nil {
		return nil, false, err
	}

	if refundPaise > 0 {
		note := fmt.Sprintf("refund for booking %s", b.ID)
		if _, err := creditWalletTx(ctx, tx, b.UserID, refundPaise, domain.WalletTxnRefund, &b.ID, note); err != nil {
			return nil, false, err
		}
	}

	if err := releaseLockTx(ctx, tx, b.ID, domain.LockStatusReleased); err != nil {
		return nil, false, err
	}
	if err := auditTx(ctx, tx, b.ID, "status", string(prev), string(b.Status), actor); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *PGBookingRepository) ListExpirable(ctx context.Context, deadline time.Time, limit int) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE status = ANY($1) AND expires_at <= $2 ORDER BY expires_at LIMIT $3`,
		[]string{string(domain.BookingStatusReserved), string(domain.BookingStatusPaymentPending)}, deadline, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// Expire is the sweeper's compare-and-set: the status and the deadline are
// re-checked under the row lock, so a booking that confirmed or cancelled
// after the sweep query read it is left alone (applied=false).
func (r *PGBookingRepository) Expire(ctx context.Context, id uuid.UUID, now time.Time) (*domain.Booking, bool, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	b, err := lockBookingTx(ctx, tx, id)
	if err != nil {
		return nil, false, err
	}
	if b.Status != domain.BookingStatusReserved && b.Status != domain.BookingStatusPaymentPending {
		return b, false, nil
	}
	if b.ExpiresAt == nil || now.Before(*b.ExpiresAt) {
		return b, false, nil
	}
	prev := b.Status
	if err := b.Expire(); err != nil {
		return nil, false, err
	}

	if _, err := tx.Exec(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE id=$2`, b.Status, b.ID); err != nil {
		return nil, false, err
	}
	if err := releaseLockTx(ctx, tx, b.ID, domain.LockStatusExpired); err != nil {
		return nil, false, err
	}
	if err := auditTx(ctx, tx, b.ID, "status", string(prev), string(b.Status), "sweeper"); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func lockBookingTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Booking, error) {
	b, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	return b, err
}

// releaseLockTx settles the inventory lock row and, for an internal lock
// that still holds rooms, puts them back on the ledger. Releasing an already
// settled lock is a no-op.
func releaseLockTx(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID, terminal domain.LockStatus) error {
	row := tx.QueryRow(ctx, `SELECT id, source, status, room_type_id, check_in, check_out, num_rooms FROM inventory_locks WHERE booking_id=$1 FOR UPDATE`, bookingID)
	var l domain.InventoryLock
	err := row.Scan(&l.ID, &l.Source, &l.Status, &l.RoomTypeID, &l.CheckIn, &l.CheckOut, &l.NumRooms)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if l.Settled() {
		return nil
	}

	if l.Source == domain.LockSourceInternal {
		if err := restoreRoomsTx(ctx, tx, l.RoomTypeID, l.CheckIn, l.CheckOut, l.NumRooms); err != nil {
			return err
		}
	}
	_, err = tx.Exec(ctx, `UPDATE inventory_locks SET status=$1, updated_at=now() WHERE id=$2`, terminal, l.ID)
	return err
}

func auditTx(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID, field, oldValue, newValue, actor string) error {
	_, err := tx.Exec(ctx, `INSERT INTO booking_audit_log (booking_id, field, old_value, new_value, actor) VALUES ($1, $2, $3, $4, $5)`,
		bookingID, field, oldValue, newValue, actor)
	return err
}

var _ BookingRepository = (*PGBookingRepository)(nil)
