package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tripora/booking/internal/domain"
)

type InventoryRepository interface {
	GetRoomType(ctx context.Context, id uuid.UUID) (*domain.RoomType, error)
	StayAvailability(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time) ([]domain.RoomAvailability, error)
	GetCancellationPolicy(ctx context.Context, roomTypeID uuid.UUID) (*domain.RoomPolicy, error)
	Reserve(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time, numRooms int) error
	Restore(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time, numRooms int) error
}

type PGInventoryRepository struct {
	db *pgxpool.Pool
}

func NewInventoryRepository(db *pgxpool.Pool) *PGInventoryRepository {
	return &PGInventoryRepository{db: db}
}

func (r *PGInventoryRepository) GetRoomType(ctx context.Context, id uuid.UUID) (*domain.RoomType, error) {
	row := r.db.QueryRow(ctx, `SELECT id, hotel_id, name, total_rooms, base_price_paise, channel_source FROM room_types WHERE id=$1`, id)
	var rt domain.RoomType
	if err := row.Scan(&rt.ID, &rt.HotelID, &rt.Name, &rt.TotalRooms, &rt.BasePricePaise, &rt.Source); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomTypeNotFound
		}
		return nil, err
	}
	return &rt, nil
}

func (r *PGInventoryRepository) StayAvailability(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time) ([]domain.RoomAvailability, error) {
	rows, err := r.db.Query(ctx, `SELECT room_type_id, date, available_rooms, price_paise FROM room_availability
		WHERE room_type_id=$1 AND date >= $2 AND date < $3 ORDER BY date`, roomTypeID, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	avail := make([]domain.RoomAvailability, 0)
	for rows.Next() {
		var a domain.RoomAvailability
		if err := rows.Scan(&a.RoomTypeID, &a.Date, &a.AvailableRooms, &a.PricePaise); err != nil {
			return nil, err
		}
		avail = append(avail, a)
	}
	return avail, rows.Err()
}

func (r *PGInventoryRepository) GetCancellationPolicy(ctx context.Context, roomTypeID uuid.UUID) (*domain.RoomPolicy, error) {
	row := r.db.QueryRow(ctx, `SELECT room_type_id, policy_type, refund_percent, free_cancel_hours, policy_text
		FROM room_cancellation_policies WHERE room_type_id=$1 AND active`, roomTypeID)
	var p domain.RoomPolicy
	if err := row.Scan(&p.RoomTypeID, &p.Type, &p.RefundPercent, &p.FreeCancelHours, &p.Text); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPolicyNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGInventoryRepository) Reserve(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time, numRooms int) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := reserveRoomsTx(ctx, tx, roomTypeID, checkIn, checkOut, numRooms); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PGInventoryRepository) Restore(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time, numRooms int) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := restoreRoomsTx(ctx, tx, roomTypeID, checkIn, checkOut, numRooms); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// reserveRoomsTx decrements availability for every night of the stay inside
// the caller's transaction. Pass one locks and validates every date row, pass
// two applies the decrement, so a failed date leaves no partial decrement.
// Dates are locked in ascending order to keep concurrent reservations
// deadlock-free.
func reserveRoomsTx(ctx context.Context, tx pgx.Tx, roomTypeID uuid.UUID, checkIn, checkOut time.Time, numRooms int) error {
	for date := checkIn; date.Before(checkOut); date = date.AddDate(0, 0, 1) {
		var available int
		err := tx.QueryRow(ctx, `SELECT available_rooms FROM room_availability WHERE room_type_id=$1 AND date=$2 FOR UPDATE`,
			roomTypeID, date).Scan(&available)
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.AvailabilityError{RoomTypeID: roomTypeID, Date: date, Requested: numRooms, Available: 0}
		}
		if err != nil {
			return err
		}
		if available < numRooms {
			return &domain.AvailabilityError{RoomTypeID: roomTypeID, Date: date, Requested: numRooms, Available: available}
		}
	}

	for date := checkIn; date.Before(checkOut); date = date.AddDate(0, 0, 1) {
		if _, err := tx.Exec(ctx, `UPDATE room_availability SET available_rooms = available_rooms - $1 WHERE room_type_id=$2 AND date=$3`,
			numRooms, roomTypeID, date); err != nil {
			return err
		}
	}
	return nil
}

// restoreRoomsTx is the symmetric increment. A missing date row is backfilled
// at the room's full capacity and base price, since a row that was never
// decremented already has all its rooms free.
func restoreRoomsTx(ctx context.Context, tx pgx.Tx, roomTypeID uuid.UUID, checkIn, checkOut time.Time, numRooms int) error {
	for date := checkIn; date.Before(checkOut); date = date.AddDate(0, 0, 1) {
		tag, err := tx.Exec(ctx, `UPDATE room_availability SET available_rooms = available_rooms + $1 WHERE room_type_id=$2 AND date=$3`,
			numRooms, roomTypeID, date)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			if _, err := tx.Exec(ctx, `INSERT INTO room_availability (room_type_id, date, available_rooms, price_paise)
				SELECT id, $2, total_rooms, base_price_paise FROM room_types WHERE id=$1`, roomTypeID, date); err != nil {
				return err
			}
		}
	}
	return nil
}

var _ InventoryRepository = (*PGInventoryRepository)(nil)
