package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hotelpms/hotel-backend/internal/models"
)

const reservationSelect = `
	SELECT r.id, r.user_id, r.room_id, rm.room_number, rm.room_type,
	       r.check_in, r.check_out, r.people, r.guest_name, r.guest_phone, r.message,
	       r.status, r.payment_status, r.created_at, r.updated_at
	FROM reservations r
	JOIN rooms rm ON rm.id = r.room_id`

// ReservationRepository handles reservation ledger operations
type ReservationRepository struct {
	db DB
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Book inserts a new reservation for res.RoomID.
//
// The room row is locked for the duration of the transaction so concurrent
// bookings of the same room serialize on the overlap check. Returns ErrNotFound
// when the room does not exist and ErrOverlap when the stay collides with an
// active reservation.
func (r *ReservationRepository) Book(ctx context.Context, res *models.Reservation) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	now := time.Now()
	res.CreatedAt = now
	res.UpdatedAt = now

	return r.withRoomLock(ctx, res, uuid.Nil, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reservations (
				id, user_id, room_id, check_in, check_out, people,
				guest_name, guest_phone, message, status, payment_status,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`,
			res.ID, res.UserID, res.RoomID, res.CheckIn, res.CheckOut, res.People,
			res.GuestName, res.GuestPhone, res.Message, res.Status, res.PaymentStatus,
			res.CreatedAt, res.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert reservation: %w", classify(err))
		}
		return nil
	})
}

// Rebook rewrites the room, stay, party and contact fields of an existing
// reservation under the same room lock as Book. The reservation's own row is
// excluded from the overlap check.
func (r *ReservationRepository) Rebook(ctx context.Context, res *models.Reservation) error {
	res.UpdatedAt = time.Now()

	return r.withRoomLock(ctx, res, res.ID, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE reservations
			SET room_id = $2, check_in = $3, check_out = $4, people = $5,
			    guest_name = $6, guest_phone = $7, message = $8, updated_at = $9
			WHERE id = $1
		`,
			res.ID, res.RoomID, res.CheckIn, res.CheckOut, res.People,
			res.GuestName, res.GuestPhone, res.Message, res.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update reservation: %w", classify(err))
		}
		return requireRow(result, "failed to update reservation")
	})
}

// withRoomLock runs write inside a transaction holding the room row lock,
// after checking that no other active reservation overlaps res.
func (r *ReservationRepository) withRoomLock(ctx context.Context, res *models.Reservation, excludeID uuid.UUID, write func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var room struct {
		RoomNumber string `db:"room_number"`
		RoomType   string `db:"room_type"`
	}
	err = tx.GetContext(ctx, &room, `SELECT room_number, room_type FROM rooms WHERE id = $1 FOR UPDATE`, res.RoomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to lock room: %w", ErrNotFound)
		}
		return fmt.Errorf("failed to lock room: %w", err)
	}

	var conflicts int
	err = tx.GetContext(ctx, &conflicts, `
		SELECT COUNT(*) FROM reservations
		WHERE room_id = $1
		  AND status <> 'CANCELLED'
		  AND check_out > $2
		  AND check_in < $3
		  AND id <> $4
	`, res.RoomID, res.CheckIn, res.CheckOut, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check overlapping reservations: %w", err)
	}
	if conflicts > 0 {
		return ErrOverlap
	}

	if err := write(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", classify(err))
	}

	res.RoomNumber = room.RoomNumber
	res.RoomType = room.RoomType
	return nil
}

// GetByID retrieves a reservation by ID
func (r *ReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var res models.Reservation
	err := r.db.GetContext(ctx, &res, reservationSelect+` WHERE r.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &res, nil
}

// GetByUser returns a user's reservations, most recent stay first
func (r *ReservationRepository) GetByUser(ctx context.Context, userID uuid.UUID) ([]*models.Reservation, error) {
	return r.list(ctx, reservationSelect+` WHERE r.user_id = $1 ORDER BY r.check_in DESC, r.created_at DESC`, userID)
}

// GetAll returns every reservation
func (r *ReservationRepository) GetAll(ctx context.Context) ([]*models.Reservation, error) {
	return r.list(ctx, reservationSelect+` ORDER BY r.check_in DESC, r.created_at DESC`)
}

// GetByDate returns reservations whose stay covers the night of date,
// that is check_in <= date < check_out.
func (r *ReservationRepository) GetByDate(ctx context.Context, date models.Date) ([]*models.Reservation, error) {
	return r.list(ctx, reservationSelect+` WHERE r.check_in <= $1 AND r.check_out > $1 ORDER BY rm.room_number`, date)
}

// UpdateStatus overwrites the booking status
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReservationStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", classify(err))
	}
	return requireRow(result, "failed to update reservation status")
}

// CancelUnpaid marks a reservation CANCELLED with a FAILED payment status.
// A reservation that is already PAID is left alone and ErrStaleState is
// returned, so a completion that commits first always wins.
func (r *ReservationRepository) CancelUnpaid(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE reservations
		SET status = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $1 AND payment_status <> $4
	`, id, models.ReservationStatusCancelled, models.ReservationPaymentFailed, models.ReservationPaymentPaid)
	if err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", classify(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("reservation %s is paid or missing: %w", id, ErrStaleState)
	}
	return nil
}

// Delete hard-deletes a reservation and reports whether a row existed.
// Deleting a missing id is not an error. A reservation with payments cannot
// be deleted and yields ErrInUse.
func (r *ReservationRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete reservation: %w", classify(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete reservation: %w", err)
	}
	return n > 0, nil
}

func (r *ReservationRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Reservation, error) {
	reservations := []*models.Reservation{}
	if err := r.db.SelectContext(ctx, &reservations, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}
