package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hotelpms/hotel-backend/internal/models"
)

const paymentColumns = `id, reservation_id, user_id, imp_uid, merchant_uid, amount, status,
	pay_method, pg_provider, apply_num, card_number, card_name, fail_reason,
	cancel_amount, cancel_reason, cancelled_at, created_at, updated_at`

// PaymentRepository handles payment records
type PaymentRepository struct {
	db DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// CompleteWithReservation records a COMPLETED payment and marks its
// reservation PAID in one transaction.
//
// The reservation row is locked first. Errors:
//   - ErrNotFound when the reservation does not exist
//   - ErrStaleState when the reservation is CANCELLED
//   - ErrDuplicate when a payment with the same merchant_uid or imp_uid exists
func (r *PaymentRepository) CompleteWithReservation(ctx context.Context, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	now := time.Now()
	payment.Status = models.PaymentStatusCompleted
	payment.CreatedAt = now
	payment.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status models.ReservationStatus
	err = tx.GetContext(ctx, &status, `SELECT status FROM reservations WHERE id = $1 FOR UPDATE`, payment.ReservationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to lock reservation: %w", ErrNotFound)
		}
		return fmt.Errorf("failed to lock reservation: %w", err)
	}
	if status == models.ReservationStatusCancelled {
		return fmt.Errorf("reservation %s is cancelled: %w", payment.ReservationID, ErrStaleState)
	}

	var existing int
	err = tx.GetContext(ctx, &existing,
		`SELECT COUNT(*) FROM payments WHERE merchant_uid = $1 OR imp_uid = $2`,
		payment.MerchantUID, payment.IMPUID)
	if err != nil {
		return fmt.Errorf("failed to check existing payment: %w", err)
	}
	if existing > 0 {
		return fmt.Errorf("payment %s already recorded: %w", payment.MerchantUID, ErrDuplicate)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (
			id, reservation_id, user_id, imp_uid, merchant_uid, amount, status,
			pay_method, pg_provider, apply_num, card_number, card_name,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		payment.ID, payment.ReservationID, payment.UserID, payment.IMPUID, payment.MerchantUID,
		payment.Amount, payment.Status,
		payment.PayMethod, payment.PGProvider, payment.ApplyNum, payment.CardNumber, payment.CardName,
		payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", classify(err))
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE reservations SET payment_status = $2, updated_at = $3 WHERE id = $1`,
		payment.ReservationID, models.ReservationPaymentPaid, now)
	if err != nil {
		return fmt.Errorf("failed to mark reservation paid: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payment: %w", classify(err))
	}
	return nil
}

// MarkCancelled records a refunded payment and cancels its reservation in
// one transaction. Only a COMPLETED payment is updated; anything else,
// including a cancel that lost a race, yields ErrStaleState.
func (r *PaymentRepository) MarkCancelled(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var reservationID uuid.UUID
	err = tx.GetContext(ctx, &reservationID, `
		UPDATE payments
		SET status = 'CANCELLED', cancel_amount = amount, cancel_reason = $2,
		    cancelled_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'COMPLETED'
		RETURNING reservation_id
	`, id, reason, at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("payment %s is not cancellable: %w", id, ErrStaleState)
		}
		return fmt.Errorf("failed to cancel payment: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE reservations SET status = $2, payment_status = $3, updated_at = $4 WHERE id = $1`,
		reservationID, models.ReservationStatusCancelled, models.ReservationPaymentRefunded, at)
	if err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}
	return nil
}

// GetByID retrieves a payment by ID
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

// GetByMerchantUID retrieves a payment by our order id
func (r *PaymentRepository) GetByMerchantUID(ctx context.Context, merchantUID string) (*models.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE merchant_uid = $1`, merchantUID)
}

// GetByUser returns a user's payments, newest first
func (r *PaymentRepository) GetByUser(ctx context.Context, userID uuid.UUID) ([]*models.Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// GetByReservation returns the payments recorded against a reservation
func (r *PaymentRepository) GetByReservation(ctx context.Context, reservationID uuid.UUID) ([]*models.Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments WHERE reservation_id = $1 ORDER BY created_at DESC`, reservationID)
}

func (r *PaymentRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (r *PaymentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Payment, error) {
	payments := []*models.Payment{}
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}
