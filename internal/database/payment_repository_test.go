package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelpms/hotel-backend/internal/models"
)

func newPayment(reservationID uuid.UUID) *models.Payment {
	return &models.Payment{
		ReservationID: reservationID,
		UserID:        uuid.New(),
		IMPUID:        "imp_100200300",
		MerchantUID:   "order_20240601_0001",
		Amount:        300000,
		PayMethod:     models.NewNullString("card"),
		PGProvider:    models.NewNullString("html5_inicis"),
	}
}

func TestPaymentRepository_CompleteWithReservation(t *testing.T) {
	ctx := context.Background()
	reservationID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPaymentRepository(db)
		payment := newPayment(reservationID)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status FROM reservations WHERE id = \$1 FOR UPDATE`).
			WithArgs(reservationID).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("RESERVED"))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM payments WHERE merchant_uid = \$1 OR imp_uid = \$2`).
			WithArgs("order_20240601_0001", "imp_100200300").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`INSERT INTO payments`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE reservations SET payment_status = \$2`).
			WithArgs(reservationID, "PAID", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.CompleteWithReservation(ctx, payment))
		assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
		assert.NotEqual(t, uuid.Nil, payment.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate Merchant UID Writes Nothing", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPaymentRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status FROM reservations`).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("RESERVED"))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM payments`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectRollback()

		err := repo.CompleteWithReservation(ctx, newPayment(reservationID))
		assert.ErrorIs(t, err, ErrDuplicate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unique Violation Race", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPaymentRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status FROM reservations`).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("RESERVED"))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM payments`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`INSERT INTO payments`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "payments_merchant_uid_key"})
		mock.ExpectRollback()

		err := repo.CompleteWithReservation(ctx, newPayment(reservationID))
		assert.ErrorIs(t, err, ErrDuplicate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Cancelled Reservation", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPaymentRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status FROM reservations`).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("CANCELLED"))
		mock.ExpectRollback()

		err := repo.CompleteWithReservation(ctx, newPayment(reservationID))
		assert.ErrorIs(t, err, ErrStaleState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Reservation Missing", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPaymentRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status FROM reservations`).WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		err := repo.CompleteWithReservation(ctx, newPayment(reservationID))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPaymentRepository_MarkCancelled(t *testing.T) {
	ctx := context.Background()
	paymentID := uuid.New()
	reservationID := uuid.New()
	at := time.Date(2024, 6, 2, 9, 30, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPaymentRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE payments\s+SET status = 'CANCELLED'(.+)WHERE id = \$1 AND status = 'COMPLETED'\s+RETURNING reservation_id`).
			WithArgs(paymentID, "guest request", at).
			WillReturnRows(sqlmock.NewRows([]string{"reservation_id"}).AddRow(reservationID.String()))
		mock.ExpectExec(`UPDATE reservations SET status = \$2, payment_status = \$3`).
			WithArgs(reservationID, "CANCELLED", "REFUNDED", at).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.MarkCancelled(ctx, paymentID, "guest request", at))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Cancelled", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPaymentRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE payments`).WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		err := repo.MarkCancelled(ctx, paymentID, "again", at)
		assert.ErrorIs(t, err, ErrStaleState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentRepository_GetByUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	userID := uuid.New()

	mock.ExpectQuery(`FROM payments WHERE user_id = \$1 ORDER BY created_at DESC`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	payments, err := repo.GetByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, payments)
	assert.NotNil(t, payments)
	assert.NoError(t, mock.ExpectationsWereMet())
}
