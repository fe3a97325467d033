package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the lifecycle of a recorded payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// Payment records a settled gateway transaction for a reservation.
// IMPUID (gateway transaction id) and MerchantUID (our order id) are both unique.
type Payment struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	ReservationID uuid.UUID     `json:"reservation_id" db:"reservation_id"`
	UserID        uuid.UUID     `json:"user_id" db:"user_id"`
	IMPUID        string        `json:"imp_uid" db:"imp_uid"`
	MerchantUID   string        `json:"merchant_uid" db:"merchant_uid"`
	Amount        int64         `json:"amount" db:"amount"`
	Status        PaymentStatus `json:"status" db:"status"`
	PayMethod     NullString    `json:"pay_method,omitempty" db:"pay_method"`
	PGProvider    NullString    `json:"pg_provider,omitempty" db:"pg_provider"`
	ApplyNum      NullString    `json:"apply_num,omitempty" db:"apply_num"`
	CardNumber    NullString    `json:"card_number,omitempty" db:"card_number"`
	CardName      NullString    `json:"card_name,omitempty" db:"card_name"`
	FailReason    NullString    `json:"fail_reason,omitempty" db:"fail_reason"`
	CancelAmount  int64         `json:"cancel_amount" db:"cancel_amount"`
	CancelReason  NullString    `json:"cancel_reason,omitempty" db:"cancel_reason"`
	CancelledAt   NullTime      `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// IsCancellable reports whether the payment can still be refunded
func (p *Payment) IsCancellable() bool {
	return p.Status == PaymentStatusCompleted
}
