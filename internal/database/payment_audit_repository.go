package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hotelpms/hotel-backend/internal/models"
)

const paymentAuditColumns = `id, reservation_id, payment_id, imp_uid, merchant_uid,
	event_type, event_source, expected_amount, received_amount, amounts_match,
	gateway_status, payload, error_message,
	ip_address, user_agent, device_type, browser, os, created_at`

// PaymentAuditRepository handles payment audit operations
type PaymentAuditRepository struct {
	db     DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Log appends an audit entry. Entries are never updated or deleted.
func (r *PaymentAuditRepository) Log(ctx context.Context, audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_audits (
			id, reservation_id, payment_id, imp_uid, merchant_uid,
			event_type, event_source,
			expected_amount, received_amount, amounts_match,
			gateway_status, payload, error_message,
			ip_address, user_agent, device_type, browser, os,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7,
			$8, $9, $10,
			$11, $12, $13,
			$14, $15, $16, $17, $18,
			$19
		)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.ReservationID, audit.PaymentID, audit.IMPUID, audit.MerchantUID,
		audit.EventType, audit.EventSource,
		audit.ExpectedAmount, audit.ReceivedAmount, audit.AmountsMatch,
		audit.GatewayStatus, audit.Payload, audit.ErrorMessage,
		audit.IPAddress, audit.UserAgent, audit.DeviceType, audit.Browser, audit.OS,
		audit.CreatedAt,
	)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": audit.EventType,
			"imp_uid":    audit.IMPUID,
		}).Error("Failed to write payment audit entry")
		return fmt.Errorf("failed to log payment audit: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"audit_id":   audit.ID,
		"event_type": audit.EventType,
	}).Debug("Payment audit logged")

	return nil
}

// GetByIMPUID retrieves all audit entries for a gateway transaction, oldest first
func (r *PaymentAuditRepository) GetByIMPUID(ctx context.Context, impUID string) ([]*models.PaymentAudit, error) {
	audits := []*models.PaymentAudit{}
	query := `SELECT ` + paymentAuditColumns + ` FROM payment_audits WHERE imp_uid = $1 ORDER BY created_at ASC`

	if err := r.db.SelectContext(ctx, &audits, query, impUID); err != nil {
		return nil, fmt.Errorf("failed to get audits by imp_uid: %w", err)
	}
	return audits, nil
}

// GetByReservation retrieves all audit entries for a reservation, oldest first
func (r *PaymentAuditRepository) GetByReservation(ctx context.Context, reservationID uuid.UUID) ([]*models.PaymentAudit, error) {
	audits := []*models.PaymentAudit{}
	query := `SELECT ` + paymentAuditColumns + ` FROM payment_audits WHERE reservation_id = $1 ORDER BY created_at ASC`

	if err := r.db.SelectContext(ctx, &audits, query, reservationID); err != nil {
		return nil, fmt.Errorf("failed to get audits by reservation: %w", err)
	}
	return audits, nil
}

// GetAmountMismatches retrieves the most recent entries whose amounts differed
func (r *PaymentAuditRepository) GetAmountMismatches(ctx context.Context, limit int) ([]*models.PaymentAudit, error) {
	audits := []*models.PaymentAudit{}
	query := `SELECT ` + paymentAuditColumns + ` FROM payment_audits WHERE amounts_match = FALSE ORDER BY created_at DESC LIMIT $1`

	if err := r.db.SelectContext(ctx, &audits, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get amount mismatches: %w", err)
	}
	return audits, nil
}
