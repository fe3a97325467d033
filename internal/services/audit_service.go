package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hotelpms/hotel-backend/internal/models"
	"github.com/hotelpms/hotel-backend/internal/utils"
)

const (
	defaultMismatchLimit = 50
	maxMismatchLimit     = 500
)

// AuditService writes and reads the payment audit trail.
// Writes never fail the calling operation: errors are logged and dropped.
type AuditService struct {
	store   PaymentAuditStore
	logger  *logrus.Logger
	enabled bool
}

// NewAuditService creates a new audit service. When enabled is false,
// Record only logs the event.
func NewAuditService(store PaymentAuditStore, logger *logrus.Logger, enabled bool) *AuditService {
	return &AuditService{
		store:   store,
		logger:  logger,
		enabled: enabled,
	}
}

// Record stamps the entry with the caller attached to ctx and appends it
func (s *AuditService) Record(ctx context.Context, audit *models.PaymentAudit) {
	if s == nil || audit == nil {
		return
	}

	client := ClientInfoFrom(ctx)
	if client.IP != "" || client.UserAgent != "" {
		audit.SetClient(client.IP, client.UserAgent, utils.ParseUserAgent(client.UserAgent))
	}

	fields := logrus.Fields{
		"event_type":   audit.EventType,
		"event_source": audit.EventSource,
	}
	if audit.IMPUID != nil {
		fields["imp_uid"] = *audit.IMPUID
	}
	if audit.AmountsMatch != nil && !*audit.AmountsMatch {
		s.logger.WithFields(fields).WithFields(logrus.Fields{
			"expected_amount": *audit.ExpectedAmount,
			"received_amount": *audit.ReceivedAmount,
		}).Warn("Payment amount mismatch")
	}

	if !s.enabled {
		s.logger.WithFields(fields).Debug("Payment audit event")
		return
	}

	// the request context may already be cancelled when a failure is audited
	if err := s.store.Log(context.WithoutCancel(ctx), audit); err != nil {
		s.logger.WithError(err).WithFields(fields).Warn("Failed to record payment audit")
	}
}

// AmountMismatches returns the newest entries whose amounts differed
func (s *AuditService) AmountMismatches(ctx context.Context, limit int) ([]*models.PaymentAudit, error) {
	if limit <= 0 {
		limit = defaultMismatchLimit
	}
	if limit > maxMismatchLimit {
		limit = maxMismatchLimit
	}
	return s.store.GetAmountMismatches(ctx, limit)
}

// ByIMPUID returns the trail of one gateway transaction
func (s *AuditService) ByIMPUID(ctx context.Context, impUID string) ([]*models.PaymentAudit, error) {
	return s.store.GetByIMPUID(ctx, impUID)
}

// ByReservation returns the trail of one reservation
func (s *AuditService) ByReservation(ctx context.Context, reservationID uuid.UUID) ([]*models.PaymentAudit, error) {
	return s.store.GetByReservation(ctx, reservationID)
}
