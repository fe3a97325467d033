package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hotelpms/hotel-backend/internal/database"
	"github.com/hotelpms/hotel-backend/internal/events"
	"github.com/hotelpms/hotel-backend/internal/models"
	"github.com/hotelpms/hotel-backend/pkg/portone"
)

const defaultCancelReason = "cancelled by administrator"

// VerificationResult is what the gateway confirmed about a transaction
type VerificationResult struct {
	IMPUID      string `json:"imp_uid"`
	MerchantUID string `json:"merchant_uid"`
	Amount      int64  `json:"amount"`
	Status      string `json:"status"`
	PayMethod   string `json:"pay_method,omitempty"`
	PGProvider  string `json:"pg_provider,omitempty"`
}

// CompletePaymentParams is the client's claim that a reservation was paid
type CompletePaymentParams struct {
	ReservationID uuid.UUID
	IMPUID        string
	MerchantUID   string
	PaidAmount    int64
	PayMethod     string
	PGProvider    string
}

// WebhookNotification is the body PortOne posts on payment state changes
type WebhookNotification struct {
	IMPUID      string `json:"imp_uid"`
	MerchantUID string `json:"merchant_uid"`
	Status      string `json:"status"`
}

// PaymentService reconciles reservations with gateway transactions
type PaymentService struct {
	payments     PaymentStore
	reservations ReservationStore
	users        UserStore
	gateway      PaymentGateway
	audit        *AuditService
	publisher    events.Publisher
	logger       *logrus.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	payments PaymentStore,
	reservations ReservationStore,
	users UserStore,
	gateway PaymentGateway,
	audit *AuditService,
	publisher events.Publisher,
	logger *logrus.Logger,
) *PaymentService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &PaymentService{
		payments:     payments,
		reservations: reservations,
		users:        users,
		gateway:      gateway,
		audit:        audit,
		publisher:    publisher,
		logger:       logger,
	}
}

// VerifyPayment checks a transaction against the gateway without recording anything
func (s *PaymentService) VerifyPayment(ctx context.Context, impUID, merchantUID string) (*VerificationResult, error) {
	audit := models.NewPaymentAudit(models.PaymentEventVerified, models.PaymentSourceGateway).
		SetGatewayRefs(impUID, merchantUID)

	info, err := s.fetch(ctx, impUID, audit)
	if err != nil {
		return nil, err
	}

	if err := checkGatewayRecord(info, merchantUID); err != nil {
		s.fail(ctx, audit, models.PaymentEventVerifyFailed, err)
		return nil, err
	}

	s.audit.Record(ctx, audit)

	return &VerificationResult{
		IMPUID:      info.IMPUID,
		MerchantUID: info.MerchantUID,
		Amount:      info.Amount,
		Status:      info.Status,
		PayMethod:   info.PayMethod,
		PGProvider:  info.PGProvider,
	}, nil
}

// CompletePayment records a verified payment and marks the reservation PAID.
//
// The gateway must report the transaction as paid with exactly the claimed
// amount. A merchant_uid or imp_uid that was already recorded yields
// ErrAlreadyProcessed, and a cancelled reservation yields ErrReservationCancelled.
func (s *PaymentService) CompletePayment(ctx context.Context, p CompletePaymentParams) (*models.Payment, error) {
	audit := models.NewPaymentAudit(models.PaymentEventCompleted, models.PaymentSourceBackend).
		SetReservation(p.ReservationID).
		SetGatewayRefs(p.IMPUID, p.MerchantUID)

	res, err := s.reservations.GetByID(ctx, p.ReservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if res == nil {
		return nil, notFound("reservation", p.ReservationID)
	}
	if !res.IsActive() {
		err := fmt.Errorf("reservation %s: %w", res.ID, ErrReservationCancelled)
		s.fail(ctx, audit, models.PaymentEventCompleteFailed, err)
		return nil, err
	}

	existing, err := s.payments.GetByMerchantUID(ctx, p.MerchantUID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing payment: %w", err)
	}
	if existing != nil {
		err := fmt.Errorf("merchant_uid %s: %w", p.MerchantUID, ErrAlreadyProcessed)
		s.fail(ctx, audit, models.PaymentEventDuplicate, err)
		return nil, err
	}

	info, err := s.fetch(ctx, p.IMPUID, audit)
	if err != nil {
		return nil, err
	}

	if err := checkGatewayRecord(info, p.MerchantUID); err != nil {
		s.fail(ctx, audit, models.PaymentEventCompleteFailed, err)
		return nil, err
	}

	if !audit.SetAmounts(p.PaidAmount, info.Amount) {
		err := fmt.Errorf("%w: claimed %d, gateway %d", ErrAmountMismatch, p.PaidAmount, info.Amount)
		s.fail(ctx, audit, models.PaymentEventAmountMismatch, err)
		return nil, err
	}

	payment := &models.Payment{
		ReservationID: res.ID,
		UserID:        res.UserID,
		IMPUID:        p.IMPUID,
		MerchantUID:   p.MerchantUID,
		Amount:        info.Amount,
		PayMethod:     models.NewNullString(firstNonEmpty(info.PayMethod, p.PayMethod)),
		PGProvider:    models.NewNullString(firstNonEmpty(info.PGProvider, p.PGProvider)),
		ApplyNum:      models.NewNullString(info.ApplyNum),
		CardNumber:    models.NewNullString(info.CardNumber),
		CardName:      models.NewNullString(info.CardName),
	}

	if err := s.payments.CompleteWithReservation(ctx, payment); err != nil {
		var mapped error
		eventType := models.PaymentEventCompleteFailed
		switch {
		case errors.Is(err, database.ErrDuplicate):
			mapped = fmt.Errorf("merchant_uid %s: %w", p.MerchantUID, ErrAlreadyProcessed)
			eventType = models.PaymentEventDuplicate
		case errors.Is(err, database.ErrStaleState):
			mapped = fmt.Errorf("reservation %s: %w", res.ID, ErrReservationCancelled)
		case isRepoNotFound(err):
			mapped = notFound("reservation", res.ID)
		default:
			mapped = fmt.Errorf("failed to record payment: %w", err)
		}
		s.fail(ctx, audit, eventType, mapped)
		return nil, mapped
	}
	res.PaymentStatus = models.ReservationPaymentPaid

	s.audit.Record(ctx, audit.SetPayment(payment.ID).SetGatewayStatus(info.Status))

	s.logger.WithFields(logrus.Fields{
		"payment_id":     payment.ID,
		"reservation_id": res.ID,
		"merchant_uid":   payment.MerchantUID,
		"amount":         payment.Amount,
	}).Info("Payment completed")

	publish(ctx, s.publisher, s.logger, events.PaymentCompleted, payment)
	return payment, nil
}

// CancelReservationOnPaymentFailure cancels a reservation whose payment did
// not go through. No payment row is touched. A PAID reservation must be
// refunded with CancelPayment instead; the PAID check is part of the update
// so a completion committed in between is never overwritten.
func (s *PaymentService) CancelReservationOnPaymentFailure(ctx context.Context, reservationID uuid.UUID) error {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return fmt.Errorf("failed to load reservation: %w", err)
	}
	if res == nil {
		return notFound("reservation", reservationID)
	}
	if res.PaymentStatus == models.ReservationPaymentPaid {
		return fmt.Errorf("reservation %s is paid: %w", reservationID, ErrNotCancellable)
	}

	if err := s.reservations.CancelUnpaid(ctx, reservationID); err != nil {
		if errors.Is(err, database.ErrStaleState) {
			return fmt.Errorf("reservation %s is paid: %w", reservationID, ErrNotCancellable)
		}
		return err
	}

	s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventFailureCancelled, models.PaymentSourceUser).
		SetReservation(reservationID))

	s.logger.WithField("reservation_id", reservationID).Info("Reservation cancelled after payment failure")

	res.Status = models.ReservationStatusCancelled
	res.PaymentStatus = models.ReservationPaymentFailed
	publish(ctx, s.publisher, s.logger, events.ReservationCancelled, res)
	return nil
}

// CancelPayment refunds a completed payment in full and cancels its reservation.
//
// The gateway refund happens first; if it fails nothing is written locally.
// The local update only applies to a payment that is still COMPLETED, so of
// two concurrent cancels exactly one succeeds.
func (s *PaymentService) CancelPayment(ctx context.Context, paymentID uuid.UUID, reason string) (*models.Payment, error) {
	if reason == "" {
		reason = defaultCancelReason
	}

	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if payment == nil {
		return nil, notFound("payment", paymentID)
	}

	audit := models.NewPaymentAudit(models.PaymentEventCancelRequested, models.PaymentSourceAdmin).
		SetPayment(payment.ID).
		SetReservation(payment.ReservationID).
		SetGatewayRefs(payment.IMPUID, payment.MerchantUID)

	if !payment.IsCancellable() {
		err := fmt.Errorf("payment %s is %s: %w", payment.ID, payment.Status, ErrNotCancellable)
		s.fail(ctx, audit, models.PaymentEventCancelFailed, err)
		return nil, err
	}

	s.audit.Record(ctx, audit)

	result, err := s.gateway.CancelPayment(ctx, payment.IMPUID, payment.Amount, reason)
	if err != nil {
		mapped := gatewayError("failed to cancel payment at gateway", err)
		s.fail(ctx, cloneAudit(audit), models.PaymentEventCancelFailed, mapped)
		return nil, mapped
	}

	now := time.Now()
	if err := s.payments.MarkCancelled(ctx, payment.ID, reason, now); err != nil {
		if errors.Is(err, database.ErrStaleState) {
			return nil, fmt.Errorf("payment %s: %w", payment.ID, ErrNotCancellable)
		}
		s.logger.WithError(err).WithFields(logrus.Fields{
			"payment_id": payment.ID,
			"imp_uid":    payment.IMPUID,
		}).Error("Payment refunded at gateway but local cancellation failed")
		return nil, fmt.Errorf("failed to record cancellation: %w", err)
	}

	payment.Status = models.PaymentStatusCancelled
	payment.CancelAmount = payment.Amount
	payment.CancelReason = models.NewNullString(reason)
	payment.CancelledAt = models.NewNullTime(now)
	payment.UpdatedAt = now

	done := cloneAudit(audit)
	done.EventType = models.PaymentEventCancelled
	done.SetGatewayStatus(result.Status)
	s.audit.Record(ctx, done)

	s.logger.WithFields(logrus.Fields{
		"payment_id":     payment.ID,
		"reservation_id": payment.ReservationID,
		"amount":         payment.Amount,
	}).Info("Payment cancelled")

	publish(ctx, s.publisher, s.logger, events.PaymentCancelled, payment)
	return payment, nil
}

// GetUserPayments returns a user's payments, newest first
func (s *PaymentService) GetUserPayments(ctx context.Context, userID uuid.UUID) ([]*models.Payment, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, notFound("user", userID)
	}
	return s.payments.GetByUser(ctx, userID)
}

// GetPayment returns one payment
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if payment == nil {
		return nil, notFound("payment", id)
	}
	return payment, nil
}

// GetPaymentsByReservation returns the payments recorded for a reservation
func (s *PaymentService) GetPaymentsByReservation(ctx context.Context, reservationID uuid.UUID) ([]*models.Payment, error) {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if res == nil {
		return nil, notFound("reservation", reservationID)
	}
	return s.payments.GetByReservation(ctx, reservationID)
}

// HandleWebhook acknowledges a gateway notification. It is audited and
// published but changes no state; completion and cancellation only happen
// through CompletePayment and CancelPayment.
func (s *PaymentService) HandleWebhook(ctx context.Context, n WebhookNotification) error {
	audit := models.NewPaymentAudit(models.PaymentEventWebhookReceived, models.PaymentSourceWebhook).
		SetGatewayRefs(n.IMPUID, n.MerchantUID).
		SetPayload(map[string]interface{}{
			"imp_uid":      n.IMPUID,
			"merchant_uid": n.MerchantUID,
			"status":       n.Status,
		})
	if n.Status != "" {
		audit.SetGatewayStatus(n.Status)
	}
	s.audit.Record(ctx, audit)

	s.logger.WithFields(logrus.Fields{
		"imp_uid":      n.IMPUID,
		"merchant_uid": n.MerchantUID,
		"status":       n.Status,
	}).Info("PortOne webhook received")

	publish(ctx, s.publisher, s.logger, events.PaymentWebhookReceived, n)
	return nil
}

// fetch looks the transaction up at the gateway, auditing failures
func (s *PaymentService) fetch(ctx context.Context, impUID string, audit *models.PaymentAudit) (*portone.PaymentInfo, error) {
	info, err := s.gateway.GetPayment(ctx, impUID)
	if err != nil {
		mapped := gatewayError("failed to fetch payment from gateway", err)
		eventType := models.PaymentEventVerifyFailed
		if errors.Is(mapped, ErrGatewayUnreachable) {
			eventType = models.PaymentEventGatewayUnreachable
		}
		s.fail(ctx, audit, eventType, mapped)
		return nil, mapped
	}
	audit.SetGatewayStatus(info.Status)
	return info, nil
}

// fail records audit as a failed event
func (s *PaymentService) fail(ctx context.Context, audit *models.PaymentAudit, eventType models.PaymentEventType, err error) {
	audit.EventType = eventType
	audit.SetError(err)
	s.audit.Record(ctx, audit)
}

// checkGatewayRecord validates the gateway's view of a transaction against our order
func checkGatewayRecord(info *portone.PaymentInfo, merchantUID string) error {
	if info.MerchantUID != merchantUID {
		return fmt.Errorf("%w: expected %s, gateway has %s", ErrMerchantRefMismatch, merchantUID, info.MerchantUID)
	}
	if !info.IsPaid() {
		return fmt.Errorf("%w: gateway status %q", ErrNotPaid, info.Status)
	}
	return nil
}

// cloneAudit copies an entry so a follow-up event gets its own row
func cloneAudit(a *models.PaymentAudit) *models.PaymentAudit {
	c := *a
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	return &c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
