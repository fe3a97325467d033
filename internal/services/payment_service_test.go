package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelpms/hotel-backend/internal/events"
	"github.com/hotelpms/hotel-backend/internal/models"
	"github.com/hotelpms/hotel-backend/pkg/portone"
)

type paymentFixture struct {
	rooms        *fakeRoomStore
	reservations *fakeReservationStore
	users        *fakeUserStore
	payments     *fakePaymentStore
	audits       *fakeAuditStore
	gateway      *fakeGateway
	publisher    *fakePublisher
	service      *PaymentService
	guest        *models.User
	reservation  *models.Reservation
}

func newPaymentFixture() *paymentFixture {
	rooms := newFakeRoomStore()
	reservations := newFakeReservationStore(rooms)
	users := newFakeUserStore()
	payments := newFakePaymentStore(reservations)
	audits := &fakeAuditStore{}
	gateway := newFakeGateway()
	publisher := &fakePublisher{}
	logger := newTestLogger()

	guest := users.add("guest1")
	room := rooms.add("301", "Standard", 100000)

	return &paymentFixture{
		rooms:        rooms,
		reservations: reservations,
		users:        users,
		payments:     payments,
		audits:       audits,
		gateway:      gateway,
		publisher:    publisher,
		service: NewPaymentService(payments, reservations, users, gateway,
			NewAuditService(audits, logger, true), publisher, logger),
		guest:       guest,
		reservation: reservations.seed(room.ID, guest.ID, "2025-03-01", "2025-03-03", models.ReservationStatusReserved),
	}
}

func (f *paymentFixture) complete(impUID, merchantUID string, amount int64) (*models.Payment, error) {
	return f.service.CompletePayment(context.Background(), CompletePaymentParams{
		ReservationID: f.reservation.ID,
		IMPUID:        impUID,
		MerchantUID:   merchantUID,
		PaidAmount:    amount,
		PayMethod:     "card",
	})
}

func TestVerifyPayment(t *testing.T) {
	f := newPaymentFixture()
	f.gateway.paid("imp_001", "order_001", 200000)

	result, err := f.service.VerifyPayment(context.Background(), "imp_001", "order_001")
	require.NoError(t, err)
	assert.Equal(t, int64(200000), result.Amount)
	assert.Equal(t, portone.StatusPaid, result.Status)
	assert.Equal(t, 0, f.payments.count())
	assert.Equal(t, []models.PaymentEventType{models.PaymentEventVerified}, f.audits.eventTypes())

	_, err = f.service.VerifyPayment(context.Background(), "imp_001", "order_999")
	assert.ErrorIs(t, err, ErrMerchantRefMismatch)
	assert.Equal(t, models.PaymentEventVerifyFailed, f.audits.last().EventType)
}

func TestCompletePayment_Success(t *testing.T) {
	f := newPaymentFixture()
	f.gateway.paid("imp_001", "order_001", 200000)

	payment, err := f.complete("imp_001", "order_001", 200000)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, int64(200000), payment.Amount)
	assert.Equal(t, f.guest.ID, payment.UserID)
	assert.Equal(t, "html5_inicis", payment.PGProvider.String)
	assert.Equal(t, 1, f.payments.count())

	res := f.reservations.get(f.reservation.ID)
	assert.Equal(t, models.ReservationPaymentPaid, res.PaymentStatus)
	assert.Equal(t, models.ReservationStatusReserved, res.Status)

	last := f.audits.last()
	require.NotNil(t, last)
	assert.Equal(t, models.PaymentEventCompleted, last.EventType)
	require.NotNil(t, last.PaymentID)
	assert.Equal(t, payment.ID, *last.PaymentID)
	assert.True(t, *last.AmountsMatch)

	assert.Equal(t, []string{events.PaymentCompleted}, f.publisher.published())
}

func TestCompletePayment_DuplicateIsRejected(t *testing.T) {
	f := newPaymentFixture()
	f.gateway.paid("imp_001", "order_001", 200000)

	_, err := f.complete("imp_001", "order_001", 200000)
	require.NoError(t, err)

	_, err = f.complete("imp_001", "order_001", 200000)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Equal(t, 1, f.payments.count())
	assert.Equal(t, models.PaymentEventDuplicate, f.audits.last().EventType)
}

func TestCompletePayment_DuplicateIMPUIDUnderNewOrder(t *testing.T) {
	f := newPaymentFixture()
	f.gateway.paid("imp_001", "order_001", 200000)
	_, err := f.complete("imp_001", "order_001", 200000)
	require.NoError(t, err)

	// same gateway transaction reported under a second merchant_uid
	f.gateway.paid("imp_001", "order_002", 200000)
	_, err = f.complete("imp_001", "order_002", 200000)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Equal(t, 1, f.payments.count())
}

func TestCompletePayment_AmountMismatch(t *testing.T) {
	f := newPaymentFixture()
	f.gateway.paid("imp_001", "order_001", 150000)

	_, err := f.complete("imp_001", "order_001", 200000)
	assert.ErrorIs(t, err, ErrAmountMismatch)

	assert.Equal(t, 0, f.payments.count())
	assert.Equal(t, models.ReservationPaymentPending, f.reservations.get(f.reservation.ID).PaymentStatus)

	last := f.audits.last()
	assert.Equal(t, models.PaymentEventAmountMismatch, last.EventType)
	assert.Equal(t, int64(200000), *last.ExpectedAmount)
	assert.Equal(t, int64(150000), *last.ReceivedAmount)
	assert.False(t, *last.AmountsMatch)

	mismatches, err := NewAuditService(f.audits, newTestLogger(), true).AmountMismatches(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, mismatches, 1)
	assert.Empty(t, f.publisher.published())
}

func TestCompletePayment_GatewayRecordChecks(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(g *fakeGateway)
		wantErr error
	}{
		{
			name: "not paid",
			setup: func(g *fakeGateway) {
				g.paid("imp_001", "order_001", 200000)
				g.payments["imp_001"].Status = "ready"
			},
			wantErr: ErrNotPaid,
		},
		{
			name: "merchant mismatch",
			setup: func(g *fakeGateway) {
				g.paid("imp_001", "order_other", 200000)
			},
			wantErr: ErrMerchantRefMismatch,
		},
		{
			name: "unreachable",
			setup: func(g *fakeGateway) {
				g.getErr = fmt.Errorf("%w: dial tcp: timeout", portone.ErrUnreachable)
			},
			wantErr: ErrGatewayUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentFixture()
			tt.setup(f.gateway)

			_, err := f.complete("imp_001", "order_001", 200000)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, f.payments.count())
			assert.Equal(t, models.ReservationPaymentPending, f.reservations.get(f.reservation.ID).PaymentStatus)
		})
	}
}

func TestCompletePayment_UnreachableIsAudited(t *testing.T) {
	f := newPaymentFixture()
	f.gateway.getErr = fmt.Errorf("%w: connection refused", portone.ErrUnreachable)

	_, err := f.complete("imp_001", "order_001", 200000)
	assert.ErrorIs(t, err, ErrGatewayUnreachable)
	assert.Equal(t, models.PaymentEventGatewayUnreachable, f.audits.last().EventType)
}

func TestCompletePayment_CancelledReservation(t *testing.T) {
	f := newPaymentFixture()
	f.gateway.paid("imp_001", "order_001", 200000)
	require.NoError(t, f.reservations.UpdateStatus(context.Background(), f.reservation.ID, models.ReservationStatusCancelled))

	_, err := f.complete("imp_001", "order_001", 200000)
	assert.ErrorIs(t, err, ErrReservationCancelled)
	assert.Equal(t, 0, f.payments.count())
	assert.NotEqual(t, models.ReservationPaymentPaid, f.reservations.get(f.reservation.ID).PaymentStatus)
}

func TestCompletePayment_UnknownReservation(t *testing.T) {
	f := newPaymentFixture()
	_, err := f.service.CompletePayment(context.Background(), CompletePaymentParams{
		ReservationID: uuid.New(),
		IMPUID:        "imp_001",
		MerchantUID:   "order_001",
		PaidAmount:    1000,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompletePayment_AuditFailureDoesNotFailPayment(t *testing.T) {
	f := newPaymentFixture()
	f.audits.err = errBoom
	f.gateway.paid("imp_001", "order_001", 200000)

	_, err := f.complete("imp_001", "order_001", 200000)
	assert.NoError(t, err)
	assert.Equal(t, 1, f.payments.count())
}

func TestCompletePayment_RecordsClientInfo(t *testing.T) {
	f := newPaymentFixture()
	f.gateway.paid("imp_001", "order_001", 200000)

	ctx := WithClientInfo(context.Background(), ClientInfo{
		IP:        "203.0.113.7",
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
	})
	_, err := f.service.CompletePayment(ctx, CompletePaymentParams{
		ReservationID: f.reservation.ID,
		IMPUID:        "imp_001",
		MerchantUID:   "order_001",
		PaidAmount:    200000,
	})
	require.NoError(t, err)

	last := f.audits.last()
	require.NotNil(t, last.IPAddress)
	assert.Equal(t, "203.0.113.7", *last.IPAddress)
	require.NotNil(t, last.DeviceType)
	assert.Equal(t, "mobile", *last.DeviceType)
}

func TestCancelPayment(t *testing.T) {
	f := newPaymentFixture()
	f.gateway.paid("imp_001", "order_001", 200000)
	payment, err := f.complete("imp_001", "order_001", 200000)
	require.NoError(t, err)

	cancelled, err := f.service.CancelPayment(context.Background(), payment.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCancelled, cancelled.Status)
	assert.Equal(t, int64(200000), cancelled.CancelAmount)
	assert.Equal(t, defaultCancelReason, cancelled.CancelReason.String)
	assert.Equal(t, 1, f.gateway.cancelCalls)

	res := f.reservations.get(f.reservation.ID)
	assert.Equal(t, models.ReservationStatusCancelled, res.Status)
	assert.Equal(t, models.ReservationPaymentRefunded, res.PaymentStatus)
	assert.Equal(t, models.PaymentEventCancelled, f.audits.last().EventType)

	// second cancel is refused before reaching the gateway
	_, err = f.service.CancelPayment(context.Background(), payment.ID, "again")
	assert.ErrorIs(t, err, ErrNotCancellable)
	assert.Equal(t, 1, f.gateway.cancelCalls)

	assert.Equal(t, []string{events.PaymentCompleted, events.PaymentCancelled}, f.publisher.published())
}

func TestCancelPayment_GatewayFailureWritesNothing(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"rejected", fmt.Errorf("%w: already cancelled", portone.ErrCancelFailed), ErrGatewayCancelFailed},
		{"unreachable", fmt.Errorf("%w: timeout", portone.ErrUnreachable), ErrGatewayUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentFixture()
			f.gateway.paid("imp_001", "order_001", 200000)
			payment, err := f.complete("imp_001", "order_001", 200000)
			require.NoError(t, err)

			f.gateway.cancelErr = tt.err
			_, err = f.service.CancelPayment(context.Background(), payment.ID, "guest request")
			assert.ErrorIs(t, err, tt.wantErr)

			stored, err := f.payments.GetByID(context.Background(), payment.ID)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentStatusCompleted, stored.Status)
			assert.Equal(t, models.ReservationPaymentPaid, f.reservations.get(f.reservation.ID).PaymentStatus)
			assert.Equal(t, models.PaymentEventCancelFailed, f.audits.last().EventType)
		})
	}
}

func TestCancelPayment_NotFound(t *testing.T) {
	f := newPaymentFixture()
	_, err := f.service.CancelPayment(context.Background(), uuid.New(), "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, f.gateway.cancelCalls)
}

func TestCancelReservationOnPaymentFailure(t *testing.T) {
	f := newPaymentFixture()

	require.NoError(t, f.service.CancelReservationOnPaymentFailure(context.Background(), f.reservation.ID))

	res := f.reservations.get(f.reservation.ID)
	assert.Equal(t, models.ReservationStatusCancelled, res.Status)
	assert.Equal(t, models.ReservationPaymentFailed, res.PaymentStatus)
	assert.Equal(t, 0, f.payments.count())
	assert.Equal(t, models.PaymentEventFailureCancelled, f.audits.last().EventType)
	assert.Equal(t, []string{events.ReservationCancelled}, f.publisher.published())

	err := f.service.CancelReservationOnPaymentFailure(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelReservationOnPaymentFailure_PaidReservation(t *testing.T) {
	f := newPaymentFixture()
	f.gateway.paid("imp_001", "order_001", 200000)
	_, err := f.complete("imp_001", "order_001", 200000)
	require.NoError(t, err)

	err = f.service.CancelReservationOnPaymentFailure(context.Background(), f.reservation.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)
	assert.Equal(t, models.ReservationStatusReserved, f.reservations.get(f.reservation.ID).Status)
}

func TestCancelReservationOnPaymentFailure_CompletionWinsRace(t *testing.T) {
	f := newPaymentFixture()
	// a completion commits after the PAID check in the service has passed
	f.reservations.beforeCancel = func(res *models.Reservation) {
		res.PaymentStatus = models.ReservationPaymentPaid
	}

	err := f.service.CancelReservationOnPaymentFailure(context.Background(), f.reservation.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)

	res := f.reservations.get(f.reservation.ID)
	assert.Equal(t, models.ReservationStatusReserved, res.Status)
	assert.Equal(t, models.ReservationPaymentPaid, res.PaymentStatus)
	assert.Empty(t, f.publisher.published())
}

func TestHandleWebhook_ChangesNoState(t *testing.T) {
	f := newPaymentFixture()

	err := f.service.HandleWebhook(context.Background(), WebhookNotification{
		IMPUID:      "imp_001",
		MerchantUID: "order_001",
		Status:      "paid",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, f.payments.count())
	assert.Equal(t, models.ReservationPaymentPending, f.reservations.get(f.reservation.ID).PaymentStatus)

	last := f.audits.last()
	assert.Equal(t, models.PaymentEventWebhookReceived, last.EventType)
	assert.Equal(t, models.PaymentSourceWebhook, last.EventSource)
	assert.Equal(t, "paid", last.Payload["status"])
	assert.Equal(t, []string{events.PaymentWebhookReceived}, f.publisher.published())

	trail, err := NewAuditService(f.audits, newTestLogger(), true).ByIMPUID(context.Background(), "imp_001")
	require.NoError(t, err)
	assert.Len(t, trail, 1)
}

func TestPaymentReads(t *testing.T) {
	f := newPaymentFixture()
	f.gateway.paid("imp_001", "order_001", 200000)
	payment, err := f.complete("imp_001", "order_001", 200000)
	require.NoError(t, err)

	got, err := f.service.GetPayment(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, "order_001", got.MerchantUID)

	_, err = f.service.GetPayment(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	mine, err := f.service.GetUserPayments(context.Background(), f.guest.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = f.service.GetUserPayments(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	byRes, err := f.service.GetPaymentsByReservation(context.Background(), f.reservation.ID)
	require.NoError(t, err)
	assert.Len(t, byRes, 1)

	_, err = f.service.GetPaymentsByReservation(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuditService_DisabledOnlyLogs(t *testing.T) {
	store := &fakeAuditStore{}
	audit := NewAuditService(store, newTestLogger(), false)

	audit.Record(context.Background(), models.NewPaymentAudit(models.PaymentEventVerified, models.PaymentSourceGateway))
	assert.Empty(t, store.eventTypes())

	var nilService *AuditService
	assert.NotPanics(t, func() {
		nilService.Record(context.Background(), models.NewPaymentAudit(models.PaymentEventVerified, models.PaymentSourceGateway))
	})
}
