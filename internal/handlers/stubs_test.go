package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/hotelpms/hotel-backend/internal/middleware"
	"github.com/hotelpms/hotel-backend/internal/models"
	"github.com/hotelpms/hotel-backend/internal/services"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func userCtx(id uuid.UUID, roles ...string) *middleware.UserContext {
	if len(roles) == 0 {
		roles = []string{models.RoleUser}
	}
	return &middleware.UserContext{UserID: id, Username: "tester", Roles: roles}
}

// newTestContext builds a gin context the way the router would after AuthMiddleware
func newTestContext(method, target string, body interface{}, user *middleware.UserContext, params ...gin.Param) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewBuffer(raw)
	}

	c.Request = httptest.NewRequest(method, target, reader)
	if reader != nil {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		c.Set(middleware.UserContextKey, *user)
	}
	c.Params = params
	return c, w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

type stubReservations struct {
	created   *services.CreateReservationParams
	updated   *services.UpdateReservationParams
	byID      map[uuid.UUID]*models.Reservation
	createErr error
	listErr   error
	deleteErr error
}

func (s *stubReservations) CreateReservation(_ context.Context, p services.CreateReservationParams) (*models.Reservation, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = &p
	return &models.Reservation{ID: uuid.New(), UserID: p.UserID, CheckIn: p.CheckIn, CheckOut: p.CheckOut}, nil
}

func (s *stubReservations) UpdateReservation(_ context.Context, id uuid.UUID, p services.UpdateReservationParams) (*models.Reservation, error) {
	s.updated = &p
	res := *s.byID[id]
	res.CheckIn, res.CheckOut = p.CheckIn, p.CheckOut
	return &res, nil
}

func (s *stubReservations) UpdateStatus(_ context.Context, id uuid.UUID, status models.ReservationStatus) (*models.Reservation, error) {
	if !status.IsValid() {
		return nil, services.ErrInvalidStatus
	}
	return &models.Reservation{ID: id, Status: status}, nil
}

func (s *stubReservations) GetByID(_ context.Context, id uuid.UUID) (*models.Reservation, error) {
	res, ok := s.byID[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return res, nil
}

func (s *stubReservations) GetByUser(_ context.Context, userID uuid.UUID) ([]*models.Reservation, error) {
	return []*models.Reservation{{ID: uuid.New(), UserID: userID}}, s.listErr
}

func (s *stubReservations) GetAll(context.Context) ([]*models.Reservation, error) {
	return []*models.Reservation{}, s.listErr
}

func (s *stubReservations) GetByDate(_ context.Context, date models.Date) ([]*models.Reservation, error) {
	return []*models.Reservation{{ID: uuid.New(), CheckIn: date, CheckOut: date.AddDays(1)}}, s.listErr
}

func (s *stubReservations) DeleteReservation(context.Context, uuid.UUID) error {
	return s.deleteErr
}

type stubPayments struct {
	completed   *services.CompletePaymentParams
	completeErr error
	cancelErr   error
	verifyErr   error
	webhookErr  error
	webhooks    []services.WebhookNotification
	cancelledOn []uuid.UUID
	payments    map[uuid.UUID]*models.Payment
}

func (s *stubPayments) VerifyPayment(_ context.Context, impUID, merchantUID string) (*services.VerificationResult, error) {
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	return &services.VerificationResult{IMPUID: impUID, MerchantUID: merchantUID, Amount: 200000, Status: "paid"}, nil
}

func (s *stubPayments) CompletePayment(_ context.Context, p services.CompletePaymentParams) (*models.Payment, error) {
	if s.completeErr != nil {
		return nil, s.completeErr
	}
	s.completed = &p
	return &models.Payment{ID: uuid.New(), ReservationID: p.ReservationID, Amount: p.PaidAmount}, nil
}

func (s *stubPayments) CancelReservationOnPaymentFailure(_ context.Context, reservationID uuid.UUID) error {
	s.cancelledOn = append(s.cancelledOn, reservationID)
	return nil
}

func (s *stubPayments) CancelPayment(_ context.Context, paymentID uuid.UUID, reason string) (*models.Payment, error) {
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return &models.Payment{ID: paymentID, Status: models.PaymentStatusCancelled, CancelReason: models.NewNullString(reason)}, nil
}

func (s *stubPayments) GetUserPayments(context.Context, uuid.UUID) ([]*models.Payment, error) {
	return []*models.Payment{}, nil
}

func (s *stubPayments) GetPayment(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	p, ok := s.payments[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return p, nil
}

func (s *stubPayments) GetPaymentsByReservation(context.Context, uuid.UUID) ([]*models.Payment, error) {
	return []*models.Payment{}, nil
}

func (s *stubPayments) HandleWebhook(_ context.Context, n services.WebhookNotification) error {
	s.webhooks = append(s.webhooks, n)
	return s.webhookErr
}
