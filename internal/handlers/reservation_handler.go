package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hotelpms/hotel-backend/internal/middleware"
	"github.com/hotelpms/hotel-backend/internal/models"
	"github.com/hotelpms/hotel-backend/internal/services"
)

// ReservationHandler handles reservation HTTP requests
type ReservationHandler struct {
	reservations ReservationService
	payments     PaymentService
	logger       *logrus.Logger
}

// NewReservationHandler creates a new reservation handler
func NewReservationHandler(reservations ReservationService, payments PaymentService, logger *logrus.Logger) *ReservationHandler {
	return &ReservationHandler{
		reservations: reservations,
		payments:     payments,
		logger:       logger,
	}
}

// ReservationRequest is the body of create and update.
// Exactly one of room_id, room_number or room_type picks the room.
type ReservationRequest struct {
	UserID     string      `json:"user_id"` // ADMIN only, books on behalf of another user
	RoomID     string      `json:"room_id"`
	RoomNumber string      `json:"room_number"`
	RoomType   string      `json:"room_type"`
	CheckIn    models.Date `json:"check_in"`
	CheckOut   models.Date `json:"check_out"`
	People     int         `json:"people" binding:"required,min=1,max=20"`
	GuestName  string      `json:"guest_name" binding:"max=100"`
	GuestPhone string      `json:"guest_phone" binding:"max=20"`
	Message    string      `json:"message" binding:"max=1000"`
}

func (r ReservationRequest) selector() (models.RoomSelector, string) {
	set := 0
	for _, v := range []string{r.RoomID, r.RoomNumber, r.RoomType} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return models.RoomSelector{}, "Exactly one of room_id, room_number or room_type is required"
	}

	switch {
	case r.RoomID != "":
		id, err := uuid.Parse(r.RoomID)
		if err != nil {
			return models.RoomSelector{}, "Invalid room_id"
		}
		return models.ByRoom(id), ""
	case r.RoomNumber != "":
		return models.ByNumber(r.RoomNumber), ""
	default:
		return models.ByType(r.RoomType), ""
	}
}

func (r ReservationRequest) validate() (models.RoomSelector, string) {
	if r.CheckIn.IsZero() || r.CheckOut.IsZero() {
		return models.RoomSelector{}, "check_in and check_out are required (yyyy-MM-dd)"
	}
	return r.selector()
}

// PaymentCompleteRequest is the client's report of a finished checkout
type PaymentCompleteRequest struct {
	ReservationID string `json:"reservation_id" binding:"required"`
	IMPUID        string `json:"imp_uid" binding:"required"`
	MerchantUID   string `json:"merchant_uid" binding:"required"`
	PaidAmount    int64  `json:"paid_amount" binding:"required,min=1"`
	PayMethod     string `json:"pay_method"`
	PGProvider    string `json:"pg_provider"`
}

// CreateReservation handles POST /api/reservations
func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	sel, problem := req.validate()
	if problem != "" {
		badRequest(c, problem)
		return
	}

	userID := userCtx.UserID
	if req.UserID != "" {
		id, err := uuid.Parse(req.UserID)
		if err != nil {
			badRequest(c, "Invalid user_id")
			return
		}
		if !userCtx.CanActFor(id) {
			forbidden(c)
			return
		}
		userID = id
	}

	res, err := h.reservations.CreateReservation(c.Request.Context(), services.CreateReservationParams{
		UserID:     userID,
		Room:       sel,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		People:     req.People,
		GuestName:  req.GuestName,
		GuestPhone: req.GuestPhone,
		Message:    req.Message,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// GetByUser handles GET /api/reservations/user/:userId
func (h *ReservationHandler) GetByUser(c *gin.Context) {
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	if !middleware.MustGetUserContext(c).CanActFor(userID) {
		forbidden(c)
		return
	}

	list, err := h.reservations.GetByUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetAll handles GET /api/reservations/admin/all
func (h *ReservationHandler) GetAll(c *gin.Context) {
	list, err := h.reservations.GetAll(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetByDate handles GET /api/reservations/date?date=yyyy-MM-dd
func (h *ReservationHandler) GetByDate(c *gin.Context) {
	date, ok := dateQuery(c, "date")
	if !ok {
		return
	}

	list, err := h.reservations.GetByDate(c.Request.Context(), date)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// UpdateReservation handles PUT /api/reservations/:id
func (h *ReservationHandler) UpdateReservation(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if _, ok := h.loadOwned(c, id); !ok {
		return
	}

	var req ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	sel, problem := req.validate()
	if problem != "" {
		badRequest(c, problem)
		return
	}

	res, err := h.reservations.UpdateReservation(c.Request.Context(), id, services.UpdateReservationParams{
		Room:       sel,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		People:     req.People,
		GuestName:  req.GuestName,
		GuestPhone: req.GuestPhone,
		Message:    req.Message,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UpdateStatus handles PUT /api/reservations/:id/status?status=
func (h *ReservationHandler) UpdateStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	status := c.Query("status")
	if status == "" {
		badRequest(c, "status is required")
		return
	}

	res, err := h.reservations.UpdateStatus(c.Request.Context(), id, models.ReservationStatus(status))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteReservation handles DELETE /api/reservations/:id
func (h *ReservationHandler) DeleteReservation(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.reservations.DeleteReservation(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Reservation deleted"})
}

// CompletePayment handles POST /api/reservations/payment-complete
func (h *ReservationHandler) CompletePayment(c *gin.Context) {
	var req PaymentCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	reservationID, err := uuid.Parse(req.ReservationID)
	if err != nil {
		badRequest(c, "Invalid reservation_id")
		return
	}
	if _, ok := h.loadOwned(c, reservationID); !ok {
		return
	}

	payment, err := h.payments.CompletePayment(c.Request.Context(), services.CompletePaymentParams{
		ReservationID: reservationID,
		IMPUID:        req.IMPUID,
		MerchantUID:   req.MerchantUID,
		PaidAmount:    req.PaidAmount,
		PayMethod:     req.PayMethod,
		PGProvider:    req.PGProvider,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// CancelOnPaymentFailure handles POST /api/reservations/:id/cancel-payment-failure
func (h *ReservationHandler) CancelOnPaymentFailure(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if _, ok := h.loadOwned(c, id); !ok {
		return
	}

	if err := h.payments.CancelReservationOnPaymentFailure(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Reservation cancelled"})
}

// loadOwned fetches a reservation the caller owns or administers.
// It writes the response and returns false otherwise.
func (h *ReservationHandler) loadOwned(c *gin.Context, id uuid.UUID) (*models.Reservation, bool) {
	res, err := h.reservations.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return nil, false
	}
	if !middleware.MustGetUserContext(c).CanActFor(res.UserID) {
		forbidden(c)
		return nil, false
	}
	return res, true
}
