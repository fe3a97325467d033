package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hotelpms/hotel-backend/internal/middleware"
	"github.com/hotelpms/hotel-backend/internal/services"
)

// PaymentHandler handles payment HTTP requests
type PaymentHandler struct {
	payments     PaymentService
	reservations ReservationService
	logger       *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments PaymentService, reservations ReservationService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments:     payments,
		reservations: reservations,
		logger:       logger,
	}
}

// VerifyPaymentRequest identifies a gateway transaction
type VerifyPaymentRequest struct {
	IMPUID      string `json:"imp_uid" binding:"required"`
	MerchantUID string `json:"merchant_uid" binding:"required"`
}

// VerifyPayment handles POST /api/payments/verify
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "imp_uid and merchant_uid are required")
		return
	}

	result, err := h.payments.VerifyPayment(c.Request.Context(), req.IMPUID, req.MerchantUID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CancelPayment handles POST /api/payments/:id/cancel?reason=
func (h *PaymentHandler) CancelPayment(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	reason := c.Query("reason")
	if reason == "" {
		reason = "Cancelled by administrator"
	}

	payment, err := h.payments.CancelPayment(c.Request.Context(), id, reason)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"payment_id": id,
		"admin_id":   middleware.MustGetUserContext(c).UserID,
	}).Info("Payment cancelled by administrator")

	c.JSON(http.StatusOK, payment)
}

// GetUserPayments handles GET /api/payments/user/:userId
func (h *PaymentHandler) GetUserPayments(c *gin.Context) {
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	if !middleware.MustGetUserContext(c).CanActFor(userID) {
		forbidden(c)
		return
	}

	list, err := h.payments.GetUserPayments(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetPayment handles GET /api/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	payment, err := h.payments.GetPayment(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if !middleware.MustGetUserContext(c).CanActFor(payment.UserID) {
		forbidden(c)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// GetPaymentsByReservation handles GET /api/payments/reservation/:id
func (h *PaymentHandler) GetPaymentsByReservation(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	res, err := h.reservations.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if !middleware.MustGetUserContext(c).CanActFor(res.UserID) {
		forbidden(c)
		return
	}

	list, err := h.payments.GetPaymentsByReservation(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Webhook handles POST /api/payments/webhook.
// The gateway retries anything but 200, so malformed bodies are acknowledged too.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var n services.WebhookNotification
	if err := c.ShouldBindJSON(&n); err != nil {
		h.logger.WithError(err).Warn("Ignoring malformed payment webhook")
		c.String(http.StatusOK, "OK")
		return
	}

	if err := h.payments.HandleWebhook(c.Request.Context(), n); err != nil {
		h.logger.WithError(err).WithField("imp_uid", n.IMPUID).Error("Failed to handle payment webhook")
	}
	c.String(http.StatusOK, "OK")
}
