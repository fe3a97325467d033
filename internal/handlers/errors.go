package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hotelpms/hotel-backend/internal/models"
	"github.com/hotelpms/hotel-backend/internal/services"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorMappings is checked in order; the first match wins
var errorMappings = []errorMapping{
	{services.ErrInvalidDateRange, http.StatusBadRequest, "INVALID_DATE_RANGE"},
	{services.ErrInvalidStatus, http.StatusBadRequest, "INVALID_STATUS"},
	{services.ErrNotPaid, http.StatusBadRequest, "NOT_PAID"},
	{services.ErrMerchantRefMismatch, http.StatusBadRequest, "MERCHANT_REF_MISMATCH"},
	{services.ErrAmountMismatch, http.StatusBadRequest, "AMOUNT_MISMATCH"},
	{services.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{services.ErrPasswordMismatch, http.StatusBadRequest, "PASSWORD_MISMATCH"},

	{services.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{services.ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN"},

	{services.ErrAccountDisabled, http.StatusForbidden, "ACCOUNT_DISABLED"},
	{services.ErrAccountDeleted, http.StatusForbidden, "ACCOUNT_DELETED"},

	{services.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},

	{services.ErrRoomUnavailable, http.StatusConflict, "ROOM_UNAVAILABLE"},
	{services.ErrNoAvailableRoomOfType, http.StatusConflict, "NO_AVAILABLE_ROOM_OF_TYPE"},
	{services.ErrAlreadyProcessed, http.StatusConflict, "ALREADY_PROCESSED"},
	{services.ErrNotCancellable, http.StatusConflict, "NOT_CANCELLABLE"},
	{services.ErrReservationCancelled, http.StatusConflict, "RESERVATION_CANCELLED"},
	{services.ErrReservationHasPayment, http.StatusConflict, "RESERVATION_HAS_PAYMENT"},
	{services.ErrUsernameTaken, http.StatusConflict, "USERNAME_TAKEN"},
	{services.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
	{services.ErrRoomNumberTaken, http.StatusConflict, "ROOM_NUMBER_TAKEN"},
	{services.ErrRoomInUse, http.StatusConflict, "ROOM_IN_USE"},

	{services.ErrGatewayCancelFailed, http.StatusBadGateway, "GATEWAY_CANCEL_FAILED"},
	{services.ErrGatewayUnreachable, http.StatusGatewayTimeout, "GATEWAY_UNREACHABLE"},
}

// writeError maps a service error onto a status code and error body.
// Unmapped errors are logged and reported as 500 without details.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			c.JSON(m.status, ErrorResponse{
				Error:   strings.ToLower(m.code),
				Message: err.Error(),
				Code:    m.code,
			})
			return
		}
	}

	logger.WithError(err).WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	}).Error("Unhandled error")
	_ = c.Error(err)

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
		Code:    "INTERNAL_ERROR",
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: message,
		Code:    "VALIDATION_ERROR",
	})
}

func forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, ErrorResponse{
		Error:   "forbidden",
		Message: "You don't have permission to access this resource",
		Code:    "INSUFFICIENT_PERMISSIONS",
	})
}

// uuidParam parses a path parameter as a UUID, answering 400 when it is malformed
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// dateQuery parses a yyyy-MM-dd query parameter
func dateQuery(c *gin.Context, name string) (models.Date, bool) {
	raw := c.Query(name)
	if raw == "" {
		badRequest(c, name+" is required (yyyy-MM-dd)")
		return models.Date{}, false
	}
	date, err := models.ParseDate(raw)
	if err != nil {
		badRequest(c, "Invalid "+name+", expected yyyy-MM-dd")
		return models.Date{}, false
	}
	return date, true
}
