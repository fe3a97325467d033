package services

import (
	"errors"
	"fmt"

	"github.com/hotelpms/hotel-backend/internal/database"
	"github.com/hotelpms/hotel-backend/pkg/portone"
)

// Reservation and payment errors
var (
	ErrInvalidDateRange      = errors.New("check-in date must be before check-out date")
	ErrNotFound              = errors.New("not found")
	ErrRoomUnavailable       = errors.New("room is already reserved for the selected dates")
	ErrNoAvailableRoomOfType = errors.New("no room of the requested type is available for the selected dates")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrReservationCancelled  = errors.New("reservation is cancelled")
	ErrReservationHasPayment = errors.New("reservation has payments and cannot be deleted")
	ErrAlreadyProcessed      = errors.New("payment already processed")
	ErrNotPaid               = errors.New("payment is not completed at the gateway")
	ErrMerchantRefMismatch   = errors.New("merchant_uid does not match the gateway record")
	ErrAmountMismatch        = errors.New("paid amount does not match the gateway record")
	ErrNotCancellable        = errors.New("only completed payments can be cancelled")
	ErrGatewayCancelFailed   = errors.New("payment gateway refused the cancellation")
	ErrGatewayUnreachable    = errors.New("payment gateway unreachable")
)

// Room catalog errors
var (
	ErrRoomNumberTaken = errors.New("room number already exists")
	ErrRoomInUse       = errors.New("room has reservations and cannot be deleted")
)

// Authentication and account errors
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrAccountDeleted     = errors.New("account is scheduled for deletion")
	ErrPasswordMismatch   = errors.New("new password and confirmation do not match")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrValidation         = errors.New("validation failed")
)

// notFound builds an ErrNotFound naming the missing entity
func notFound(entity string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", entity, id, ErrNotFound)
}

// invalid wraps a field validation failure as ErrValidation
func invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// gatewayError maps PortOne client failures onto service errors
func gatewayError(op string, err error) error {
	switch {
	case errors.Is(err, portone.ErrCancelFailed):
		return fmt.Errorf("%s: %w: %v", op, ErrGatewayCancelFailed, err)
	case errors.Is(err, portone.ErrUnreachable):
		return fmt.Errorf("%s: %w: %v", op, ErrGatewayUnreachable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// isRepoNotFound reports a missing row signalled by a repository write
func isRepoNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}
