package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/hotelpms/hotel-backend/internal/models"
	"github.com/hotelpms/hotel-backend/internal/services"
)

// The interfaces below are what the handlers need from internal/services.
// The concrete *services.XService types satisfy them.

// ReservationService is the reservation ledger
type ReservationService interface {
	CreateReservation(ctx context.Context, p services.CreateReservationParams) (*models.Reservation, error)
	UpdateReservation(ctx context.Context, id uuid.UUID, p services.UpdateReservationParams) (*models.Reservation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReservationStatus) (*models.Reservation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	GetByUser(ctx context.Context, userID uuid.UUID) ([]*models.Reservation, error)
	GetAll(ctx context.Context) ([]*models.Reservation, error)
	GetByDate(ctx context.Context, date models.Date) ([]*models.Reservation, error)
	DeleteReservation(ctx context.Context, id uuid.UUID) error
}

// PaymentService reconciles payments with the gateway
type PaymentService interface {
	VerifyPayment(ctx context.Context, impUID, merchantUID string) (*services.VerificationResult, error)
	CompletePayment(ctx context.Context, p services.CompletePaymentParams) (*models.Payment, error)
	CancelReservationOnPaymentFailure(ctx context.Context, reservationID uuid.UUID) error
	CancelPayment(ctx context.Context, paymentID uuid.UUID, reason string) (*models.Payment, error)
	GetUserPayments(ctx context.Context, userID uuid.UUID) ([]*models.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetPaymentsByReservation(ctx context.Context, reservationID uuid.UUID) ([]*models.Payment, error)
	HandleWebhook(ctx context.Context, n services.WebhookNotification) error
}

// RoomService manages the room catalog
type RoomService interface {
	CreateRoom(ctx context.Context, in services.RoomInput) (*models.Room, error)
	UpdateRoom(ctx context.Context, id uuid.UUID, in services.RoomInput) (*models.Room, error)
	UpdateRoomStatus(ctx context.Context, id uuid.UUID, status models.RoomStatus) (*models.Room, error)
	DeleteRoom(ctx context.Context, id uuid.UUID) error
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	ListRooms(ctx context.Context) ([]*models.Room, error)
	ListByType(ctx context.Context, roomType string) ([]*models.Room, error)
	ListByStatus(ctx context.Context, status models.RoomStatus) ([]*models.Room, error)
	ListByPriceRange(ctx context.Context, min, max int64) ([]*models.Room, error)
}

// AuthService handles accounts and tokens
type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error
	IsUsernameAvailable(ctx context.Context, username string) (bool, error)
	IsEmailAvailable(ctx context.Context, email string) (bool, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in services.ProfileInput) (*models.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next, confirm string) error
	Withdraw(ctx context.Context, userID uuid.UUID, password string) error
	Restore(ctx context.Context, username, password string) (*models.User, error)
}

// AuditReader reads the payment audit trail
type AuditReader interface {
	AmountMismatches(ctx context.Context, limit int) ([]*models.PaymentAudit, error)
	ByIMPUID(ctx context.Context, impUID string) ([]*models.PaymentAudit, error)
	ByReservation(ctx context.Context, reservationID uuid.UUID) ([]*models.PaymentAudit, error)
}

// JobScheduler exposes the background jobs to administrators
type JobScheduler interface {
	GetJobStatus() map[string]interface{}
	RunUserPurgeNow()
}

// PurgeCounter reports how many withdrawn accounts are due for purge
type PurgeCounter interface {
	CountExpired(ctx context.Context) (int64, error)
}
