package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hotelpms/hotel-backend/internal/models"
	"github.com/hotelpms/hotel-backend/pkg/portone"
)

// The store interfaces below are the subset of the database repositories
// each service depends on. *database.XRepository values satisfy them.

// ReservationStore persists reservations
type ReservationStore interface {
	Book(ctx context.Context, res *models.Reservation) error
	Rebook(ctx context.Context, res *models.Reservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	GetByUser(ctx context.Context, userID uuid.UUID) ([]*models.Reservation, error)
	GetAll(ctx context.Context) ([]*models.Reservation, error)
	GetByDate(ctx context.Context, date models.Date) ([]*models.Reservation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReservationStatus) error
	CancelUnpaid(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// RoomStore persists the room catalog
type RoomStore interface {
	Create(ctx context.Context, room *models.Room) error
	CreateBatch(ctx context.Context, rooms []*models.Room) error
	Update(ctx context.Context, room *models.Room) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.RoomStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Room, error)
	GetByNumber(ctx context.Context, number string) (*models.Room, error)
	List(ctx context.Context) ([]*models.Room, error)
	ListByType(ctx context.Context, roomType string) ([]*models.Room, error)
	ListByStatus(ctx context.Context, status models.RoomStatus) ([]*models.Room, error)
	ListByPriceRange(ctx context.Context, min, max int64) ([]*models.Room, error)
	Count(ctx context.Context) (int, error)
}

// UserStore persists accounts
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	Restore(ctx context.Context, id uuid.UUID) error
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RefreshTokenStore persists issued refresh tokens
type RefreshTokenStore interface {
	Store(ctx context.Context, userID uuid.UUID, token string, device models.DeviceInfo, ipAddress, userAgent string, expiresAt time.Time) error
	Get(ctx context.Context, token string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	RevokeMostRecent(ctx context.Context, userID uuid.UUID) error
	Cleanup(ctx context.Context, now, revokedBefore time.Time) (int64, error)
}

// PaymentStore persists payments
type PaymentStore interface {
	CompleteWithReservation(ctx context.Context, payment *models.Payment) error
	MarkCancelled(ctx context.Context, id uuid.UUID, reason string, at time.Time) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetByMerchantUID(ctx context.Context, merchantUID string) (*models.Payment, error)
	GetByUser(ctx context.Context, userID uuid.UUID) ([]*models.Payment, error)
	GetByReservation(ctx context.Context, reservationID uuid.UUID) ([]*models.Payment, error)
}

// PaymentAuditStore appends and reads payment audit entries
type PaymentAuditStore interface {
	Log(ctx context.Context, audit *models.PaymentAudit) error
	GetByIMPUID(ctx context.Context, impUID string) ([]*models.PaymentAudit, error)
	GetByReservation(ctx context.Context, reservationID uuid.UUID) ([]*models.PaymentAudit, error)
	GetAmountMismatches(ctx context.Context, limit int) ([]*models.PaymentAudit, error)
}

// PaymentGateway is the payment provider capability. *portone.Client implements it.
type PaymentGateway interface {
	GetPayment(ctx context.Context, impUID string) (*portone.PaymentInfo, error)
	CancelPayment(ctx context.Context, impUID string, amount int64, reason string) (*portone.CancelResult, error)
}

// ClientInfo identifies the caller of a request for audit purposes
type ClientInfo struct {
	IP        string
	UserAgent string
}

type clientInfoKey struct{}

// WithClientInfo attaches caller details to ctx
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

// ClientInfoFrom returns the caller details attached to ctx, if any
func ClientInfoFrom(ctx context.Context) ClientInfo {
	info, _ := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info
}
