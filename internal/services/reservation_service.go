package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hotelpms/hotel-backend/internal/database"
	"github.com/hotelpms/hotel-backend/internal/events"
	"github.com/hotelpms/hotel-backend/internal/models"
)

// MaxGuests is the largest party one reservation may hold
const MaxGuests = 20

func validateGuests(people int) error {
	if people < 1 || people > MaxGuests {
		return fmt.Errorf("%w: people must be between 1 and %d", ErrValidation, MaxGuests)
	}
	return nil
}

// CreateReservationParams describes a booking request
type CreateReservationParams struct {
	UserID     uuid.UUID
	Room       models.RoomSelector
	CheckIn    models.Date
	CheckOut   models.Date
	People     int
	GuestName  string
	GuestPhone string
	Message    string
}

// UpdateReservationParams describes a change to an existing booking
type UpdateReservationParams struct {
	Room       models.RoomSelector
	CheckIn    models.Date
	CheckOut   models.Date
	People     int
	GuestName  string
	GuestPhone string
	Message    string
}

// ReservationService runs the reservation ledger
type ReservationService struct {
	reservations ReservationStore
	rooms        RoomStore
	users        UserStore
	publisher    events.Publisher
	logger       *logrus.Logger
}

// NewReservationService creates a new reservation service
func NewReservationService(
	reservations ReservationStore,
	rooms RoomStore,
	users UserStore,
	publisher events.Publisher,
	logger *logrus.Logger,
) *ReservationService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &ReservationService{
		reservations: reservations,
		rooms:        rooms,
		users:        users,
		publisher:    publisher,
		logger:       logger,
	}
}

// CreateReservation books a room for the requested stay.
//
// A ByType selector assigns the lowest-numbered room of that type that is
// free for the whole stay. The new reservation is RESERVED with a PENDING
// payment; the room's own status is left alone.
func (s *ReservationService) CreateReservation(ctx context.Context, p CreateReservationParams) (*models.Reservation, error) {
	stay := models.DateRange{CheckIn: p.CheckIn, CheckOut: p.CheckOut}
	if !stay.Valid() {
		return nil, ErrInvalidDateRange
	}
	if err := validateGuests(p.People); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, notFound("user", p.UserID)
	}

	res := &models.Reservation{
		UserID:        p.UserID,
		CheckIn:       p.CheckIn,
		CheckOut:      p.CheckOut,
		People:        p.People,
		GuestName:     models.NewNullString(p.GuestName),
		GuestPhone:    models.NewNullString(p.GuestPhone),
		Message:       models.NewNullString(p.Message),
		Status:        models.ReservationStatusReserved,
		PaymentStatus: models.ReservationPaymentPending,
	}

	if err := s.place(ctx, res, p.Room, s.reservations.Book); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"reservation_id": res.ID,
		"user_id":        res.UserID,
		"room_number":    res.RoomNumber,
		"check_in":       res.CheckIn.String(),
		"check_out":      res.CheckOut.String(),
	}).Info("Reservation created")

	s.publish(ctx, events.ReservationCreated, res)
	return res, nil
}

// UpdateReservation moves an existing booking to another room or stay.
// The reservation does not conflict with itself.
func (s *ReservationService) UpdateReservation(ctx context.Context, id uuid.UUID, p UpdateReservationParams) (*models.Reservation, error) {
	stay := models.DateRange{CheckIn: p.CheckIn, CheckOut: p.CheckOut}
	if !stay.Valid() {
		return nil, ErrInvalidDateRange
	}
	if err := validateGuests(p.People); err != nil {
		return nil, err
	}

	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if res == nil {
		return nil, notFound("reservation", id)
	}

	res.CheckIn = p.CheckIn
	res.CheckOut = p.CheckOut
	res.People = p.People
	res.GuestName = models.NewNullString(p.GuestName)
	res.GuestPhone = models.NewNullString(p.GuestPhone)
	res.Message = models.NewNullString(p.Message)

	if err := s.place(ctx, res, p.Room, s.reservations.Rebook); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"reservation_id": res.ID,
		"room_number":    res.RoomNumber,
	}).Info("Reservation updated")

	s.publish(ctx, events.ReservationUpdated, res)
	return res, nil
}

// place resolves the selector to a room and writes res with it
func (s *ReservationService) place(ctx context.Context, res *models.Reservation, sel models.RoomSelector, write func(context.Context, *models.Reservation) error) error {
	if sel.Kind == models.SelectByType {
		return s.placeByType(ctx, res, sel.Value, write)
	}

	room, err := s.resolveRoom(ctx, sel)
	if err != nil {
		return err
	}
	res.RoomID = room.ID

	if err := write(ctx, res); err != nil {
		return bookingError(err)
	}
	return nil
}

// placeByType tries each room of the type in room-number order until one
// accepts the booking. The room lock inside write makes each attempt atomic,
// so a room taken concurrently is simply skipped.
func (s *ReservationService) placeByType(ctx context.Context, res *models.Reservation, roomType string, write func(context.Context, *models.Reservation) error) error {
	candidates, err := s.rooms.ListByType(ctx, roomType)
	if err != nil {
		return fmt.Errorf("failed to list rooms of type %s: %w", roomType, err)
	}
	SortRoomsByNumber(candidates)

	for _, room := range candidates {
		res.RoomID = room.ID
		err := write(ctx, res)
		if err == nil {
			return nil
		}
		if errors.Is(err, database.ErrOverlap) {
			continue
		}
		return bookingError(err)
	}

	return fmt.Errorf("room type %s: %w", roomType, ErrNoAvailableRoomOfType)
}

func (s *ReservationService) resolveRoom(ctx context.Context, sel models.RoomSelector) (*models.Room, error) {
	var (
		room *models.Room
		err  error
	)
	switch sel.Kind {
	case models.SelectByRoom:
		room, err = s.rooms.GetByID(ctx, sel.RoomID)
	case models.SelectByNumber:
		room, err = s.rooms.GetByNumber(ctx, sel.Value)
	default:
		return nil, fmt.Errorf("%w: unknown room selector %q", ErrValidation, sel.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}
	if room == nil {
		if sel.Kind == models.SelectByRoom {
			return nil, notFound("room", sel.RoomID)
		}
		return nil, notFound("room", sel.Value)
	}
	return room, nil
}

// bookingError maps repository booking failures to service errors
func bookingError(err error) error {
	switch {
	case errors.Is(err, database.ErrOverlap):
		return ErrRoomUnavailable
	case isRepoNotFound(err):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, database.ErrInvalidRow):
		return invalid(err)
	default:
		return fmt.Errorf("failed to save reservation: %w", err)
	}
}

// UpdateStatus overwrites the booking status with any known status.
// Transitions are not validated.
func (s *ReservationService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReservationStatus) (*models.Reservation, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if err := s.reservations.UpdateStatus(ctx, id, status); err != nil {
		if isRepoNotFound(err) {
			return nil, notFound("reservation", id)
		}
		return nil, err
	}

	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if res == nil {
		return nil, notFound("reservation", id)
	}

	routingKey := events.ReservationUpdated
	if status == models.ReservationStatusCancelled {
		routingKey = events.ReservationCancelled
	}
	s.publish(ctx, routingKey, res)
	return res, nil
}

// GetByID returns one reservation
func (s *ReservationService) GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if res == nil {
		return nil, notFound("reservation", id)
	}
	return res, nil
}

// GetByUser returns a user's reservations
func (s *ReservationService) GetByUser(ctx context.Context, userID uuid.UUID) ([]*models.Reservation, error) {
	return s.reservations.GetByUser(ctx, userID)
}

// GetAll returns every reservation
func (s *ReservationService) GetAll(ctx context.Context) ([]*models.Reservation, error) {
	return s.reservations.GetAll(ctx)
}

// GetByDate returns the reservations whose stay covers the night of date
func (s *ReservationService) GetByDate(ctx context.Context, date models.Date) ([]*models.Reservation, error) {
	return s.reservations.GetByDate(ctx, date)
}

// DeleteReservation hard-deletes a reservation. A missing id is a no-op.
// Reservations with payments are kept; cancel the payment instead.
func (s *ReservationService) DeleteReservation(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.reservations.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrInUse) {
			return fmt.Errorf("reservation %s: %w", id, ErrReservationHasPayment)
		}
		return err
	}
	if !deleted {
		s.logger.WithField("reservation_id", id).Debug("Reservation already absent, nothing to delete")
		return nil
	}
	s.logger.WithField("reservation_id", id).Info("Reservation deleted")
	s.publish(ctx, events.ReservationDeleted, map[string]interface{}{"id": id})
	return nil
}

func (s *ReservationService) publish(ctx context.Context, routingKey string, data interface{}) {
	publish(ctx, s.publisher, s.logger, routingKey, data)
}

// publish sends an event and logs, but otherwise ignores, delivery failures
func publish(ctx context.Context, publisher events.Publisher, logger *logrus.Logger, routingKey string, data interface{}) {
	if err := publisher.Publish(ctx, routingKey, data); err != nil {
		logger.WithError(err).WithField("routing_key", routingKey).Warn("Failed to publish event")
	}
}

// SortRoomsByNumber orders rooms by numeric room number ascending.
// Non-numeric numbers sort after all numeric ones, lexically.
func SortRoomsByNumber(rooms []*models.Room) {
	sort.SliceStable(rooms, func(i, j int) bool {
		a, errA := strconv.Atoi(rooms[i].RoomNumber)
		b, errB := strconv.Atoi(rooms[j].RoomNumber)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return rooms[i].RoomNumber < rooms[j].RoomNumber
		}
	})
}
