package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hotelpms/hotel-backend/internal/database"
	"github.com/hotelpms/hotel-backend/internal/models"
)

// RoomInput carries the editable fields of a room
type RoomInput struct {
	RoomNumber string
	RoomType   string
	Price      int64
	Status     models.RoomStatus
}

func (in RoomInput) validate() error {
	if strings.TrimSpace(in.RoomNumber) == "" {
		return invalid(errors.New("room_number is required"))
	}
	if strings.TrimSpace(in.RoomType) == "" {
		return invalid(errors.New("room_type is required"))
	}
	if in.Price < 0 {
		return invalid(errors.New("price cannot be negative"))
	}
	if in.Status != "" && !in.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, in.Status)
	}
	return nil
}

// floorPlan describes one block of seeded rooms
type floorPlan struct {
	floor    int
	from, to int
	roomType string
	price    int64
}

// initialFloorPlan is the inventory created on an empty catalog
var initialFloorPlan = []floorPlan{
	{floor: 3, from: 1, to: 20, roomType: "Single", price: 150000},
	{floor: 4, from: 1, to: 10, roomType: "Double", price: 200000},
	{floor: 4, from: 11, to: 20, roomType: "Family", price: 250000},
	{floor: 5, from: 1, to: 10, roomType: "Deluxe", price: 250000},
	{floor: 5, from: 11, to: 20, roomType: "Suite", price: 300000},
	{floor: 6, from: 1, to: 5, roomType: "Conference", price: 400000},
}

// RoomService manages the room catalog
type RoomService struct {
	rooms  RoomStore
	logger *logrus.Logger
}

// NewRoomService creates a new room service
func NewRoomService(rooms RoomStore, logger *logrus.Logger) *RoomService {
	return &RoomService{
		rooms:  rooms,
		logger: logger,
	}
}

// CreateRoom adds a room. Status defaults to AVAILABLE.
func (s *RoomService) CreateRoom(ctx context.Context, in RoomInput) (*models.Room, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	room := &models.Room{
		RoomNumber: strings.TrimSpace(in.RoomNumber),
		RoomType:   strings.TrimSpace(in.RoomType),
		Price:      in.Price,
		Status:     in.Status,
	}
	if room.Status == "" {
		room.Status = models.RoomStatusAvailable
	}

	if err := s.rooms.Create(ctx, room); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, fmt.Errorf("room %s: %w", room.RoomNumber, ErrRoomNumberTaken)
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"room_id":     room.ID,
		"room_number": room.RoomNumber,
		"room_type":   room.RoomType,
	}).Info("Room created")

	return room, nil
}

// UpdateRoom overwrites a room's fields. An empty status keeps the current one.
func (s *RoomService) UpdateRoom(ctx context.Context, id uuid.UUID, in RoomInput) (*models.Room, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	room, err := s.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}

	room.RoomNumber = strings.TrimSpace(in.RoomNumber)
	room.RoomType = strings.TrimSpace(in.RoomType)
	room.Price = in.Price
	if in.Status != "" {
		room.Status = in.Status
	}

	if err := s.rooms.Update(ctx, room); err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicate):
			return nil, fmt.Errorf("room %s: %w", room.RoomNumber, ErrRoomNumberTaken)
		case isRepoNotFound(err):
			return nil, notFound("room", id)
		}
		return nil, err
	}
	return room, nil
}

// UpdateRoomStatus sets the admin-controlled status of a room
func (s *RoomService) UpdateRoomStatus(ctx context.Context, id uuid.UUID, status models.RoomStatus) (*models.Room, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if err := s.rooms.UpdateStatus(ctx, id, status); err != nil {
		if isRepoNotFound(err) {
			return nil, notFound("room", id)
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"room_id": id,
		"status":  status,
	}).Info("Room status updated")

	return s.GetRoom(ctx, id)
}

// DeleteRoom removes a room that no reservation references
func (s *RoomService) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	if err := s.rooms.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, database.ErrInUse):
			return fmt.Errorf("room %s: %w", id, ErrRoomInUse)
		case isRepoNotFound(err):
			return notFound("room", id)
		}
		return err
	}
	return nil
}

// GetRoom returns one room
func (s *RoomService) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	room, err := s.rooms.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}
	if room == nil {
		return nil, notFound("room", id)
	}
	return room, nil
}

// ListRooms returns every room in room-number order
func (s *RoomService) ListRooms(ctx context.Context) ([]*models.Room, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, err
	}
	SortRoomsByNumber(rooms)
	return rooms, nil
}

// ListByType returns the rooms of a type in room-number order
func (s *RoomService) ListByType(ctx context.Context, roomType string) ([]*models.Room, error) {
	rooms, err := s.rooms.ListByType(ctx, roomType)
	if err != nil {
		return nil, err
	}
	SortRoomsByNumber(rooms)
	return rooms, nil
}

// ListByStatus returns the rooms in a status
func (s *RoomService) ListByStatus(ctx context.Context, status models.RoomStatus) ([]*models.Room, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.rooms.ListByStatus(ctx, status)
}

// ListByPriceRange returns rooms priced within [min, max]
func (s *RoomService) ListByPriceRange(ctx context.Context, min, max int64) ([]*models.Room, error) {
	if min < 0 || max < min {
		return nil, invalid(fmt.Errorf("invalid price range %d-%d", min, max))
	}
	return s.rooms.ListByPriceRange(ctx, min, max)
}

// SeedInitialRooms creates the standard inventory when the catalog is empty.
// It returns the number of rooms created.
func (s *RoomService) SeedInitialRooms(ctx context.Context) (int, error) {
	count, err := s.rooms.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count rooms: %w", err)
	}
	if count > 0 {
		s.logger.WithField("rooms", count).Debug("Room catalog already populated, skipping seed")
		return 0, nil
	}

	rooms := InitialRooms()
	if err := s.rooms.CreateBatch(ctx, rooms); err != nil {
		return 0, fmt.Errorf("failed to seed rooms: %w", err)
	}

	s.logger.WithField("rooms", len(rooms)).Info("Seeded initial room catalog")
	return len(rooms), nil
}

// InitialRooms builds the standard inventory: floors 3 to 6, numbered
// floor followed by a two-digit index (301, 302, ...).
func InitialRooms() []*models.Room {
	var rooms []*models.Room
	for _, plan := range initialFloorPlan {
		for i := plan.from; i <= plan.to; i++ {
			rooms = append(rooms, &models.Room{
				RoomNumber: fmt.Sprintf("%d%02d", plan.floor, i),
				RoomType:   plan.roomType,
				Price:      plan.price,
				Status:     models.RoomStatusAvailable,
			})
		}
	}
	return rooms
}
