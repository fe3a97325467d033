package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hotelpms/hotel-backend/internal/models"
)

const roomColumns = `id, room_number, room_type, price, status, created_at, updated_at`

// RoomRepository handles room inventory operations
type RoomRepository struct {
	db DB
}

// NewRoomRepository creates a new room repository
func NewRoomRepository(db DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create inserts a room. A taken room number yields ErrDuplicate.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	prepareRoom(room)

	query := `
		INSERT INTO rooms (id, room_number, room_type, price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		room.ID, room.RoomNumber, room.RoomType, room.Price, room.Status, room.CreatedAt, room.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", classify(err))
	}
	return nil
}

// CreateBatch inserts rooms in one transaction
func (r *RoomRepository) CreateBatch(ctx context.Context, rooms []*models.Room) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO rooms (id, room_number, room_type, price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, room := range rooms {
		prepareRoom(room)
		if _, err := tx.ExecContext(ctx, query,
			room.ID, room.RoomNumber, room.RoomType, room.Price, room.Status, room.CreatedAt, room.UpdatedAt); err != nil {
			return fmt.Errorf("failed to insert room %s: %w", room.RoomNumber, classify(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rooms: %w", err)
	}
	return nil
}

// Update overwrites a room's number, type, price and status
func (r *RoomRepository) Update(ctx context.Context, room *models.Room) error {
	room.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, `
		UPDATE rooms
		SET room_number = $2, room_type = $3, price = $4, status = $5, updated_at = $6
		WHERE id = $1
	`, room.ID, room.RoomNumber, room.RoomType, room.Price, room.Status, room.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", classify(err))
	}
	return requireRow(result, "failed to update room")
}

// UpdateStatus sets a room's lifecycle status
func (r *RoomRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.RoomStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE rooms SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update room status: %w", err)
	}
	return requireRow(result, "failed to update room status")
}

// Delete removes a room. Rooms still referenced by reservations cannot be deleted.
func (r *RoomRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", classify(err))
	}
	return requireRow(result, "failed to delete room")
}

// GetByID retrieves a room by ID
func (r *RoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	return r.getOne(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
}

// GetByNumber retrieves a room by its room number
func (r *RoomRepository) GetByNumber(ctx context.Context, number string) (*models.Room, error) {
	return r.getOne(ctx, `SELECT `+roomColumns+` FROM rooms WHERE room_number = $1`, number)
}

// List returns every room ordered by room number
func (r *RoomRepository) List(ctx context.Context) ([]*models.Room, error) {
	return r.list(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY room_number`)
}

// ListByType returns rooms of one type. Ordering is left to the caller.
func (r *RoomRepository) ListByType(ctx context.Context, roomType string) ([]*models.Room, error) {
	return r.list(ctx, `SELECT `+roomColumns+` FROM rooms WHERE room_type = $1 ORDER BY room_number`, roomType)
}

// ListByStatus returns rooms with the given status
func (r *RoomRepository) ListByStatus(ctx context.Context, status models.RoomStatus) ([]*models.Room, error) {
	return r.list(ctx, `SELECT `+roomColumns+` FROM rooms WHERE status = $1 ORDER BY room_number`, status)
}

// ListByPriceRange returns rooms priced within [min, max]
func (r *RoomRepository) ListByPriceRange(ctx context.Context, min, max int64) ([]*models.Room, error) {
	return r.list(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE price BETWEEN $1 AND $2 ORDER BY price, room_number`, min, max)
}

// Count returns the number of rooms
func (r *RoomRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM rooms`); err != nil {
		return 0, fmt.Errorf("failed to count rooms: %w", err)
	}
	return count, nil
}

func (r *RoomRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.Room, error) {
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return &room, nil
}

func (r *RoomRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Room, error) {
	rooms := []*models.Room{}
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

func prepareRoom(room *models.Room) {
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	if room.Status == "" {
		room.Status = models.RoomStatusAvailable
	}
	now := time.Now()
	room.CreatedAt = now
	room.UpdatedAt = now
}
