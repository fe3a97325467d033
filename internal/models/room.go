package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomStatus is the admin-controlled lifecycle tag of a room
type RoomStatus string

const (
	RoomStatusAvailable   RoomStatus = "AVAILABLE"
	RoomStatusBooked      RoomStatus = "BOOKED"
	RoomStatusOccupied    RoomStatus = "OCCUPIED"
	RoomStatusMaintenance RoomStatus = "MAINTENANCE"
)

// IsValid reports whether s is a known room status
func (s RoomStatus) IsValid() bool {
	switch s {
	case RoomStatusAvailable, RoomStatusBooked, RoomStatusOccupied, RoomStatusMaintenance:
		return true
	}
	return false
}

// Room is a bookable unit of the hotel inventory.
// Price is the nightly rate in KRW.
type Room struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	RoomNumber string     `json:"room_number" db:"room_number"`
	RoomType   string     `json:"room_type" db:"room_type"`
	Price      int64      `json:"price" db:"price"`
	Status     RoomStatus `json:"status" db:"status"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}
