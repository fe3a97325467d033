package models

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus is the booking lifecycle of a reservation
type ReservationStatus string

const (
	ReservationStatusReserved   ReservationStatus = "RESERVED"
	ReservationStatusCheckedIn  ReservationStatus = "CHECKED_IN"
	ReservationStatusCheckedOut ReservationStatus = "CHECKED_OUT"
	ReservationStatusCancelled  ReservationStatus = "CANCELLED"
)

// IsValid reports whether s is a known reservation status
func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationStatusReserved, ReservationStatusCheckedIn, ReservationStatusCheckedOut, ReservationStatusCancelled:
		return true
	}
	return false
}

// ReservationPaymentStatus is the payment lifecycle of a reservation.
// It moves independently of ReservationStatus except that a CANCELLED
// reservation never becomes PAID.
type ReservationPaymentStatus string

const (
	ReservationPaymentPending  ReservationPaymentStatus = "PENDING"
	ReservationPaymentPaid     ReservationPaymentStatus = "PAID"
	ReservationPaymentFailed   ReservationPaymentStatus = "FAILED"
	ReservationPaymentRefunded ReservationPaymentStatus = "REFUNDED"
)

// Reservation is a booking of one room for the half-open stay [CheckIn, CheckOut)
type Reservation struct {
	ID            uuid.UUID                `json:"id" db:"id"`
	UserID        uuid.UUID                `json:"user_id" db:"user_id"`
	RoomID        uuid.UUID                `json:"room_id" db:"room_id"`
	RoomNumber    string                   `json:"room_number" db:"room_number"`
	RoomType      string                   `json:"room_type" db:"room_type"`
	CheckIn       Date                     `json:"check_in" db:"check_in"`
	CheckOut      Date                     `json:"check_out" db:"check_out"`
	People        int                      `json:"people" db:"people"`
	GuestName     NullString               `json:"guest_name,omitempty" db:"guest_name"`
	GuestPhone    NullString               `json:"guest_phone,omitempty" db:"guest_phone"`
	Message       NullString               `json:"message,omitempty" db:"message"`
	Status        ReservationStatus        `json:"status" db:"status"`
	PaymentStatus ReservationPaymentStatus `json:"payment_status" db:"payment_status"`
	CreatedAt     time.Time                `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at" db:"updated_at"`
}

// Stay returns the reserved date range
func (r *Reservation) Stay() DateRange {
	return DateRange{CheckIn: r.CheckIn, CheckOut: r.CheckOut}
}

// IsActive reports whether the reservation still holds its room
func (r *Reservation) IsActive() bool {
	return r.Status != ReservationStatusCancelled
}

// DateRange is a half-open interval of nights [CheckIn, CheckOut)
type DateRange struct {
	CheckIn  Date
	CheckOut Date
}

// Valid reports whether the range covers at least one night
func (dr DateRange) Valid() bool {
	return dr.CheckIn.Before(dr.CheckOut)
}

// Overlaps reports whether two ranges share a night. Ranges that only touch
// (one ends the day the other starts) do not overlap.
func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

// Contains reports whether the night of d falls inside the range
func (dr DateRange) Contains(d Date) bool {
	return !d.Before(dr.CheckIn) && d.Before(dr.CheckOut)
}

// Nights returns the number of nights in the range
func (dr DateRange) Nights() int {
	return int(dr.CheckOut.Sub(dr.CheckIn.Time).Hours() / 24)
}

// RoomSelectorKind tells how a booking request identifies its room
type RoomSelectorKind string

const (
	SelectByRoom   RoomSelectorKind = "room"
	SelectByNumber RoomSelectorKind = "number"
	SelectByType   RoomSelectorKind = "type"
)

// RoomSelector picks a room either directly (by id or number) or by type,
// in which case a free room of that type is assigned.
type RoomSelector struct {
	Kind   RoomSelectorKind
	RoomID uuid.UUID
	Value  string
}

// ByRoom selects a room by its id
func ByRoom(id uuid.UUID) RoomSelector {
	return RoomSelector{Kind: SelectByRoom, RoomID: id}
}

// ByNumber selects a room by its room number
func ByNumber(number string) RoomSelector {
	return RoomSelector{Kind: SelectByNumber, Value: number}
}

// ByType asks for the lowest-numbered free room of a type
func ByType(roomType string) RoomSelector {
	return RoomSelector{Kind: SelectByType, Value: roomType}
}
