package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationCancelled ReservationStatus = "CANCELLED"
)

// Reservation is a user's claim on one unit of a TicketDay. The only mutation
// after creation is the one-way ACTIVE -> CANCELLED transition.
type Reservation struct {
	bun.BaseModel `bun:"table:reservations"`

	ID           string            `bun:"id,pk" json:"id"`
	UserID       string            `bun:"user_id,notnull" json:"userId"`
	AttractionID string            `bun:"attraction_id,notnull" json:"attractionId"`
	Date         string            `bun:"date,notnull" json:"reservationDate"`
	Status       ReservationStatus `bun:"status,notnull" json:"status"`
	CreatedAt    time.Time         `bun:"created_at,notnull" json:"createdAt"`
	CancelledAt  *time.Time        `bun:"cancelled_at,nullzero" json:"cancelledAt,omitempty"`
}

func (r Reservation) IsActive() bool {
	return r.Status == ReservationActive
}

// ReservationView is what a user sees in their reservation list.
type ReservationView struct {
	Reservation
	AttractionName     string `json:"attractionName"`
	AttractionImageURL string `json:"attractionImageUrl"`
}
