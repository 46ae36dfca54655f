package models

import "time"

const (
	EventTicketDayOpened      = "ticketday.opened"
	EventTicketDayUpdated     = "ticketday.updated"
	EventTicketDayClosed      = "ticketday.closed"
	EventReservationCreated   = "reservation.created"
	EventReservationCancelled = "reservation.cancelled"
	EventEngagementChanged    = "engagement.changed"
)

// LedgerEvent is the payload published to kafka after a committed mutation.
type LedgerEvent struct {
	Type         string               `json:"type"`
	AttractionID string               `json:"attraction_id"`
	Date         string               `json:"date,omitempty"`
	UserID       string               `json:"user_id,omitempty"`
	TicketDay    *TicketDay           `json:"ticket_day,omitempty"`
	Reservation  *Reservation         `json:"reservation,omitempty"`
	Engagement   *EngagementAggregate `json:"engagement,omitempty"`
	OccurredAt   time.Time            `json:"occurred_at"`
}

// Key partitions events by attraction so one attraction's events stay ordered.
func (e LedgerEvent) Key() string {
	return e.AttractionID
}
