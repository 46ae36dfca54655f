package models

import (
	"time"

	"github.com/uptrace/bun"
)

// DateLayout is the calendar date format used for ticket days.
const DateLayout = "2006-01-02"

// TicketDay is the sellable inventory of one attraction on one date.
// (AttractionID, Date) is the primary key.
type TicketDay struct {
	bun.BaseModel `bun:"table:ticket_days"`

	AttractionID  string    `bun:"attraction_id,pk" json:"attractionId"`
	Date          string    `bun:"date,pk" json:"date"`
	TotalCapacity int       `bun:"total_capacity,notnull" json:"totalCapacity"`
	ReservedCount int       `bun:"reserved_count,notnull" json:"reservedCount"`
	CurrentFlow   int       `bun:"current_flow,notnull" json:"currentFlow"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

// Remaining returns the number of tickets still reservable.
func (t TicketDay) Remaining() int {
	return t.TotalCapacity - t.ReservedCount
}

// TicketDayView is the client representation with the derived remaining count.
type TicketDayView struct {
	AttractionID     string `json:"attractionId"`
	Date             string `json:"date"`
	TotalTickets     int    `json:"totalTickets"`
	ReservedCount    int    `json:"reservedCount"`
	RemainingTickets int    `json:"remainingTickets"`
	CurrentFlow      int    `json:"currentFlow"`
}

func (t TicketDay) View() TicketDayView {
	return TicketDayView{
		AttractionID:     t.AttractionID,
		Date:             t.Date,
		TotalTickets:     t.TotalCapacity,
		ReservedCount:    t.ReservedCount,
		RemainingTickets: t.Remaining(),
		CurrentFlow:      t.CurrentFlow,
	}
}

type OpenTicketDayRequest struct {
	Date         string `json:"date"`
	TotalTickets int    `json:"totalTickets"`
}

type IncreaseCapacityRequest struct {
	Date       string `json:"date"`
	NewTickets int    `json:"newTickets"`
}

type DateRequest struct {
	Date string `json:"date"`
}
