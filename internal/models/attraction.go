package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Attraction is the catalog record. The ledger only ever holds its ID.
type Attraction struct {
	bun.BaseModel `bun:"table:attractions"`

	ID          string    `bun:"id,pk" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description" json:"description"`
	Category    string    `bun:"category,notnull" json:"category"`
	Tags        []string  `bun:"tags,type:text" json:"tags"`
	ImageURL    string    `bun:"image_url,notnull" json:"imageUrl"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

type AttractionRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	ImageURL    string   `json:"imageUrl"`
}

// AttractionDetail is the attraction with its engagement aggregate and ticket days embedded.
type AttractionDetail struct {
	Attraction
	Engagements EngagementAggregate `json:"engagements"`
	Tickets     []TicketDayView     `json:"tickets"`
}

// AttractionSummary is a list entry with its engagement counters.
type AttractionSummary struct {
	Attraction
	Engagements EngagementAggregate `json:"engagements"`
}
