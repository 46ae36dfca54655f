package ledger

import (
	"context"
	"time"

	"ms-attractions/internal/models"
)

// DBLayer is the storage the ledger mutates. Lookups return (nil, nil) when nothing matches.
// Conditional writes report whether their guard held.
type DBLayer interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx DBLayer) error) error

	InsertTicketDay(ctx context.Context, day *models.TicketDay) (bool, error)
	GetTicketDay(ctx context.Context, attractionID, date string) (*models.TicketDay, error)
	ListTicketDays(ctx context.Context, attractionID string) ([]models.TicketDay, error)
	AddCapacity(ctx context.Context, attractionID, date string, delta int, now time.Time) (bool, error)
	DeleteEmptyTicketDay(ctx context.Context, attractionID, date string) (bool, error)
	DeleteEmptyTicketDays(ctx context.Context, attractionID string) (int, error)
	CountReservedTicketDays(ctx context.Context, attractionID string) (int, error)
	ClaimSeat(ctx context.Context, attractionID, date string, now time.Time) (bool, error)
	ReleaseSeat(ctx context.Context, attractionID, date string, now time.Time) (bool, error)

	InsertReservation(ctx context.Context, r *models.Reservation) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	FindActiveReservation(ctx context.Context, userID, attractionID, date string) (*models.Reservation, error)
	MarkCancelled(ctx context.Context, id string, now time.Time) (bool, error)
	ListReservationsByUser(ctx context.Context, userID string, activeOnly bool) ([]models.Reservation, error)
}

// AttractionChecker confirms an attraction is still in the catalog.
type AttractionChecker interface {
	AttractionExists(ctx context.Context, id string) (bool, error)
}
