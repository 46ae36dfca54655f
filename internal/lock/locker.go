package lock

import (
	"context"
	"errors"
	"fmt"
)

// ErrLockTimeout is returned when the caller's context ends before the lock is granted.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// Unlock releases a held lock. It is safe to call once.
type Unlock func()

// Locker grants mutual exclusion per key. Different keys never contend.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// TicketDayKey is the exclusivity domain of one attraction on one date.
func TicketDayKey(attractionID, date string) string {
	return fmt.Sprintf("ticketday:%s:%s", attractionID, date)
}

// AttractionKey guards the set of ticket days an attraction has.
func AttractionKey(attractionID string) string {
	return fmt.Sprintf("attraction:%s", attractionID)
}

// EngagementKey is the exclusivity domain of one user's flags on one attraction.
func EngagementKey(attractionID, userID string) string {
	return fmt.Sprintf("engagement:%s:%s", attractionID, userID)
}

// CountersKey orders the publication of one attraction's engagement counters.
func CountersKey(attractionID string) string {
	return fmt.Sprintf("counters:%s", attractionID)
}
