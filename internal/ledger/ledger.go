package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"ms-attractions/internal/apperr"
	"ms-attractions/internal/events"
	"ms-attractions/internal/lock"
	"ms-attractions/internal/logger"
	"ms-attractions/internal/models"
)

const defaultOperationTimeout = 5 * time.Second

// Ledger owns ticket days and reservations. Every mutation on one
// (attraction, date) runs under that key's lock and inside one transaction,
// and its event is published before the lock is released.
type Ledger struct {
	DB        DBLayer
	Locker    lock.Locker
	Publisher events.Publisher
	Logger    *logger.Logger

	// Attractions, when set, is consulted under the attraction lock before a day opens.
	Attractions AttractionChecker

	// Now and NewID are replaceable in tests.
	Now   func() time.Time
	NewID func() string

	opTimeout time.Duration
}

func NewLedger(db DBLayer, locker lock.Locker, publisher events.Publisher, log *logger.Logger, opTimeout time.Duration) *Ledger {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if opTimeout <= 0 {
		opTimeout = defaultOperationTimeout
	}
	return &Ledger{
		DB:        db,
		Locker:    locker,
		Publisher: publisher,
		Logger:    log,
		Now:       time.Now,
		NewID:     uuid.NewString,
		opTimeout: opTimeout,
	}
}

// ValidateDate reports whether date is a real calendar day in DateLayout.
func ValidateDate(date string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

func validateKey(attractionID, date string) error {
	if strings.TrimSpace(attractionID) == "" {
		return ErrInvalidAttractionID
	}
	return ValidateDate(date)
}

// acquire takes the locks for keys in order. Waiting for a lock honours ctx.
// The returned context is detached from ctx and bounded by the operation
// timeout, so a caller that goes away cannot abort a commit. Callers publish
// before release so events for one key leave in commit order.
func (l *Ledger) acquire(ctx context.Context, keys ...string) (context.Context, func(), error) {
	unlocks := make([]lock.Unlock, 0, len(keys))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, key := range keys {
		unlock, err := l.Locker.Lock(ctx, key)
		if err != nil {
			release()
			return nil, nil, fmt.Errorf("%w: %w", ErrBusy, err)
		}
		unlocks = append(unlocks, unlock)
	}

	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.opTimeout)
	return opCtx, func() {
		cancel()
		release()
	}, nil
}

func (l *Ledger) publish(ctx context.Context, event models.LedgerEvent) {
	event.OccurredAt = l.Now().UTC()
	if err := l.Publisher.Publish(ctx, event); err != nil {
		l.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish %s for %s: %v", event.Type, event.AttractionID, err))
	}
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(fmt.Sprintf("failed to %s", op), err)
}

// OpenTicketDay creates the inventory for one attraction on one date. It also
// holds the attraction lock so it cannot interleave with RemoveAttraction.
func (l *Ledger) OpenTicketDay(ctx context.Context, attractionID, date string, capacity int) (*models.TicketDay, error) {
	if err := validateKey(attractionID, date); err != nil {
		return nil, err
	}
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	opCtx, release, err := l.acquire(ctx, lock.AttractionKey(attractionID), lock.TicketDayKey(attractionID, date))
	if err != nil {
		return nil, err
	}
	defer release()

	if l.Attractions != nil {
		ok, err := l.Attractions.AttractionExists(opCtx, attractionID)
		if err != nil {
			return nil, storageErr("look up attraction", err)
		}
		if !ok {
			return nil, ErrAttractionNotFound
		}
	}

	now := l.Now().UTC()
	day := &models.TicketDay{
		AttractionID:  attractionID,
		Date:          date,
		TotalCapacity: capacity,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = l.DB.WithTx(opCtx, func(ctx context.Context, tx DBLayer) error {
		inserted, err := tx.InsertTicketDay(ctx, day)
		if err != nil {
			return storageErr("open ticket day", err)
		}
		if !inserted {
			return ErrAlreadyExists
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.Logger.LogInventory("OPEN", attractionID, date, fmt.Sprintf("capacity %d", capacity))
	l.publish(opCtx, models.LedgerEvent{Type: models.EventTicketDayOpened, AttractionID: attractionID, Date: date, TicketDay: day})
	return day, nil
}

// IncreaseCapacity adds delta tickets to an existing ticket day.
func (l *Ledger) IncreaseCapacity(ctx context.Context, attractionID, date string, delta int) (*models.TicketDay, error) {
	if err := validateKey(attractionID, date); err != nil {
		return nil, err
	}
	if delta <= 0 {
		return nil, ErrInvalidDelta
	}

	opCtx, release, err := l.acquire(ctx, lock.TicketDayKey(attractionID, date))
	if err != nil {
		return nil, err
	}
	defer release()

	var day *models.TicketDay
	err = l.DB.WithTx(opCtx, func(ctx context.Context, tx DBLayer) error {
		ok, err := tx.AddCapacity(ctx, attractionID, date, delta, l.Now().UTC())
		if err != nil {
			return storageErr("increase capacity", err)
		}
		if !ok {
			return ErrTicketDayNotFound
		}
		day, err = tx.GetTicketDay(ctx, attractionID, date)
		return storageErr("load ticket day", err)
	})
	if err != nil {
		return nil, err
	}

	l.Logger.LogInventory("CAPACITY", attractionID, date, fmt.Sprintf("+%d, total %d", delta, day.TotalCapacity))
	l.publish(opCtx, models.LedgerEvent{Type: models.EventTicketDayUpdated, AttractionID: attractionID, Date: date, TicketDay: day})
	return day, nil
}

// CloseTicketDay removes a ticket day. It is refused while any reservation is active.
func (l *Ledger) CloseTicketDay(ctx context.Context, attractionID, date string) error {
	if err := validateKey(attractionID, date); err != nil {
		return err
	}

	opCtx, release, err := l.acquire(ctx, lock.TicketDayKey(attractionID, date))
	if err != nil {
		return err
	}
	defer release()

	err = l.DB.WithTx(opCtx, func(ctx context.Context, tx DBLayer) error {
		day, err := tx.GetTicketDay(ctx, attractionID, date)
		if err != nil {
			return storageErr("load ticket day", err)
		}
		if day == nil {
			return ErrTicketDayNotFound
		}
		if day.ReservedCount > 0 {
			return ErrActiveReservations
		}
		deleted, err := tx.DeleteEmptyTicketDay(ctx, attractionID, date)
		if err != nil {
			return storageErr("close ticket day", err)
		}
		if !deleted {
			return ErrActiveReservations
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.Logger.LogInventory("CLOSE", attractionID, date, "ticket day removed")
	l.publish(opCtx, models.LedgerEvent{
		Type:         models.EventTicketDayClosed,
		AttractionID: attractionID,
		Date:         date,
		TicketDay:    &models.TicketDay{AttractionID: attractionID, Date: date},
	})
	return nil
}

// Reserve claims one ticket of (attractionID, date) for userID.
func (l *Ledger) Reserve(ctx context.Context, attractionID, date, userID string) (*models.Reservation, error) {
	if err := validateKey(attractionID, date); err != nil {
		return nil, err
	}
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUserID
	}

	opCtx, release, err := l.acquire(ctx, lock.TicketDayKey(attractionID, date))
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		reservation *models.Reservation
		day         *models.TicketDay
	)
	err = l.DB.WithTx(opCtx, func(ctx context.Context, tx DBLayer) error {
		current, err := tx.GetTicketDay(ctx, attractionID, date)
		if err != nil {
			return storageErr("load ticket day", err)
		}
		if current == nil {
			return ErrTicketDayNotFound
		}

		existing, err := tx.FindActiveReservation(ctx, userID, attractionID, date)
		if err != nil {
			return storageErr("look up reservation", err)
		}
		if existing != nil {
			return ErrDuplicateReservation
		}

		if current.ReservedCount >= current.TotalCapacity {
			return ErrSoldOut
		}

		now := l.Now().UTC()
		// The conditional update is the last guard on capacity even if the lock lapsed.
		claimed, err := tx.ClaimSeat(ctx, attractionID, date, now)
		if err != nil {
			return storageErr("claim ticket", err)
		}
		if !claimed {
			return ErrSoldOut
		}

		reservation = &models.Reservation{
			ID:           l.NewID(),
			UserID:       userID,
			AttractionID: attractionID,
			Date:         date,
			Status:       models.ReservationActive,
			CreatedAt:    now,
		}
		if err := tx.InsertReservation(ctx, reservation); err != nil {
			return storageErr("store reservation", err)
		}

		day, err = tx.GetTicketDay(ctx, attractionID, date)
		return storageErr("load ticket day", err)
	})
	if err != nil {
		return nil, err
	}

	l.Logger.LogReservation("RESERVE", reservation.ID, fmt.Sprintf("%s on %s/%s, %d remaining", userID, attractionID, date, day.Remaining()))
	l.publish(opCtx, models.LedgerEvent{
		Type:         models.EventReservationCreated,
		AttractionID: attractionID,
		Date:         date,
		UserID:       userID,
		Reservation:  reservation,
		TicketDay:    day,
	})
	return reservation, nil
}

// Cancel moves an ACTIVE reservation to CANCELLED and frees its ticket.
// currentFlow is cumulative and is left untouched.
func (l *Ledger) Cancel(ctx context.Context, reservationID string) (*models.Reservation, error) {
	if strings.TrimSpace(reservationID) == "" {
		return nil, ErrReservationNotFound
	}

	found, err := l.DB.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, storageErr("load reservation", err)
	}
	if found == nil {
		return nil, ErrReservationNotFound
	}

	opCtx, release, err := l.acquire(ctx, lock.TicketDayKey(found.AttractionID, found.Date))
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		reservation *models.Reservation
		day         *models.TicketDay
	)
	err = l.DB.WithTx(opCtx, func(ctx context.Context, tx DBLayer) error {
		current, err := tx.GetReservation(ctx, reservationID)
		if err != nil {
			return storageErr("load reservation", err)
		}
		if current == nil {
			return ErrReservationNotFound
		}
		if !current.IsActive() {
			return ErrAlreadyCancelled
		}

		now := l.Now().UTC()
		cancelled, err := tx.MarkCancelled(ctx, reservationID, now)
		if err != nil {
			return storageErr("cancel reservation", err)
		}
		if !cancelled {
			return ErrAlreadyCancelled
		}

		released, err := tx.ReleaseSeat(ctx, current.AttractionID, current.Date, now)
		if err != nil {
			return storageErr("release ticket", err)
		}
		if !released {
			return apperr.Internal("failed to release ticket", fmt.Errorf("ticket day %s/%s has no reserved tickets", current.AttractionID, current.Date))
		}

		current.Status = models.ReservationCancelled
		current.CancelledAt = &now
		reservation = current

		day, err = tx.GetTicketDay(ctx, current.AttractionID, current.Date)
		return storageErr("load ticket day", err)
	})
	if err != nil {
		return nil, err
	}

	l.Logger.LogReservation("CANCEL", reservation.ID, fmt.Sprintf("%s on %s/%s", reservation.UserID, reservation.AttractionID, reservation.Date))
	l.publish(opCtx, models.LedgerEvent{
		Type:         models.EventReservationCancelled,
		AttractionID: reservation.AttractionID,
		Date:         reservation.Date,
		UserID:       reservation.UserID,
		Reservation:  reservation,
		TicketDay:    day,
	})
	return reservation, nil
}

// RemoveAttraction deletes every ticket day of an attraction, or none of them
// if any day still has active reservations. detach runs once the check passed,
// with the attraction lock and every day lock held, and before the days are
// deleted. An error from detach keeps the days.
func (l *Ledger) RemoveAttraction(ctx context.Context, attractionID string, detach func(ctx context.Context) error) error {
	if strings.TrimSpace(attractionID) == "" {
		return ErrInvalidAttractionID
	}

	// No day can be opened while the attraction lock is held, so the list is complete.
	unlockAttraction, err := l.Locker.Lock(ctx, lock.AttractionKey(attractionID))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBusy, err)
	}
	defer unlockAttraction()

	days, err := l.DB.ListTicketDays(ctx, attractionID)
	if err != nil {
		return storageErr("list ticket days", err)
	}
	keys := make([]string, 0, len(days))
	for _, d := range days {
		if d.ReservedCount > 0 {
			return ErrActiveReservations
		}
		keys = append(keys, lock.TicketDayKey(attractionID, d.Date))
	}
	// Date order so concurrent removals cannot deadlock.
	sort.Strings(keys)

	opCtx, release, err := l.acquire(ctx, keys...)
	if err != nil {
		return err
	}
	defer release()

	busy, err := l.DB.CountReservedTicketDays(opCtx, attractionID)
	if err != nil {
		return storageErr("count ticket days", err)
	}
	if busy > 0 {
		return ErrActiveReservations
	}

	if detach != nil {
		if err := detach(opCtx); err != nil {
			return err
		}
	}

	var removed int
	err = l.DB.WithTx(opCtx, func(ctx context.Context, tx DBLayer) error {
		n, err := tx.DeleteEmptyTicketDays(ctx, attractionID)
		if err != nil {
			return storageErr("remove ticket days", err)
		}
		busy, err := tx.CountReservedTicketDays(ctx, attractionID)
		if err != nil {
			return storageErr("count ticket days", err)
		}
		if busy > 0 {
			return ErrActiveReservations
		}
		removed = n
		return nil
	})
	if err != nil {
		l.Logger.Error("INVENTORY", fmt.Sprintf("Attraction %s detached but its ticket days were kept: %v", attractionID, err))
		return err
	}

	l.Logger.LogInventory("REMOVE", attractionID, "*", fmt.Sprintf("%d ticket days removed", removed))
	for _, d := range days {
		l.publish(opCtx, models.LedgerEvent{
			Type:         models.EventTicketDayClosed,
			AttractionID: attractionID,
			Date:         d.Date,
			TicketDay:    &models.TicketDay{AttractionID: attractionID, Date: d.Date},
		})
	}
	return nil
}

func (l *Ledger) GetTicketDay(ctx context.Context, attractionID, date string) (*models.TicketDay, error) {
	if err := validateKey(attractionID, date); err != nil {
		return nil, err
	}
	day, err := l.DB.GetTicketDay(ctx, attractionID, date)
	if err != nil {
		return nil, storageErr("load ticket day", err)
	}
	if day == nil {
		return nil, ErrTicketDayNotFound
	}
	return day, nil
}

// ListTicketDays returns the attraction's ticket days ordered by date.
func (l *Ledger) ListTicketDays(ctx context.Context, attractionID string) ([]models.TicketDay, error) {
	days, err := l.DB.ListTicketDays(ctx, attractionID)
	if err != nil {
		return nil, storageErr("list ticket days", err)
	}
	return days, nil
}

func (l *Ledger) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	r, err := l.DB.GetReservation(ctx, id)
	if err != nil {
		return nil, storageErr("load reservation", err)
	}
	if r == nil {
		return nil, ErrReservationNotFound
	}
	return r, nil
}

// FindActiveReservation returns ErrReservationNotFound when the user holds no ACTIVE reservation.
func (l *Ledger) FindActiveReservation(ctx context.Context, userID, attractionID, date string) (*models.Reservation, error) {
	if err := validateKey(attractionID, date); err != nil {
		return nil, err
	}
	r, err := l.DB.FindActiveReservation(ctx, userID, attractionID, date)
	if err != nil {
		return nil, storageErr("look up reservation", err)
	}
	if r == nil {
		return nil, ErrReservationNotFound
	}
	return r, nil
}

func (l *Ledger) ListUserReservations(ctx context.Context, userID string, activeOnly bool) ([]models.Reservation, error) {
	list, err := l.DB.ListReservationsByUser(ctx, userID, activeOnly)
	if err != nil {
		return nil, storageErr("list reservations", err)
	}
	return list, nil
}
