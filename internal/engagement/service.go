package engagement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-attractions/internal/apperr"
	"ms-attractions/internal/events"
	"ms-attractions/internal/lock"
	"ms-attractions/internal/logger"
	"ms-attractions/internal/models"
)

var (
	ErrInvalidAttractionID = apperr.New(apperr.KindValidation, "invalid_attraction_id", "attraction id is required")
	ErrInvalidUserID       = apperr.New(apperr.KindValidation, "invalid_user_id", "user id is required")
	ErrAttractionNotFound  = apperr.New(apperr.KindNotFound, "attraction_not_found", "attraction not found")
	ErrBusy                = apperr.New(apperr.KindInternal, "lock_unavailable", "engagement is busy, try again")
)

type flag int

const (
	flagLike flag = iota
	flagFavorite
)

func (f flag) String() string {
	if f == flagFavorite {
		return "FAVORITE"
	}
	return "LIKE"
}

// Store owns per-user engagement flags and per-attraction counters.
// Flag changes for one (attraction, user) are serialized by that key's lock and
// applied together with the counter adjustment in one transaction.
type Store struct {
	DB          DBLayer
	Locker      lock.Locker
	Attractions AttractionChecker
	Publisher   events.Publisher
	Logger      *logger.Logger
	Now         func() time.Time

	opTimeout time.Duration
}

func NewStore(db DBLayer, locker lock.Locker, attractions AttractionChecker, publisher events.Publisher, log *logger.Logger, opTimeout time.Duration) *Store {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &Store{
		DB:          db,
		Locker:      locker,
		Attractions: attractions,
		Publisher:   publisher,
		Logger:      log,
		Now:         time.Now,
		opTimeout:   opTimeout,
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

func (s *Store) validate(ctx context.Context, attractionID, userID string) error {
	if strings.TrimSpace(attractionID) == "" {
		return ErrInvalidAttractionID
	}
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUserID
	}
	if s.Attractions == nil {
		return nil
	}
	ok, err := s.Attractions.AttractionExists(ctx, attractionID)
	if err != nil {
		return storageErr("look up attraction", err)
	}
	if !ok {
		return ErrAttractionNotFound
	}
	return nil
}

func (s *Store) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.opTimeout)
}

// change applies next(current) to one flag. A nil next means "flip".
func (s *Store) change(ctx context.Context, attractionID, userID string, f flag, next func(current bool) bool) (*models.EngagementResult, error) {
	if err := s.validate(ctx, attractionID, userID); err != nil {
		return nil, err
	}

	unlock, err := s.Locker.Lock(ctx, lock.EngagementKey(attractionID, userID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBusy, err)
	}
	defer unlock()

	opCtx, cancel := s.detached(ctx)
	defer cancel()

	var (
		result  models.EngagementResult
		changed bool
	)
	err = s.DB.WithTx(opCtx, func(ctx context.Context, tx DBLayer) error {
		state, err := tx.GetUserState(ctx, attractionID, userID)
		if err != nil {
			return storageErr("load engagement state", err)
		}
		if state == nil {
			state = &models.EngagementUserState{UserID: userID, AttractionID: attractionID}
		}

		current := state.Liked
		if f == flagFavorite {
			current = state.Favorited
		}
		want := next(current)

		if want != current {
			changed = true
			delta := 1
			if !want {
				delta = -1
			}

			likes, favorites := 0, 0
			if f == flagLike {
				state.Liked = want
				likes = delta
			} else {
				state.Favorited = want
				favorites = delta
			}
			state.UpdatedAt = s.Now().UTC()

			if err := tx.UpsertUserState(ctx, state); err != nil {
				return storageErr("store engagement state", err)
			}
			if err := tx.EnsureAggregate(ctx, attractionID); err != nil {
				return storageErr("create engagement counters", err)
			}
			if err := tx.AdjustAggregate(ctx, attractionID, likes, favorites, 0); err != nil {
				return storageErr("update engagement counters", err)
			}
		}

		agg, err := tx.GetAggregate(ctx, attractionID)
		if err != nil {
			return storageErr("load engagement counters", err)
		}
		if agg == nil {
			agg = &models.EngagementAggregate{AttractionID: attractionID}
		}

		result = models.EngagementResult{
			AttractionID: attractionID,
			Liked:        state.Liked,
			Favorited:    state.Favorited,
			Aggregate:    *agg,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.Logger.LogEngagement(f.String(), attractionID, userID,
			fmt.Sprintf("liked=%t favorited=%t (likes %d, favorites %d)", result.Liked, result.Favorited, result.Aggregate.Likes, result.Aggregate.Favorites))
		s.publish(ctx, attractionID, userID)
	}
	return &result, nil
}

// publish sends the attraction's counters as they are now. The read and the
// send happen under the attraction's counters lock, so the last event for an
// attraction is current even when commits by different users finish out of order.
func (s *Store) publish(ctx context.Context, attractionID, userID string) {
	pubCtx, cancel := s.detached(ctx)
	defer cancel()

	unlock, err := s.Locker.Lock(pubCtx, lock.CountersKey(attractionID))
	if err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Skipped %s for %s: %v", models.EventEngagementChanged, attractionID, err))
		return
	}
	defer unlock()

	agg, err := s.GetAggregate(pubCtx, attractionID)
	if err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Skipped %s for %s: %v", models.EventEngagementChanged, attractionID, err))
		return
	}
	event := models.LedgerEvent{
		Type:         models.EventEngagementChanged,
		AttractionID: attractionID,
		UserID:       userID,
		Engagement:   &agg,
		OccurredAt:   s.Now().UTC(),
	}
	if err := s.Publisher.Publish(pubCtx, event); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish %s for %s: %v", event.Type, event.AttractionID, err))
	}
}

func set(v bool) func(bool) bool { return func(bool) bool { return v } }

func flip(current bool) bool { return !current }

// SetLiked is idempotent: setting the current value changes nothing.
func (s *Store) SetLiked(ctx context.Context, attractionID, userID string, liked bool) (*models.EngagementResult, error) {
	return s.change(ctx, attractionID, userID, flagLike, set(liked))
}

// ToggleLike flips the flag. A retried toggle flips it back.
func (s *Store) ToggleLike(ctx context.Context, attractionID, userID string) (*models.EngagementResult, error) {
	return s.change(ctx, attractionID, userID, flagLike, flip)
}

func (s *Store) SetFavorited(ctx context.Context, attractionID, userID string, favorited bool) (*models.EngagementResult, error) {
	return s.change(ctx, attractionID, userID, flagFavorite, set(favorited))
}

func (s *Store) ToggleFavorite(ctx context.Context, attractionID, userID string) (*models.EngagementResult, error) {
	return s.change(ctx, attractionID, userID, flagFavorite, flip)
}

// RecordShare increments the share counter. Shares have no per-user state and are never undone.
func (s *Store) RecordShare(ctx context.Context, attractionID, userID string) (*models.EngagementAggregate, error) {
	if err := s.validate(ctx, attractionID, userID); err != nil {
		return nil, err
	}

	opCtx, cancel := s.detached(ctx)
	defer cancel()

	var agg *models.EngagementAggregate
	err := s.DB.WithTx(opCtx, func(ctx context.Context, tx DBLayer) error {
		if err := tx.EnsureAggregate(ctx, attractionID); err != nil {
			return storageErr("create engagement counters", err)
		}
		if err := tx.AdjustAggregate(ctx, attractionID, 0, 0, 1); err != nil {
			return storageErr("record share", err)
		}
		var err error
		agg, err = tx.GetAggregate(ctx, attractionID)
		return storageErr("load engagement counters", err)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogEngagement("SHARE", attractionID, userID, fmt.Sprintf("shares %d", agg.Shares))
	s.publish(ctx, attractionID, userID)
	return agg, nil
}

// GetUserState never creates a row. Unknown pairs read as {false, false}.
func (s *Store) GetUserState(ctx context.Context, attractionID, userID string) (models.UserEngagementState, error) {
	out := models.UserEngagementState{AttractionID: attractionID}
	if userID == "" {
		return out, nil
	}
	state, err := s.DB.GetUserState(ctx, attractionID, userID)
	if err != nil {
		return out, storageErr("load engagement state", err)
	}
	if state != nil {
		out.Liked = state.Liked
		out.Favorited = state.Favorited
	}
	return out, nil
}

// GetAggregate returns zero counters for an attraction nobody engaged with.
func (s *Store) GetAggregate(ctx context.Context, attractionID string) (models.EngagementAggregate, error) {
	agg, err := s.DB.GetAggregate(ctx, attractionID)
	if err != nil {
		return models.EngagementAggregate{}, storageErr("load engagement counters", err)
	}
	if agg == nil {
		return models.EngagementAggregate{AttractionID: attractionID}, nil
	}
	return *agg, nil
}

// Aggregates returns counters keyed by attraction id, zeros included.
func (s *Store) Aggregates(ctx context.Context, attractionIDs []string) (map[string]models.EngagementAggregate, error) {
	out := make(map[string]models.EngagementAggregate, len(attractionIDs))
	for _, id := range attractionIDs {
		out[id] = models.EngagementAggregate{AttractionID: id}
	}
	if len(attractionIDs) == 0 {
		return out, nil
	}
	list, err := s.DB.ListAggregates(ctx, attractionIDs)
	if err != nil {
		return nil, storageErr("load engagement counters", err)
	}
	for _, agg := range list {
		out[agg.AttractionID] = agg
	}
	return out, nil
}

// FavoriteIDs lists the attractions the user has favorited, most recent first.
func (s *Store) FavoriteIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.DB.ListFavoritedAttractionIDs(ctx, userID)
	if err != nil {
		return nil, storageErr("list favorites", err)
	}
	return ids, nil
}

// RemoveAttraction drops all engagement state of a deleted attraction.
func (s *Store) RemoveAttraction(ctx context.Context, attractionID string) error {
	opCtx, cancel := s.detached(ctx)
	defer cancel()
	return storageErr("remove engagement", s.DB.WithTx(opCtx, func(ctx context.Context, tx DBLayer) error {
		return tx.DeleteAttraction(ctx, attractionID)
	}))
}
