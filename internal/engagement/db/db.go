package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"ms-attractions/internal/engagement"
	"ms-attractions/internal/models"
)

type DB struct {
	Bun bun.IDB
}

func New(idb bun.IDB) *DB {
	return &DB{Bun: idb}
}

var _ engagement.DBLayer = (*DB)(nil)

func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context, tx engagement.DBLayer) error) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &DB{Bun: tx})
	})
}

func (d *DB) GetUserState(ctx context.Context, attractionID, userID string) (*models.EngagementUserState, error) {
	var state models.EngagementUserState
	err := d.Bun.NewSelect().
		Model(&state).
		Where("attraction_id = ?", attractionID).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (d *DB) UpsertUserState(ctx context.Context, state *models.EngagementUserState) error {
	_, err := d.Bun.NewInsert().
		Model(state).
		On("CONFLICT (user_id, attraction_id) DO UPDATE").
		Set("liked = EXCLUDED.liked").
		Set("favorited = EXCLUDED.favorited").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (d *DB) ListFavoritedAttractionIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := d.Bun.NewSelect().
		Model((*models.EngagementUserState)(nil)).
		Column("attraction_id").
		Where("user_id = ?", userID).
		Where("favorited = ?", true).
		Order("updated_at DESC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// EnsureAggregate creates a zero counter row if none exists.
func (d *DB) EnsureAggregate(ctx context.Context, attractionID string) error {
	_, err := d.Bun.NewInsert().
		Model(&models.EngagementAggregate{AttractionID: attractionID}).
		On("CONFLICT (attraction_id) DO NOTHING").
		Exec(ctx)
	return err
}

// AdjustAggregate applies the deltas in place so concurrent writers on other keys never lose an update.
func (d *DB) AdjustAggregate(ctx context.Context, attractionID string, likes, favorites, shares int) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.EngagementAggregate)(nil)).
		Set("likes = likes + ?", likes).
		Set("favorites = favorites + ?", favorites).
		Set("shares = shares + ?", shares).
		Where("attraction_id = ?", attractionID).
		Exec(ctx)
	return err
}

func (d *DB) GetAggregate(ctx context.Context, attractionID string) (*models.EngagementAggregate, error) {
	var agg models.EngagementAggregate
	err := d.Bun.NewSelect().
		Model(&agg).
		Where("attraction_id = ?", attractionID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

func (d *DB) ListAggregates(ctx context.Context, attractionIDs []string) ([]models.EngagementAggregate, error) {
	list := []models.EngagementAggregate{}
	err := d.Bun.NewSelect().
		Model(&list).
		Where("attraction_id IN (?)", bun.In(attractionIDs)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) DeleteAttraction(ctx context.Context, attractionID string) error {
	if _, err := d.Bun.NewDelete().
		Model((*models.EngagementUserState)(nil)).
		Where("attraction_id = ?", attractionID).
		Exec(ctx); err != nil {
		return err
	}
	_, err := d.Bun.NewDelete().
		Model((*models.EngagementAggregate)(nil)).
		Where("attraction_id = ?", attractionID).
		Exec(ctx)
	return err
}

// CountFlagged counts users whose flag column is set. Used to check counters against user state.
func (d *DB) CountFlagged(ctx context.Context, attractionID, column string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.EngagementUserState)(nil)).
		Where("attraction_id = ?", attractionID).
		Where("? = ?", bun.Ident(column), true).
		Count(ctx)
}
