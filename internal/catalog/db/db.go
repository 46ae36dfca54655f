package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"ms-attractions/internal/models"
)

type DB struct {
	Bun bun.IDB
}

func New(idb bun.IDB) *DB {
	return &DB{Bun: idb}
}

func (d *DB) CreateAttraction(ctx context.Context, a *models.Attraction) error {
	_, err := d.Bun.NewInsert().Model(a).Exec(ctx)
	return err
}

// UpdateAttraction reports false when no attraction has a.ID.
func (d *DB) UpdateAttraction(ctx context.Context, a *models.Attraction) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model(a).
		Column("name", "description", "category", "tags", "image_url", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (d *DB) DeleteAttraction(ctx context.Context, id string) (bool, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.Attraction)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (d *DB) GetAttraction(ctx context.Context, id string) (*models.Attraction, error) {
	var a models.Attraction
	err := d.Bun.NewSelect().
		Model(&a).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (d *DB) AttractionExists(ctx context.Context, id string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Attraction)(nil)).
		Where("id = ?", id).
		Exists(ctx)
}

// ListAttractions filters by category when it is not empty. Ordered by name.
func (d *DB) ListAttractions(ctx context.Context, category string) ([]models.Attraction, error) {
	list := []models.Attraction{}
	q := d.Bun.NewSelect().Model(&list)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if err := q.Order("name ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) GetAttractions(ctx context.Context, ids []string) ([]models.Attraction, error) {
	list := []models.Attraction{}
	if len(ids) == 0 {
		return list, nil
	}
	err := d.Bun.NewSelect().
		Model(&list).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return list, nil
}
