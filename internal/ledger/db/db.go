package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-attractions/internal/ledger"
	"ms-attractions/internal/models"
)

type DB struct {
	Bun bun.IDB
}

func New(idb bun.IDB) *DB {
	return &DB{Bun: idb}
}

var _ ledger.DBLayer = (*DB)(nil)

func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context, tx ledger.DBLayer) error) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &DB{Bun: tx})
	})
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertTicketDay reports false when the (attraction, date) pair already exists.
func (d *DB) InsertTicketDay(ctx context.Context, day *models.TicketDay) (bool, error) {
	return affected(d.Bun.NewInsert().
		Model(day).
		On("CONFLICT DO NOTHING").
		Exec(ctx))
}

func (d *DB) GetTicketDay(ctx context.Context, attractionID, date string) (*models.TicketDay, error) {
	var day models.TicketDay
	err := d.Bun.NewSelect().
		Model(&day).
		Where("attraction_id = ?", attractionID).
		Where("date = ?", date).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &day, nil
}

func (d *DB) ListTicketDays(ctx context.Context, attractionID string) ([]models.TicketDay, error) {
	days := []models.TicketDay{}
	err := d.Bun.NewSelect().
		Model(&days).
		Where("attraction_id = ?", attractionID).
		Order("date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return days, nil
}

func (d *DB) AddCapacity(ctx context.Context, attractionID, date string, delta int, now time.Time) (bool, error) {
	return affected(d.Bun.NewUpdate().
		Model((*models.TicketDay)(nil)).
		Set("total_capacity = total_capacity + ?", delta).
		Set("updated_at = ?", now).
		Where("attraction_id = ?", attractionID).
		Where("date = ?", date).
		Exec(ctx))
}

// DeleteEmptyTicketDay only deletes a day with no reserved tickets.
func (d *DB) DeleteEmptyTicketDay(ctx context.Context, attractionID, date string) (bool, error) {
	return affected(d.Bun.NewDelete().
		Model((*models.TicketDay)(nil)).
		Where("attraction_id = ?", attractionID).
		Where("date = ?", date).
		Where("reserved_count = 0").
		Exec(ctx))
}

func (d *DB) DeleteEmptyTicketDays(ctx context.Context, attractionID string) (int, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.TicketDay)(nil)).
		Where("attraction_id = ?", attractionID).
		Where("reserved_count = 0").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (d *DB) CountReservedTicketDays(ctx context.Context, attractionID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.TicketDay)(nil)).
		Where("attraction_id = ?", attractionID).
		Where("reserved_count > 0").
		Count(ctx)
}

// ClaimSeat takes one ticket only while reserved_count < total_capacity.
func (d *DB) ClaimSeat(ctx context.Context, attractionID, date string, now time.Time) (bool, error) {
	return affected(d.Bun.NewUpdate().
		Model((*models.TicketDay)(nil)).
		Set("reserved_count = reserved_count + 1").
		Set("current_flow = current_flow + 1").
		Set("updated_at = ?", now).
		Where("attraction_id = ?", attractionID).
		Where("date = ?", date).
		Where("reserved_count < total_capacity").
		Exec(ctx))
}

// ReleaseSeat gives one ticket back. current_flow is cumulative and stays.
func (d *DB) ReleaseSeat(ctx context.Context, attractionID, date string, now time.Time) (bool, error) {
	return affected(d.Bun.NewUpdate().
		Model((*models.TicketDay)(nil)).
		Set("reserved_count = reserved_count - 1").
		Set("updated_at = ?", now).
		Where("attraction_id = ?", attractionID).
		Where("date = ?", date).
		Where("reserved_count > 0").
		Exec(ctx))
}

func (d *DB) InsertReservation(ctx context.Context, r *models.Reservation) error {
	_, err := d.Bun.NewInsert().Model(r).Exec(ctx)
	return err
}

func (d *DB) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	var r models.Reservation
	err := d.Bun.NewSelect().
		Model(&r).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (d *DB) FindActiveReservation(ctx context.Context, userID, attractionID, date string) (*models.Reservation, error) {
	var r models.Reservation
	err := d.Bun.NewSelect().
		Model(&r).
		Where("user_id = ?", userID).
		Where("attraction_id = ?", attractionID).
		Where("date = ?", date).
		Where("status = ?", models.ReservationActive).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// MarkCancelled performs the one-way ACTIVE -> CANCELLED transition.
func (d *DB) MarkCancelled(ctx context.Context, id string, now time.Time) (bool, error) {
	return affected(d.Bun.NewUpdate().
		Model((*models.Reservation)(nil)).
		Set("status = ?", models.ReservationCancelled).
		Set("cancelled_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", models.ReservationActive).
		Exec(ctx))
}

func (d *DB) ListReservationsByUser(ctx context.Context, userID string, activeOnly bool) ([]models.Reservation, error) {
	list := []models.Reservation{}
	q := d.Bun.NewSelect().
		Model(&list).
		Where("user_id = ?", userID)
	if activeOnly {
		q = q.Where("status = ?", models.ReservationActive)
	}
	if err := q.Order("date ASC", "created_at DESC").Scan(ctx); err != nil {
		return nil, err
	}
	return list, nil
}
