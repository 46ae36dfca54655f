package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"ms-attractions/internal/models"
)

var tables = []interface{}{
	(*models.Attraction)(nil),
	(*models.TicketDay)(nil),
	(*models.Reservation)(nil),
	(*models.EngagementAggregate)(nil),
	(*models.EngagementUserState)(nil),
}

// CreateSchema creates every table and index with bun DDL. Used for sqlite and tests.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, m := range tables {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", m, err)
		}
	}

	// At most one ACTIVE reservation per user, attraction and date.
	_, err := db.NewCreateIndex().
		Model((*models.Reservation)(nil)).
		Unique().
		IfNotExists().
		Index("reservations_active_unique").
		Column("user_id", "attraction_id", "date").
		Where("status = 'ACTIVE'").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create reservations_active_unique: %w", err)
	}

	_, err = db.NewCreateIndex().
		Model((*models.Reservation)(nil)).
		IfNotExists().
		Index("reservations_user_idx").
		Column("user_id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create reservations_user_idx: %w", err)
	}
	return nil
}

// DropSchema removes every table in reverse dependency order.
func DropSchema(ctx context.Context, db bun.IDB) error {
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(tables[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table for %T: %w", tables[i], err)
		}
	}
	return nil
}
