package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"ms-attractions/internal/catalog"
	catalogdb "ms-attractions/internal/catalog/db"
	"ms-attractions/internal/config"
	"ms-attractions/internal/database"
	"ms-attractions/internal/database/migrations"
	"ms-attractions/internal/ledger"
	ledgerdb "ms-attractions/internal/ledger/db"
	"ms-attractions/internal/lock"
	"ms-attractions/internal/logger"
	"ms-attractions/internal/seed"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCommand(config.Load()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(cfg *config.Config) *cobra.Command {
	log := logger.NewWriterLogger(os.Stdout)
	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the attractions database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), cfg, log, func(ctx context.Context, db *bun.DB) error {
				return database.Prepare(ctx, db, cfg.Database, log)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration and drop all tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), cfg, log, func(ctx context.Context, db *bun.DB) error {
				if cfg.Database.Driver != "postgres" {
					return database.DropSchema(ctx, db)
				}
				runner := migrations.NewRunner(cfg.Database.PostgresDSN, log)
				defer runner.Close()
				return runner.MigrateDown()
			})
		},
	})

	var days, capacity int
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo attractions and open their ticket days",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), cfg, log, func(ctx context.Context, db *bun.DB) error {
				if err := database.Prepare(ctx, db, cfg.Database, log); err != nil {
					return err
				}
				cat := catalog.NewCatalog(catalogdb.New(db), log)
				inv := ledger.NewLedger(ledgerdb.New(db), lock.NewLocalLocker(), nil, log, cfg.Ledger.OperationTimeout)
				inv.Attractions = cat
				_, err := seed.Run(ctx, cat, inv, cfg.Ledger.Timezone, days, capacity, log)
				return err
			})
		},
	}
	seedCmd.Flags().IntVar(&days, "days", 14, "number of ticket days to open per attraction, starting today")
	seedCmd.Flags().IntVar(&capacity, "capacity", 100, "tickets per day")
	cmd.AddCommand(seedCmd)

	return cmd
}

func withDB(ctx context.Context, cfg *config.Config, log *logger.Logger, fn func(ctx context.Context, db *bun.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := fn(ctx, db); err != nil {
		return err
	}
	log.Info("MIGRATION", "✅ Done.")
	return nil
}
