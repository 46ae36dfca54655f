package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ms-attractions/internal/config"
	"ms-attractions/internal/kafka"
	"ms-attractions/internal/logger"
	"ms-attractions/internal/models"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCommand(config.Load(), os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ledger-events: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(cfg *config.Config, out io.Writer) *cobra.Command {
	var (
		groupID string
		types   []string
		list    bool
	)
	cmd := &cobra.Command{
		Use:           "ledger-events",
		Short:         "Print inventory, reservation and engagement events from kafka",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if list {
				topics, err := kafka.ListTopics(ctx, cfg.Kafka.Brokers)
				if err != nil {
					return err
				}
				for _, t := range topics {
					fmt.Fprintln(out, t)
				}
				return nil
			}

			log := logger.NewWriterLogger(os.Stderr)
			consumer := kafka.NewConsumer(cfg.Kafka.Brokers, []string{cfg.Kafka.Topics.Inventory, cfg.Kafka.Topics.Engagement}, groupID, log)
			defer consumer.Close()
			return consumer.Run(ctx, printer(out, types))
		},
	}

	cmd.Flags().StringVar(&groupID, "group", cfg.Kafka.GroupID, "consumer group id")
	cmd.Flags().StringSliceVar(&types, "type", nil, "only print these event types (repeatable)")
	cmd.Flags().BoolVar(&list, "list-topics", false, "list broker topics and exit")
	return cmd
}

// printer writes one JSON line per event, skipping types not in only when it is set.
func printer(out io.Writer, only []string) func(context.Context, models.LedgerEvent) error {
	allowed := make(map[string]bool, len(only))
	for _, t := range only {
		allowed[t] = true
	}
	enc := json.NewEncoder(out)
	return func(_ context.Context, event models.LedgerEvent) error {
		if len(allowed) > 0 && !allowed[event.Type] {
			return nil
		}
		return enc.Encode(event)
	}
}
