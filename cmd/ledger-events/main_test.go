package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-attractions/internal/config"
	"ms-attractions/internal/models"
)

func TestPrinterFiltersByType(t *testing.T) {
	var out bytes.Buffer
	handle := printer(&out, []string{models.EventReservationCreated})

	require.NoError(t, handle(context.Background(), models.LedgerEvent{Type: models.EventTicketDayOpened, AttractionID: "a1"}))
	require.NoError(t, handle(context.Background(), models.LedgerEvent{Type: models.EventReservationCreated, AttractionID: "a1", UserID: "u1"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)

	var event models.LedgerEvent
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &event))
	assert.Equal(t, "u1", event.UserID)
}

func TestPrinterWithoutFilterPrintsEverything(t *testing.T) {
	var out bytes.Buffer
	handle := printer(&out, nil)

	require.NoError(t, handle(context.Background(), models.LedgerEvent{Type: models.EventTicketDayOpened}))
	require.NoError(t, handle(context.Background(), models.LedgerEvent{Type: models.EventEngagementChanged}))

	assert.Equal(t, 2, strings.Count(out.String(), "\n"))
}

func TestFlagsDefaultToConfig(t *testing.T) {
	cfg := config.Load()
	cmd := newRootCommand(cfg, &bytes.Buffer{})

	group, err := cmd.Flags().GetString("group")
	require.NoError(t, err)
	assert.Equal(t, cfg.Kafka.GroupID, group)
}
