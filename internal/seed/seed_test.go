package seed_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-attractions/internal/catalog"
	catalogdb "ms-attractions/internal/catalog/db"
	"ms-attractions/internal/database/dbtest"
	"ms-attractions/internal/ledger"
	ledgerdb "ms-attractions/internal/ledger/db"
	"ms-attractions/internal/lock"
	"ms-attractions/internal/logger"
	"ms-attractions/internal/seed"
)

func TestRunSeedsOnlyEmptyCatalog(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	cat := catalog.NewCatalog(catalogdb.New(db), nil)
	led := ledger.NewLedger(ledgerdb.New(db), lock.NewLocalLocker(), nil, nil, time.Second)

	n, err := seed.Run(ctx, cat, led, time.UTC, 3, 50, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, len(seed.Attractions), n)

	list, err := cat.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, len(seed.Attractions))

	days, err := led.ListTicketDays(ctx, list[0].ID)
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), days[0].Date)
	assert.Equal(t, 50, days[0].TotalCapacity)

	n, err = seed.Run(ctx, cat, led, time.UTC, 3, 50, logger.Nop())
	require.NoError(t, err)
	assert.Zero(t, n)
}
