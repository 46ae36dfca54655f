//go:build integration

package database_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"ms-attractions/internal/catalog"
	catalogdb "ms-attractions/internal/catalog/db"
	"ms-attractions/internal/config"
	"ms-attractions/internal/database"
	"ms-attractions/internal/engagement"
	engagementdb "ms-attractions/internal/engagement/db"
	"ms-attractions/internal/ledger"
	ledgerdb "ms-attractions/internal/ledger/db"
	"ms-attractions/internal/lock"
	"ms-attractions/internal/logger"
	"ms-attractions/internal/models"
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) string {
	t.Helper()
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start %s container: %v", req.Image, err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, port)
	require.NoError(t, err)
	return host + ":" + mapped.Port()
}

func TestPostgresLedgerWithRedisLocks(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping postgres integration test in short mode")
	}

	pgAddr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "attractions",
			"POSTGRES_PASSWORD": "attractions",
			"POSTGRES_DB":       "attractions",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}, "5432")
	redisAddr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}, "6379")

	ctx := context.Background()
	log := logger.Nop()
	cfg := config.DatabaseConfig{
		Driver:       "postgres",
		PostgresDSN:  fmt.Sprintf("postgres://attractions:attractions@%s/attractions?sslmode=disable", pgAddr),
		MaxOpenConns: 20,
		MaxIdleConns: 20,
		MaxLifetime:  time.Minute,
	}

	db, err := database.Open(ctx, cfg, log)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, database.Prepare(ctx, db, cfg, log))
	require.NoError(t, database.Prepare(ctx, db, cfg, log), "migrations are re-runnable")

	redisClient, err := database.OpenRedis(ctx, config.RedisConfig{Addr: redisAddr}, log)
	require.NoError(t, err)
	defer redisClient.Close()

	secondClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer secondClient.Close()

	// Two lockers over one redis behave like two service replicas.
	replicas := []lock.Locker{
		lock.NewRedisLocker(redisClient, 5*time.Second, 5*time.Millisecond),
		lock.NewRedisLocker(secondClient, 5*time.Second, 5*time.Millisecond),
	}

	cat := catalog.NewCatalog(catalogdb.New(db), log)
	a, err := cat.Create(ctx, models.AttractionRequest{
		Name: "Great Wall", Category: "history", Tags: []string{"outdoor"}, ImageURL: "https://img/great-wall",
	})
	require.NoError(t, err)

	ledgers := make([]*ledger.Ledger, len(replicas))
	stores := make([]*engagement.Store, len(replicas))
	for i, l := range replicas {
		ledgers[i] = ledger.NewLedger(ledgerdb.New(db), l, nil, log, 5*time.Second)
		stores[i] = engagement.NewStore(engagementdb.New(db), l, cat, nil, log, 5*time.Second)
	}

	const capacity = 7
	_, err = ledgers[0].OpenTicketDay(ctx, a.ID, "2030-10-01", capacity)
	require.NoError(t, err)

	const users = 30
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
		soldOut int
	)
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := ledgers[i%2].Reserve(ctx, a.ID, "2030-10-01", fmt.Sprintf("user-%d", i))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				granted++
			case assert.ErrorIs(t, err, ledger.ErrSoldOut):
				soldOut++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, capacity, granted)
	assert.Equal(t, users-capacity, soldOut)

	day, err := ledgers[1].GetTicketDay(ctx, a.ID, "2030-10-01")
	require.NoError(t, err)
	assert.Equal(t, capacity, day.ReservedCount)
	assert.Equal(t, capacity, day.CurrentFlow)

	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := stores[i%2].ToggleLike(ctx, a.ID, fmt.Sprintf("user-%d", i%10))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	agg, err := stores[0].GetAggregate(ctx, a.ID)
	require.NoError(t, err)
	// Each of the 10 users toggled three times and ends up liking.
	assert.Equal(t, 10, agg.Likes)
}
