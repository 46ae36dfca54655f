package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"ms-attractions/internal/api"
	"ms-attractions/internal/attractions"
	"ms-attractions/internal/auth"
	"ms-attractions/internal/catalog"
	catalogdb "ms-attractions/internal/catalog/db"
	"ms-attractions/internal/config"
	"ms-attractions/internal/database"
	"ms-attractions/internal/engagement"
	engagementdb "ms-attractions/internal/engagement/db"
	"ms-attractions/internal/events"
	"ms-attractions/internal/kafka"
	"ms-attractions/internal/ledger"
	ledgerdb "ms-attractions/internal/ledger/db"
	"ms-attractions/internal/lock"
	"ms-attractions/internal/logger"
	"ms-attractions/internal/reservations"
	"ms-attractions/internal/reservations/pass"
	"ms-attractions/internal/seed"
	"ms-attractions/internal/sse"
)

const identityCacheTTL = 5 * time.Minute

func buildLocker(cfg *config.Config, redisClient *redis.Client, log *logger.Logger) lock.Locker {
	if cfg.Lock.Backend == "redis" {
		if redisClient == nil {
			log.Fatal("LOCK", "LOCK_BACKEND=redis but redis is unreachable")
		}
		log.Info("LOCK", fmt.Sprintf("Using redis keyed locks (ttl %s)", cfg.Lock.TTL))
		return lock.NewRedisLocker(redisClient, cfg.Lock.TTL, cfg.Lock.RetryInterval)
	}
	log.Info("LOCK", "Using in-process keyed locks")
	return lock.NewLocalLocker()
}

func buildProducer(ctx context.Context, cfg *config.Config, log *logger.Logger) *kafka.Producer {
	if !cfg.Kafka.Enabled {
		log.Info("KAFKA", "Kafka disabled, ledger events stay in-process")
		return nil
	}

	log.Info("KAFKA", fmt.Sprintf("Using Kafka brokers %v", cfg.Kafka.Brokers))
	topics := []string{cfg.Kafka.Topics.Inventory, cfg.Kafka.Topics.Engagement}
	if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, topics, 3, log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		log.Info("KAFKA", "Required topics ensured successfully")
	}
	return kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics, log)
}

func buildGateway(ctx context.Context, cfg *config.Config, redisClient *redis.Client, log *logger.Logger) auth.Gateway {
	var (
		gw  auth.Gateway
		err error
	)
	switch cfg.Auth.Mode {
	case "oidc":
		gw, err = auth.NewOIDCGateway(ctx, cfg.Auth.OIDCIssuer, cfg.Auth.AdminRole)
	case "jwt":
		gw, err = auth.NewJWTGateway(cfg.Auth.JWTSecret, cfg.Auth.AdminRole)
	default:
		err = fmt.Errorf("unsupported AUTH_MODE %q", cfg.Auth.Mode)
	}
	if err != nil {
		log.Fatal("AUTH", fmt.Sprintf("Failed to initialize auth gateway: %v", err))
	}
	log.Info("AUTH", fmt.Sprintf("Auth gateway ready (mode %s)", cfg.Auth.Mode))

	if redisClient != nil {
		log.Info("AUTH", "Verified identities are cached in redis")
		return auth.NewCachedGateway(gw, redisClient, identityCacheTTL, log)
	}
	return gw
}

func buildPasses(cfg *config.Config, log *logger.Logger) reservations.PassCodec {
	generator, err := pass.NewGenerator(cfg.Ledger.PassSecretKey)
	if err != nil {
		log.Warn("PASS", fmt.Sprintf("Reservation passes disabled: %v", err))
		return nil
	}
	return generator
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	level, levelErr := logger.ParseLevel(cfg.Log.Level)
	log, err := logger.NewLogger(cfg.Log.Dir, cfg.Log.Name, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("APP", "Starting Attractions Service initialization")
	if levelErr != nil {
		log.Warn("CONFIG", fmt.Sprintf("%v, logging at %s", levelErr, level))
	}
	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Prepare(ctx, bunDB, cfg.Database, log); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Failed to prepare schema: %v", err))
		}
	}

	redisClient, err := database.OpenRedis(ctx, cfg.Redis, log)
	if err != nil {
		log.Warn("REDIS", fmt.Sprintf("Redis unavailable, continuing without it: %v", err))
	} else {
		defer redisClient.Close()
	}

	locker := buildLocker(cfg, redisClient, log)
	availability := sse.NewAvailabilityEmitter()
	publisher := events.Fanout{availability}
	if producer := buildProducer(ctx, cfg, log); producer != nil {
		defer producer.Close()
		publisher = append(publisher, producer)
	}

	catalogService := catalog.NewCatalog(catalogdb.New(bunDB), log)
	inventory := ledger.NewLedger(ledgerdb.New(bunDB), locker, publisher, log, cfg.Ledger.OperationTimeout)
	inventory.Attractions = catalogService
	engagementStore := engagement.NewStore(engagementdb.New(bunDB), locker, catalogService, publisher, log, cfg.Ledger.OperationTimeout)
	attractionService := attractions.NewService(catalogService, inventory, engagementStore, log)
	reservationService := reservations.NewReservationService(inventory, catalogService, buildPasses(cfg, log), log, cfg.Ledger.Timezone)

	if cfg.Database.SeedData {
		if _, err := seed.Run(ctx, catalogService, inventory, cfg.Ledger.Timezone, 14, 100, log); err != nil {
			log.Error("SEED", fmt.Sprintf("Seeding failed: %v", err))
		}
	}

	handler := api.NewHandler(attractionService, inventory, reservationService, engagementStore, availability, log)
	router := api.NewRouter(handler, buildGateway(ctx, cfg, redisClient, log), cfg.Auth.AdminRole)

	// No WriteTimeout: availability streams stay open. Request contexts are not
	// tied to the signal so in-flight mutations finish during Shutdown.
	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}
	server.RegisterOnShutdown(availability.Close)

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Attractions Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Attractions Service shutdown complete")
	}
}
