package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	goredis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-settlement/internal/auth"
	"ms-settlement/internal/config"
	"ms-settlement/internal/event"
	eventdb "ms-settlement/internal/event/db"
	"ms-settlement/internal/funds"
	"ms-settlement/internal/kafka"
	"ms-settlement/internal/logger"
	"ms-settlement/internal/models"
	"ms-settlement/internal/pass"
	"ms-settlement/internal/platform"
	platformdb "ms-settlement/internal/platform/db"
	"ms-settlement/internal/points"
	pointsdb "ms-settlement/internal/points/db"
	"ms-settlement/internal/settlement"
	"ms-settlement/internal/settlement/api"
	settlementredis "ms-settlement/internal/settlement/redis"
)

func openDatabase(cfg *config.Config, log *logger.Logger) *bun.DB {
	sqldb, err := sql.Open("sqlite", cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("failed to open sqlite: %v", err))
	}
	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("failed to connect to sqlite: %v", err))
	}
	log.Info("DATABASE", "SQLite connection successful")

	return bun.NewDB(sqldb, sqlitedialect.New())
}

func createTables(bunDB *bun.DB, log *logger.Logger) {
	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.PlatformConfig)(nil),
		(*models.NonceTrackerRecord)(nil),
		(*models.Event)(nil),
		(*models.TicketType)(nil),
		(*models.Ticket)(nil),
		(*models.Listing)(nil),
		(*models.CheckInAuthority)(nil),
		(*models.Account)(nil),
		(*models.WalletPoints)(nil),
		(*models.PointsLedgerConfig)(nil),
		(*models.PointsAuthorizedCaller)(nil),
	} {
		if _, err := bunDB.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("failed to create table: %v", err))
		}
	}
}

func connectRedis(cfg *config.Config, log *logger.Logger) *goredis.Client {
	client := goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("failed to connect to redis at %s: %v", cfg.Redis.Addr, err))
	}
	log.Info("REDIS", "Redis connection successful")
	return client
}

func buildProducer(cfg *config.Config, log *logger.Logger) *kafka.Producer {
	if !cfg.Kafka.Enabled || cfg.Kafka.MockMode {
		log.Info("KAFKA", "running with mock producer")
		return kafka.NewMockProducer(log)
	}

	if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{cfg.Kafka.Topic}); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("topic setup failed: %v", err))
	}
	return kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
}

// settlementCapability loads the points signing key from the environment, or
// generates an ephemeral one for local runs.
func settlementCapability(log *logger.Logger) points.Capability {
	if seed := os.Getenv("POINTS_CAPABILITY_SEED"); len(seed) >= ed25519.SeedSize {
		return points.NewCapability(ed25519.NewKeyFromSeed([]byte(seed)[:ed25519.SeedSize]))
	}

	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		log.Fatal("SECURITY", fmt.Sprintf("failed to generate capability key: %v", err))
	}
	log.Warn("SECURITY", "POINTS_CAPABILITY_SEED not set, using ephemeral capability key")
	return points.NewCapability(key)
}

func main() {
	_ = godotenv.Load() // Loads .env file if present

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	bunDB := openDatabase(cfg, log)
	defer bunDB.Close()
	createTables(bunDB, log)

	redisClient := connectRedis(cfg, log)
	defer redisClient.Close()

	producer := buildProducer(cfg, log)
	defer producer.Close()

	ledger := points.NewLedger(&pointsdb.DB{Bun: bunDB})
	capability := settlementCapability(log)

	settlementSvc := settlement.NewService(bunDB, log)
	settlementSvc.Publisher = producer
	settlementSvc.Points = points.NewClient(ledger, capability)
	settlementSvc.Locks = settlementredis.NewRedis(redisClient)
	settlementSvc.GracePeriod = int64(cfg.Settlement.CheckInGracePeriod.Seconds())
	if cfg.Settlement.PassSecret != "" {
		settlementSvc.Pass = pass.NewGenerator(cfg.Settlement.PassSecret)
	} else {
		log.Warn("SECURITY", "PASS_SECRET_KEY not set, entry pass generation disabled")
	}

	platformDB := &platformdb.DB{Bun: bunDB}
	handler := &api.Handler{
		Settlement: settlementSvc,
		Platform:   platform.NewService(platformDB),
		Events:     event.NewService(&eventdb.DB{Bun: bunDB}, platformDB),
		Ledger:     ledger,
		Funds:      &funds.DB{Bun: bunDB},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware())
		handler.RegisterRoutes(r)
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", "Settlement Service on "+cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctxShutdown)
	log.Info("SERVER", "Settlement service shutdown complete")
}
