package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"jobtrack/internal/auth"
	"jobtrack/internal/authflow"
	"jobtrack/internal/common/logging"
	"jobtrack/internal/config"
	"jobtrack/internal/credentials"
	"jobtrack/internal/crypto"
	"jobtrack/internal/dashboard"
	"jobtrack/internal/database"
	"jobtrack/internal/gmail"
	"jobtrack/internal/handlers"
	"jobtrack/internal/jobs"
	"jobtrack/internal/locks"
	"jobtrack/internal/maps"
	"jobtrack/internal/redis"
	"jobtrack/internal/server"
	"jobtrack/internal/tasks"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logging.InitGlobalLogger()
	defer logging.MustSync()

	db, err := database.Init(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Redis is optional. Without it, refresh locks and state tokens live in
	// process memory, which is correct for a single instance.
	var (
		lockManager locks.Manager
		stateStore  authflow.StateStore
		memoryState *authflow.MemoryStateStore
	)
	if cfg.RedisAddress != "" {
		redisClient, err := redis.NewClient(&redis.Config{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       atoiOr(cfg.RedisDB, 0),
			PoolSize: atoiOr(cfg.RedisPoolSize, 10),
		})
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()

		lockManager = locks.NewRedisManager(redisClient)
		stateStore = authflow.NewRedisStateStore(redisClient)
		logging.Info("Using Redis for locks and state tokens",
			logging.String("address", cfg.RedisAddress))
	} else {
		lockManager = locks.NewKeyedMutex()
		memoryState = authflow.NewMemoryStateStore()
		stateStore = memoryState
		logging.Info("Using in-process locks and state tokens")
	}

	var credStore credentials.Store
	switch cfg.TokenStore {
	case "database":
		box, err := crypto.NewSecretBox(cfg.EncryptionKey)
		if err != nil {
			log.Fatalf("Failed to initialize encryption: %v", err)
		}
		credStore = credentials.NewDBStore(db, box)
	default:
		credStore = credentials.NewFileStore(cfg.TokenFilePath)
	}

	refresher := credentials.NewRefresher(credStore, lockManager, nil)
	flow := authflow.NewFlow(cfg, stateStore, credStore)
	gmailClient := gmail.NewClient(refresher, cfg.ExcludedSenders, cfg.HighlightKeyword)
	dashboardSvc := dashboard.NewService(credStore, refresher, flow, gmailClient)

	jobsRepo := jobs.NewRepo(db)
	tasksRepo := tasks.NewRepo(db)
	mapsClient := maps.NewClient(cfg.MapsAPIKey, nil)
	authHandler := auth.New(cfg)

	h := handlers.New(cfg, authHandler, flow, dashboardSvc, jobsRepo, tasksRepo, mapsClient)

	router := mux.NewRouter()
	h.RegisterRoutes(router)

	// Expired consent attempts leave state tokens behind; sweep them so the
	// in-memory store stays bounded
	if memoryState != nil {
		scheduler := cron.New()
		_, err := scheduler.AddFunc("@every 5m", func() {
			if removed := memoryState.Sweep(); removed > 0 {
				logging.Debug("Swept expired state tokens", logging.Int("removed", removed))
			}
		})
		if err != nil {
			log.Fatalf("Failed to schedule state sweeper: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Start only reports bind failures asynchronously, so this logs intent,
	// not success
	logging.Info("Starting server",
		logging.String("port", cfg.Port),
		logging.String("token_store", cfg.TokenStore),
		logging.String("database", cfg.DatabaseType),
	)
	srv := server.New(router, cfg.Port)
	serverErr := srv.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logging.Error("Server failed", err)
	case sig := <-quit:
		logging.Info("Shutting down", logging.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", err)
	}

	logging.Info("Server exited")
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
