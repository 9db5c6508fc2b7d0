package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/sungwon/healthmate/internal/alert"
	"github.com/sungwon/healthmate/internal/api"
	"github.com/sungwon/healthmate/internal/auth"
	"github.com/sungwon/healthmate/internal/bootstrap"
	"github.com/sungwon/healthmate/internal/config"
	"github.com/sungwon/healthmate/internal/logger"
	"github.com/sungwon/healthmate/internal/notify"
	"github.com/sungwon/healthmate/internal/provider"
	"github.com/sungwon/healthmate/internal/reminder"
	"github.com/sungwon/healthmate/internal/storage"
	"github.com/sungwon/healthmate/migrations"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewFromConfig(cfg.Logging.Logger())
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log.Info().Str("provider", cfg.Provider.Type).Msg("starting API server")

	// Connect to database
	ctx := context.Background()
	db, err := storage.NewDB(ctx, cfg.Database.Pool(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("database connection established")

	if cfg.Database.AutoMigrate {
		applied, err := db.Migrate(ctx, migrations.FS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
		log.Info().Strs("applied", applied).Msg("migrations up to date")
	}

	contacts := storage.NewContactStore(db)

	if cfg.Bootstrap.DemoUserID != "" {
		userID := uuid.MustParse(cfg.Bootstrap.DemoUserID)
		if _, err := bootstrap.SeedContacts(ctx, contacts, log, userID, cfg.Bootstrap.Contacts()); err != nil {
			log.Error().Err(err).Msg("failed to seed demo contacts")
		}
	}

	// Alert cooldown store; without Redis every alert is allowed through.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
	}
	rateLimiter := auth.NewRateLimiter(rdb, cfg.Auth.RateLimit)
	if err := rateLimiter.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, alert cooldown will fail open")
	}

	// Email provider and retry state machine
	esp, err := provider.NewProvider(cfg.Provider.ProviderConfig, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create email provider")
	}
	healthChecker := provider.NewHealthChecker(cfg.Provider.HealthInterval, log, esp)
	healthChecker.Start(ctx)
	defer healthChecker.Stop()

	deliverer := notify.NewDeliverer(esp, cfg.Dispatch.Deliverer(cfg.Provider.From), log)
	dispatcher := alert.NewDispatcher(deliverer, cfg.Dispatch.Alert(), log)
	alerts := alert.NewService(contacts, storage.NewAlertLog(db), dispatcher, log)
	reminders := reminder.NewService(deliverer, log)

	jwtService := auth.NewJWTService(cfg.Auth.JWT)

	router := api.NewRouter(api.RouterConfig{
		Log:            log,
		DB:             db,
		Health:         healthChecker,
		Identity:       jwtService,
		Alerts:         alerts,
		Limiter:        rateLimiter,
		Reminders:      reminders,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		CORSMaxAge:     cfg.CORS.MaxAge,
	})

	// Configure HTTP server
	addr := cfg.API.Addr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down server")

	// In-flight alerts finish within the shutdown timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
