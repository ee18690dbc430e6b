package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classquest/internal/artifact"
	"classquest/internal/config"
	"classquest/internal/database"
	"classquest/internal/handlers"
	"classquest/internal/repository"
	"classquest/internal/security"
	"classquest/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Initialize repositories
	seriesRepo := repository.NewSeriesRepository(db)
	recordRepo := repository.NewRecordRepository(db)

	// Initialize collaborators
	notifier, err := service.NewEmailNotifier(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize email notifier: %v", err)
	}
	remote := artifact.NewRemoteClient(cfg.RemoteAPIBase, cfg.RemoteRepo, cfg.RemoteToken)
	renderer := artifact.NewImageRenderer(os.Getenv("ARTIFACT_FONT_PATH"))

	// Initialize services
	challengeService := service.NewChallengeService(
		seriesRepo, recordRepo,
		service.LogLedger{}, service.LogXP{},
		notifier, remote, renderer,
	)
	seriesService := service.NewSeriesService(
		seriesRepo, recordRepo, notifier,
		cfg.UploadDir, cfg.UploadMaxSize, cfg.TokenLength,
	)

	// Initialize session tokens and middleware
	tokens, err := security.NewTokenManager(cfg.SessionSecret, cfg.SessionDuration)
	if err != nil {
		log.Fatalf("Failed to initialize session tokens: %v", err)
	}
	limiter := security.NewRateLimiter(60, time.Minute)
	middleware := handlers.NewMiddleware(tokens, limiter)

	// Initialize handlers
	challengeHandler := handlers.NewChallengeHandler(challengeService)
	seriesHandler := handlers.NewSeriesHandler(seriesService)

	// Setup routes
	mux := http.NewServeMux()
	challengeHandler.RegisterRoutes(mux, middleware)
	seriesHandler.RegisterRoutes(mux, middleware)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Wrap with rate limiting and logging middleware
	handler := handlers.Logging(middleware.RateLimit(mux))

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
