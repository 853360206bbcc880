package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"gorm.io/gorm/logger"

	"github.com/erikwj/sre-platform/internal/config"
	"github.com/erikwj/sre-platform/internal/database"
	"github.com/erikwj/sre-platform/internal/handlers"
	"github.com/erikwj/sre-platform/internal/knowledge"
	"github.com/erikwj/sre-platform/internal/llm"
	"github.com/erikwj/sre-platform/internal/middleware"
	"github.com/erikwj/sre-platform/internal/notify"
	"github.com/erikwj/sre-platform/internal/postmortem"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it (this is fine if using environment variables): %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting SRE Platform...")

	// Initialize JWT authentication middleware
	if cfg.AdminPassword == "" {
		log.Fatalf("ADMIN_PASSWORD is not set")
	}

	// Hash the admin password
	passwordHash, err := middleware.HashPassword(cfg.AdminPassword)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}

	jwtAuthMiddleware := middleware.NewJWTAuthMiddleware(&middleware.JWTAuthConfig{
		Enabled:           true,
		AdminUsername:     cfg.AdminUsername,
		AdminPasswordHash: passwordHash,
		JWTSecret:         cfg.JWTSecret,
		JWTExpiryHours:    cfg.JWTExpiryHours,
		SkipPaths: []string{
			"/health",
			"/auth/login",
		},
	})
	log.Printf("JWT authentication enabled for user: %s", cfg.AdminUsername)

	// Initialize database connection
	if err := database.Connect(cfg.DatabaseURL, logger.Warn); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run database migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize default database records
	if err := database.InitializeDefaults(); err != nil {
		log.Fatalf("Failed to initialize database defaults: %v", err)
	}

	db := database.GetDB()
	policy := cfg.Policy

	// Provider clients are built from stored settings on each use, so an
	// operator can configure the provider at runtime without a restart.
	providers := &llm.SettingsFactory{
		CompletionTimeout: policy.SynthesisTimeout(),
		EmbeddingTimeout:  policy.EmbedTimeout(),
	}

	// Initialize postmortem generator
	generator := postmortem.NewGenerator(db, providers, policy.StageTimeout(), policy.GenerationMaxTokens)
	log.Printf("Postmortem generator initialized (stage timeout %s)", policy.StageTimeout())

	// Initialize embedding indexer
	indexer := knowledge.NewIndexer(db, providers)
	log.Printf("Embedding indexer initialized")

	// Initialize recommender
	recommender := knowledge.NewRecommender(db, providers, knowledge.RecommenderOptions{
		Freshness:        policy.Freshness(),
		TopN:             policy.TopN,
		EmbedTimeout:     policy.EmbedTimeout(),
		SynthesisTimeout: policy.SynthesisTimeout(),
		MaxTokens:        policy.SynthesisMaxTokens,
	})
	log.Printf("Recommender initialized (freshness %s, top %d)", policy.Freshness(), policy.TopN)

	// Initialize Slack notifier
	notifier := notify.NewNotifier()

	// Initialize handlers
	httpHandler := handlers.NewHTTPHandler()
	apiHandler := handlers.NewAPIHandler(generator, indexer, recommender, notifier)
	authHandler := handlers.NewAuthHandler(jwtAuthMiddleware)

	// Set up HTTP server routes
	mux := http.NewServeMux()
	httpHandler.SetupRoutes(mux)
	apiHandler.SetupRoutes(mux)
	authHandler.SetupRoutes(mux)

	// Wrap all routes with request IDs and CORS first, then JWT authentication
	corsMiddleware := middleware.NewCORSMiddleware() // Allow all origins
	handler := middleware.RequestIDMiddleware(corsMiddleware.Wrap(jwtAuthMiddleware.Wrap(mux)))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: handler,
	}

	go func() {
		log.Printf("Starting HTTP server on port %d", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	log.Println("SRE Platform is running! Press Ctrl+C to exit.")
	log.Printf("Health check endpoint: http://localhost:%d/health", cfg.HTTPPort)
	log.Printf("API base URL: http://localhost:%d/api", cfg.HTTPPort)

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Received shutdown signal, cleaning up...")
	if err := httpServer.Close(); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}
	if err := database.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
	log.Println("Shutdown complete")
}
