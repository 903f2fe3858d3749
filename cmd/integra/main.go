package main

// @title           Integra API
// @version         1.0
// @description     OAuth integrations coordinator. Integra drives the authorization handshake for HubSpot, Notion and Airtable and hands the resulting credentials to the frontend exactly once.

// @contact.name   Custodia Labs
// @contact.url    https://github.com/custodia-labs/integra/issues

// @host      localhost:8000
// @BasePath  /
// @schemes   http https

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	_ "github.com/custodia-labs/integra/docs"
	"github.com/custodia-labs/integra/internal/adapters/driven/connectors"
	"github.com/custodia-labs/integra/internal/adapters/driven/connectors/airtable"
	"github.com/custodia-labs/integra/internal/adapters/driven/connectors/hubspot"
	"github.com/custodia-labs/integra/internal/adapters/driven/connectors/notion"
	"github.com/custodia-labs/integra/internal/adapters/driven/envconfig"
	"github.com/custodia-labs/integra/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/integra/internal/adapters/driven/redis"
	"github.com/custodia-labs/integra/internal/adapters/driving/http"
	"github.com/custodia-labs/integra/internal/core/domain"
	"github.com/custodia-labs/integra/internal/core/ports/driven"
	"github.com/custodia-labs/integra/internal/core/services"
	"github.com/custodia-labs/integra/internal/postprocessors"
	"github.com/custodia-labs/integra/internal/worker"
)

var version = "dev"

func main() {
	// Local development reads provider secrets from a .env file.
	// Missing file is fine, deployments set real environment variables.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	log.Printf("integra %s starting", version)

	// Configuration from environment
	host := getEnv("HOST", "0.0.0.0")
	port := getEnvInt("PORT", 8000)
	allowedOrigin := getEnv("ALLOWED_ORIGIN", "http://localhost:3000")
	redisURL := getEnv("REDIS_URL", "")
	databaseURL := getEnv("DATABASE_URL", "")

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	// ===== KV store (Redis if available, otherwise PostgreSQL) =====
	var kvStore driven.KVStore
	var kvBackend http.Pinger

	switch {
	case redisURL != "":
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()

		store := redisadapter.NewKVStore(redisClient)
		kvStore = store
		kvBackend = store
		log.Println("Using Redis KV store")

	case databaseURL != "":
		log.Println("Connecting to PostgreSQL...")
		dbConfig := postgres.Config{
			URL:             databaseURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300)) * time.Second,
			ConnMaxIdleTime: time.Duration(getEnvInt("DB_CONN_MAX_IDLE_SEC", 60)) * time.Second,
		}
		db, err := postgres.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}

		kvStore = postgres.NewKVStore(db)
		kvBackend = db
		log.Println("Using PostgreSQL KV store")

	default:
		log.Fatal("Set REDIS_URL or DATABASE_URL, the coordinator needs a KV backend")
	}

	// ===== Provider adapters =====
	factory := connectors.NewFactory()
	factory.Register(domain.ProviderTypeHubSpot, hubspot.NewAdapter())
	factory.Register(domain.ProviderTypeNotion, notion.NewAdapter())
	factory.Register(domain.ProviderTypeAirtable, airtable.NewAdapter())

	// ===== Provider configuration =====
	configStore := envconfig.NewProviderConfigStore()
	logConfiguredProviders(ctx, configStore)

	// ===== Core service =====
	oauthService := services.NewOAuthService(services.OAuthServiceConfig{
		ProviderConfigStore: configStore,
		KVStore:             kvStore,
		ConnectorFactory:    factory,
		StateTTL:            time.Duration(getEnvInt("STATE_TTL_SEC", 600)) * time.Second,
		CredentialTTL:       time.Duration(getEnvInt("CREDENTIAL_TTL_SEC", 600)) * time.Second,
		ItemPipeline:        postprocessors.DefaultPipeline(),
	})

	// ===== Cleanup janitor =====
	janitor := worker.NewJanitor(worker.JanitorConfig{
		Store:    kvStore,
		Logger:   slog.Default(),
		Interval: time.Duration(getEnvInt("CLEANUP_INTERVAL_SEC", 60)) * time.Second,
	})
	janitor.Start(ctx)
	defer janitor.Stop()

	// ===== HTTP server =====
	cfg := http.Config{
		Host:          host,
		Port:          port,
		Version:       version,
		AllowedOrigin: allowedOrigin,
	}
	server := http.NewServer(cfg, oauthService, kvBackend)

	log.Printf("API server starting on %s:%d", host, port)
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// logConfiguredProviders reports at startup which providers carry usable
// OAuth app credentials, so a half-configured deployment is obvious.
func logConfiguredProviders(ctx context.Context, store *envconfig.ProviderConfigStore) {
	for _, pt := range domain.CoreProviders() {
		cfg, err := store.Get(ctx, pt)
		if err != nil {
			log.Printf("Warning: could not read %s config: %v", pt, err)
			continue
		}
		if cfg.IsConfigured() {
			log.Printf("Provider configured: %s", pt)
		} else {
			log.Printf("Provider NOT configured: %s (authorize requests will fail)", pt)
		}
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
