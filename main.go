// main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/AI-Template-SDK/visibility-engine/internal/config"
	"github.com/AI-Template-SDK/visibility-engine/services"
	"github.com/AI-Template-SDK/visibility-engine/workflows"
	"github.com/inngest/inngestgo"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// connectDatabase opens and verifies the Postgres connection pool
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)

	db, err := sqlx.ConnectContext(ctx, "postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("dev.env"); err != nil {
			log.Printf("Note: No .env or dev.env file loaded: %v", err)
		} else {
			log.Printf("Loaded dev.env file for local development")
		}
	} else {
		log.Printf("Loaded .env file")
	}

	cfg := config.Load()

	log.Printf("Environment: %s", cfg.Environment)
	log.Printf("Port: %s", cfg.Port)
	log.Printf("Database Host: %s", cfg.Database.Host)
	log.Printf("Database Name: %s", cfg.Database.Name)
	log.Printf("Scoring concurrency: %d", cfg.Analysis.ScoringConcurrency)

	ctx := context.Background()
	db, err := connectDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Printf("Successfully connected to database")

	repoManager := services.NewRepositoryManager(db)
	log.Printf("Repository manager initialized")

	if cfg.Environment == "development" || cfg.Environment == "" {
		os.Unsetenv("INNGEST_SIGNING_KEY")
		cfg.InngestSigningKey = ""
		log.Printf("Running in development mode - signing key verification disabled")
	}

	// Initialize services with repository manager and proper dependencies
	scoringService := services.NewScoringService(cfg.Analysis, repoManager)
	aggregationService := services.NewAggregationService(cfg.Analysis, repoManager)
	log.Printf("Scoring and aggregation services initialized")

	client, err := inngestgo.NewClient(
		inngestgo.ClientOpts{
			AppID:    "visibility-engine",
			EventKey: inngestgo.StrPtr(cfg.InngestEventKey),
			Env:      inngestgo.StrPtr(cfg.Environment),
		},
	)
	if err != nil {
		log.Fatalf("Failed to create Inngest client: %v", err)
	}

	// Initialize and register workflows
	log.Printf("Initializing and registering workflows...")

	log.Printf("Initializing IngestionProcessor workflow...")
	ingestionProcessor := workflows.NewIngestionProcessor(repoManager)
	ingestionProcessor.SetClient(client)
	ingestionProcessor.ProcessBatchIngestion()

	log.Printf("Initializing ScoringProcessor workflow...")
	scoringProcessor := workflows.NewScoringProcessor(scoringService, cfg)
	scoringProcessor.SetClient(client)
	scoringProcessor.ProcessBatchScoring()
	scoringProcessor.ProcessRescore()
	scoringProcessor.StuckBatchWatchdog()

	log.Printf("Initializing AggregationProcessor workflow...")
	aggregationProcessor := workflows.NewAggregationProcessor(aggregationService, cfg)
	aggregationProcessor.SetClient(client)
	aggregationProcessor.ProcessAggregation()

	log.Printf("All processors initialized and functions registered")

	log.Printf("Starting Inngest client...")
	h := client.Serve()
	mux := http.NewServeMux()
	mux.Handle("/api/inngest", h)
	log.Printf("Inngest client started successfully...")

	// Root endpoint for ALB health check
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"service":"visibility-engine","status":"running"}`))
	})

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(fmt.Sprintf(`{"status":"unhealthy","error":"%v"}`, err)))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	mux.HandleFunc("/test/trigger-aggregation", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		analysisID := r.URL.Query().Get("analysis_id")
		if analysisID == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"analysis_id query parameter is required"}`))
			return
		}
		evt := inngestgo.Event{
			Name: "visibility/batch.completed",
			Data: map[string]interface{}{"analysis_id": analysisID, "reason": "manual_test"},
		}
		result, err := client.Send(r.Context(), evt)
		if err != nil {
			log.Printf("Failed to send test event: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf(`{"error":"Failed to send event: %v"}`, err)))
			return
		}
		log.Printf("Test event sent successfully: %+v", result)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(fmt.Sprintf(`{"status":"success","message":"Aggregation triggered for analysis %s","event_ids":["%s"]}`, analysisID, result)))
	})

	port := cfg.Port
	log.Printf("Starting Visibility Engine service on port %s", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatal(err)
	}
}
