package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/AI-Template-SDK/visibility-engine/internal/config"
	"github.com/AI-Template-SDK/visibility-engine/services"
	"github.com/google/uuid"
)

// Standalone one-off tool: intentionally duplicates DB bootstrapping from main.go
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

func readIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func main() {
	var (
		analysisFlag = flag.String("analysis", "", "comma-separated analysis UUIDs to re-aggregate")
		analysisFile = flag.String("analysis-file", "", "path to file containing analysis UUIDs (one per line)")
		dryRun       = flag.Bool("dry-run", true, "if true, do not write to DB (prints what would happen)")
		timeout      = flag.Duration("timeout", 30*time.Minute, "overall timeout for the script")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		_ = godotenv.Load("dev.env")
	}
	cfg := config.Load()

	var analysisIDs []string
	if *analysisFlag != "" {
		for _, id := range strings.Split(*analysisFlag, ",") {
			if trimmed := strings.TrimSpace(id); trimmed != "" {
				analysisIDs = append(analysisIDs, trimmed)
			}
		}
	}
	if *analysisFile != "" {
		fromFile, err := readIDs(*analysisFile)
		if err != nil {
			log.Fatalf("Failed reading analysis list: %v", err)
		}
		analysisIDs = append(analysisIDs, fromFile...)
	}
	if len(analysisIDs) == 0 {
		log.Fatalf("no analyses given: use --analysis or --analysis-file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := connectDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("DB connect failed: %v", err)
	}
	defer db.Close()

	repos := services.NewRepositoryManager(db)
	aggregator := services.NewAggregationService(cfg.Analysis, repos)

	log.Printf("[reaggregate] analyses=%d dry_run=%t", len(analysisIDs), *dryRun)
	if *dryRun {
		log.Printf("[reaggregate] DRY RUN MODE: no metrics will be written")
		log.Printf("[reaggregate] To execute for real: go run ./cmd/reaggregate --dry-run=false --analysis <uuid>")
	}

	succeeded, failed := 0, 0
	for idx, analysisID := range analysisIDs {
		log.Printf("[reaggregate] (%d/%d) analysis=%s", idx+1, len(analysisIDs), analysisID)

		analysisUUID, err := uuid.Parse(analysisID)
		if err != nil {
			log.Printf("[reaggregate] analysis=%s invalid uuid: %v", analysisID, err)
			failed++
			continue
		}

		if *dryRun {
			scores, err := repos.BrandScoreRepo.GetLatestByAnalysis(ctx, analysisUUID)
			if err != nil {
				log.Printf("[reaggregate] analysis=%s ERROR loading scores: %v", analysisID, err)
				failed++
				continue
			}
			candidates, err := repos.BrandCandidateRepo.GetByAnalysis(ctx, analysisUUID)
			if err != nil {
				log.Printf("[reaggregate] analysis=%s ERROR loading candidates: %v", analysisID, err)
				failed++
				continue
			}
			log.Printf("[reaggregate] analysis=%s DRY RUN would aggregate scores=%d brands=%d", analysisID, len(scores), len(candidates))
			succeeded++
			continue
		}

		summary, err := aggregator.AggregateAnalysis(ctx, analysisUUID)
		if err != nil {
			log.Printf("[reaggregate] analysis=%s ERROR: %v", analysisID, err)
			failed++
			continue
		}
		log.Printf("[reaggregate] analysis=%s scopes_computed=%d scopes_failed=%d metrics_written=%d",
			analysisID, summary.ScopesComputed, summary.ScopesFailed, summary.MetricsWritten)
		for _, scopeErr := range summary.FailedScopes {
			log.Printf("[reaggregate] analysis=%s scope failure: %s", analysisID, scopeErr)
		}
		succeeded++
	}

	log.Printf("[reaggregate] done succeeded=%d failed=%d", succeeded, failed)
}
