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
		analysisFlag = flag.String("analysis", "", "comma-separated analysis UUIDs to re-score")
		analysisFile = flag.String("analysis-file", "", "path to file containing analysis UUIDs (one per line)")
		dryRun       = flag.Bool("dry-run", true, "if true, do not write to DB (prints what would happen)")
		aggregate    = flag.Bool("aggregate", true, "re-aggregate each analysis after re-scoring")
		concurrency  = flag.Int("concurrency", 0, "scoring worker count (0 = use SCORING_CONCURRENCY / default)")
		timeout      = flag.Duration("timeout", 60*time.Minute, "overall timeout for the script")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		_ = godotenv.Load("dev.env")
	}
	cfg := config.Load()
	if *concurrency > 0 {
		cfg.Analysis.ScoringConcurrency = *concurrency
	}

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
	scorer := services.NewScoringService(cfg.Analysis, repos)
	aggregator := services.NewAggregationService(cfg.Analysis, repos)

	log.Printf("[rescore] analyses=%d dry_run=%t aggregate=%t concurrency=%d",
		len(analysisIDs), *dryRun, *aggregate, cfg.Analysis.ScoringConcurrency)
	if *dryRun {
		log.Printf("[rescore] DRY RUN MODE: no score generations will be written")
		log.Printf("[rescore] To execute for real: go run ./cmd/rescore --dry-run=false --analysis <uuid>")
	}

	succeeded, failed := 0, 0
	for idx, analysisID := range analysisIDs {
		log.Printf("[rescore] (%d/%d) analysis=%s", idx+1, len(analysisIDs), analysisID)

		analysisUUID, err := uuid.Parse(analysisID)
		if err != nil {
			log.Printf("[rescore] analysis=%s invalid uuid: %v", analysisID, err)
			failed++
			continue
		}

		if *dryRun {
			responses, err := repos.RawResponseRepo.GetByAnalysis(ctx, analysisUUID)
			if err != nil {
				log.Printf("[rescore] analysis=%s ERROR loading responses: %v", analysisID, err)
				failed++
				continue
			}
			candidates, err := repos.BrandCandidateRepo.GetByAnalysis(ctx, analysisUUID)
			if err != nil {
				log.Printf("[rescore] analysis=%s ERROR loading candidates: %v", analysisID, err)
				failed++
				continue
			}
			log.Printf("[rescore] analysis=%s DRY RUN would re-score responses=%d brands=%d (%d score rows)",
				analysisID, len(responses), len(candidates), len(responses)*len(candidates))
			succeeded++
			continue
		}

		summary, err := scorer.RescoreAnalysis(ctx, analysisUUID)
		if err != nil {
			log.Printf("[rescore] analysis=%s ERROR: %v", analysisID, err)
			failed++
			continue
		}
		log.Printf("[rescore] analysis=%s scored=%d/%d failed=%d scores_written=%d",
			analysisID, summary.ScoredResponses, summary.TotalResponses, summary.FailedResponses, summary.ScoresWritten)
		for _, procErr := range summary.ProcessingErrors {
			log.Printf("[rescore] analysis=%s response failure: %s", analysisID, procErr)
		}

		if *aggregate {
			aggSummary, err := aggregator.AggregateAnalysis(ctx, analysisUUID)
			if err != nil {
				log.Printf("[rescore] analysis=%s ERROR aggregating: %v", analysisID, err)
				failed++
				continue
			}
			log.Printf("[rescore] analysis=%s scopes_computed=%d metrics_written=%d",
				analysisID, aggSummary.ScopesComputed, aggSummary.MetricsWritten)
		}
		succeeded++
	}

	log.Printf("[rescore] done succeeded=%d failed=%d", succeeded, failed)
}
