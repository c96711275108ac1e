// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
)

type Config struct {
	Port              string
	Environment       string
	InngestEventKey   string
	InngestSigningKey string
	DatabaseURL       string
	Database          DatabaseConfig
	Analysis          AnalysisConfig
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// AnalysisConfig carries the engine tunables. It is an explicit value
// threaded through every scoring and aggregation call, never a process-wide
// singleton, so runs stay reproducible and testable in isolation.
type AnalysisConfig struct {
	// Default confidence assigned to an extracted citation when the
	// extractor has no stronger signal.
	CitationConfidence float64
	// Confidence assigned when the citation host matches the brand's own
	// domain label.
	BrandDomainConfidence float64
	// Per-type citation weights used by the aggregator.
	BrandCitationWeight  float64
	EarnedCitationWeight float64
	SocialCitationWeight float64
	// Worker pool size for batch scoring.
	ScoringConcurrency int
}

// DefaultAnalysisConfig returns the product-chosen weighting constants.
// These are tunable parameters of the algorithm, not invariants.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		CitationConfidence:    0.8,
		BrandDomainConfidence: 0.95,
		BrandCitationWeight:   1.0,
		EarnedCitationWeight:  0.9,
		SocialCitationWeight:  0.8,
		ScoringConcurrency:    8,
	}
}

// CitationTypeWeight resolves the weight for a citation type string
func (a AnalysisConfig) CitationTypeWeight(citationType string) float64 {
	switch citationType {
	case "brand":
		return a.BrandCitationWeight
	case "earned":
		return a.EarnedCitationWeight
	case "social":
		return a.SocialCitationWeight
	default:
		return 0
	}
}

func Load() *Config {
	config := &Config{
		Port:              getEnv("PORT", "8000"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		InngestEventKey:   os.Getenv("INNGEST_EVENT_KEY"),
		InngestSigningKey: os.Getenv("INNGEST_SIGNING_KEY"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
	}

	// Parse database configuration
	dbConfig, err := parseDatabaseConfig()
	if err != nil {
		// If DATABASE_URL parsing fails, try individual env vars as fallback
		dbConfig = DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "visibility"),
			SSLMode:         getEnv("DB_SSLMODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 300),
		}
	}
	config.Database = dbConfig

	analysis := DefaultAnalysisConfig()
	analysis.CitationConfidence = getEnvFloat("CITATION_CONFIDENCE", analysis.CitationConfidence)
	analysis.BrandDomainConfidence = getEnvFloat("BRAND_DOMAIN_CONFIDENCE", analysis.BrandDomainConfidence)
	analysis.BrandCitationWeight = getEnvFloat("CITATION_WEIGHT_BRAND", analysis.BrandCitationWeight)
	analysis.EarnedCitationWeight = getEnvFloat("CITATION_WEIGHT_EARNED", analysis.EarnedCitationWeight)
	analysis.SocialCitationWeight = getEnvFloat("CITATION_WEIGHT_SOCIAL", analysis.SocialCitationWeight)
	analysis.ScoringConcurrency = getEnvInt("SCORING_CONCURRENCY", analysis.ScoringConcurrency)
	config.Analysis = analysis

	return config
}

func parseDatabaseConfig() (DatabaseConfig, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return DatabaseConfig{}, fmt.Errorf("DATABASE_URL not set")
	}

	parsedURL, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}

	config := DatabaseConfig{
		Host:            parsedURL.Hostname(),
		Port:            5432, // default
		User:            parsedURL.User.Username(),
		Name:            parsedURL.Path[1:], // remove leading slash
		SSLMode:         getEnv("DB_SSLMODE", "require"),
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 25),
		ConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 300),
	}

	if password, ok := parsedURL.User.Password(); ok {
		config.Password = password
	}

	if parsedURL.Port() != "" {
		if port, err := strconv.Atoi(parsedURL.Port()); err == nil {
			config.Port = port
		}
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
