package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultQueryTimeout bounds a single retrieval request.
const DefaultQueryTimeout = 90 * time.Second

type Config struct {
	// BaseURL is the root of the RAG backend (the /api prefix is added per endpoint).
	BaseURL string

	// CatalogPath points at a YAML category/region catalog. Empty falls back to the
	// backend folder listing and then to the embedded catalog.
	CatalogPath string

	// QueryTimeout bounds POST /api/rag/query.
	QueryTimeout time.Duration

	// RequestTimeout bounds every panel request (config, documents, evaluation).
	RequestTimeout time.Duration

	// CatalogTTL is how long a backend folder listing is reused.
	CatalogTTL time.Duration

	// DocumentCacheTTL is how long a document listing is reused between mutations.
	DocumentCacheTTL time.Duration

	LogFile string
	Verbose bool
}

// Load reads configuration from the environment, after loading a .env file if one exists.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		BaseURL:          envStr("PERMITDESK_BASE_URL", "http://localhost:8000"),
		CatalogPath:      envStr("PERMITDESK_CATALOG", ""),
		QueryTimeout:     envDuration("PERMITDESK_QUERY_TIMEOUT", DefaultQueryTimeout),
		RequestTimeout:   envDuration("PERMITDESK_REQUEST_TIMEOUT", 30*time.Second),
		CatalogTTL:       envDuration("PERMITDESK_CATALOG_TTL", 5*time.Minute),
		DocumentCacheTTL: envDuration("PERMITDESK_DOCUMENT_CACHE_TTL", 30*time.Second),
		LogFile:          envStr("PERMITDESK_LOG_FILE", ""),
		Verbose:          envBool("PERMITDESK_VERBOSE", false),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go durations ("90s") or a bare number of seconds ("90").
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}
