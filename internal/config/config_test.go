package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PERMITDESK_BASE_URL", "PERMITDESK_CATALOG", "PERMITDESK_QUERY_TIMEOUT",
		"PERMITDESK_REQUEST_TIMEOUT", "PERMITDESK_CATALOG_TTL", "PERMITDESK_DOCUMENT_CACHE_TTL",
		"PERMITDESK_LOG_FILE", "PERMITDESK_VERBOSE",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.BaseURL != "http://localhost:8000" {
		t.Errorf("Expected default base URL, got %s", cfg.BaseURL)
	}
	if cfg.QueryTimeout != 90*time.Second {
		t.Errorf("Expected QueryTimeout=90s, got %s", cfg.QueryTimeout)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("Expected RequestTimeout=30s, got %s", cfg.RequestTimeout)
	}
	if cfg.CatalogPath != "" {
		t.Errorf("Expected empty catalog path, got %s", cfg.CatalogPath)
	}
	if cfg.Verbose {
		t.Error("Expected Verbose=false")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PERMITDESK_BASE_URL", "http://rag.internal:9000")
	t.Setenv("PERMITDESK_CATALOG", "/etc/permitdesk/catalog.yaml")
	t.Setenv("PERMITDESK_QUERY_TIMEOUT", "120")
	t.Setenv("PERMITDESK_CATALOG_TTL", "1m")
	t.Setenv("PERMITDESK_VERBOSE", "true")

	cfg := Load()

	if cfg.BaseURL != "http://rag.internal:9000" {
		t.Errorf("Expected overridden base URL, got %s", cfg.BaseURL)
	}
	if cfg.CatalogPath != "/etc/permitdesk/catalog.yaml" {
		t.Errorf("Expected catalog path, got %s", cfg.CatalogPath)
	}
	if cfg.QueryTimeout != 120*time.Second {
		t.Errorf("Expected QueryTimeout=120s, got %s", cfg.QueryTimeout)
	}
	if cfg.CatalogTTL != time.Minute {
		t.Errorf("Expected CatalogTTL=1m, got %s", cfg.CatalogTTL)
	}
	if !cfg.Verbose {
		t.Error("Expected Verbose=true")
	}
}

func TestEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected time.Duration
	}{
		{name: "go duration", value: "45s", expected: 45 * time.Second},
		{name: "bare seconds", value: "10", expected: 10 * time.Second},
		{name: "garbage", value: "soon", expected: time.Minute},
		{name: "negative", value: "-5s", expected: time.Minute},
		{name: "zero", value: "0", expected: time.Minute},
		{name: "empty", value: "", expected: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PERMITDESK_TEST_DURATION", tt.value)
			got := envDuration("PERMITDESK_TEST_DURATION", time.Minute)
			if got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}
