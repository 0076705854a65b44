package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/Yates-Labs/permitdesk/internal/backend"
	"github.com/Yates-Labs/permitdesk/internal/config"
	"github.com/Yates-Labs/permitdesk/internal/logger"
	"github.com/Yates-Labs/permitdesk/internal/selection"
	"github.com/spf13/cobra"
)

var (
	baseURL      string
	catalogPath  string
	queryTimeout time.Duration
	logFile      string
	verbose      bool
)

// Shared state built once per invocation by setup.
var (
	appConfig config.Config
	appLog    logger.Logger = logger.Nop()
	client    *backend.Client
)

var rootCmd = &cobra.Command{
	Use:   "permitdesk",
	Short: "permitdesk - building-permit document assistant",
	Long: `permitdesk asks a building-permit RAG backend questions about laws,
ordinances and application forms, scoped to a building category and region.

It also manages the backend's retrieval settings and document store, and
evaluates retrieval accuracy against expected documents.

Environment variables (also read from .env):
  PERMITDESK_BASE_URL        - backend root (default: http://localhost:8000)
  PERMITDESK_CATALOG         - YAML category/region catalog
  PERMITDESK_QUERY_TIMEOUT   - question timeout (default: 90s)
  PERMITDESK_REQUEST_TIMEOUT - timeout for every other request (default: 30s)
  PERMITDESK_LOG_FILE        - JSON log file, rotated
  PERMITDESK_VERBOSE         - mirror logs to stderr`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = appLog.Sync()
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&baseURL, "base-url", "", "Backend base URL (overrides PERMITDESK_BASE_URL)")
	flags.StringVar(&catalogPath, "catalog", "", "YAML category/region catalog (overrides PERMITDESK_CATALOG)")
	flags.DurationVar(&queryTimeout, "timeout", config.DefaultQueryTimeout, "Timeout for a single question")
	flags.StringVar(&logFile, "log-file", "", "Write JSON logs to this file (overrides PERMITDESK_LOG_FILE)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Mirror logs to stderr")
}

// setup merges env and flags, then builds the logger and backend client.
func setup(cmd *cobra.Command, args []string) error {
	appConfig = config.Load()

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		appConfig.BaseURL = baseURL
	}
	if flags.Changed("catalog") {
		appConfig.CatalogPath = catalogPath
	}
	if flags.Changed("timeout") {
		if queryTimeout <= 0 {
			return fmt.Errorf("--timeout must be positive, got %s", queryTimeout)
		}
		appConfig.QueryTimeout = queryTimeout
	}
	if flags.Changed("log-file") {
		appConfig.LogFile = logFile
	}
	if flags.Changed("verbose") {
		appConfig.Verbose = verbose
	}

	appLog = logger.New(logger.Config{
		FilePath: appConfig.LogFile,
		Console:  appConfig.Verbose,
		Debug:    appConfig.Verbose,
	})

	c, err := backend.NewClient(appConfig.BaseURL, backend.WithLogger(appLog))
	if err != nil {
		return fmt.Errorf("failed to create backend client: %w", err)
	}
	client = c

	appLog.Debug("cmd", "configuration loaded", map[string]interface{}{
		"command":       cmd.Name(),
		"base_url":      appConfig.BaseURL,
		"catalog":       appConfig.CatalogPath,
		"query_timeout": appConfig.QueryTimeout.String(),
	})
	return nil
}

// requestContext bounds a panel request with the configured request timeout.
func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), appConfig.RequestTimeout)
}

// loadCatalog resolves the catalog: the configured file, then the backend
// folder listing, then the catalog compiled into the binary.
func loadCatalog(ctx context.Context) (*selection.Catalog, string, error) {
	embedded := selection.DefaultCatalog()

	var sources []selection.CatalogSource
	if appConfig.CatalogPath != "" {
		sources = append(sources, selection.FileSource{Path: appConfig.CatalogPath})
	}
	sources = append(sources,
		selection.NewFolderSource(client, embedded, appConfig.CatalogTTL),
		selection.StaticSource{Catalog: embedded, Label: "embedded"},
	)

	ctx, cancel := context.WithTimeout(ctx, appConfig.RequestTimeout)
	defer cancel()
	return selection.ChainSource{Sources: sources, Log: appLog}.Resolve(ctx)
}
