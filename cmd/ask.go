package cmd

import (
	"errors"
	"fmt"

	"github.com/Yates-Labs/permitdesk/internal/backend"
	"github.com/Yates-Labs/permitdesk/internal/orchestrator"
	"github.com/Yates-Labs/permitdesk/internal/panel"
	"github.com/Yates-Labs/permitdesk/internal/render"
	"github.com/Yates-Labs/permitdesk/internal/selection"
	"github.com/spf13/cobra"
)

var (
	askCategory     string
	askRegion       string
	askChunkSize    int
	askChunkOverlap int
	askThreshold    float64
	askTopK         int
	askExport       string
)

// errAskFailed signals a hard failure that was already rendered.
var errAskFailed = errors.New("question failed")

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the answer",
	Long: `Ask one question scoped to a building category and region, print the
answer with its evidence, and exit.

The first catalog category is used when --category is not given. Retrieval
parameters can be overridden for this question only.

Examples:
  permitdesk ask "주차장 설치 기준 법령"
  permitdesk ask "건폐율 기준" --category 단독주택 --region 완주군
  permitdesk ask "일조 기준" --top-k 8 --threshold 0.6 --export answer.md`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVar(&askCategory, "category", "", "Category (ID, label or number)")
	askCmd.Flags().StringVar(&askRegion, "region", "", "Region (ID, label or number)")
	askCmd.Flags().IntVar(&askChunkSize, "chunk-size", 0, "Override chunk size for this question")
	askCmd.Flags().IntVar(&askChunkOverlap, "chunk-overlap", 0, "Override chunk overlap for this question")
	askCmd.Flags().Float64Var(&askThreshold, "threshold", 0, "Override similarity threshold for this question")
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "Override number of retrieved chunks for this question")
	askCmd.Flags().StringVar(&askExport, "export", "", "Save the exchange to a .json or .md file")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	r := render.New(cmd.OutOrStdout())

	overrides := askOverrides(cmd)
	if overrides != nil {
		if err := panel.Validate(overrides); err != nil {
			r.Failure(err.Error())
			return err
		}
	}

	catalog, _, err := loadCatalog(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	state := selection.NewState()
	picker := selection.NewPicker(state, catalog, nil)
	if err := picker.Mount(); err != nil {
		return fmt.Errorf("failed to select a default category: %w", err)
	}
	if askCategory != "" {
		if err := picker.SelectCategory(askCategory); err != nil {
			return err
		}
	}
	if askRegion != "" {
		if err := picker.SelectRegion(&askRegion); err != nil {
			return err
		}
	}

	orch, err := orchestrator.New(client, state, orchestrator.Config{
		Timeout:   appConfig.QueryTimeout,
		Overrides: overrides,
	}, appLog)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer orch.Close()

	r.Selection(state.Current(), catalog)
	r.Entry(orchestrator.ConversationEntry{Role: orchestrator.RoleUser, Content: args[0]})

	if !orch.Submit(ctx, args[0]) {
		return fmt.Errorf("question is empty")
	}

	snap := orch.Snapshot()
	if n := len(snap.Entries); n > 0 {
		r.Entry(snap.Entries[n-1])
	}
	r.ErrorBanner(snap.ErrorMessage)

	if askExport != "" {
		if err := exportTranscript(snap, askExport); err != nil {
			return err
		}
		r.Success("exported to " + askExport)
	}

	if snap.ErrorMessage != "" {
		return errAskFailed
	}
	return nil
}

// askOverrides returns nil unless at least one override flag was set.
func askOverrides(cmd *cobra.Command) *backend.QueryOptions {
	var opts backend.QueryOptions
	set := false
	flags := cmd.Flags()
	if flags.Changed("chunk-size") {
		opts.ChunkSize = &askChunkSize
		set = true
	}
	if flags.Changed("chunk-overlap") {
		opts.ChunkOverlap = &askChunkOverlap
		set = true
	}
	if flags.Changed("threshold") {
		opts.SimilarityThreshold = &askThreshold
		set = true
	}
	if flags.Changed("top-k") {
		opts.TopK = &askTopK
		set = true
	}
	if !set {
		return nil
	}
	return &opts
}
