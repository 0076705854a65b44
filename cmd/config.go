package cmd

import (
	"github.com/Yates-Labs/permitdesk/internal/backend"
	"github.com/Yates-Labs/permitdesk/internal/panel"
	"github.com/Yates-Labs/permitdesk/internal/render"
	"github.com/spf13/cobra"
)

var (
	chunkCfg      = backend.DefaultChunkConfig()
	similarityCfg = backend.DefaultSimilarityConfig()
	weightCfg     = backend.DefaultWeightConfig()
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Update the backend retrieval settings",
	Long: `Update how the backend chunks documents, how many chunks it retrieves
and how it weighs them. Values are range-checked before anything is sent.

Examples:
  permitdesk config chunk --size 800 --overlap 100
  permitdesk config similarity --threshold 0.6 --top-k 8
  permitdesk config weights --similarity 1.2 --recency 0.3`,
}

var configChunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "Set chunk size, overlap and row chunking",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfig(cmd, func(p *panel.ConfigPanel) (string, error) {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			return p.SubmitChunk(ctx, chunkCfg)
		})
	},
}

var configSimilarityCmd = &cobra.Command{
	Use:   "similarity",
	Short: "Set the similarity threshold and top-k",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfig(cmd, func(p *panel.ConfigPanel) (string, error) {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			return p.SubmitSimilarity(ctx, similarityCfg)
		})
	},
}

var configWeightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Set the similarity, recency and source weights",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfig(cmd, func(p *panel.ConfigPanel) (string, error) {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			return p.SubmitWeight(ctx, weightCfg)
		})
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configChunkCmd, configSimilarityCmd, configWeightsCmd)

	configChunkCmd.Flags().IntVar(&chunkCfg.ChunkSize, "size", chunkCfg.ChunkSize, "Chunk size in characters (100-5000)")
	configChunkCmd.Flags().IntVar(&chunkCfg.ChunkOverlap, "overlap", chunkCfg.ChunkOverlap, "Chunk overlap in characters (0-1000)")
	configChunkCmd.Flags().BoolVar(&chunkCfg.ChunkByRow, "by-row", chunkCfg.ChunkByRow, "Chunk tabular documents row by row")

	configSimilarityCmd.Flags().Float64Var(&similarityCfg.SimilarityThreshold, "threshold", similarityCfg.SimilarityThreshold, "Minimum similarity (0-1)")
	configSimilarityCmd.Flags().IntVar(&similarityCfg.TopK, "top-k", similarityCfg.TopK, "Number of chunks to retrieve (1-20)")

	configWeightsCmd.Flags().Float64Var(&weightCfg.SimilarityWeight, "similarity", weightCfg.SimilarityWeight, "Similarity weight (0-2)")
	configWeightsCmd.Flags().Float64Var(&weightCfg.RecencyWeight, "recency", weightCfg.RecencyWeight, "Recency weight (0-1)")
	configWeightsCmd.Flags().Float64Var(&weightCfg.SourceWeight, "source", weightCfg.SourceWeight, "Source weight (0-1)")
}

func runConfig(cmd *cobra.Command, submit func(*panel.ConfigPanel) (string, error)) error {
	r := render.New(cmd.OutOrStdout())
	msg, err := submit(panel.NewConfigPanel(client))
	if err != nil {
		r.Failure(backend.ErrorMessage(err))
		return err
	}
	r.Success(msg)
	return nil
}
