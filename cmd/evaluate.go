package cmd

import (
	"github.com/Yates-Labs/permitdesk/internal/backend"
	"github.com/Yates-Labs/permitdesk/internal/panel"
	"github.com/Yates-Labs/permitdesk/internal/render"
	"github.com/spf13/cobra"
)

var evaluateExpected string

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [question]",
	Short: "Measure retrieval accuracy for a question",
	Long: `Ask the backend which documents it retrieves for a question and compare
them with the documents you expect, reporting precision, recall and F1.

Examples:
  permitdesk evaluate "주차장 설치 기준" --expected "doc1, doc2"`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringVar(&evaluateExpected, "expected", "", "Comma-separated expected document IDs")
	_ = evaluateCmd.MarkFlagRequired("expected")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx, cancel := requestContext(cmd)
	defer cancel()

	r := render.New(cmd.OutOrStdout())
	report, err := panel.NewEvaluationPanel(client).Run(ctx, args[0], evaluateExpected)
	if err != nil {
		r.Failure(backend.ErrorMessage(err))
		return err
	}
	r.Evaluation(report)
	return nil
}
