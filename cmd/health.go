package cmd

import (
	"fmt"

	"github.com/Yates-Labs/permitdesk/internal/backend"
	"github.com/Yates-Labs/permitdesk/internal/render"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the backend is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		r := render.New(cmd.OutOrStdout())
		status, err := client.Health(ctx)
		if err != nil {
			r.Failure(backend.ErrorMessage(err))
			return err
		}
		r.Success(fmt.Sprintf("%s is %s", client.BaseURL(), status.Status))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
