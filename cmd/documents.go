package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Yates-Labs/permitdesk/internal/backend"
	"github.com/Yates-Labs/permitdesk/internal/panel"
	"github.com/Yates-Labs/permitdesk/internal/render"
	"github.com/spf13/cobra"
)

var (
	uploadFile    string
	uploadName    string
	uploadContent string
	deleteYes     bool
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage the backend document store",
	Long: `List, upload, view, delete and reload the documents the backend retrieves from.

Examples:
  permitdesk documents list
  permitdesk documents upload --file 주차장법.pdf
  permitdesk documents upload --name memo.txt --content "건축법 제11조 ..."
  permitdesk documents show doc_123
  permitdesk documents delete doc_123 --yes
  permitdesk documents reload`,
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		r := render.New(cmd.OutOrStdout())
		docs, err := newDocumentPanel().Documents(ctx)
		if err != nil {
			r.Failure(backend.ErrorMessage(err))
			return err
		}
		r.Documents(docs)
		return nil
	},
}

var documentsUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a file or a text document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := panel.NewTextUpload(uploadName, uploadContent)
		if uploadFile != "" {
			req = panel.NewFileUpload(uploadFile)
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()

		r := render.New(cmd.OutOrStdout())
		p := newDocumentPanel()
		msg, err := p.Upload(ctx, req)
		if err != nil {
			r.Failure(backend.ErrorMessage(err))
			return err
		}
		r.Success(msg)
		if state := p.ListForm.State(); state.Status == panel.StatusSucceeded {
			r.Documents(state.Value)
		}
		return nil
	},
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var confirm panel.Confirmer = promptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
		if deleteYes {
			confirm = nil
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()

		r := render.New(cmd.OutOrStdout())
		msg, err := newDocumentPanel().Delete(ctx, args[0], confirm)
		if errors.Is(err, panel.ErrDeleteDeclined) {
			r.Progress(err.Error())
			return nil
		}
		if err != nil {
			r.Failure(backend.ErrorMessage(err))
			return err
		}
		r.Success(msg)
		return nil
	},
}

var documentsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a document's content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		r := render.New(cmd.OutOrStdout())
		doc, err := newDocumentPanel().View(ctx, args[0])
		if err != nil {
			r.Failure(backend.ErrorMessage(err))
			return err
		}
		r.Document(doc)
		return nil
	},
}

var documentsReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Make the backend re-read its document directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		r := render.New(cmd.OutOrStdout())
		res, err := newDocumentPanel().Reload(ctx)
		if err != nil {
			r.Failure(backend.ErrorMessage(err))
			return err
		}
		r.Success(fmt.Sprintf("%s (%d documents)", res.Message, res.LoadedCount))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(documentsCmd)
	documentsCmd.AddCommand(documentsListCmd, documentsUploadCmd, documentsDeleteCmd, documentsShowCmd, documentsReloadCmd)

	documentsUploadCmd.Flags().StringVar(&uploadFile, "file", "", "File to upload")
	documentsUploadCmd.Flags().StringVar(&uploadName, "name", "", "Filename for a text document")
	documentsUploadCmd.Flags().StringVar(&uploadContent, "content", "", "Text document content")
	documentsUploadCmd.MarkFlagsMutuallyExclusive("file", "content")
	documentsUploadCmd.MarkFlagsMutuallyExclusive("file", "name")
	documentsUploadCmd.MarkFlagsOneRequired("file", "content")
	documentsUploadCmd.MarkFlagsRequiredTogether("name", "content")

	documentsDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Delete without asking")
}

func newDocumentPanel() *panel.DocumentPanel {
	return panel.NewDocumentPanel(client, appConfig.DocumentCacheTTL, appLog)
}

// promptConfirmer asks on out and reads y/N from in.
func promptConfirmer(in io.Reader, out io.Writer) panel.ConfirmFunc {
	return func(prompt string) bool {
		fmt.Fprintf(out, "%s [y/N] ", prompt)
		answer, _ := bufio.NewReader(in).ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes", "예", "네":
			return true
		default:
			return false
		}
	}
}
