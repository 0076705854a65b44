package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/Yates-Labs/permitdesk/internal/orchestrator"
	"github.com/Yates-Labs/permitdesk/internal/render"
	"github.com/Yates-Labs/permitdesk/internal/selection"
	"github.com/spf13/cobra"
)

const (
	newConversationMessage = "새 대화를 시작합니다."
	bannerDismissedMessage = "오류 메시지를 닫았습니다."
)

var (
	chatCategory string
	chatRegion   string
	chatWatch    bool
)

const chatHelp = `Commands:
  /category [value]   choose a building category (no value opens the list)
  /region [value]     choose a region; "/region none" clears it
  /quick [n]          list quick questions or ask number n
  /clear              start a new conversation
  /dismiss            hide the error banner
  /export <file>      save the conversation (.json or .md)
  /help               show this help
  /exit               quit
Anything else is sent as a question.`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive question session",
	Long: `Start an interactive session against the RAG backend.

Every question is scoped to the selected building category and region.
Changing either one starts a new conversation.

Examples:
  permitdesk chat
  permitdesk chat --category 단독주택 --region 전주시
  permitdesk chat --catalog catalog.yaml --watch`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatCategory, "category", "", "Initial category (ID, label or number)")
	chatCmd.Flags().StringVar(&chatRegion, "region", "", "Initial region (ID, label or number)")
	chatCmd.Flags().BoolVar(&chatWatch, "watch", false, "Reload the catalog file when it changes")
}

// chatSession wires the picker, orchestrator and renderer for one REPL.
type chatSession struct {
	picker *selection.Picker
	orch   *orchestrator.Orchestrator
	r      *render.Renderer

	dropdown *selection.Dropdown
}

// transcriptView prints what changed between orchestrator snapshots.
type transcriptView struct {
	r *render.Renderer

	mu        sync.Mutex
	sessionID string
	printed   int
	banner    string
}

func newTranscriptView(r *render.Renderer, snap orchestrator.Snapshot) *transcriptView {
	v := &transcriptView{r: r, sessionID: snap.SessionID, banner: snap.ErrorMessage}
	v.printed = len(snap.Entries)
	r.Snapshot(snap)
	return v
}

func (v *transcriptView) update(snap orchestrator.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()

	newSession := snap.SessionID != v.sessionID
	if newSession {
		v.sessionID = snap.SessionID
		v.printed = 0
		v.r.Progress(newConversationMessage)
	}

	for _, e := range snap.Entries[min(v.printed, len(snap.Entries)):] {
		v.r.Entry(e)
	}
	v.printed = len(snap.Entries)
	if snap.Phase == orchestrator.PhaseSubmitting {
		v.r.Progress(render.PendingMessage)
	}

	if snap.ErrorMessage != v.banner {
		switch {
		case snap.ErrorMessage != "":
			v.r.ErrorBanner(snap.ErrorMessage)
		case !newSession && snap.Phase == orchestrator.PhaseIdle:
			v.r.Progress(bannerDismissedMessage)
		}
		v.banner = snap.ErrorMessage
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	r := render.New(cmd.OutOrStdout())

	catalog, source, err := loadCatalog(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	state := selection.NewState()
	picker := selection.NewPicker(state, catalog, nil)
	if err := picker.Mount(); err != nil {
		return fmt.Errorf("failed to select a default category: %w", err)
	}
	defer picker.Unmount()

	if chatCategory != "" {
		if err := picker.SelectCategory(chatCategory); err != nil {
			return err
		}
	}
	if chatRegion != "" {
		if err := picker.SelectRegion(&chatRegion); err != nil {
			return err
		}
	}

	orch, err := orchestrator.New(client, state, orchestrator.Config{Timeout: appConfig.QueryTimeout}, appLog)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer orch.Close()

	unsubscribe := state.Subscribe(func(prev, next selection.FilterSelection) {
		r.Selection(next, picker.Catalog())
	})
	defer unsubscribe()

	if chatWatch {
		if err := watchCatalog(ctx, picker, r); err != nil {
			return err
		}
	}

	s := &chatSession{picker: picker, orch: orch, r: r}

	r.Progress(fmt.Sprintf("catalog: %s, session %s", source, orch.SessionID()))
	r.Selection(state.Current(), catalog)
	r.QuickQuestions(catalog.QuickQuestions)
	view := newTranscriptView(r, orch.Snapshot())
	stopView := orch.OnChange(view.update)
	defer stopView()
	fmt.Fprintln(cmd.OutOrStdout(), "/help for commands")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(cmd.OutOrStdout(), "> ")
		if !scanner.Scan() {
			break
		}
		if done := s.handle(ctx, cmd, scanner.Text()); done {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	return scanner.Err()
}

func watchCatalog(ctx context.Context, picker *selection.Picker, r *render.Renderer) error {
	if appConfig.CatalogPath == "" {
		return fmt.Errorf("--watch needs --catalog or PERMITDESK_CATALOG")
	}
	watcher, err := selection.NewCatalogWatcher(appConfig.CatalogPath, appLog)
	if err != nil {
		return err
	}
	catalogs, err := watcher.Watch(ctx)
	if err != nil {
		watcher.Stop()
		return err
	}
	go func() {
		defer watcher.Stop()
		for c := range catalogs {
			picker.SetCatalog(c)
			r.Progress(fmt.Sprintf("catalog reloaded: %d categories", len(c.Categories)))
		}
	}()
	return nil
}

// handle processes one input line and reports whether the session should end.
func (s *chatSession) handle(ctx context.Context, cmd *cobra.Command, line string) bool {
	line = strings.TrimSpace(line)

	if !strings.HasPrefix(line, "/") && s.dropdownOpen() {
		if line == "" {
			s.picker.Bus().Publish(selection.Interaction{Target: "input"})
			return false
		}
		s.picker.Bus().Publish(selection.Interaction{Target: s.dropdown.Target()})
		if err := s.dropdown.Choose(line); err != nil {
			s.r.Failure(err.Error())
		}
		return false
	}

	// Any command or question is an interaction outside an open dropdown.
	s.picker.Bus().Publish(selection.Interaction{Target: "input"})

	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		s.ask(ctx, line)
		return false
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/exit", "/quit":
		return true
	case "/help":
		fmt.Fprintln(cmd.OutOrStdout(), chatHelp)
	case "/category":
		if arg == "" {
			s.open(selection.CategoryDropdown)
		} else if err := s.picker.SelectCategory(arg); err != nil {
			s.r.Failure(err.Error())
		}
	case "/region":
		switch arg {
		case "":
			s.open(selection.RegionDropdown)
		case "none", "전체":
			_ = s.picker.SelectRegion(nil)
		default:
			if err := s.picker.SelectRegion(&arg); err != nil {
				s.r.Failure(err.Error())
			}
		}
	case "/quick":
		s.quick(ctx, arg)
	case "/clear":
		s.orch.Reset()
	case "/dismiss":
		s.orch.DismissError()
	case "/export":
		if err := exportTranscript(s.orch.Snapshot(), arg); err != nil {
			s.r.Failure(err.Error())
		} else {
			s.r.Success("exported to " + arg)
		}
	default:
		s.r.Failure("unknown command " + name + " (/help)")
	}
	return false
}

func (s *chatSession) dropdownOpen() bool {
	return s.dropdown != nil && s.dropdown.IsOpen()
}

func (s *chatSession) open(kind selection.DropdownKind) {
	s.dropdown = s.picker.Open(kind)
	s.r.Dropdown(s.dropdown)
}

func (s *chatSession) quick(ctx context.Context, arg string) {
	questions := s.picker.Catalog().QuickQuestions
	if arg == "" {
		s.r.QuickQuestions(questions)
		return
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(questions) {
		s.r.Failure(fmt.Sprintf("quick question must be between 1 and %d", len(questions)))
		return
	}
	s.ask(ctx, questions[n-1])
}

// ask submits question; the transcript view prints the exchange.
func (s *chatSession) ask(ctx context.Context, question string) {
	if !s.orch.Submit(ctx, question) && !s.orch.Snapshot().Selection.HasCategory() {
		s.r.Failure(render.NoCategoryWarning)
	}
}

// exportTranscript picks the format from the file extension.
func exportTranscript(snap orchestrator.Snapshot, path string) error {
	if path == "" {
		return fmt.Errorf("usage: /export <file.json|file.md>")
	}
	format := "json"
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".md" || ext == ".markdown" {
		format = "markdown"
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	if err := orchestrator.ExportTranscript(snap, format, file); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	return nil
}
