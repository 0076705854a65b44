// Package render draws transcripts, filters and panel results for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Yates-Labs/permitdesk/internal/backend"
	"github.com/Yates-Labs/permitdesk/internal/orchestrator"
	"github.com/Yates-Labs/permitdesk/internal/panel"
	"github.com/Yates-Labs/permitdesk/internal/selection"
	"github.com/charmbracelet/lipgloss"
)

// LipGloss signature purple/pink palette
var (
	headerColor   = lipgloss.Color("#F780FF") // Bright pink/magenta
	questionColor = lipgloss.Color("#8BE9FD") // Cyan
	answerColor   = lipgloss.Color("#E9E9F4") // Light purple/white
	mutedColor    = lipgloss.Color("#6272A4") // Muted purple
	errorColor    = lipgloss.Color("#FF5555") // Red
	successColor  = lipgloss.Color("#50FA7B") // Green
	accentColor   = lipgloss.Color("#BD93F9") // Purple
	numberColor   = lipgloss.Color("#FF79C6") // Pink
)

const (
	WelcomeMessage      = "건축허가 관련 문서에 대해 질문해보세요."
	NoCategoryWarning   = "⚠️ 건축 양식을 먼저 선택해주세요."
	PendingMessage      = "● ● ●"
	createdAtDisplayFmt = "2006-01-02 15:04"
)

// Renderer writes styled output to one writer. Colours are dropped
// automatically when the writer is not a terminal.
type Renderer struct {
	w io.Writer

	header   lipgloss.Style
	question lipgloss.Style
	answer   lipgloss.Style
	muted    lipgloss.Style
	banner   lipgloss.Style
	failed   lipgloss.Style
	success  lipgloss.Style
	accent   lipgloss.Style
	number   lipgloss.Style
}

func New(w io.Writer) *Renderer {
	r := lipgloss.NewRenderer(w)
	return &Renderer{
		w:        w,
		header:   r.NewStyle().Foreground(headerColor).Bold(true),
		question: r.NewStyle().Foreground(questionColor).Italic(true),
		answer:   r.NewStyle().Foreground(answerColor),
		muted:    r.NewStyle().Foreground(mutedColor).Italic(true),
		banner:   r.NewStyle().Foreground(errorColor).Bold(true).Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(errorColor).PaddingLeft(1),
		failed:   r.NewStyle().Foreground(errorColor),
		success:  r.NewStyle().Foreground(successColor),
		accent:   r.NewStyle().Foreground(accentColor),
		number:   r.NewStyle().Foreground(numberColor).Align(lipgloss.Right),
	}
}

func (r *Renderer) println(s string) {
	fmt.Fprintln(r.w, s)
}

// Selection prints the active filter pair.
func (r *Renderer) Selection(sel selection.FilterSelection, catalog *selection.Catalog) {
	if !sel.HasCategory() {
		r.println(r.failed.Render(NoCategoryWarning))
		return
	}
	line := r.header.Render("건축 양식:") + " " + r.accent.Render(catalog.CategoryLabel(sel.CategoryValue()))
	if sel.Region != nil {
		label := sel.RegionValue()
		if e, ok := catalog.Region(label); ok {
			label = e.DisplayLabel()
		}
		line += "  " + r.header.Render("지역:") + " " + r.accent.Render(label)
	} else {
		line += "  " + r.muted.Render("지역: 전체")
	}
	r.println(line)
}

// Snapshot prints the whole conversation view: transcript, pending marker and
// error banner.
func (r *Renderer) Snapshot(snap orchestrator.Snapshot) {
	if len(snap.Entries) == 0 && snap.Phase == orchestrator.PhaseIdle {
		r.println(r.muted.Render(WelcomeMessage))
	}
	r.Transcript(snap.Entries)
	if snap.Phase == orchestrator.PhaseSubmitting {
		r.println(r.muted.Render(PendingMessage))
	}
	r.ErrorBanner(snap.ErrorMessage)
}

func (r *Renderer) Transcript(entries []orchestrator.ConversationEntry) {
	for _, e := range entries {
		r.Entry(e)
	}
}

// Entry prints one message. Assistant entries list their evidence below the answer.
func (r *Renderer) Entry(e orchestrator.ConversationEntry) {
	if e.Role == orchestrator.RoleUser {
		r.println(r.header.Render("Q:") + " " + r.question.Render(e.Content))
		return
	}

	style := r.answer
	if e.Failed {
		style = r.failed
	}
	r.println(r.header.Render("A:"))
	r.println(style.Render(strings.TrimSpace(e.Content)))

	if len(e.Evidence) > 0 {
		r.println(r.muted.Render(fmt.Sprintf("참고 문서 (%d개)", len(e.Evidence))))
		for _, ev := range e.Evidence {
			r.Evidence(ev)
		}
	}
	r.println("")
}

// Evidence prints "filename  87.3%" followed by a one-line excerpt.
func (r *Renderer) Evidence(ev orchestrator.EvidenceChunk) {
	r.println("  " + r.accent.Render(ev.SourceName) + "  " + r.number.Render(ev.ScorePercent()))
	if excerpt := excerpt(ev.Text, 120); excerpt != "" {
		r.println("    " + r.muted.Render(excerpt))
	}
}

func excerpt(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}

// ErrorBanner prints msg in the error style; an empty msg prints nothing.
func (r *Renderer) ErrorBanner(msg string) {
	if msg == "" {
		return
	}
	r.println(r.banner.Render(msg))
}

func (r *Renderer) Success(msg string) {
	r.println(r.success.Render("✓ " + msg))
}

func (r *Renderer) Failure(msg string) {
	r.println(r.failed.Render("✗ " + msg))
}

func (r *Renderer) Progress(msg string) {
	r.println(r.muted.Render("→ " + msg))
}

// Dropdown lists the options of an open dropdown, marking the selected one.
func (r *Renderer) Dropdown(d *selection.Dropdown) {
	title := "건축 양식"
	if d.Kind() == selection.RegionDropdown {
		title = "지역"
	}
	r.println(r.header.Render(title))
	selected := d.Selected()
	for i, opt := range d.Options() {
		marker := "  "
		style := r.answer
		if opt.ID == selected {
			marker = "▸ "
			style = r.accent.Bold(true)
		}
		r.println(fmt.Sprintf("%s%s %s", marker, r.number.Render(fmt.Sprintf("%2d", i+1)), style.Render(opt.DisplayLabel())))
	}
	if d.Kind() == selection.RegionDropdown {
		r.println(r.muted.Render("   (/region none: 전체)"))
	}
}

// Catalog prints every category and region with its ID.
func (r *Renderer) Catalog(c *selection.Catalog, source string) {
	r.println(r.header.Render("건축 양식") + " " + r.muted.Render("("+source+")"))
	for i, e := range c.Categories {
		r.println(fmt.Sprintf("  %s %s  %s", r.number.Render(fmt.Sprintf("%2d", i+1)), r.accent.Render(e.DisplayLabel()), r.muted.Render(e.ID)))
	}
	if len(c.Regions) > 0 {
		r.println(r.header.Render("지역"))
		for i, e := range c.Regions {
			r.println(fmt.Sprintf("  %s %s", r.number.Render(fmt.Sprintf("%2d", i+1)), r.accent.Render(e.DisplayLabel())))
		}
	}
}

// QuickQuestions prints the numbered quick-question list.
func (r *Renderer) QuickQuestions(questions []string) {
	if len(questions) == 0 {
		return
	}
	r.println(r.header.Render("빠른 질문"))
	for i, q := range questions {
		r.println(fmt.Sprintf("  %s %s", r.number.Render(fmt.Sprintf("%d.", i+1)), r.question.Render(q)))
	}
}

// Documents prints the document listing as a table.
func (r *Renderer) Documents(docs []backend.DocumentInfo) {
	if len(docs) == 0 {
		r.println(r.muted.Render("업로드된 문서가 없습니다."))
		return
	}

	// Column widths
	const (
		idWidth      = 28
		nameWidth    = 32
		chunksWidth  = 8
		createdWidth = 20
	)

	headerStyle := r.header.Padding(0, 1)
	border := r.muted.UnsetItalic()

	headers := []string{
		headerStyle.Width(idWidth).Render("ID"),
		headerStyle.Width(nameWidth).Render("FILENAME"),
		headerStyle.Width(chunksWidth).Render("CHUNKS"),
		headerStyle.Width(createdWidth).Render("CREATED"),
	}
	r.println(strings.Join(headers, border.Render("│")))

	separatorParts := []string{
		strings.Repeat("─", idWidth),
		strings.Repeat("─", nameWidth),
		strings.Repeat("─", chunksWidth),
		strings.Repeat("─", createdWidth),
	}
	r.println(border.Render(strings.Join(separatorParts, "┼")))

	idStyle := r.accent.Padding(0, 1).Width(idWidth)
	nameStyle := r.answer.Padding(0, 1).Width(nameWidth)
	chunkStyle := r.number.Padding(0, 1).Width(chunksWidth)
	dateStyle := r.answer.Padding(0, 1).Width(createdWidth)

	totalChunks := 0
	for _, doc := range docs {
		totalChunks += doc.ChunkCount
		cells := []string{
			idStyle.Render(doc.ID),
			nameStyle.Render(doc.Filename),
			chunkStyle.Render(fmt.Sprintf("%d", doc.ChunkCount)),
			dateStyle.Render(FormatCreatedAt(doc.CreatedAt)),
		}
		r.println(strings.Join(cells, border.Render("│")))
	}

	r.println("")
	r.println(r.question.Render(fmt.Sprintf("Total: %d documents, %d chunks", len(docs), totalChunks)))
}

// Document prints a single document's content.
func (r *Renderer) Document(doc *backend.DocumentContent) {
	r.println(r.header.Render(doc.ID))
	r.println(r.answer.Render(doc.Content))
}

// Evaluation prints an evaluation report.
func (r *Renderer) Evaluation(report panel.EvaluationReport) {
	r.println(r.header.Render("평가 결과"))

	label := r.muted.UnsetItalic().Width(20)
	metric := r.number.Bold(true).Width(10)
	r.println(label.Render("정밀도 (Precision)") + metric.Render(report.Precision))
	r.println(label.Render("재현율 (Recall)") + metric.Render(report.Recall))
	r.println(label.Render("F1 점수") + metric.Render(report.F1Score))
	r.println("")
	r.println(r.header.Render("예상 문서:") + " " + r.answer.Render(strings.Join(report.Expected, ", ")))
	r.println(r.header.Render("검색된 문서:") + " " + r.answer.Render(strings.Join(report.Retrieved, ", ")))
	r.println(r.header.Render("매칭된 문서 수:") + " " + r.answer.Render(report.Matched))
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// FormatCreatedAt shortens a backend timestamp for display and falls back to
// the raw string when it cannot be parsed.
func FormatCreatedAt(raw string) string {
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(createdAtDisplayFmt)
		}
	}
	return raw
}
