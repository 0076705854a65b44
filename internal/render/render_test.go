package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Yates-Labs/permitdesk/internal/backend"
	"github.com/Yates-Labs/permitdesk/internal/orchestrator"
	"github.com/Yates-Labs/permitdesk/internal/panel"
	"github.com/Yates-Labs/permitdesk/internal/selection"
)

func assertContains(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRenderer_NoColourForBuffers(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).ErrorBanner("boom")

	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("Expected plain output for a non-terminal writer, got %q", buf.String())
	}
}

func TestRenderer_Snapshot(t *testing.T) {
	var buf bytes.Buffer
	snap := orchestrator.Snapshot{
		Phase: orchestrator.PhaseIdle,
		Entries: []orchestrator.ConversationEntry{
			{Role: orchestrator.RoleUser, Content: "주차장 설치 기준?"},
			{
				Role:    orchestrator.RoleAssistant,
				Content: "세대당 1대 이상입니다.",
				Evidence: []orchestrator.EvidenceChunk{
					{SourceName: "주차장법.pdf", Score: 0.873, Text: "제6조\n부설주차장의   설치기준"},
					{SourceName: "unknown", Score: 0.5},
				},
			},
		},
		ErrorMessage: "Folder not found",
	}

	New(&buf).Snapshot(snap)
	assertContains(t, buf.String(),
		"Q: 주차장 설치 기준?",
		"세대당 1대 이상입니다.",
		"참고 문서 (2개)",
		"주차장법.pdf  87.3%",
		"unknown  50.0%",
		"제6조 부설주차장의 설치기준",
		"Folder not found",
	)
	if strings.Contains(buf.String(), WelcomeMessage) {
		t.Error("Expected no welcome message when the transcript has entries")
	}
}

func TestRenderer_EmptyAndPending(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Snapshot(orchestrator.Snapshot{Phase: orchestrator.PhaseIdle})
	assertContains(t, buf.String(), WelcomeMessage)

	buf.Reset()
	New(&buf).Snapshot(orchestrator.Snapshot{
		Phase:   orchestrator.PhaseSubmitting,
		Entries: []orchestrator.ConversationEntry{{Role: orchestrator.RoleUser, Content: "질문"}},
	})
	assertContains(t, buf.String(), PendingMessage)
}

func TestRenderer_ErrorBannerEmpty(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).ErrorBanner("")
	if buf.Len() != 0 {
		t.Errorf("Expected nothing for an empty banner, got %q", buf.String())
	}
}

func TestRenderer_Selection(t *testing.T) {
	catalog := selection.DefaultCatalog()
	first := catalog.Categories[0].ID
	region := "완주군"

	tests := []struct {
		name  string
		sel   selection.FilterSelection
		wants []string
	}{
		{name: "none", sel: selection.FilterSelection{}, wants: []string{NoCategoryWarning}},
		{name: "category only", sel: selection.FilterSelection{Category: &first}, wants: []string{catalog.Categories[0].DisplayLabel(), "지역: 전체"}},
		{name: "with region", sel: selection.FilterSelection{Category: &first, Region: &region}, wants: []string{"지역: 완주군"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			New(&buf).Selection(tt.sel, catalog)
			assertContains(t, buf.String(), tt.wants...)
		})
	}
}

func TestRenderer_Dropdown(t *testing.T) {
	state := selection.NewState()
	picker := selection.NewPicker(state, selection.DefaultCatalog(), nil)
	if err := picker.Mount(); err != nil {
		t.Fatal(err)
	}
	d := picker.Open(selection.CategoryDropdown)
	defer d.Close()

	var buf bytes.Buffer
	New(&buf).Dropdown(d)
	assertContains(t, buf.String(), "▸", " 1 ", "다중주택", "단독주택")
}

func TestRenderer_Documents(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Documents([]backend.DocumentInfo{
		{ID: "doc_1", Filename: "건축법.txt", ChunkCount: 12, CreatedAt: "2024-05-01T09:30:00.123456"},
		{ID: "doc_2", Filename: "조례.pdf", ChunkCount: 3, CreatedAt: "yesterday"},
	})

	assertContains(t, buf.String(),
		"FILENAME",
		"doc_1",
		"건축법.txt",
		"2024-05-01 09:30",
		"yesterday",
		"Total: 2 documents, 15 chunks",
	)
}

func TestRenderer_DocumentsEmpty(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Documents(nil)
	assertContains(t, buf.String(), "업로드된 문서가 없습니다.")
}

func TestRenderer_Evaluation(t *testing.T) {
	var buf bytes.Buffer
	report := panel.NewEvaluationReport(backend.EvaluationResult{
		Precision:          0.5,
		Recall:             0.5,
		F1Score:            0.5,
		ExpectedDocuments:  []string{"doc1", "doc2"},
		RetrievedDocuments: []string{"doc1"},
		MatchedCount:       1,
	})

	New(&buf).Evaluation(report)
	out := buf.String()
	if got := strings.Count(out, "50.00%"); got != 3 {
		t.Errorf("Expected 50.00%% three times, got %d in:\n%s", got, out)
	}
	assertContains(t, out, "doc1, doc2", "1 / 2")
}

func TestFormatCreatedAt(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "2024-05-01T09:30:00", expected: "2024-05-01 09:30"},
		{input: "2024-05-01T09:30:00.5", expected: "2024-05-01 09:30"},
		{input: "2024-05-01T09:30:00Z", expected: "2024-05-01 09:30"},
		{input: "2024-05-01 09:30:00", expected: "2024-05-01 09:30"},
		{input: "", expected: ""},
		{input: "not a date", expected: "not a date"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := FormatCreatedAt(tt.input); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
