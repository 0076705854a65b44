package orchestrator

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// ExportFormat represents supported export formats
type ExportFormat string

const (
	FormatJSON     ExportFormat = "json"
	FormatMarkdown ExportFormat = "markdown"
)

// TranscriptExport is a transcript with its session context for export
type TranscriptExport struct {
	SessionID  string              `json:"session_id"`
	Folder     string              `json:"folder,omitempty"`
	Region     string              `json:"region,omitempty"`
	ExportedAt time.Time           `json:"exported_at"`
	EntryCount int                 `json:"entry_count"`
	Failures   int                 `json:"failures"`
	Entries    []ConversationEntry `json:"entries"`
}

// ExportTranscript writes the snapshot's transcript as JSON or markdown
func ExportTranscript(snap Snapshot, format string, writer io.Writer) error {
	exportFormat := ExportFormat(strings.ToLower(format))

	export := newTranscriptExport(snap)

	switch exportFormat {
	case FormatJSON:
		return exportJSON(export, writer)
	case FormatMarkdown, "md":
		return exportMarkdown(export, writer)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: json, markdown)", format)
	}
}

func newTranscriptExport(snap Snapshot) TranscriptExport {
	failures := 0
	for _, e := range snap.Entries {
		if e.Failed {
			failures++
		}
	}
	entries := snap.Entries
	if entries == nil {
		entries = []ConversationEntry{}
	}

	return TranscriptExport{
		SessionID:  snap.SessionID,
		Folder:     snap.Selection.CategoryValue(),
		Region:     snap.Selection.RegionValue(),
		ExportedAt: time.Now().UTC(),
		EntryCount: len(snap.Entries),
		Failures:   failures,
		Entries:    entries,
	}
}

// exportJSON writes the transcript as indented JSON
func exportJSON(export TranscriptExport, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func exportMarkdown(export TranscriptExport, writer io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Session %s\n\n", export.SessionID)
	if export.Folder != "" {
		fmt.Fprintf(&b, "- folder: %s\n", export.Folder)
	}
	if export.Region != "" {
		fmt.Fprintf(&b, "- region: %s\n", export.Region)
	}
	fmt.Fprintf(&b, "- exported: %s\n\n", export.ExportedAt.Format(time.RFC3339))

	for _, e := range export.Entries {
		switch e.Role {
		case RoleUser:
			fmt.Fprintf(&b, "## Q: %s\n\n", e.Content)
		default:
			b.WriteString(e.Content)
			b.WriteString("\n\n")
			for _, ev := range e.Evidence {
				fmt.Fprintf(&b, "- %s (%s)\n", ev.SourceName, ev.ScorePercent())
			}
			if len(e.Evidence) > 0 {
				b.WriteString("\n")
			}
		}
	}

	_, err := io.WriteString(writer, b.String())
	return err
}
