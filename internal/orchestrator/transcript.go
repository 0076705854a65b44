package orchestrator

import "fmt"

// Role identifies who produced a ConversationEntry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrorPrefix starts the content of an assistant entry for a hard failure.
const ErrorPrefix = "죄송합니다. 오류가 발생했습니다: "

// EvidenceChunk is one retrieved passage shown under an answer.
type EvidenceChunk struct {
	SourceName string  `json:"source_name"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// ScorePercent formats the score as a percentage with one decimal ("87.3%").
func (e EvidenceChunk) ScorePercent() string {
	return fmt.Sprintf("%.1f%%", e.Score*100)
}

// ConversationEntry is one message in the transcript. Content is markdown for
// assistant entries. Failed marks a degraded or hard-failed answer.
type ConversationEntry struct {
	Role     Role            `json:"role"`
	Content  string          `json:"content"`
	Evidence []EvidenceChunk `json:"evidence,omitempty"`
	Failed   bool            `json:"failed"`
}

func userEntry(text string) ConversationEntry {
	return ConversationEntry{Role: RoleUser, Content: text}
}

func cloneEntries(entries []ConversationEntry) []ConversationEntry {
	out := make([]ConversationEntry, len(entries))
	for i, e := range entries {
		out[i] = e
		if e.Evidence != nil {
			out[i].Evidence = append([]EvidenceChunk(nil), e.Evidence...)
		}
	}
	return out
}
