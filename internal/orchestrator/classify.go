package orchestrator

import (
	"github.com/Yates-Labs/permitdesk/internal/backend"
)

// Outcome is the classified result of one query: the assistant entry to append
// and the message for the error indicator ("" leaves the indicator empty).
type Outcome struct {
	Entry  ConversationEntry
	Banner string
}

// Classify turns a query result into exactly one assistant entry. A successful
// response wins, then a failure that still carries an answer (degraded), then a
// hard failure.
func Classify(resp *backend.QueryResponse, err error) Outcome {
	if err == nil && resp != nil {
		return Outcome{Entry: ConversationEntry{
			Role:     RoleAssistant,
			Content:  resp.Answer,
			Evidence: evidenceFrom(resp.Chunks),
		}}
	}

	if err == nil {
		err = backend.ErrMalformedResponse
	}

	if answer, ok := backend.DegradedAnswer(err); ok {
		return Outcome{Entry: ConversationEntry{
			Role:    RoleAssistant,
			Content: answer,
			Failed:  true,
		}}
	}

	msg := backend.ErrorMessage(err)
	return Outcome{
		Entry: ConversationEntry{
			Role:    RoleAssistant,
			Content: ErrorPrefix + msg,
			Failed:  true,
		},
		Banner: msg,
	}
}

func evidenceFrom(chunks []backend.Chunk) []EvidenceChunk {
	if len(chunks) == 0 {
		return nil
	}
	out := make([]EvidenceChunk, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, EvidenceChunk{
			SourceName: c.Filename(),
			Score:      clampScore(c.Score),
			Text:       c.Content,
		})
	}
	return out
}

func clampScore(score *float64) float64 {
	if score == nil {
		return 0
	}
	switch {
	case *score < 0:
		return 0
	case *score > 1:
		return 1
	default:
		return *score
	}
}
