package panel

import (
	"context"
	"fmt"
	"strings"

	"github.com/Yates-Labs/permitdesk/internal/backend"
)

// Evaluator scores retrieval for a query against the documents expected to match.
type Evaluator interface {
	Evaluate(ctx context.Context, query string, expected []string) (*backend.EvaluationResult, error)
}

// EvaluationRequest is the evaluation form input.
type EvaluationRequest struct {
	Query    string   `json:"query" validate:"required"`
	Expected []string `json:"expected_documents"`
}

// ParseExpectedDocuments splits a comma-separated list, trims each item and
// drops empty ones.
func ParseExpectedDocuments(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if doc := strings.TrimSpace(part); doc != "" {
			out = append(out, doc)
		}
	}
	return out
}

// FormatPercent renders a 0..1 ratio as a percentage with two decimals ("50.00%").
func FormatPercent(ratio float64) string {
	return fmt.Sprintf("%.2f%%", ratio*100)
}

// EvaluationReport is an EvaluationResult formatted for display.
type EvaluationReport struct {
	Precision string
	Recall    string
	F1Score   string
	Matched   string
	Expected  []string
	Retrieved []string
}

// NewEvaluationReport formats r. Matched reads "matched / expected".
func NewEvaluationReport(r backend.EvaluationResult) EvaluationReport {
	return EvaluationReport{
		Precision: FormatPercent(r.Precision),
		Recall:    FormatPercent(r.Recall),
		F1Score:   FormatPercent(r.F1Score),
		Matched:   fmt.Sprintf("%d / %d", r.MatchedCount, len(r.ExpectedDocuments)),
		Expected:  r.ExpectedDocuments,
		Retrieved: r.RetrievedDocuments,
	}
}

// EvaluationPanel runs one evaluation at a time.
type EvaluationPanel struct {
	evaluator Evaluator

	Form Form[EvaluationReport]
}

func NewEvaluationPanel(e Evaluator) *EvaluationPanel {
	return &EvaluationPanel{evaluator: e}
}

// Run evaluates query against the comma-separated expected document IDs.
func (p *EvaluationPanel) Run(ctx context.Context, query, expected string) (EvaluationReport, error) {
	req := EvaluationRequest{
		Query:    strings.TrimSpace(query),
		Expected: ParseExpectedDocuments(expected),
	}
	return submit(ctx, &p.Form, func(ctx context.Context) (EvaluationReport, error) {
		if err := Validate(req); err != nil {
			return EvaluationReport{}, err
		}
		res, err := p.evaluator.Evaluate(ctx, req.Query, req.Expected)
		if err != nil {
			return EvaluationReport{}, err
		}
		return NewEvaluationReport(*res), nil
	})
}
