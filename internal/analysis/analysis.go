// Package analysis calls the external summarization model and turns its
// output into a structured result the document pipeline can persist.
package analysis

import (
	"context"
	"strings"

	"github.com/C3Techie/ai-doc-summarizer-service/internal/apperr"
)

// Category classifies a document. Upstream free-form values are normalized;
// anything outside the enum becomes CategoryOther.
type Category string

const (
	CategoryContract       Category = "contract"
	CategoryInvoice        Category = "invoice"
	CategoryReport         Category = "report"
	CategoryResume         Category = "resume"
	CategoryCorrespondence Category = "correspondence"
	CategoryTechnical      Category = "technical"
	CategoryFinancial      Category = "financial"
	CategoryLegal          Category = "legal"
	CategoryOther          Category = "other"
)

var knownCategories = map[Category]bool{
	CategoryContract:       true,
	CategoryInvoice:        true,
	CategoryReport:         true,
	CategoryResume:         true,
	CategoryCorrespondence: true,
	CategoryTechnical:      true,
	CategoryFinancial:      true,
	CategoryLegal:          true,
	CategoryOther:          true,
}

// NormalizeCategory lowercases and trims v, mapping unknown values to
// CategoryOther. Empty stays empty so validation can reject it.
func NormalizeCategory(v string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(v)))
	if c == "" {
		return ""
	}
	if knownCategories[c] {
		return c
	}
	return CategoryOther
}

// Result is the structured outcome of one analysis call.
type Result struct {
	Summary  string         `json:"summary"`
	Category Category       `json:"category"`
	Metadata map[string]any `json:"metadata"`
}

// Validate enforces the three-field contract: a result missing any of
// summary, category, or metadata cannot be persisted.
func (r *Result) Validate() error {
	if r == nil {
		return apperr.New(apperr.CodeInvalidAnalysisResult, nil)
	}
	if strings.TrimSpace(r.Summary) == "" {
		return apperr.Newf(apperr.CodeInvalidAnalysisResult, "analysis result is missing summary")
	}
	if r.Category == "" {
		return apperr.Newf(apperr.CodeInvalidAnalysisResult, "analysis result is missing category")
	}
	if r.Metadata == nil {
		return apperr.Newf(apperr.CodeInvalidAnalysisResult, "analysis result is missing metadata")
	}
	return nil
}

// Client is the contract the document pipeline depends on. Implementations
// must return apperr-typed failures so callers can report cause without
// inspecting upstream error text.
type Client interface {
	Analyze(ctx context.Context, text string) (*Result, error)
}
