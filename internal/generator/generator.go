package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/bimtools/bim-insight/internal/retrieval"
)

// Service generates a natural-language answer from a prompt. The zero
// dependency surface keeps the answer router testable without HTTP.
type Service interface {
	// Generate produces an answer for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Enabled reports whether the service can actually generate.
	Enabled() bool
}

// FormatContext renders retrieved results as the numbered context block
// shared by the generation prompt and the no-generator fallback, so both
// paths show the user the same evidence.
func FormatContext(results []retrieval.Result) string {
	blocks := make([]string, len(results))

	for i, r := range results {
		blocks[i] = fmt.Sprintf("Document %d (Relevance: %.2f):\n%s", i+1, r.Relevance, r.Content)
	}

	return strings.Join(blocks, "\n\n")
}

// BuildPrompt assembles the grounded question prompt. The instruction pins
// the model to the provided context so answers stay tied to the ingested
// building data.
func BuildPrompt(query string, results []retrieval.Result) string {
	return fmt.Sprintf(`You are an expert Building Information Modeling (BIM) assistant that helps users understand building models.
Answer the question based ONLY on the provided context about the building model.
If you cannot answer based on the context, say so clearly.

CONTEXT:
%s

QUESTION:
%s

ANSWER:`, FormatContext(results), query)
}

// FallbackAnswer is the degraded-mode response used when no generator is
// configured: a fixed preamble followed by the same context block the
// generator would have seen.
func FallbackAnswer(results []retrieval.Result) string {
	return "Generation is disabled. Here are the most relevant results:\n\n" + FormatContext(results)
}
