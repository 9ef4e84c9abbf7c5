package answer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bimtools/bim-insight/internal/generator"
	"github.com/bimtools/bim-insight/internal/logging"
	"github.com/bimtools/bim-insight/internal/retrieval"
	"github.com/bimtools/bim-insight/internal/schema"
)

// Answer is the full response to one query: the text shown to the user
// plus the retrieved sources it was grounded on. Structured lookups carry
// no sources.
type Answer struct {
	Query    string
	Response string
	Sources  []retrieval.Result
}

// noAnalysisResponse is returned for structured lookups before any
// analysis has been run.
const noAnalysisResponse = "No analysis results available. Please run the analysis first using the 'analyze' command."

// Router classifies queries and dispatches them to the structured-lookup
// or retrieval path.
type Router struct {
	engine    *retrieval.Engine
	generator generator.Service
	logger    *logging.Logger
	topK      int
	analysis  *schema.AnalysisResult
}

// NewRouter wires a router. analysis may be nil when no analysis results
// have been persisted yet.
func NewRouter(engine *retrieval.Engine, gen generator.Service, logger *logging.Logger, topK int, analysis *schema.AnalysisResult) *Router {
	return &Router{
		engine:    engine,
		generator: gen,
		logger:    logger,
		topK:      topK,
		analysis:  analysis,
	}
}

// SetAnalysis replaces the analysis results the router answers from,
// letting an interactive session pick up a fresh run immediately.
func (r *Router) SetAnalysis(result *schema.AnalysisResult) {
	r.analysis = result
}

// Answer routes a query and produces the response.
func (r *Router) Answer(ctx context.Context, query string) (*Answer, error) {
	class := Classify(query)

	if class.Kind == KindStructuredLookup {
		r.logger.WithField("category", class.Category).Debug("answering from analysis results")

		return r.missingParameters(query, class.Category), nil
	}

	return r.generic(ctx, query)
}

// missingParameters answers a structured lookup directly from the
// analysis comparison. Element types are reported in sorted order so the
// same analysis always renders the same text.
func (r *Router) missingParameters(query, category string) *Answer {
	if r.analysis == nil || r.analysis.Comparison == nil {
		return &Answer{Query: query, Response: noAnalysisResponse}
	}

	matched := make([]string, 0, len(r.analysis.Comparison))

	for elementType := range r.analysis.Comparison {
		if strings.Contains(strings.ToLower(elementType), category) {
			matched = append(matched, elementType)
		}
	}

	if len(matched) == 0 {
		return &Answer{
			Query:    query,
			Response: fmt.Sprintf("No missing %s parameters were found in the analysis.", category),
		}
	}

	sort.Strings(matched)

	var sb strings.Builder

	fmt.Fprintf(&sb, "Here are the missing %s parameters based on the analysis:\n\n", category)

	for _, elementType := range matched {
		fmt.Fprintf(&sb, "For %s:\n", elementType)

		missing := r.analysis.Comparison[elementType].MissingParameters
		if len(missing) == 0 {
			sb.WriteString("- No missing parameters\n")
		} else {
			for _, param := range missing {
				fmt.Fprintf(&sb, "- %s\n", param)
			}
		}

		sb.WriteString("\n")
	}

	return &Answer{Query: query, Response: sb.String()}
}

// generic runs the retrieval path. Generation failures degrade to the
// formatted context instead of dropping the retrieved evidence.
func (r *Router) generic(ctx context.Context, query string) (*Answer, error) {
	results, err := r.engine.Query(ctx, query, r.topK)
	if err != nil {
		return nil, err
	}

	ans := &Answer{Query: query, Sources: results}

	if !r.generator.Enabled() {
		ans.Response = generator.FallbackAnswer(results)

		return ans, nil
	}

	response, err := r.generator.Generate(ctx, generator.BuildPrompt(query, results))
	if err != nil {
		r.logger.WithError(err).Warn("generation failed, returning retrieved context")

		ans.Response = fmt.Sprintf("Error generating response: %v\n\nHere are the most relevant results:\n\n%s",
			err, generator.FormatContext(results))

		return ans, nil
	}

	ans.Response = response

	return ans, nil
}
