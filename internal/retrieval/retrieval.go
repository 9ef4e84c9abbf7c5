package retrieval

import (
	"context"

	"github.com/bimtools/bim-insight/internal/embedding"
	"github.com/bimtools/bim-insight/internal/errors"
	"github.com/bimtools/bim-insight/internal/logging"
	"github.com/bimtools/bim-insight/internal/vectorstore"
)

// Result is one retrieved document with its relevance score in [0, 1],
// higher is more relevant.
type Result struct {
	ID          string
	Content     string
	ElementType string
	Relevance   float64
}

// Normalize maps a raw distance to a relevance score. Distances above 1
// are squashed through 1/(1+d) so far-away results stay ordered instead of
// collapsing to zero; distances in [0, 1] map linearly to 1-d. The result
// is clamped to [0, 1].
func Normalize(distance float64) float64 {
	var relevance float64

	if distance > 1 {
		relevance = 1 / (1 + distance)
	} else {
		relevance = 1 - distance
	}

	if relevance < 0 {
		return 0
	}

	if relevance > 1 {
		return 1
	}

	return relevance
}

// Engine runs similarity queries against one collection.
type Engine struct {
	store      vectorstore.Store
	provider   embedding.Provider
	logger     *logging.Logger
	collection string
}

// NewEngine wires a retrieval engine over a prepared embedding provider.
func NewEngine(store vectorstore.Store, provider embedding.Provider, logger *logging.Logger, collection string) *Engine {
	return &Engine{
		store:      store,
		provider:   provider,
		logger:     logger,
		collection: collection,
	}
}

// Query embeds the text and returns the topK most relevant documents.
// Results keep the store's ascending-distance order; because Normalize is
// discontinuous at distance 1, relevance is only guaranteed descending
// when all hits fall on the same side of that boundary (always true for
// the local provider, whose non-negative vectors keep cosine distance
// within [0, 1]).
// A missing collection surfaces as a collection-not-found error so
// callers can suggest running ingestion.
func (e *Engine) Query(ctx context.Context, text string, topK int) ([]Result, error) {
	if topK <= 0 {
		return nil, errors.Newf(errors.ErrTypeValidation, "topK must be positive, got %d", topK)
	}

	vec, err := e.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	hits, err := e.store.Search(ctx, e.collection, vec, topK)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(hits))
	for i, hit := range hits {
		results[i] = Result{
			ID:          hit.ID,
			Content:     hit.Content,
			ElementType: hit.Metadata["element_type"],
			Relevance:   Normalize(hit.Distance),
		}
	}

	e.logger.WithField("collection", e.collection).
		Debugf("retrieved %d results for query", len(results))

	return results, nil
}
