package answer

import (
	"strings"
)

// Kind discriminates the closed set of query classes.
type Kind int

const (
	// KindGeneric routes through retrieval and generation.
	KindGeneric Kind = iota

	// KindStructuredLookup answers directly from persisted analysis
	// results without touching the vector store.
	KindStructuredLookup
)

// QueryClass is the routing decision for one query. Category is set only
// for structured lookups.
type QueryClass struct {
	Kind     Kind
	Category string
}

// categories are checked in fixed order so a query naming several element
// kinds always resolves the same way.
var categories = []string{"wall", "door", "window", "slab"}

// Classify decides how a query is answered. A query asking about missing
// parameters of a known element category becomes a structured lookup;
// everything else goes through retrieval.
func Classify(query string) QueryClass {
	q := strings.ToLower(query)

	if strings.Contains(q, "missing") && strings.Contains(q, "parameters") {
		for _, cat := range categories {
			if strings.Contains(q, cat) {
				return QueryClass{Kind: KindStructuredLookup, Category: cat}
			}
		}
	}

	return QueryClass{Kind: KindGeneric}
}
