package embedding

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/bimtools/bim-insight/internal/errors"
)

// TFIDF is a corpus-local vectorizer: Prepare builds a vocabulary with
// smoothed IDF weights from the ingested documents, Embed produces
// L2-normalized term-frequency vectors over that vocabulary. It needs no
// network or API key, which keeps the default pipeline fully offline.
type TFIDF struct {
	vocabulary map[string]int
	idf        []float64
	dimension  int
	prepared   bool
	tokens     *regexp.Regexp
}

// NewTFIDF creates an unprepared TF-IDF provider.
func NewTFIDF() *TFIDF {
	return &TFIDF{
		vocabulary: make(map[string]int),
		tokens:     regexp.MustCompile(`[\p{L}\p{N}]+`),
	}
}

func (t *TFIDF) Name() string { return "tfidf" }

// Dimensions returns the vocabulary size, 0 before Prepare.
func (t *TFIDF) Dimensions() int { return t.dimension }

// Prepare builds the vocabulary and IDF weights. The vocabulary order is
// sorted so two runs over the same corpus produce identical vectors.
func (t *TFIDF) Prepare(_ context.Context, corpus []string) error {
	if len(corpus) == 0 {
		return errors.New(errors.ErrTypeValidation, "empty corpus for TF-IDF preparation")
	}

	df := make(map[string]int)

	for _, text := range corpus {
		seen := make(map[string]struct{})

		for _, tok := range t.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}

			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	if len(df) == 0 {
		return errors.New(errors.ErrTypeValidation, "no tokens found in corpus")
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}

	sort.Strings(terms)

	t.vocabulary = make(map[string]int, len(terms))
	t.idf = make([]float64, len(terms))

	n := float64(len(corpus))
	for i, term := range terms {
		t.vocabulary[term] = i
		t.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	t.dimension = len(terms)
	t.prepared = true

	return nil
}

// Embed computes the TF-IDF vector for one text. Texts sharing no terms
// with the vocabulary yield the zero vector.
func (t *TFIDF) Embed(_ context.Context, text string) ([]float32, error) {
	if !t.prepared {
		return nil, errors.New(errors.ErrTypeInternal, "TF-IDF provider not prepared")
	}

	tf := make(map[int]int)
	total := 0

	for _, tok := range t.tokenize(text) {
		if idx, ok := t.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}

	vec := make([]float32, t.dimension)
	if total == 0 {
		return vec, nil
	}

	norm := 0.0

	for idx, count := range tf {
		w := float64(count) / float64(total) * t.idf[idx]
		vec[idx] = float32(w)
		norm += w * w
	}

	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for idx := range tf {
			vec[idx] *= inv
		}
	}

	return vec, nil
}

func (t *TFIDF) tokenize(text string) []string {
	return t.tokens.FindAllString(strings.ToLower(text), -1)
}

// tfidfModel is the persisted vocabulary. Terms are stored in index order
// so LoadModel reconstructs the exact same mapping.
type tfidfModel struct {
	Terms []string  `json:"terms"`
	IDF   []float64 `json:"idf"`
}

// SaveModel persists the prepared vocabulary so the query process embeds
// with the same term space the ingestion run used.
func (t *TFIDF) SaveModel(path string) error {
	if !t.prepared {
		return errors.New(errors.ErrTypeInternal, "cannot save unprepared TF-IDF model")
	}

	model := tfidfModel{
		Terms: make([]string, t.dimension),
		IDF:   t.idf,
	}

	for term, idx := range t.vocabulary {
		model.Terms[idx] = term
	}

	data, err := json.Marshal(model)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to marshal TF-IDF model")
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrapf(err, errors.ErrTypeStorage, "failed to write TF-IDF model: %s", path)
	}

	return nil
}

// LoadModel restores a persisted vocabulary.
func (t *TFIDF) LoadModel(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(err, errors.ErrTypeInputNotFound,
				"TF-IDF model not found: %s (run 'bim-insight convert' first)", path)
		}

		return errors.Wrapf(err, errors.ErrTypeStorage, "failed to read TF-IDF model: %s", path)
	}

	var model tfidfModel
	if err := json.Unmarshal(data, &model); err != nil {
		return errors.Wrapf(err, errors.ErrTypeSchemaFormat, "failed to parse TF-IDF model: %s", path)
	}

	if len(model.Terms) != len(model.IDF) {
		return errors.Newf(errors.ErrTypeSchemaFormat,
			"corrupt TF-IDF model: %d terms vs %d weights", len(model.Terms), len(model.IDF))
	}

	t.vocabulary = make(map[string]int, len(model.Terms))
	for i, term := range model.Terms {
		t.vocabulary[term] = i
	}

	t.idf = model.IDF
	t.dimension = len(model.Terms)
	t.prepared = true

	return nil
}
