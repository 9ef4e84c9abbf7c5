package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimtools/bim-insight/internal/answer"
	"github.com/bimtools/bim-insight/internal/config"
	"github.com/bimtools/bim-insight/internal/embedding"
	"github.com/bimtools/bim-insight/internal/errors"
	"github.com/bimtools/bim-insight/internal/formatter"
	"github.com/bimtools/bim-insight/internal/logging"
	"github.com/bimtools/bim-insight/internal/retrieval"
	"github.com/bimtools/bim-insight/internal/schema"
	"github.com/bimtools/bim-insight/internal/vectorstore"
)

// disabledGenerator drives the fallback path in session tests.
type disabledGenerator struct{}

func (disabledGenerator) Enabled() bool { return false }

func (disabledGenerator) Generate(context.Context, string) (string, error) {
	return "", errors.New(errors.ErrTypeGeneration, "disabled")
}

func newTestSession(t *testing.T) *session {
	t.Helper()

	ctx := context.Background()

	logger, err := logging.NewLogger(config.LoggingConfig{
		Level:  "error",
		Format: "text",
		Output: "stderr",
	})
	require.NoError(t, err)

	store := vectorstore.NewMemoryStore()
	provider := embedding.NewTFIDF()

	contents := []string{
		"ElementType: wall Name: W1 FireRating: F30",
		"ElementType: door Name: D1 Width: 0.9",
	}
	require.NoError(t, provider.Prepare(ctx, contents))
	require.NoError(t, store.CreateCollection(ctx, "bim_elements", provider.Dimensions()))

	docs := make([]vectorstore.Document, len(contents))
	for i, content := range contents {
		vec, err := provider.Embed(ctx, content)
		require.NoError(t, err)

		docs[i] = vectorstore.Document{
			ID:        contents[i][:17],
			Content:   content,
			Metadata:  map[string]string{"element_type": "wall"},
			Embedding: vec,
		}
	}
	require.NoError(t, store.Upsert(ctx, "bim_elements", docs))

	engine := retrieval.NewEngine(store, provider, logger, "bim_elements")

	analysis := &schema.AnalysisResult{
		Schemas: map[string]schema.Descriptor{
			"wall": {
				RecordCount: 1,
				Columns:     []string{"Name", "FireRating"},
				Stats: map[string]schema.ColumnStats{
					"Name":       {DType: "text", FillRate: 1},
					"FireRating": {DType: "text", FillRate: 1},
				},
			},
		},
		Comparison: schema.Comparison{
			"wall": {
				MissingParameters: []string{"ThermalMass"},
				ExtraParameters:   []string{},
			},
		},
	}

	return &session{
		cfg:       &config.Config{},
		logger:    logger,
		router:    answer.NewRouter(engine, disabledGenerator{}, logger, 5, analysis),
		formatter: formatter.NewFormatter(),
		analysis:  analysis,
	}
}

func TestDispatchExit(t *testing.T) {
	sess := newTestSession(t)

	for _, line := range []string{"exit", "quit", "EXIT"} {
		done, err := sess.dispatch(context.Background(), line, false)
		require.NoError(t, err)
		assert.True(t, done, "line %q should end the session", line)
	}
}

func TestDispatchSummary(t *testing.T) {
	sess := newTestSession(t)

	done, err := sess.dispatch(context.Background(), "summary", false)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestDispatchElementParameters(t *testing.T) {
	sess := newTestSession(t)

	done, err := sess.dispatch(context.Background(), "wall parameters", false)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestDispatchCompare(t *testing.T) {
	sess := newTestSession(t)

	schemaPath := filepath.Join(t.TempDir(), "expected.json")
	expected := schema.Expected{
		"wall": {
			Parameters:         []string{"Name", "FireRating", "AcousticRating"},
			RequiredParameters: []string{"Name"},
		},
	}
	require.NoError(t, schema.SaveExpected(schemaPath, expected))

	done, err := sess.dispatch(context.Background(), "compare "+schemaPath, false)
	require.NoError(t, err)
	assert.False(t, done)

	// The session now answers structured lookups from the new comparison.
	assert.Equal(t, []string{"AcousticRating"}, sess.analysis.Comparison["wall"].MissingParameters)
}

func TestDispatchCompareMissingFile(t *testing.T) {
	sess := newTestSession(t)

	done, err := sess.dispatch(context.Background(), "compare /nonexistent/schema.json", false)
	require.Error(t, err)
	assert.False(t, done)
}

func TestDispatchGenericQuestion(t *testing.T) {
	sess := newTestSession(t)

	done, err := sess.dispatch(context.Background(), "which walls have a fire rating?", false)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestAskStructuredLookupIgnoresModelError(t *testing.T) {
	sess := newTestSession(t)
	sess.modelErr = errors.New(errors.ErrTypeInputNotFound, "model missing")

	// Structured lookups come from analysis results, not the store, so a
	// missing embedding model must not block them.
	err := sess.ask(context.Background(), "what are the missing wall parameters?", false)
	require.NoError(t, err)
}

func TestAskGenericSurfacesModelError(t *testing.T) {
	sess := newTestSession(t)
	sess.modelErr = errors.New(errors.ErrTypeInputNotFound, "model missing")

	err := sess.ask(context.Background(), "how tall is the tallest wall?", false)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeInputNotFound))
}
