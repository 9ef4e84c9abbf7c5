package embedding

import (
	"context"

	"github.com/bimtools/bim-insight/internal/config"
	"github.com/bimtools/bim-insight/internal/errors"
)

// Provider turns text into a fixed-length vector. Corpus-dependent
// providers build their state in Prepare; remote providers treat it as a
// no-op.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Prepare gives the provider the full document corpus before any
	// Embed call. Providers without corpus state may ignore it.
	Prepare(ctx context.Context, corpus []string) error

	// Embed returns the vector for one text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector length, 0 until known.
	Dimensions() int
}

// Persistable is implemented by providers whose state must survive between
// the ingestion and query processes. The TF-IDF vocabulary is the one case.
type Persistable interface {
	SaveModel(path string) error
	LoadModel(path string) error
}

// NewProvider builds the provider selected by the configuration.
func NewProvider(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case "tfidf":
		return NewTFIDF(), nil
	case "remote":
		return NewRemote(cfg)
	default:
		return nil, errors.Newf(errors.ErrTypeConfig,
			"unsupported embedding provider: %s", cfg.Provider)
	}
}
