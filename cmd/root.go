package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/bimtools/bim-insight/internal/cache"
	"github.com/bimtools/bim-insight/internal/config"
	"github.com/bimtools/bim-insight/internal/embedding"
	"github.com/bimtools/bim-insight/internal/logging"
	"github.com/bimtools/bim-insight/internal/vectorstore"
)

// Execute runs the CLI.
func Execute() error {
	err := newRootCommand().Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	return err
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "bim-insight",
		Usage: "Analyze BIM tabular exports and answer questions about them",
		Description: `bim-insight ingests tabular building-element exports into a local
vector store and answers natural-language questions about the building
model. It also profiles the exports against an expected parameter schema
and reports missing, extra, and sparsely filled parameters.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "data-folder",
				Usage: "folder containing the tabular export files",
			},
			&cli.StringFlag{
				Name:  "store-path",
				Usage: "path of the vector store database file",
			},
			&cli.StringFlag{
				Name:  "collection",
				Usage: "name of the vector store collection",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			ConvertCommand(),
			AnalyzeCommand(),
			QueryCommand(),
			ParamsCommand(),
		},
	}
}

// setup loads the configuration with global flag overrides and wires the
// process logger. Every subcommand calls it first.
func setup(cmd *cli.Command) (*config.Config, *logging.Logger, error) {
	overrides := map[string]interface{}{
		"data-folder": cmd.String("data-folder"),
		"store-path":  cmd.String("store-path"),
		"collection":  cmd.String("collection"),
		"log-level":   cmd.String("log-level"),
	}

	cfg, err := config.LoadConfigWithOverrides(overrides)
	if err != nil {
		return nil, nil, err
	}

	cfg.ExpandAllPaths()

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, nil, err
	}

	if err := logging.InitializeLogger(cfg.Logging); err != nil {
		return nil, nil, err
	}

	return cfg, logging.GetLogger(), nil
}

// openStore opens the configured DuckDB-backed vector store.
func openStore(ctx context.Context, cfg *config.Config) (vectorstore.Store, error) {
	store, err := vectorstore.NewDuckDBStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := store.Initialize(ctx); err != nil {
		store.Close()

		return nil, err
	}

	return store, nil
}

// embeddingModelPath is where corpus-trained embedding state lives, next
// to the store file it was built for.
func embeddingModelPath(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.Store.Path), "tfidf_model.json")
}

// newProvider builds the configured embedding provider. Remote providers
// get a file-backed vector cache next to the store.
func newProvider(cfg *config.Config) (embedding.Provider, error) {
	provider, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	if remote, ok := provider.(*embedding.Remote); ok {
		c, err := cache.NewEmbeddingCache(
			filepath.Join(filepath.Dir(cfg.Store.Path), "embedding_cache"), 0)
		if err != nil {
			return nil, err
		}

		remote.WithCache(c)
	}

	return provider, nil
}
