package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v3"

	"github.com/bimtools/bim-insight/internal/embedding"
	"github.com/bimtools/bim-insight/internal/formatter"
	"github.com/bimtools/bim-insight/internal/ingest"
	"github.com/bimtools/bim-insight/internal/tabular"
)

func ConvertCommand() *cli.Command {
	return &cli.Command{
		Name:  "convert",
		Usage: "Ingest tabular exports into the vector store",
		Description: `Read the element export files from the data folder, embed each row,
and load the documents into the configured collection. When the collection
already exists, --on-exists decides whether it is reused as-is or rebuilt.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "on-exists",
				Usage: "what to do with an existing collection: reuse or replace",
				Value: "reuse",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runConvert(ctx, cmd)
		},
	}
}

func runConvert(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	onExists, err := ingest.ParseOnExists(cmd.String("on-exists"))
	if err != nil {
		return err
	}

	paths := tabular.DefaultExportFiles(cfg.Data.Folder)

	tables, err := tabular.ReadFolder(paths, func(path string, err error) {
		logger.WithField("path", path).Warnf("skipping export: %v", err)
	})
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Embedding and loading documents..."
	s.Start()

	ingestor := ingest.NewIngestor(store, provider, logger, cfg.Retrieval.BatchSize)
	report, err := ingestor.Ingest(ctx, cfg.Retrieval.Collection, tables, onExists)

	s.Stop()

	if err != nil {
		return err
	}

	// Corpus-trained providers persist their state so the query process
	// embeds in the same term space.
	if p, ok := provider.(embedding.Persistable); ok && !report.Reused {
		if err := p.SaveModel(embeddingModelPath(cfg)); err != nil {
			return err
		}
	}

	fmt.Println(formatter.NewFormatter().FormatIngestReport(report))

	return nil
}
