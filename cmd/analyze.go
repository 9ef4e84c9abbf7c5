package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v3"

	"github.com/bimtools/bim-insight/internal/formatter"
	"github.com/bimtools/bim-insight/internal/schema"
	"github.com/bimtools/bim-insight/internal/tabular"
)

func AnalyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Profile the exports and compare them against an expected schema",
		Description: `Profile every export file, diff the observed parameters against the
expected schema (or one synthesized from the data when none is given),
write the HTML report, and persist the results for querying.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "schema",
				Usage: "path to an expected-schema JSON file (default: synthesize from data)",
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "path of the HTML report",
			},
			&cli.StringFlag{
				Name:  "save-schema",
				Usage: "write the schema used for the comparison to this path",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runAnalyze(ctx, cmd)
		},
	}
}

func runAnalyze(_ context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	expectedPath := cmd.String("schema")
	if expectedPath == "" {
		expectedPath = cfg.Data.ExpectedSchema
	}

	reportPath := cmd.String("output")
	if reportPath == "" {
		reportPath = cfg.Data.ReportPath
	}

	paths := tabular.DefaultExportFiles(cfg.Data.Folder)

	tables, err := tabular.ReadFolder(paths, func(path string, err error) {
		logger.WithField("path", path).Warnf("skipping export: %v", err)
	})
	if err != nil {
		return err
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Analyzing exports..."
	s.Start()

	analyzer := schema.NewAnalyzer(logger)
	result, err := analyzer.Run(tables, schema.AnalyzeOptions{
		ExpectedSchemaPath: expectedPath,
		SaveSchemaPath:     cmd.String("save-schema"),
		ReportPath:         reportPath,
	})

	s.Stop()

	if err != nil {
		return err
	}

	// Results only replace the previous run once the whole pipeline
	// succeeded.
	if err := result.Save(cfg.Data.AnalysisPath); err != nil {
		return err
	}

	logger.Infof("analysis results saved to %s", cfg.Data.AnalysisPath)

	fmt.Println(formatter.NewFormatter().FormatAnalysisSummary(result))

	return nil
}
