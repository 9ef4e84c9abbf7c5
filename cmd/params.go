package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/bimtools/bim-insight/internal/errors"
	"github.com/bimtools/bim-insight/internal/formatter"
	"github.com/bimtools/bim-insight/internal/schema"
)

func ParamsCommand() *cli.Command {
	return &cli.Command{
		Name:      "params",
		Usage:     "Show parameter statistics from the last analysis",
		ArgsUsage: "[element-type]",
		Description: `Print the parameter summary from the persisted analysis results.
With an element type (for example 'wall'), only matching element types are
shown; without one, the full analysis summary is printed.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runParams(ctx, cmd)
		},
	}
}

func runParams(_ context.Context, cmd *cli.Command) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}

	result, err := schema.LoadAnalysis(cfg.Data.AnalysisPath)
	if err != nil {
		if errors.IsType(err, errors.ErrTypeInputNotFound) {
			return errors.New(errors.ErrTypeInputNotFound,
				"no analysis results found; run 'bim-insight analyze' first")
		}

		return err
	}

	f := formatter.NewFormatter()

	if category := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " ")); category != "" {
		fmt.Println(f.FormatElementParameters(result, category))

		return nil
	}

	fmt.Println(f.FormatAnalysisSummary(result))

	return nil
}
