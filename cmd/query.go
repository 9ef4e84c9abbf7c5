package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/bimtools/bim-insight/internal/answer"
	"github.com/bimtools/bim-insight/internal/config"
	"github.com/bimtools/bim-insight/internal/embedding"
	"github.com/bimtools/bim-insight/internal/errors"
	"github.com/bimtools/bim-insight/internal/formatter"
	"github.com/bimtools/bim-insight/internal/generator"
	"github.com/bimtools/bim-insight/internal/logging"
	"github.com/bimtools/bim-insight/internal/retrieval"
	"github.com/bimtools/bim-insight/internal/schema"
	"github.com/bimtools/bim-insight/internal/tabular"
)

func QueryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "Ask a question about the building model",
		ArgsUsage: "[question]",
		Description: `Answer a natural-language question about the ingested building data.
With no question, an interactive session starts; it also understands the
special commands 'analyze', 'summary', 'compare <schema-file>',
'<element> parameters', and 'exit'.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "sources",
				Usage: "show the retrieved source documents under the answer",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runQuery(ctx, cmd)
		},
	}
}

// session carries everything one query invocation needs. modelErr is the
// deferred embedding-model load failure: structured lookups work without
// the model, so it only surfaces when a generic query needs the store.
type session struct {
	cfg       *config.Config
	logger    *logging.Logger
	router    *answer.Router
	formatter *formatter.Formatter
	analysis  *schema.AnalysisResult
	modelErr  error
}

func runQuery(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
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

	var modelErr error
	if p, ok := provider.(embedding.Persistable); ok {
		modelErr = p.LoadModel(embeddingModelPath(cfg))
	}

	gen, err := generator.NewClient(cfg)
	if err != nil {
		return err
	}

	// Missing analysis results are fine: the router then answers
	// structured lookups with a pointer to the analyze command.
	analysis, err := schema.LoadAnalysis(cfg.Data.AnalysisPath)
	if err != nil && !errors.IsType(err, errors.ErrTypeInputNotFound) {
		return err
	}

	engine := retrieval.NewEngine(store, provider, logger, cfg.Retrieval.Collection)

	sess := &session{
		cfg:       cfg,
		logger:    logger,
		router:    answer.NewRouter(engine, gen, logger, cfg.Retrieval.TopK, analysis),
		formatter: formatter.NewFormatter(),
		analysis:  analysis,
		modelErr:  modelErr,
	}

	showSources := cmd.Bool("sources")

	if question := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " ")); question != "" {
		return sess.ask(ctx, question, showSources)
	}

	return sess.interactive(ctx, showSources)
}

func (s *session) ask(ctx context.Context, question string, showSources bool) error {
	if answer.Classify(question).Kind == answer.KindGeneric && s.modelErr != nil {
		return s.modelErr
	}

	ans, err := s.router.Answer(ctx, question)
	if err != nil {
		return err
	}

	fmt.Println(s.formatter.FormatAnswer(ans, showSources))

	return nil
}

func (s *session) interactive(ctx context.Context, showSources bool) error {
	fmt.Println("bim-insight interactive session. Type 'exit' to quit.")
	fmt.Println("Special commands: analyze, summary, compare <schema-file>, <element> parameters")

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")

		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		done, err := s.dispatch(ctx, line, showSources)
		if err != nil {
			// Session errors are reported and the prompt continues.
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}

		if done {
			return nil
		}
	}
}

// dispatch handles one interactive line. It returns true when the session
// should end.
func (s *session) dispatch(ctx context.Context, line string, showSources bool) (bool, error) {
	lower := strings.ToLower(line)

	switch {
	case lower == "exit" || lower == "quit":
		return true, nil

	case lower == "analyze":
		return false, s.runAnalysis()

	case lower == "summary":
		fmt.Println(s.formatter.FormatAnalysisSummary(s.analysis))

		return false, nil

	case strings.HasPrefix(lower, "compare "):
		// The path keeps its original casing.
		path := strings.TrimSpace(line[len("compare"):])

		return false, s.runCompare(path)

	case strings.HasSuffix(lower, " parameters"):
		category := strings.TrimSpace(strings.TrimSuffix(lower, " parameters"))

		fmt.Println(s.formatter.FormatElementParameters(s.analysis, category))

		return false, nil
	}

	return false, s.ask(ctx, line, showSources)
}

// runCompare re-diffs the current profiles against an expected schema
// loaded from path and swaps the fresh comparison into the router.
func (s *session) runCompare(path string) error {
	if s.analysis == nil {
		return errors.New(errors.ErrTypeValidation, "no analysis results to compare; run 'analyze' first")
	}

	expected, err := schema.LoadExpected(path)
	if err != nil {
		return err
	}

	comparison, diags := schema.Compare(s.analysis.Schemas, expected)

	for _, diag := range diags {
		s.logger.WithField("element_type", diag.ElementType).
			Warnf("comparison skipped: %v", diag.Err)
	}

	result := &schema.AnalysisResult{
		Schemas:    s.analysis.Schemas,
		Comparison: comparison,
		ReportPath: s.analysis.ReportPath,
	}

	s.analysis = result
	s.router.SetAnalysis(result)

	fmt.Println(s.formatter.FormatAnalysisSummary(result))

	return nil
}

// runAnalysis re-runs the analysis pipeline from within a session and
// swaps the fresh results into the router.
func (s *session) runAnalysis() error {
	paths := tabular.DefaultExportFiles(s.cfg.Data.Folder)

	tables, err := tabular.ReadFolder(paths, func(path string, err error) {
		s.logger.WithField("path", path).Warnf("skipping export: %v", err)
	})
	if err != nil {
		return err
	}

	analyzer := schema.NewAnalyzer(s.logger)

	result, err := analyzer.Run(tables, schema.AnalyzeOptions{
		ExpectedSchemaPath: s.cfg.Data.ExpectedSchema,
		ReportPath:         s.cfg.Data.ReportPath,
	})
	if err != nil {
		return err
	}

	if err := result.Save(s.cfg.Data.AnalysisPath); err != nil {
		return err
	}

	s.analysis = result
	s.router.SetAnalysis(result)

	fmt.Println(s.formatter.FormatAnalysisSummary(result))

	return nil
}
