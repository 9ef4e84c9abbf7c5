package schema

import (
	"github.com/bimtools/bim-insight/internal/errors"
	"github.com/bimtools/bim-insight/internal/logging"
	"github.com/bimtools/bim-insight/internal/tabular"
)

// AnalyzeOptions controls one analysis run. All decisions the original
// workflow made interactively are explicit options here.
type AnalyzeOptions struct {
	// ExpectedSchemaPath points at an expected-schema JSON file. Empty
	// means synthesize one from the observed data.
	ExpectedSchemaPath string

	// SaveSchemaPath, when non-empty, writes the schema used for the
	// comparison (loaded or synthesized) to this path for future runs.
	SaveSchemaPath string

	// ReportPath is where the HTML report is written. Empty skips the report.
	ReportPath string
}

// Analyzer runs the profile-compare-report pipeline over a set of tables.
type Analyzer struct {
	logger *logging.Logger
}

// NewAnalyzer creates an analyzer that logs through the given logger.
func NewAnalyzer(logger *logging.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Run profiles every table, diffs the descriptors against the expected
// schema, renders the report, and returns the analysis envelope. The
// caller persists the envelope only after Run succeeds, so prior state
// survives failed runs.
func (a *Analyzer) Run(tables []*tabular.Table, opts AnalyzeOptions) (*AnalysisResult, error) {
	descriptors := make(map[string]Descriptor, len(tables))

	for _, table := range tables {
		desc := Profile(table.Records)
		descriptors[table.ElementType] = desc

		a.logger.WithField("element_type", table.ElementType).
			Infof("profiled %d records across %d parameters", desc.RecordCount, len(desc.Columns))
	}

	expected, err := a.resolveExpected(descriptors, opts)
	if err != nil {
		return nil, err
	}

	comparison, diags := Compare(descriptors, expected)

	for _, diag := range diags {
		a.logger.WithField("element_type", diag.ElementType).
			Warnf("comparison skipped: %v", diag.Err)
	}

	result := &AnalysisResult{
		Schemas:    descriptors,
		Comparison: comparison,
	}

	if opts.ReportPath != "" {
		if err := WriteReport(opts.ReportPath, result); err != nil {
			return nil, err
		}

		result.ReportPath = opts.ReportPath

		a.logger.Infof("exported analysis report to %s", opts.ReportPath)
	}

	return result, nil
}

func (a *Analyzer) resolveExpected(descriptors map[string]Descriptor, opts AnalyzeOptions) (Expected, error) {
	var (
		expected Expected
		err      error
	)

	if opts.ExpectedSchemaPath != "" {
		expected, err = LoadExpected(opts.ExpectedSchemaPath)
		if err != nil {
			return nil, err
		}

		a.logger.Infof("loaded expected schema from %s", opts.ExpectedSchemaPath)
	} else {
		expected = Synthesize(descriptors)

		a.logger.Infof("synthesized expected schema from %d element type(s)", len(expected))
	}

	if opts.SaveSchemaPath != "" {
		if err := SaveExpected(opts.SaveSchemaPath, expected); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeStorage, "failed to save expected schema")
		}

		a.logger.Infof("saved expected schema to %s", opts.SaveSchemaPath)
	}

	return expected, nil
}
