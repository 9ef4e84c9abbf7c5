package formatter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bimtools/bim-insight/internal/answer"
	"github.com/bimtools/bim-insight/internal/ingest"
	"github.com/bimtools/bim-insight/internal/schema"
)

// sourceContentLimit bounds how much of a document is echoed per source
// line before truncation.
const sourceContentLimit = 120

// Formatter renders answers, ingestion reports, and analysis summaries as
// plain text for the terminal.
type Formatter struct{}

// NewFormatter creates a new formatter instance.
func NewFormatter() *Formatter {
	return &Formatter{}
}

// FormatAnswer renders the answer text, optionally followed by the
// retrieved sources.
func (f *Formatter) FormatAnswer(ans *answer.Answer, showSources bool) string {
	var lines []string

	lines = append(lines, ans.Response)

	if showSources && len(ans.Sources) > 0 {
		lines = append(lines, "", "Sources:")

		for i, src := range ans.Sources {
			content := src.Content
			if len(content) > sourceContentLimit {
				content = content[:sourceContentLimit] + "..."
			}

			lines = append(lines, fmt.Sprintf("  %d. [%s] (relevance %.2f) %s",
				i+1, src.ElementType, src.Relevance, content))
		}
	}

	return strings.Join(lines, "\n")
}

// FormatIngestReport summarizes one ingestion run.
func (f *Formatter) FormatIngestReport(report *ingest.Report) string {
	if report.Reused {
		return fmt.Sprintf("Reused collection %q with %d existing documents.",
			report.Collection, report.Committed)
	}

	return fmt.Sprintf("Ingested %d of %d documents into collection %q (run %s).",
		report.Committed, report.Total, report.Collection, report.RunID)
}

// FormatAnalysisSummary renders per-type statistics and schema differences
// in a stable order.
func (f *Formatter) FormatAnalysisSummary(result *schema.AnalysisResult) string {
	if result == nil || len(result.Schemas) == 0 {
		return "No analysis results available."
	}

	elementTypes := make([]string, 0, len(result.Schemas))
	for elementType := range result.Schemas {
		elementTypes = append(elementTypes, elementType)
	}

	sort.Strings(elementTypes)

	lines := []string{"Analysis Summary", "================"}

	for _, elementType := range elementTypes {
		desc := result.Schemas[elementType]

		lines = append(lines, "", fmt.Sprintf("%s: %d records, %d parameters",
			elementType, desc.RecordCount, len(desc.Columns)))

		tc, ok := result.Comparison[elementType]
		if !ok {
			continue
		}

		if len(tc.MissingParameters) > 0 {
			lines = append(lines, "  Missing: "+strings.Join(tc.MissingParameters, ", "))
		}

		if len(tc.ExtraParameters) > 0 {
			lines = append(lines, "  Extra: "+strings.Join(tc.ExtraParameters, ", "))
		}

		for _, lf := range tc.SortedLowFill() {
			lines = append(lines, fmt.Sprintf("  Low fill: %s (%.1f%%)",
				lf.Parameter, lf.FillRatePercent))
		}
	}

	if result.ReportPath != "" {
		lines = append(lines, "", "Report: "+result.ReportPath)
	}

	return strings.Join(lines, "\n")
}

// FormatElementParameters lists the observed parameters of every element
// type matching the category, with data types and fill rates.
func (f *Formatter) FormatElementParameters(result *schema.AnalysisResult, category string) string {
	if result == nil || len(result.Schemas) == 0 {
		return "No analysis results available."
	}

	matched := make([]string, 0, len(result.Schemas))

	for elementType := range result.Schemas {
		if strings.Contains(strings.ToLower(elementType), strings.ToLower(category)) {
			matched = append(matched, elementType)
		}
	}

	if len(matched) == 0 {
		return fmt.Sprintf("No element types matching %q were analyzed.", category)
	}

	sort.Strings(matched)

	var lines []string

	for _, elementType := range matched {
		desc := result.Schemas[elementType]

		lines = append(lines, fmt.Sprintf("%s (%d records):", elementType, desc.RecordCount))

		for _, col := range desc.Columns {
			stats := desc.Stats[col]

			lines = append(lines, fmt.Sprintf("  %-30s %-8s fill %.1f%%",
				col, stats.DType, stats.FillRate*100))
		}

		lines = append(lines, "")
	}

	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
