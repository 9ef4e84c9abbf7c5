package schema

import (
	"html/template"
	"os"
	"sort"

	"github.com/bimtools/bim-insight/internal/errors"
)

// reportTemplate renders the static HTML analysis report: record counts,
// per-type parameter tables, and fill-rate flags. Cells below the 90%
// fill threshold carry the low-fill class.
const reportTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>BIM Data Analysis Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        h1, h2, h3 { color: #333; }
        table { border-collapse: collapse; width: 100%; margin-bottom: 20px; }
        th, td { padding: 8px; text-align: left; border: 1px solid #ddd; }
        th { background-color: #f2f2f2; }
        .missing { color: red; }
        .extra { color: orange; }
        .low-fill { background-color: #ffe6e6; }
        .summary { background-color: #f9f9f9; padding: 10px; margin-bottom: 20px; }
    </style>
</head>
<body>
    <h1>BIM Data Analysis Report</h1>
    <div class="summary">
        <h2>Summary</h2>
        <p>Analyzed {{len .Sections}} element types.</p>
        <p>Total records: {{.TotalRecords}}</p>
        <table>
            <tr><th>Element Type</th><th>Record Count</th><th>Parameter Count</th></tr>
            {{range .Sections}}<tr><td>{{.ElementType}}</td><td>{{.Descriptor.RecordCount}}</td><td>{{len .Descriptor.Columns}}</td></tr>
            {{end}}
        </table>
    </div>
    {{range .Sections}}
    <h2>Element Type: {{.ElementType}}</h2>
    <h3>Parameter Details</h3>
    <table>
        <tr><th>Parameter</th><th>Data Type</th><th>Null Count</th><th>Null %</th><th>Distinct Values</th><th>Fill Rate %</th></tr>
        {{range .Rows}}<tr{{if .LowFill}} class="low-fill"{{end}}>
            <td>{{.Name}}</td>
            <td>{{.DType}}</td>
            <td>{{.NullCount}}</td>
            <td>{{printf "%.1f" .NullPercent}}%</td>
            <td>{{.DistinctCount}}</td>
            <td>{{printf "%.1f" .FillPercent}}%</td>
        </tr>
        {{end}}
    </table>
    {{if .HasComparison}}
    <h3>Schema Comparison</h3>
    <table>
        <tr><th>Status</th><th>Count</th><th>Parameters</th></tr>
        <tr class="missing"><td>Missing Parameters</td><td>{{len .Comparison.MissingParameters}}</td><td>{{join .Comparison.MissingParameters}}</td></tr>
        <tr class="extra"><td>Extra Parameters</td><td>{{len .Comparison.ExtraParameters}}</td><td>{{join .Comparison.ExtraParameters}}</td></tr>
    </table>
    {{end}}
    {{end}}
</body>
</html>
`

type reportRow struct {
	Name          string
	DType         string
	NullCount     int
	NullPercent   float64
	DistinctCount int
	FillPercent   float64
	LowFill       bool
}

type reportSection struct {
	ElementType   string
	Descriptor    Descriptor
	Rows          []reportRow
	Comparison    TypeComparison
	HasComparison bool
}

type reportData struct {
	TotalRecords int
	Sections     []reportSection
}

// WriteReport renders the analysis result to a static HTML file. It is a
// pure rendering of the descriptors and comparison with no logic of its own.
func WriteReport(path string, result *AnalysisResult) error {
	funcs := template.FuncMap{
		"join": func(items []string) string {
			if len(items) == 0 {
				return "None"
			}

			joined := items[0]
			for _, item := range items[1:] {
				joined += ", " + item
			}

			return joined
		},
	}

	tmpl, err := template.New("report").Funcs(funcs).Parse(reportTemplate)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to parse report template")
	}

	data := buildReportData(result)

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeStorage, "failed to create report file: %s", path)
	}
	defer f.Close()

	if err := tmpl.Execute(f, data); err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to render report")
	}

	return nil
}

func buildReportData(result *AnalysisResult) reportData {
	var data reportData

	elementTypes := make([]string, 0, len(result.Schemas))
	for elementType := range result.Schemas {
		elementTypes = append(elementTypes, elementType)
	}

	sort.Strings(elementTypes)

	for _, elementType := range elementTypes {
		desc := result.Schemas[elementType]
		data.TotalRecords += desc.RecordCount

		section := reportSection{
			ElementType: elementType,
			Descriptor:  desc,
		}

		for _, col := range desc.Columns {
			stats := desc.Stats[col]
			fillPercent := 100 - stats.NullPercent

			section.Rows = append(section.Rows, reportRow{
				Name:          col,
				DType:         stats.DType,
				NullCount:     stats.NullCount,
				NullPercent:   stats.NullPercent,
				DistinctCount: stats.DistinctCount,
				FillPercent:   fillPercent,
				LowFill:       fillPercent < lowFillPercentThreshold,
			})
		}

		if tc, ok := result.Comparison[elementType]; ok {
			section.Comparison = tc
			section.HasComparison = true
		}

		data.Sections = append(data.Sections, section)
	}

	return data
}
