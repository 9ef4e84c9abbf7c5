package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimtools/bim-insight/internal/schema"
)

func writeExports(t *testing.T, dir string) {
	t.Helper()

	files := map[string]string{
		"ifc_wall_export.csv": "Name,Height,FireRating\nW1,2.8,F30\nW2,3.0,\n",
		"ifc_door_export.csv": "Name,Width\nD1,0.9\n",
	}

	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}
}

func isolateConfig(t *testing.T, dir string) {
	t.Helper()

	// Point every path the command touches into the test directory and
	// make sure no user config file leaks in.
	t.Setenv("BIM_INSIGHT_CONFIG", filepath.Join(dir, "no-config.json"))
	t.Setenv("BIM_INSIGHT_DATA_FOLDER", dir)
	t.Setenv("BIM_INSIGHT_STORE_PATH", filepath.Join(dir, "store.db"))
	t.Setenv("BIM_INSIGHT_ANALYSIS_PATH", filepath.Join(dir, "analysis_results.json"))
	t.Setenv("BIM_INSIGHT_REPORT_PATH", filepath.Join(dir, "report.html"))
	t.Setenv("BIM_INSIGHT_LOG_FILE", filepath.Join(dir, "app.log"))
	t.Setenv("BIM_INSIGHT_LOG_LEVEL", "error")
}

func TestAnalyzeCommandEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeExports(t, dir)
	isolateConfig(t, dir)

	err := newRootCommand().Run(context.Background(), []string{"bim-insight", "analyze"})
	require.NoError(t, err)

	// Persisted results load back with both element types profiled.
	result, err := schema.LoadAnalysis(filepath.Join(dir, "analysis_results.json"))
	require.NoError(t, err)

	assert.Len(t, result.Schemas, 2)
	assert.Equal(t, 2, result.Schemas["wall"].RecordCount)
	assert.Equal(t, 1, result.Schemas["door"].RecordCount)

	// Comparison against the synthesized schema is clean.
	assert.Empty(t, result.Comparison["wall"].MissingParameters)

	// The HTML report was written.
	report, err := os.ReadFile(filepath.Join(dir, "report.html"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "BIM Data Analysis Report")
}

func TestAnalyzeCommandSaveSchema(t *testing.T) {
	dir := t.TempDir()
	writeExports(t, dir)
	isolateConfig(t, dir)

	schemaPath := filepath.Join(dir, "derived_schema.json")

	err := newRootCommand().Run(context.Background(),
		[]string{"bim-insight", "analyze", "--save-schema", schemaPath})
	require.NoError(t, err)

	expected, err := schema.LoadExpected(schemaPath)
	require.NoError(t, err)

	entry, ok := expected["wall"]
	require.True(t, ok)
	assert.Equal(t, []string{"Name", "Height", "FireRating"}, entry.Parameters)
}

func TestAnalyzeCommandMissingDataFolder(t *testing.T) {
	dir := t.TempDir()
	isolateConfig(t, dir)

	// No export files at all: the command fails instead of writing an
	// empty analysis.
	err := newRootCommand().Run(context.Background(), []string{"bim-insight", "analyze"})
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "analysis_results.json"))
	assert.True(t, os.IsNotExist(statErr))
}
