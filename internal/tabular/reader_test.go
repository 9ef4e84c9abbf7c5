package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimtools/bim-insight/internal/errors"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	return path
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		kind ValueKind
	}{
		{"", KindEmpty},
		{"   ", KindEmpty},
		{"Basic Wall", KindText},
		{"3.14", KindNumber},
		{"-7", KindNumber},
		{"true", KindBool},
		{"False", KindBool},
		{"1x2", KindText},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.kind, ParseValue(tt.raw).Kind)
		})
	}
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "Basic Wall", TextValue("Basic Wall").String())
	assert.Equal(t, "3.5", NumberValue(3.5).String())
	assert.Equal(t, "200", ParseValue("200").String())
	assert.Equal(t, "true", BoolValue(true).String())
	assert.Equal(t, "", EmptyValue().String())
}

func TestValueStringEchoesSourceText(t *testing.T) {
	// Parsed cells render exactly as they appeared in the export, not in
	// a re-formatted canonical form.
	assert.Equal(t, "2.80", ParseValue("2.80").String())
	assert.Equal(t, "3.0", ParseValue(" 3.0 ").String())
	assert.Equal(t, "True", ParseValue("True").String())
}

func TestElementTypeFromPath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
		wantErr  bool
	}{
		{"data/ifc_wall_export.csv", "wall", false},
		{"/abs/ifc_windows_export.csv", "windows", false},
		{"ifc_wallstandardcase_export.csv", "wallstandardcase", false},
		{"walls.csv", "", true},
		{"export_wall.csv", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			et, err := ElementTypeFromPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, et)
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "ifc_wall_export.csv",
		"Name,Height,FireRating\nWall-01,3000,F30\nWall-02,2800,\nWall-03,,\n")

	table, err := ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "wall", table.ElementType)
	assert.Equal(t, []string{"Name", "Height", "FireRating"}, table.Columns)
	require.Len(t, table.Records, 3)

	first := table.Records[0]
	assert.Equal(t, "wall", first.ElementType)
	assert.Equal(t, KindText, first.Get("Name").Kind)
	assert.Equal(t, KindNumber, first.Get("Height").Kind)
	assert.InDelta(t, 3000, first.Get("Height").Number, 1e-9)

	assert.True(t, table.Records[1].Get("FireRating").IsEmpty())
	assert.True(t, table.Records[2].Get("Height").IsEmpty())
}

func TestReadFileShortRows(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "ifc_door_export.csv", "Name,Width\nDoor-01\n")

	table, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	assert.True(t, table.Records[0].Get("Width").IsEmpty())
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "ifc_slab_export.csv"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeInputNotFound))
}

func TestReadFolderSkipsMissing(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "ifc_wall_export.csv", "Name\nWall-01\n")

	var skipped []string

	paths := []string{
		filepath.Join(dir, "ifc_wall_export.csv"),
		filepath.Join(dir, "ifc_door_export.csv"), // absent
	}

	tables, err := ReadFolder(paths, func(path string, _ error) {
		skipped = append(skipped, path)
	})
	require.NoError(t, err)

	assert.Len(t, tables, 1)
	assert.Equal(t, "wall", tables[0].ElementType)
	assert.Len(t, skipped, 1)
}

func TestReadFolderAllMissing(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadFolder(DefaultExportFiles(dir), nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeInputNotFound))
}

func TestDefaultExportFiles(t *testing.T) {
	paths := DefaultExportFiles("data")
	assert.Len(t, paths, 6)
	assert.Contains(t, paths, filepath.Join("data", "ifc_wall_export.csv"))
	assert.Contains(t, paths, filepath.Join("data", "ifc_wallstandardcase_export.csv"))
}
