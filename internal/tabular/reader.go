package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bimtools/bim-insight/internal/errors"
)

// ElementRecord is one row of a tabular export: a mapping from column name
// to cell value plus the element-type tag derived from the source file.
// Records are never mutated after reading.
type ElementRecord struct {
	ElementType string
	Columns     []string // source column order, shared across one table
	Values      map[string]Value
}

// Get returns the value for a column, or the empty value when the column
// is absent from this record.
func (r ElementRecord) Get(column string) Value {
	if v, ok := r.Values[column]; ok {
		return v
	}

	return EmptyValue()
}

// Table is one rectangular export: all records of a single element type.
type Table struct {
	ElementType string
	Columns     []string
	Records     []ElementRecord
}

// defaultCategories are the export categories the analyzer looks for when
// no explicit file list is given.
var defaultCategories = []string{
	"door", "proxy", "slab", "wall", "wallstandardcase", "windows",
}

// DefaultExportFiles returns the conventional export paths inside folder.
func DefaultExportFiles(folder string) []string {
	paths := make([]string, 0, len(defaultCategories))
	for _, cat := range defaultCategories {
		paths = append(paths, filepath.Join(folder, fmt.Sprintf("ifc_%s_export.csv", cat)))
	}

	return paths
}

// ElementTypeFromPath derives the element-type tag from the fixed
// `ifc_<type>_export.csv` naming convention.
func ElementTypeFromPath(path string) (string, error) {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	parts := strings.Split(name, "_")
	if len(parts) < 2 || parts[0] != "ifc" {
		return "", errors.Newf(errors.ErrTypeValidation,
			"file %q does not follow the ifc_<type>_export naming convention", base)
	}

	return parts[1], nil
}

// ReadFile reads one CSV export into a Table. The header row defines the
// column order; short rows contribute empty values for the missing cells.
func ReadFile(path string) (*Table, error) {
	elementType, err := ElementTypeFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(err, errors.ErrTypeInputNotFound,
				"export file not found: %s", path)
		}

		return nil, errors.Wrapf(err, errors.ErrTypeInputNotFound, "failed to open %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged exports are tolerated

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeValidation, "failed to parse %s", path)
	}

	if len(rows) == 0 {
		return &Table{ElementType: elementType}, nil
	}

	columns := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		columns[i] = strings.TrimSpace(h)
	}

	table := &Table{
		ElementType: elementType,
		Columns:     columns,
		Records:     make([]ElementRecord, 0, len(rows)-1),
	}

	for _, row := range rows[1:] {
		values := make(map[string]Value, len(columns))

		for i, col := range columns {
			if i < len(row) {
				values[col] = ParseValue(row[i])
			} else {
				values[col] = EmptyValue()
			}
		}

		table.Records = append(table.Records, ElementRecord{
			ElementType: elementType,
			Columns:     columns,
			Values:      values,
		})
	}

	return table, nil
}

// ReadFolder reads every export in paths, skipping files that are missing
// or malformed so the remaining categories still load. The returned error
// is non-nil only when not a single table could be read.
func ReadFolder(paths []string, onSkip func(path string, err error)) ([]*Table, error) {
	var tables []*Table

	for _, path := range paths {
		table, err := ReadFile(path)
		if err != nil {
			if onSkip != nil {
				onSkip(path, err)
			}

			continue
		}

		tables = append(tables, table)
	}

	if len(tables) == 0 {
		return nil, errors.Newf(errors.ErrTypeInputNotFound,
			"no export files could be read from %d candidate path(s)", len(paths))
	}

	return tables, nil
}
