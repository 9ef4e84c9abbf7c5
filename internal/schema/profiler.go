package schema

import (
	"github.com/bimtools/bim-insight/internal/tabular"
)

// ColumnStats holds the per-column statistics of one profiled table.
// FillRate is 1 minus the null fraction; NullPercent is its complement
// scaled to 0-100.
type ColumnStats struct {
	DType         string  `json:"dtype"`
	NullCount     int     `json:"null_count"`
	NullPercent   float64 `json:"null_percentage"`
	DistinctCount int     `json:"distinct_count"`
	FillRate      float64 `json:"fill_rate"`
}

// Descriptor is the statistical schema of one element type, recomputed
// from scratch on every analysis run.
type Descriptor struct {
	RecordCount int                    `json:"record_count"`
	Columns     []string               `json:"columns"`
	Stats       map[string]ColumnStats `json:"stats"`
}

// Profile computes a Descriptor from a set of element records. It is a
// pure function of its input: records lacking a column contribute to that
// column's null count, and an empty record set yields a descriptor with
// zero counts and no columns.
func Profile(records []tabular.ElementRecord) Descriptor {
	desc := Descriptor{
		RecordCount: len(records),
		Stats:       make(map[string]ColumnStats),
	}

	if len(records) == 0 {
		return desc
	}

	// Column order follows the source table; columns seen only in later
	// records are appended in order of first appearance.
	seen := make(map[string]bool)

	for _, rec := range records {
		for _, col := range rec.Columns {
			if !seen[col] {
				seen[col] = true

				desc.Columns = append(desc.Columns, col)
			}
		}
	}

	total := float64(len(records))

	for _, col := range desc.Columns {
		nulls := 0
		distinct := make(map[string]struct{})
		kinds := make(map[tabular.ValueKind]int)

		for _, rec := range records {
			v := rec.Get(col)
			if v.IsEmpty() {
				nulls++
				continue
			}

			distinct[v.String()] = struct{}{}
			kinds[v.Kind]++
		}

		desc.Stats[col] = ColumnStats{
			DType:         inferDType(kinds),
			NullCount:     nulls,
			NullPercent:   float64(nulls) / total * 100,
			DistinctCount: len(distinct),
			FillRate:      1 - float64(nulls)/total,
		}
	}

	return desc
}

// inferDType labels a column by its observed non-null kinds. The label is
// informational only; comparison logic never branches on it.
func inferDType(kinds map[tabular.ValueKind]int) string {
	switch len(kinds) {
	case 0:
		return tabular.KindEmpty.String()
	case 1:
		for k := range kinds {
			return k.String()
		}
	}

	return tabular.KindText.String()
}
