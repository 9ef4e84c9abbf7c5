package schema

import (
	"sort"

	"github.com/bimtools/bim-insight/internal/errors"
)

// fill-rate percentage below which a required parameter is flagged
const lowFillPercentThreshold = 90.0

// LowFill flags a required parameter whose fill rate fell below the
// 90 percent threshold.
type LowFill struct {
	Parameter       string  `json:"parameter"`
	FillRatePercent float64 `json:"fill_rate_percent"`
}

// TypeComparison is the diff of one element type against its expected
// entry. Missing and extra parameters are always present, empty when
// nothing differs. LowFillRequired is stored unordered; use
// SortedLowFill for presentation.
type TypeComparison struct {
	MissingParameters []string  `json:"missing_parameters"`
	ExtraParameters   []string  `json:"extra_parameters"`
	LowFillRequired   []LowFill `json:"low_fill_required"`
}

// SortedLowFill returns the low-fill flags sorted ascending by fill rate,
// worst first, without mutating the canonical result.
func (tc TypeComparison) SortedLowFill() []LowFill {
	sorted := make([]LowFill, len(tc.LowFillRequired))
	copy(sorted, tc.LowFillRequired)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].FillRatePercent < sorted[j].FillRatePercent
	})

	return sorted
}

// Comparison maps element types to their diffs.
type Comparison map[string]TypeComparison

// Diagnostic records a per-type comparison problem that did not abort the
// run: element types missing from the observed data or malformed expected
// entries.
type Diagnostic struct {
	ElementType string
	Err         error
}

// Compare diffs observed descriptors against an expected schema. Element
// types present in expected but absent from actual produce a diagnostic
// and are skipped; malformed entries (no parameters key) produce a
// SchemaFormatError diagnostic for that type only. Partial results for the
// remaining types are always returned.
func Compare(actual map[string]Descriptor, expected Expected) (Comparison, []Diagnostic) {
	result := make(Comparison)

	var diags []Diagnostic

	for elementType, entry := range expected {
		desc, ok := actual[elementType]
		if !ok {
			diags = append(diags, Diagnostic{
				ElementType: elementType,
				Err: errors.Newf(errors.ErrTypeInputNotFound,
					"element type %q not found in observed data", elementType),
			})

			continue
		}

		if entry.Parameters == nil {
			diags = append(diags, Diagnostic{
				ElementType: elementType,
				Err:         errors.NewSchemaFormatError(elementType, "missing 'parameters' key"),
			})

			continue
		}

		expectedSet := toSet(entry.Parameters)
		actualSet := toSet(desc.Columns)

		tc := TypeComparison{
			MissingParameters: difference(expectedSet, actualSet),
			ExtraParameters:   difference(actualSet, expectedSet),
		}

		if len(entry.RequiredParameters) > 0 {
			for _, param := range entry.RequiredParameters {
				stats, ok := desc.Stats[param]
				if !ok {
					continue
				}

				if pct := stats.FillRate * 100; pct < lowFillPercentThreshold {
					tc.LowFillRequired = append(tc.LowFillRequired, LowFill{
						Parameter:       param,
						FillRatePercent: pct,
					})
				}
			}
		}

		result[elementType] = tc
	}

	return result, diags
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}

	return set
}

// difference returns a-b as a sorted slice, never nil.
func difference(a, b map[string]struct{}) []string {
	diff := []string{}

	for item := range a {
		if _, ok := b[item]; !ok {
			diff = append(diff, item)
		}
	}

	sort.Strings(diff)

	return diff
}
