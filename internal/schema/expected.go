package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/bimtools/bim-insight/internal/errors"
)

// fill-rate threshold above which a column is treated as required when
// synthesizing an expected schema from observed data
const requiredFillThreshold = 0.8

// ExpectedEntry describes which parameters one element type should carry.
// A nil Parameters slice means the JSON entry lacked the key entirely,
// which Compare treats as a format error for that type.
type ExpectedEntry struct {
	Parameters         []string `json:"parameters"`
	RequiredParameters []string `json:"required_parameters"`
	Description        string   `json:"description"`
}

// Expected maps element types to their expected parameter sets.
type Expected map[string]ExpectedEntry

// LoadExpected reads an expected-schema JSON file.
func LoadExpected(path string) (Expected, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(err, errors.ErrTypeInputNotFound,
				"expected schema file not found: %s", path)
		}

		return nil, errors.Wrapf(err, errors.ErrTypeInputNotFound,
			"failed to read expected schema: %s", path)
	}

	var expected Expected
	if err := json.Unmarshal(data, &expected); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeSchemaFormat,
			"failed to parse expected schema: %s", path)
	}

	return expected, nil
}

// SaveExpected writes an expected schema to a JSON file.
func SaveExpected(path string, expected Expected) error {
	data, err := json.MarshalIndent(expected, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to marshal expected schema")
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrapf(err, errors.ErrTypeStorage, "failed to write expected schema: %s", path)
	}

	return nil
}

// Synthesize derives an expected schema from observed descriptors: the
// full column set becomes the parameters, and columns whose fill rate
// exceeds 0.8 become required. Comparing a descriptor set against its own
// synthesized schema always yields empty missing_parameters.
func Synthesize(actual map[string]Descriptor) Expected {
	expected := make(Expected, len(actual))

	for elementType, desc := range actual {
		var required []string

		for col, stats := range desc.Stats {
			if stats.FillRate > requiredFillThreshold {
				required = append(required, col)
			}
		}

		sort.Strings(required)

		params := make([]string, len(desc.Columns))
		copy(params, desc.Columns)

		expected[elementType] = ExpectedEntry{
			Parameters:         params,
			RequiredParameters: required,
			Description:        fmt.Sprintf("Expected schema for %s elements", elementType),
		}
	}

	return expected
}
