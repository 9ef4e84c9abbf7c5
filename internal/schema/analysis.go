package schema

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/bimtools/bim-insight/internal/errors"
)

// AnalysisResult is the envelope persisted after a successful analysis
// run and loaded once at process start. It is the only state shared
// between the analysis and query subsystems, replaced wholesale on every
// run and never partially updated.
type AnalysisResult struct {
	Schemas    map[string]Descriptor `json:"schemas"`
	Comparison Comparison            `json:"comparison"`
	ReportPath string                `json:"report_path"`
}

// LoadAnalysis reads a previously persisted analysis result. A missing
// file is an InputNotFound error the caller typically treats as "no
// analysis yet".
func LoadAnalysis(path string) (*AnalysisResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(err, errors.ErrTypeInputNotFound,
				"analysis result not found: %s", path)
		}

		return nil, errors.Wrapf(err, errors.ErrTypeInputNotFound,
			"failed to read analysis result: %s", path)
	}

	var result AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeSchemaFormat,
			"failed to parse analysis result: %s", path)
	}

	return &result, nil
}

// Save persists the analysis result atomically: the envelope is written
// to a temporary file and renamed into place, so a failed run never
// corrupts or partially overwrites prior state.
func (a *AnalysisResult) Save(path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to marshal analysis result")
	}

	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".analysis-*.json")
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeStorage, "failed to create temp file in %s", dir)
	}

	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return errors.Wrap(err, errors.ErrTypeStorage, "failed to write analysis result")
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)

		return errors.Wrap(err, errors.ErrTypeStorage, "failed to flush analysis result")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)

		return errors.Wrapf(err, errors.ErrTypeStorage, "failed to replace %s", path)
	}

	return nil
}
