package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapdq/pkg/core"
)

// fileTimeFormat is the timestamp part of metrics file names.
const fileTimeFormat = "20060102_150405"

// FileName returns the metrics file name for a record,
// quality_metrics_<YYYYMMDD_HHMMSS>.json.
func FileName(record core.VerdictRecord) (string, error) {
	ts, err := record.Time()
	if err != nil {
		return "", fmt.Errorf("invalid record timestamp %q: %w", record.Timestamp, err)
	}
	return fmt.Sprintf("quality_metrics_%s.json", ts.Format(fileTimeFormat)), nil
}

// WriteJSON writes the record as indented JSON into dir, creating the
// directory if needed, and returns the file path.
func WriteJSON(dir string, record core.VerdictRecord) (string, error) {
	name, err := FileName(record)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create metrics directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode metrics: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return "", fmt.Errorf("failed to write metrics file: %w", err)
	}
	return path, nil
}

// ReadJSON reads a record previously written by WriteJSON.
func ReadJSON(path string) (core.VerdictRecord, error) {
	var record core.VerdictRecord

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the metrics directory
	if err != nil {
		return record, fmt.Errorf("failed to read metrics file: %w", err)
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("failed to decode metrics file %s: %w", path, err)
	}
	return record, nil
}
