package config

import (
	"github.com/leapstack-labs/leapdq/pkg/core"
)

// defaultValues are loaded first so every later layer overrides them.
// data_quality_rules has no defaults here: an unconfigured rule set falls
// back to rules.DefaultSpecs as a whole instead of merging with it.
func defaultValues() map[string]any {
	return map[string]any{
		"source":                       DefaultSource,
		"adapter.type":                 AdapterCSV,
		"state_path":                   DefaultStateFile,
		"metrics_dir":                  DefaultMetricsDir,
		"output":                       DefaultOutput,
		"log_level":                    DefaultLogLevel,
		"log_format":                   DefaultLogFormat,
		"verbose":                      false,
		"parallelism":                  1,
		"alerting.thresholds.warning":  core.DefaultWarningThreshold,
		"alerting.thresholds.critical": core.DefaultCriticalThreshold,
	}
}

// DefaultSchemaForType returns the default schema for an adapter type.
func DefaultSchemaForType(adapterType string) string {
	switch adapterType {
	case AdapterPostgres:
		return "public"
	case AdapterDuckDB:
		return "main"
	default:
		return ""
	}
}

// ApplyAdapterDefaults fills in type-specific connection defaults.
func ApplyAdapterDefaults(a *AdapterConfig) {
	if a == nil {
		return
	}
	if a.Schema == "" {
		a.Schema = DefaultSchemaForType(a.Type)
	}
	if a.Type == AdapterPostgres && a.Port == 0 {
		a.Port = 5432
	}
}
