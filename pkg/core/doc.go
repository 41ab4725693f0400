// Package core defines the shared language of the LeapDQ system.
//
// This package contains:
//   - The read-only Dataset view and its in-memory Table implementation
//   - Rule outcomes (RuleResult, Outcome) and the aggregated QualityVerdict
//   - Configuration types shared by the engine (RuleSpec, Thresholds, AdapterConfig)
//   - The error taxonomy (ConfigurationError, DataLoadError, RuleExecutionError, ObserverError)
//
// The Golden Rule: pkg/core imports only the standard library and leaf
// utility modules. All other packages depend on core, not the reverse.
package core
