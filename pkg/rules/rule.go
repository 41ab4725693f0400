// Package rules provides the data-quality rule abstraction, the built-in
// rule kinds, and the registry that constructs rules from configuration.
package rules

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/leapdq/pkg/core"
)

// Rule is a single self-contained data-quality check.
type Rule interface {
	// Name returns the rule name reported in results, e.g. "completeness".
	Name() string

	// Validate checks the dataset and returns the result. Validate must not
	// mutate the dataset or any shared state. A non-nil error means the rule
	// could not evaluate at all; data-quality findings are reported through
	// the result, never as errors.
	Validate(ds core.Dataset) (core.RuleResult, error)

	// Recommendations derives the remediation advice for an outcome produced
	// by this rule. Outcomes of other rule kinds yield nil.
	Recommendations(outcome core.Outcome) []string
}

// Clock returns the current instant. Rules that depend on time take one so
// that evaluation stays deterministic under test.
type Clock func() time.Time

// DecodeParams binds configuration parameters onto a params struct that
// already holds the defaults. Numeric strings and YAML integers are accepted
// for float fields, single values for list fields; unknown keys are ignored.
func DecodeParams(kind string, params map[string]any, out any) error {
	if len(params) == 0 {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		// Configured lists replace the default lists instead of merging.
		ZeroFields: true,
		Result:     out,
	})
	if err != nil {
		return fmt.Errorf("failed to create parameter decoder: %w", err)
	}

	if err := dec.Decode(params); err != nil {
		return &core.ConfigurationError{
			Key: "data_quality_rules." + kind,
			Err: fmt.Errorf("invalid parameters: %w", err),
		}
	}
	return nil
}

// InvalidParam builds the ConfigurationError for a parameter that decoded
// but holds an unusable value.
func InvalidParam(kind, param, format string, args ...any) error {
	return &core.ConfigurationError{
		Key:     fmt.Sprintf("data_quality_rules.%s.%s", kind, param),
		Message: fmt.Sprintf(format, args...),
	}
}
