package rules

import (
	"fmt"

	"github.com/leapstack-labs/leapdq/pkg/core"
)

// KindCompleteness is the registry name of the completeness rule.
const KindCompleteness = "completeness"

// DefaultMissingThreshold is the default maximum missing percentage.
const DefaultMissingThreshold = 2.0

// CompletenessParams are the configuration parameters of the completeness rule.
type CompletenessParams struct {
	MissingThreshold float64 `mapstructure:"missing_threshold"`
}

// CompletenessRule fails when any column's missing percentage exceeds the
// threshold.
type CompletenessRule struct {
	threshold float64
}

// NewCompletenessRule creates a completeness rule. The threshold is a
// percentage and must not be negative.
func NewCompletenessRule(missingThreshold float64) (*CompletenessRule, error) {
	if missingThreshold < 0 {
		return nil, InvalidParam(KindCompleteness, "missing_threshold", "must not be negative, got %v", missingThreshold)
	}
	return &CompletenessRule{threshold: missingThreshold}, nil
}

func newCompletenessFromParams(params map[string]any) (*CompletenessRule, error) {
	p := CompletenessParams{MissingThreshold: DefaultMissingThreshold}
	if err := DecodeParams(KindCompleteness, params, &p); err != nil {
		return nil, err
	}
	return NewCompletenessRule(p.MissingThreshold)
}

// Name implements Rule.
func (r *CompletenessRule) Name() string { return KindCompleteness }

// Threshold returns the configured missing percentage threshold.
func (r *CompletenessRule) Threshold() float64 { return r.threshold }

// CompletenessOutcome is the finding of a completeness evaluation.
type CompletenessOutcome struct {
	// MissingPercentage is the highest per-column missing percentage.
	MissingPercentage float64
	Threshold         float64
	// WorstColumn is the first column with the highest missing percentage.
	WorstColumn string
	// Empty is set when the dataset has no rows or no columns.
	Empty bool
}

// Details implements core.Outcome.
func (o CompletenessOutcome) Details() map[string]any {
	if o.Empty {
		return map[string]any{
			"error":     "Dataset is empty",
			"threshold": o.Threshold,
		}
	}
	return map[string]any{
		"missing_percentage": o.MissingPercentage,
		"threshold":          o.Threshold,
		"worst_column":       o.WorstColumn,
	}
}

// Summary implements core.Outcome.
func (o CompletenessOutcome) Summary() string {
	if o.Empty {
		return "Missing values: dataset is empty"
	}
	return fmt.Sprintf("Missing values: %.1f%% (threshold: %v%%)", o.MissingPercentage, o.Threshold)
}

// Validate implements Rule.
func (r *CompletenessRule) Validate(ds core.Dataset) (core.RuleResult, error) {
	columns := ds.Columns()
	rows := ds.Len()

	if rows == 0 || len(columns) == 0 {
		outcome := CompletenessOutcome{Threshold: r.threshold, Empty: true}
		return core.NewRuleResult(r.Name(), false, 0, outcome, r.Recommendations(outcome)), nil
	}

	outcome := CompletenessOutcome{Threshold: r.threshold}
	for i, col := range columns {
		missing := 0
		for row := range rows {
			v, _ := ds.Value(row, col)
			if core.IsMissing(v) {
				missing++
			}
		}
		pct := float64(missing) / float64(rows) * 100
		if i == 0 || pct > outcome.MissingPercentage {
			outcome.MissingPercentage = pct
			outcome.WorstColumn = col
		}
	}

	success := outcome.MissingPercentage <= r.threshold
	return core.NewRuleResult(r.Name(), success, 100-outcome.MissingPercentage, outcome, r.Recommendations(outcome)), nil
}

// Recommendations implements Rule.
func (r *CompletenessRule) Recommendations(outcome core.Outcome) []string {
	o, ok := outcome.(CompletenessOutcome)
	if !ok {
		return nil
	}
	if !o.Empty && o.MissingPercentage <= o.Threshold {
		return []string{}
	}
	return []string{
		"Investigate upstream data sources",
		"Implement data validation at ingestion",
	}
}

var _ Rule = (*CompletenessRule)(nil)
