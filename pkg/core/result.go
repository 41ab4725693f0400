package core

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
)

// =============================================================================
// Rule results
// =============================================================================

// Outcome is the typed finding of a single rule evaluation. Each rule kind
// defines its own outcome type; the report and the rule's recommendations
// are derived from it.
type Outcome interface {
	// Details returns the machine-readable fields of the finding.
	Details() map[string]any

	// Summary returns a one-line human-readable description of the finding.
	Summary() string
}

// RuleResult is the output of one rule for one run. It is never modified
// after NewRuleResult returns it.
type RuleResult struct {
	RuleName        string         `json:"rule_name"`
	Success         bool           `json:"success"`
	Score           float64        `json:"score"`
	Details         map[string]any `json:"details"`
	Recommendations []string       `json:"recommendations"`

	// Outcome is the typed finding that Details was derived from.
	Outcome Outcome `json:"-"`
}

// NewRuleResult builds a RuleResult, clamping the score to [0, 100] and
// deriving Details from the outcome.
func NewRuleResult(name string, success bool, score float64, outcome Outcome, recommendations []string) RuleResult {
	var details map[string]any
	if outcome != nil {
		details = maps.Clone(outcome.Details())
	}
	if details == nil {
		details = map[string]any{}
	}
	recs := slices.Clone(recommendations)
	if recs == nil {
		recs = []string{}
	}
	return RuleResult{
		RuleName:        name,
		Success:         success,
		Score:           ClampScore(score),
		Details:         details,
		Recommendations: recs,
		Outcome:         outcome,
	}
}

// ClampScore restricts a score to [0, 100]. NaN becomes 0.
func ClampScore(score float64) float64 {
	switch {
	case math.IsNaN(score):
		return 0
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

// Summary returns the one-line finding for the result. Results whose outcome
// does not provide one fall back to a sorted listing of their details.
func (r RuleResult) Summary() string {
	if r.Outcome != nil {
		if s := r.Outcome.Summary(); s != "" {
			return s
		}
	}
	keys := slices.Sorted(maps.Keys(r.Details))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, r.Details[k]))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s failed (score: %.1f)", r.RuleName, r.Score)
	}
	return fmt.Sprintf("%s: %s", r.RuleName, strings.Join(parts, ", "))
}

// DetailsOutcome is an Outcome backed by a plain details map. Rules defined
// outside Go (for example scripts) report through it.
type DetailsOutcome struct {
	Fields  map[string]any
	Message string
}

// Details returns a copy of the fields.
func (o DetailsOutcome) Details() map[string]any { return maps.Clone(o.Fields) }

// Summary returns the message, if any.
func (o DetailsOutcome) Summary() string { return o.Message }

// ErrorOutcome describes a rule that could evaluate but found the data
// unusable (missing column, no valid values). It is a finding, not a failure
// of the rule itself.
type ErrorOutcome struct {
	Message string
}

// Details returns {"error": message}.
func (o ErrorOutcome) Details() map[string]any {
	return map[string]any{"error": o.Message}
}

// Summary returns the message.
func (o ErrorOutcome) Summary() string { return o.Message }

// =============================================================================
// Configuration types
// =============================================================================

// RuleSpec is one configured rule: a registered kind plus its parameters.
type RuleSpec struct {
	Type       string         `json:"type" koanf:"type"`
	Parameters map[string]any `json:"parameters,omitempty" koanf:"parameters"`
}

// Default alerting thresholds.
const (
	DefaultWarningThreshold  = 80.0
	DefaultCriticalThreshold = 50.0
)

// Thresholds holds the success-rate boundaries for status classification.
type Thresholds struct {
	Warning  float64 `json:"warning" koanf:"warning"`
	Critical float64 `json:"critical" koanf:"critical"`
}

// DefaultThresholds returns warning=80, critical=50.
func DefaultThresholds() Thresholds {
	return Thresholds{Warning: DefaultWarningThreshold, Critical: DefaultCriticalThreshold}
}

// Validate checks that both thresholds are percentages and that critical
// does not exceed warning. The ordering is reported, never corrected.
func (t Thresholds) Validate() error {
	if math.IsNaN(t.Warning) || t.Warning < 0 || t.Warning > 100 {
		return &ConfigurationError{Key: "alerting.thresholds.warning", Message: fmt.Sprintf("must be between 0 and 100, got %v", t.Warning)}
	}
	if math.IsNaN(t.Critical) || t.Critical < 0 || t.Critical > 100 {
		return &ConfigurationError{Key: "alerting.thresholds.critical", Message: fmt.Sprintf("must be between 0 and 100, got %v", t.Critical)}
	}
	if t.Critical > t.Warning {
		return &ConfigurationError{
			Key:     "alerting.thresholds",
			Message: fmt.Sprintf("critical (%v) must not exceed warning (%v)", t.Critical, t.Warning),
		}
	}
	return nil
}
