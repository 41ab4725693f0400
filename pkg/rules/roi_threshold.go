package rules

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapdq/pkg/core"
)

// KindROIThreshold is the registry name of the ROI threshold rule.
const KindROIThreshold = "roi_threshold"

// Defaults for the ROI threshold rule.
const (
	DefaultROIColumn = "return_on_ad_spend"
	DefaultMinROI    = 0.0
	DefaultMaxROI    = 5.0

	// maxOutlierRate is the largest share of out-of-bounds values that
	// still passes.
	maxOutlierRate = 0.05
	// sideRateHigh is the per-side outlier share above which the advice
	// points at data errors rather than individual campaigns.
	sideRateHigh = 0.1
)

// ROIThresholdParams are the configuration parameters of the ROI threshold rule.
type ROIThresholdParams struct {
	ROIColumn    string  `mapstructure:"roi_column"`
	MinThreshold float64 `mapstructure:"min_threshold"`
	MaxThreshold float64 `mapstructure:"max_threshold"`
}

// ROIThresholdRule fails when more than 5% of a numeric column's values fall
// outside [min, max].
type ROIThresholdRule struct {
	column string
	min    float64
	max    float64
}

// NewROIThresholdRule creates an ROI threshold rule. min must not exceed max.
func NewROIThresholdRule(column string, minThreshold, maxThreshold float64) (*ROIThresholdRule, error) {
	if strings.TrimSpace(column) == "" {
		return nil, InvalidParam(KindROIThreshold, "roi_column", "must not be empty")
	}
	if minThreshold > maxThreshold {
		return nil, InvalidParam(KindROIThreshold, "min_threshold",
			"min_threshold (%v) must not exceed max_threshold (%v)", minThreshold, maxThreshold)
	}
	return &ROIThresholdRule{column: column, min: minThreshold, max: maxThreshold}, nil
}

func newROIThresholdFromParams(params map[string]any) (*ROIThresholdRule, error) {
	p := ROIThresholdParams{
		ROIColumn:    DefaultROIColumn,
		MinThreshold: DefaultMinROI,
		MaxThreshold: DefaultMaxROI,
	}
	if err := DecodeParams(KindROIThreshold, params, &p); err != nil {
		return nil, err
	}
	return NewROIThresholdRule(p.ROIColumn, p.MinThreshold, p.MaxThreshold)
}

// Name implements Rule.
func (r *ROIThresholdRule) Name() string { return KindROIThreshold }

// ROIProblem marks an ROI evaluation that could not measure outliers.
type ROIProblem int

// ROI problems.
const (
	ROIProblemNone ROIProblem = iota
	ROIProblemMissingColumn
	ROIProblemNoValues
)

// ROIThresholdOutcome is the finding of an ROI threshold evaluation.
type ROIThresholdOutcome struct {
	Problem          ROIProblem
	Column           string
	OutlierCount     int
	OutlierRate      float64
	TotalValues      int
	NonNumericValues int
	MinThreshold     float64
	MaxThreshold     float64
	// High and Low count the outliers on each side of the bounds.
	High int
	Low  int
}

func (o ROIThresholdOutcome) problemMessage() string {
	switch o.Problem {
	case ROIProblemMissingColumn:
		return fmt.Sprintf("Column '%s' not found in dataset", o.Column)
	case ROIProblemNoValues:
		return "No valid ROI values found"
	default:
		return ""
	}
}

// Details implements core.Outcome.
func (o ROIThresholdOutcome) Details() map[string]any {
	if o.Problem != ROIProblemNone {
		return map[string]any{"error": o.problemMessage()}
	}
	return map[string]any{
		"outliers_below_threshold": o.Low,
		"outliers_above_threshold": o.High,
		"total_outliers":           o.OutlierCount,
		"outlier_rate":             o.OutlierRate,
		"total_valid_values":       o.TotalValues,
		"non_numeric_values":       o.NonNumericValues,
		"min_threshold":            o.MinThreshold,
		"max_threshold":            o.MaxThreshold,
		"roi_column":               o.Column,
	}
}

// Summary implements core.Outcome.
func (o ROIThresholdOutcome) Summary() string {
	if o.Problem != ROIProblemNone {
		return "ROI check could not run: " + o.problemMessage()
	}
	return fmt.Sprintf("ROI outliers: %d values outside thresholds (%v - %v)",
		o.OutlierCount, o.MinThreshold, o.MaxThreshold)
}

// Validate implements Rule. Cells that are not numeric are excluded and
// counted in non_numeric_values.
func (r *ROIThresholdRule) Validate(ds core.Dataset) (core.RuleResult, error) {
	outcome := ROIThresholdOutcome{Column: r.column, MinThreshold: r.min, MaxThreshold: r.max}

	if !ds.HasColumn(r.column) {
		outcome.Problem = ROIProblemMissingColumn
		return core.NewRuleResult(r.Name(), false, 0, outcome, r.Recommendations(outcome)), nil
	}

	for row := range ds.Len() {
		v, _ := ds.Value(row, r.column)
		f, ok := core.ToFloat(v)
		if !ok {
			if !core.IsMissing(v) {
				outcome.NonNumericValues++
			}
			continue
		}
		outcome.TotalValues++
		switch {
		case f > r.max:
			outcome.High++
		case f < r.min:
			outcome.Low++
		}
	}

	if outcome.TotalValues == 0 {
		outcome.Problem = ROIProblemNoValues
		return core.NewRuleResult(r.Name(), false, 0, outcome, r.Recommendations(outcome)), nil
	}

	outcome.OutlierCount = outcome.High + outcome.Low
	outcome.OutlierRate = float64(outcome.OutlierCount) / float64(outcome.TotalValues)

	success := outcome.OutlierRate <= maxOutlierRate
	score := 100 - outcome.OutlierRate*200
	return core.NewRuleResult(r.Name(), success, score, outcome, r.Recommendations(outcome)), nil
}

// Recommendations implements Rule.
func (r *ROIThresholdRule) Recommendations(outcome core.Outcome) []string {
	o, ok := outcome.(ROIThresholdOutcome)
	if !ok {
		return nil
	}

	switch o.Problem {
	case ROIProblemMissingColumn:
		return []string{"Verify ROI column name in configuration"}
	case ROIProblemNoValues:
		return []string{"Check ROI calculation logic", "Verify spend and sales data"}
	}

	var recs []string
	if o.High > 0 {
		if float64(o.High)/float64(o.TotalValues) > sideRateHigh {
			recs = append(recs,
				"Review ROI calculation - unusually high values may indicate data errors",
				"Validate advertising spend vs sales attribution",
			)
		} else {
			recs = append(recs, "Investigate campaigns with exceptional ROI performance")
		}
	}
	if o.Low > 0 {
		if float64(o.Low)/float64(o.TotalValues) > sideRateHigh {
			recs = append(recs,
				"Review low ROI campaigns for optimization opportunities",
				"Check for data quality issues in spend or sales tracking",
			)
		} else {
			recs = append(recs, "Monitor underperforming campaigns for budget reallocation")
		}
	}
	if len(recs) == 0 {
		recs = append(recs, "ROI values within expected ranges")
	}
	return recs
}

var _ Rule = (*ROIThresholdRule)(nil)
