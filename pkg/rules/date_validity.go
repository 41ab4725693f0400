package rules

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/leapstack-labs/leapdq/pkg/core"
)

// KindDateValidity is the registry name of the date validity rule.
const KindDateValidity = "date_validity"

// Defaults for the date validity rule.
const (
	DefaultMaxFutureDays = 1
	// invalidRatioHigh is the invalid share above which the recommendations
	// point at the source systems instead of individual entries.
	invalidRatioHigh = 0.1
)

// DefaultDateColumns is the default set of date columns.
var DefaultDateColumns = []string{"campaign_date", "ingestion_timestamp"}

// DateFloor is the earliest date considered valid.
var DateFloor = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// DateValidityParams are the configuration parameters of the date validity rule.
type DateValidityParams struct {
	DateColumns   []string `mapstructure:"date_columns"`
	MaxFutureDays int      `mapstructure:"max_future_days"`
}

// DateValidityRule checks that date cells parse and lie between DateFloor
// and max_future_days after now. Configured columns absent from the dataset
// are skipped.
type DateValidityRule struct {
	dateColumns   []string
	maxFutureDays int
	now           Clock
}

// NewDateValidityRule creates a date validity rule. A nil clock uses time.Now.
func NewDateValidityRule(dateColumns []string, maxFutureDays int, now Clock) (*DateValidityRule, error) {
	if len(dateColumns) == 0 {
		return nil, InvalidParam(KindDateValidity, "date_columns", "at least one date column is required")
	}
	for _, col := range dateColumns {
		if strings.TrimSpace(col) == "" {
			return nil, InvalidParam(KindDateValidity, "date_columns", "column names must not be empty")
		}
	}
	if maxFutureDays < 0 {
		return nil, InvalidParam(KindDateValidity, "max_future_days", "must not be negative, got %d", maxFutureDays)
	}
	if now == nil {
		now = time.Now
	}
	return &DateValidityRule{
		dateColumns:   slices.Clone(dateColumns),
		maxFutureDays: maxFutureDays,
		now:           now,
	}, nil
}

func newDateValidityFromParams(params map[string]any, now Clock) (*DateValidityRule, error) {
	p := DateValidityParams{
		DateColumns:   slices.Clone(DefaultDateColumns),
		MaxFutureDays: DefaultMaxFutureDays,
	}
	if err := DecodeParams(KindDateValidity, params, &p); err != nil {
		return nil, err
	}
	return NewDateValidityRule(p.DateColumns, p.MaxFutureDays, now)
}

// Name implements Rule.
func (r *DateValidityRule) Name() string { return KindDateValidity }

// DateValidityOutcome is the finding of a date validity evaluation.
type DateValidityOutcome struct {
	InvalidDates   int
	Unparsable     int
	Future         int
	BeforeFloor    int
	TotalDateCells int
	DateColumns    []string
	MissingColumns []string
	MaxFutureDays  int
}

// InvalidRatio returns the share of scanned cells that were invalid.
func (o DateValidityOutcome) InvalidRatio() float64 {
	if o.TotalDateCells == 0 {
		return 0
	}
	return float64(o.InvalidDates) / float64(o.TotalDateCells)
}

// Details implements core.Outcome.
func (o DateValidityOutcome) Details() map[string]any {
	missing := slices.Clone(o.MissingColumns)
	if missing == nil {
		missing = []string{}
	}
	return map[string]any{
		"invalid_dates":      o.InvalidDates,
		"unparsable_dates":   o.Unparsable,
		"future_dates":       o.Future,
		"dates_before_floor": o.BeforeFloor,
		"total_date_cells":   o.TotalDateCells,
		"date_columns":       slices.Clone(o.DateColumns),
		"missing_columns":    missing,
		"max_future_days":    o.MaxFutureDays,
	}
}

// Summary implements core.Outcome.
func (o DateValidityOutcome) Summary() string {
	return fmt.Sprintf("Invalid dates: %d found across %d columns", o.InvalidDates, len(o.DateColumns))
}

// Validate implements Rule.
func (r *DateValidityRule) Validate(ds core.Dataset) (core.RuleResult, error) {
	now := r.now()
	limit := now.Add(time.Duration(r.maxFutureDays) * 24 * time.Hour)

	outcome := DateValidityOutcome{DateColumns: r.dateColumns, MaxFutureDays: r.maxFutureDays}
	rows := ds.Len()

	for _, col := range r.dateColumns {
		if !ds.HasColumn(col) {
			outcome.MissingColumns = append(outcome.MissingColumns, col)
			continue
		}
		outcome.TotalDateCells += rows

		for row := range rows {
			v, _ := ds.Value(row, col)
			t, ok := core.ToTime(v)
			switch {
			case !ok:
				outcome.Unparsable++
			case t.After(limit):
				outcome.Future++
			case t.Before(DateFloor):
				outcome.BeforeFloor++
			default:
				continue
			}
			outcome.InvalidDates++
		}
	}

	score := 0.0
	if outcome.TotalDateCells > 0 {
		score = float64(outcome.TotalDateCells-outcome.InvalidDates) / float64(outcome.TotalDateCells) * 100
	}

	return core.NewRuleResult(r.Name(), outcome.InvalidDates == 0, score, outcome, r.Recommendations(outcome)), nil
}

// Recommendations implements Rule.
func (r *DateValidityRule) Recommendations(outcome core.Outcome) []string {
	o, ok := outcome.(DateValidityOutcome)
	if !ok {
		return nil
	}
	if o.InvalidDates == 0 {
		return []string{}
	}

	var recs []string
	if o.InvalidRatio() > invalidRatioHigh {
		recs = append(recs,
			"Review data source date format standards",
			"Implement date validation at data ingestion",
		)
	} else {
		recs = append(recs,
			"Clean up invalid date entries",
			"Add date format validation to ETL pipeline",
		)
	}
	return append(recs, "Consider adding date range business rules")
}

var _ Rule = (*DateValidityRule)(nil)
