// Package metrics reduces rule results into a single quality verdict.
package metrics

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapdq/pkg/core"
)

// RunIDPrefix prefixes every generated run id.
const RunIDPrefix = "quality_check_"

// runIDTimeFormat is the timestamp part of a run id (YYYYMMDD_HHMMSS).
const runIDTimeFormat = "20060102_150405"

// Aggregator computes verdicts from rule results using fixed thresholds.
type Aggregator struct {
	thresholds core.Thresholds
	now        func() time.Time
	newID      func(time.Time) string
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock sets the clock used for verdict timestamps and run ids.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithRunIDGenerator replaces the run id generator.
func WithRunIDGenerator(gen func(time.Time) string) Option {
	return func(a *Aggregator) {
		if gen != nil {
			a.newID = gen
		}
	}
}

// NewAggregator creates an aggregator. The thresholds must already be valid;
// see core.Thresholds.Validate.
func NewAggregator(thresholds core.Thresholds, opts ...Option) *Aggregator {
	a := &Aggregator{
		thresholds: thresholds,
		now:        time.Now,
		newID:      NewRunID,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Thresholds returns the aggregator's thresholds.
func (a *Aggregator) Thresholds() core.Thresholds { return a.thresholds }

// Aggregate reduces results into a verdict. It returns nil, false when there
// are no results, which means no checks could run.
func (a *Aggregator) Aggregate(results []core.RuleResult) (*core.QualityVerdict, bool) {
	if len(results) == 0 {
		return nil, false
	}

	total := len(results)
	passed := 0
	failing := make([]string, 0, total)
	for _, r := range results {
		if r.Success {
			passed++
		} else {
			failing = append(failing, r.RuleName)
		}
	}

	rate := float64(passed) / float64(total) * 100
	ts := a.now()

	return &core.QualityVerdict{
		RunID:            a.newID(ts),
		Timestamp:        ts,
		SuccessRate:      rate,
		TotalChecks:      total,
		PassedChecks:     passed,
		FailedChecks:     total - passed,
		FailingRuleNames: failing,
		Status:           a.Classify(rate),
	}, true
}

// Classify maps a success rate to a status. Boundaries are inclusive: a rate
// equal to the warning threshold is PASSING.
func (a *Aggregator) Classify(rate float64) core.Status {
	return Classify(rate, a.thresholds)
}

// Classify maps a success rate to a status under the given thresholds.
func Classify(rate float64, th core.Thresholds) core.Status {
	switch {
	case rate >= th.Warning:
		return core.StatusPassing
	case rate >= th.Critical:
		return core.StatusWarning
	default:
		return core.StatusCritical
	}
}

// NewRunID builds a run id from the timestamp plus a random suffix, so that
// runs started within the same second stay distinguishable.
func NewRunID(ts time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return RunIDPrefix + ts.Format(runIDTimeFormat) + "_" + suffix
}
