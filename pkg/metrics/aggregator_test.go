package metrics

import (
	"math/rand/v2"
	"regexp"
	"testing"
	"time"

	"github.com/leapstack-labs/leapdq/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(name string, success bool) core.RuleResult {
	score := 0.0
	if success {
		score = 100
	}
	return core.NewRuleResult(name, success, score, nil, nil)
}

func TestAggregate(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	agg := NewAggregator(core.DefaultThresholds(),
		WithClock(func() time.Time { return ts }),
		WithRunIDGenerator(func(time.Time) string { return "run-1" }),
	)

	verdict, ok := agg.Aggregate([]core.RuleResult{
		result("completeness", true),
		result("uniqueness", false),
		result("date_validity", true),
		result("roi_threshold", true),
	})
	require.True(t, ok)

	assert.Equal(t, "run-1", verdict.RunID)
	assert.Equal(t, ts, verdict.Timestamp)
	assert.Equal(t, 75.0, verdict.SuccessRate)
	assert.Equal(t, 4, verdict.TotalChecks)
	assert.Equal(t, 3, verdict.PassedChecks)
	assert.Equal(t, 1, verdict.FailedChecks)
	assert.Equal(t, []string{"uniqueness"}, verdict.FailingRuleNames)
	assert.Equal(t, core.StatusWarning, verdict.Status)
}

func TestAggregate_Empty(t *testing.T) {
	verdict, ok := NewAggregator(core.DefaultThresholds()).Aggregate(nil)
	assert.False(t, ok)
	assert.Nil(t, verdict)
}

func TestAggregate_FailingNamesKeepOrder(t *testing.T) {
	verdict, ok := NewAggregator(core.DefaultThresholds()).Aggregate([]core.RuleResult{
		result("b", false),
		result("a", true),
		result("c", false),
		result("a2", false),
	})
	require.True(t, ok)
	assert.Equal(t, []string{"b", "c", "a2"}, verdict.FailingRuleNames)
	assert.Equal(t, core.StatusCritical, verdict.Status)
	assert.Equal(t, verdict.TotalChecks, verdict.PassedChecks+verdict.FailedChecks)
}

func TestClassify(t *testing.T) {
	th := core.Thresholds{Warning: 80, Critical: 50}

	tests := []struct {
		rate float64
		want core.Status
	}{
		{100, core.StatusPassing},
		{80, core.StatusPassing},
		{79.99, core.StatusWarning},
		{50, core.StatusWarning},
		{49.99, core.StatusCritical},
		{0, core.StatusCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.rate, th), "rate %v", tt.rate)
	}
}

func TestClassify_Monotonic(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for range 200 {
		critical := rng.Float64() * 100
		warning := critical + rng.Float64()*(100-critical)
		th := core.Thresholds{Warning: warning, Critical: critical}

		a := rng.Float64() * 100
		b := rng.Float64() * 100
		if a > b {
			a, b = b, a
		}
		// A higher rate never yields a worse status
		assert.True(t, Classify(a, th).AtLeastAsBadAs(Classify(b, th)),
			"rates %v <= %v under %+v", a, b, th)
	}
}

func TestNewRunID(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	pattern := regexp.MustCompile(`^quality_check_20250304_050607_[0-9a-f]{8}$`)

	first := NewRunID(ts)
	second := NewRunID(ts)
	assert.Regexp(t, pattern, first)
	assert.Regexp(t, pattern, second)
	assert.NotEqual(t, first, second, "same-second runs stay distinguishable")
}
