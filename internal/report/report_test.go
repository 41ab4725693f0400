package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/leapdq/pkg/core"
	"github.com/leapstack-labs/leapdq/pkg/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun(t *testing.T) (*core.QualityVerdict, []core.RuleResult) {
	t.Helper()

	uniq, err := rules.NewUniquenessRule([]string{"id"})
	require.NoError(t, err)
	dup, err := uniq.Validate(core.MustTable([]string{"id"}, [][]any{{1}, {2}, {3}, {1}, {4}}))
	require.NoError(t, err)

	results := []core.RuleResult{
		core.NewRuleResult("completeness", true, 100, nil, nil),
		dup,
		core.NewRuleResult("date_validity", true, 100, nil, nil),
		core.NewRuleResult("roi_threshold", true, 100, nil, nil),
	}

	verdict := &core.QualityVerdict{
		RunID:            "quality_check_20250304_050607_abcd1234",
		Timestamp:        time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC),
		SuccessRate:      75,
		TotalChecks:      4,
		PassedChecks:     3,
		FailedChecks:     1,
		FailingRuleNames: []string{"uniqueness"},
		Status:           core.StatusWarning,
	}
	return verdict, results
}

func TestRender(t *testing.T) {
	verdict, results := sampleRun(t)

	text, record := Render(verdict, results)

	want := `
DATA QUALITY REPORT
==================
Run ID: quality_check_20250304_050607_abcd1234
Timestamp: 2025-03-04 05:06:07
Success Rate: 75.0% (3/4 checks passed)
Status: ⚠️ WARNING

Critical Issues:
• Duplicate records: 1 found (threshold: 0)
  → Implement deduplication logic
  → Review data ingestion process
`
	assert.Equal(t, want, text)
	assert.Equal(t, verdict.Record(), record)
	assert.Equal(t, "2025-03-04T05:06:07.000000000Z", record.Timestamp)
}

func TestRender_AllPassing(t *testing.T) {
	verdict, _ := sampleRun(t)
	verdict.Status = core.StatusPassing

	text, _ := Render(verdict, []core.RuleResult{core.NewRuleResult("completeness", true, 100, nil, nil)})
	assert.NotContains(t, text, "Critical Issues")
	assert.Contains(t, text, "Status: ✅ PASSING")
}

func TestRender_GenericOutcome(t *testing.T) {
	verdict, _ := sampleRun(t)
	custom := core.NewRuleResult("freshness", false, 40,
		core.DetailsOutcome{Fields: map[string]any{"lag_hours": 30}}, []string{"Check the loader schedule"})

	text, _ := Render(verdict, []core.RuleResult{custom})
	assert.Contains(t, text, "• freshness: lag_hours=30\n  → Check the loader schedule\n")
}

func TestRender_NoVerdict(t *testing.T) {
	text, record := Render(nil, nil)
	assert.Equal(t, NoMetrics, text)
	assert.Empty(t, record.RunID)
}

func TestRenderMarkdown(t *testing.T) {
	verdict, results := sampleRun(t)

	md := RenderMarkdown(verdict, results)
	assert.Contains(t, md, "# Data Quality Report")
	assert.Contains(t, md, "- **Success Rate:** 75.0% (3/4 checks passed)")
	assert.Contains(t, md, "| uniqueness | FAILED | 80.0 |")
	assert.Contains(t, md, "### uniqueness")
	assert.Contains(t, md, "- Implement deduplication logic")
}

func TestWriteJSON(t *testing.T) {
	verdict, _ := sampleRun(t)
	dir := filepath.Join(t.TempDir(), "monitoring", "metrics")

	path, err := WriteJSON(dir, verdict.Record())
	require.NoError(t, err)
	assert.Equal(t, "quality_metrics_20250304_050607.json", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "WARNING", raw["overall_status"])
	assert.Equal(t, []any{"uniqueness"}, raw["critical_failures"])
	assert.EqualValues(t, 3, raw["passed_checks"])

	back, err := ReadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, verdict.Record(), back)
}

func TestWriteJSON_InvalidTimestamp(t *testing.T) {
	_, err := WriteJSON(t.TempDir(), core.VerdictRecord{Timestamp: "yesterday"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid record timestamp")
}
