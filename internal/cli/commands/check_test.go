package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapdq/internal/cli/output"
	"github.com/leapstack-labs/leapdq/internal/cli/testutil"
	"github.com/leapstack-labs/leapdq/internal/config"
	"github.com/leapstack-labs/leapdq/internal/engine"
	"github.com/leapstack-labs/leapdq/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCheckCommand(t *testing.T) {
	cmd := NewCheckCommand()

	assert.Equal(t, "check [source]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	for _, flag := range []string{"fail-on", "json"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, FailOnNone, cmd.Flags().Lookup("fail-on").DefValue)
}

func TestParseFailOn(t *testing.T) {
	tests := []struct {
		in      string
		want    core.Status
		wantErr bool
	}{
		{in: "", want: ""},
		{in: "none", want: ""},
		{in: "Warning", want: core.StatusWarning},
		{in: "critical", want: core.StatusCritical},
		{in: "always", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFailOn(tt.in)
			if tt.wantErr {
				var cfgErr *core.ConfigurationError
				require.ErrorAs(t, err, &cfgErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckCommand_Markdown(t *testing.T) {
	cfg := testutil.SetupTestProject(t, "")

	out, _, err := testutil.Execute(t, NewCheckCommand(), cfg)
	require.NoError(t, err)

	assert.Contains(t, out, "# Data Quality Report")
	assert.Contains(t, out, "PASSING")
	assert.Contains(t, out, "**Quality Score:** 100.0%")
	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)

	entries, err := os.ReadDir(cfg.MetricsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.FileExists(t, cfg.StatePath)
}

func TestCheckCommand_JSON(t *testing.T) {
	cfg := testutil.SetupTestProject(t, "")

	out, _, err := testutil.Execute(t, NewCheckCommand(), cfg, "--json")
	require.NoError(t, err)

	var result CheckOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, core.StatusPassing, result.OverallStatus)
	assert.Equal(t, 4, result.TotalChecks)
	assert.InDelta(t, 100.0, result.SuccessRate, 1e-9)
	assert.Len(t, result.Results, 4)
	assert.NotEmpty(t, result.RunID)
	assert.NotEmpty(t, result.MetricsFile)
}

func TestCheckCommand_SourceArgument(t *testing.T) {
	cfg := testutil.SetupTestProject(t, "metrics_dir: \"\"\n")

	dirty := "record_id,campaign_id,campaign_date,ingestion_timestamp,spend,return_on_ad_spend\n" +
		"r1,c1,2025-05-01,2025-05-02T08:00:00Z,10,1.0\n" +
		"r1,c1,2025-05-01,2025-05-02T08:00:00Z,10,1.0\n"
	require.NoError(t, os.WriteFile("dirty.csv", []byte(dirty), 0o600))

	out, _, err := testutil.Execute(t, NewCheckCommand(), cfg, "dirty.csv", "--json", "--fail-on", "warning")
	var gateErr *GateError
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, core.StatusWarning, gateErr.Status)
	assert.Equal(t, core.StatusWarning, gateErr.FailOn)
	assert.Contains(t, gateErr.Error(), "--fail-on")

	var result CheckOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 3, result.PassedChecks)
	assert.Empty(t, result.MetricsFile)
}

func TestCheckCommand_LoadFailure(t *testing.T) {
	cfg := testutil.SetupTestProject(t, "")

	out, _, err := testutil.Execute(t, NewCheckCommand(), cfg, "missing.csv")
	var loadErr *core.DataLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, out, MonitoringFailed)

	_, statErr := os.Stat(filepath.Join(cfg.ProjectRoot, config.DefaultMetricsDir))
	assert.True(t, os.IsNotExist(statErr), "no metrics file for a failed run")
}

func TestCheckCommand_StarlarkRule(t *testing.T) {
	cfg := testutil.SetupTestProject(t, `data_quality_rules:
  completeness: {missing_threshold: 2.0}
  spend_cap:
    type: starlark
    script: checks/cap.star
    options: {max_spend: 100}
`)
	require.NoError(t, os.MkdirAll("checks", 0o750))
	require.NoError(t, os.WriteFile(filepath.Join("checks", "cap.star"), []byte(`
def check(table, options):
    over = [v for v in table.column("spend") if v > options["max_spend"]]
    return {"success": not over, "score": 100 - 25 * len(over), "summary": "over cap: %d" % len(over)}
`), 0o600))

	out, _, err := testutil.Execute(t, NewCheckCommand(), cfg, "--json")
	require.NoError(t, err)

	var result CheckOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Results, 2)
	assert.Equal(t, "spend_cap", result.Results[1].RuleName)
	assert.False(t, result.Results[1].Success)
	assert.InDelta(t, 75.0, result.Results[1].Score, 1e-9)
	assert.Equal(t, core.StatusWarning, result.OverallStatus)
}

func TestRenderCheckText(t *testing.T) {
	cfg := testutil.SetupTestProject(t, "")
	eng, err := createEngine(cfg, nil)
	require.NoError(t, err)
	defer func() { _ = eng.Close() }()

	res, err := eng.Run(t.Context(), cfg.Source)
	require.NoError(t, err)

	tr := testutil.NewTestRendererText()
	renderCheckText(tr.Renderer, res)

	assert.Contains(t, tr.Output(), "DATA QUALITY REPORT")
	assert.Contains(t, tr.Output(), "Quality Score: 100.0%")
	assert.Contains(t, tr.Output(), "Metrics saved to")
	assert.Equal(t, output.ModeText, tr.EffectiveMode())
}

func TestBuildCheckOutput(t *testing.T) {
	res := &engine.Result{
		Record:         core.VerdictRecord{RunID: "quality_check_1", OverallStatus: core.StatusWarning},
		ObserverErrors: []error{&core.ObserverError{Observer: "slack", Err: os.ErrClosed}},
	}
	out := buildCheckOutput(res)

	assert.Equal(t, "quality_check_1", out.RunID)
	require.Len(t, out.ObserverErrors, 1)
	assert.Contains(t, out.ObserverErrors[0], "slack")

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"overall_status":"WARNING"`)
	assert.Contains(t, string(raw), `"observer_errors"`)
}
