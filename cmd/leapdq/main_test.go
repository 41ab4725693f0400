package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapdq/internal/cli"
	"github.com/leapstack-labs/leapdq/internal/cli/commands"
	"github.com/leapstack-labs/leapdq/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dirtyCSV has a duplicate key, a missing cell and an out-of-range ROI.
const dirtyCSV = `record_id,campaign_id,campaign_date,ingestion_timestamp,spend,return_on_ad_spend
r1,c1,2025-05-01,2025-05-02T08:00:00Z,120.5,1.8
r1,c1,2025-05-01,2025-05-02T08:00:00Z,120.5,1.8
r3,c2,2025-05-01,2025-05-02T08:00:00Z,,9.5
r4,c2,2025-05-02,2025-05-03T08:00:00Z,60.0,1.2
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "LeapDQ v"+cli.Version)
}

func TestHelpCommand(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"check", "rules", "history", "doctor", "init", "completion"} {
		assert.Contains(t, out, name)
	}
}

func TestExampleProject(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := execute(t, "init", "--example")
	require.NoError(t, err)

	out, _, err := execute(t, "check", "-o", "json")
	require.NoError(t, err)

	var result commands.CheckOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, core.StatusPassing, result.OverallStatus)
	assert.Equal(t, 5, result.TotalChecks)
	assert.Equal(t, 5, result.PassedChecks)
	assert.FileExists(t, result.MetricsFile)
	require.Len(t, result.Results, 5)
	assert.Equal(t, "spend_cap", result.Results[4].RuleName)

	out, _, err = execute(t, "history", "-o", "json")
	require.NoError(t, err)
	var history commands.HistoryOutput
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	require.Equal(t, 1, history.Count)
	assert.Equal(t, result.RunID, history.Runs[0].RunID)

	out, _, err = execute(t, "history", result.RunID)
	require.NoError(t, err)
	assert.Contains(t, out, "spend_cap")

	out, _, err = execute(t, "doctor", "-o", "json")
	require.NoError(t, err)
	var doctor commands.DoctorOutput
	require.NoError(t, json.Unmarshal([]byte(out), &doctor))
	assert.Equal(t, 100, doctor.Score)
}

func TestCheckCommand_FailOn(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "campaigns.csv"), []byte(dirtyCSV), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leapdq.yaml"), []byte("source: campaigns.csv\nmetrics_dir: \"\"\n"), 0o600))

	out, _, err := execute(t, "check")
	require.NoError(t, err, "the default --fail-on is none")
	assert.Contains(t, out, "CRITICAL")
	assert.Contains(t, out, "**Quality Score:** 25.0%")

	_, _, err = execute(t, "check", "--fail-on", "critical")
	var gateErr *commands.GateError
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, core.StatusCritical, gateErr.Status)

	_, _, err = execute(t, "check", "--fail-on", "sometimes")
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "fail-on", cfgErr.Key)
}

func TestCheckCommand_MissingSource(t *testing.T) {
	t.Chdir(t.TempDir())

	out, errOut, err := execute(t, "check", "missing.csv", "--state", filepath.Join(t.TempDir(), "state.db"))
	var loadErr *core.DataLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, out, commands.MonitoringFailed)
	assert.Contains(t, errOut, "no config file found")
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leapdq.yaml"),
		[]byte("alerting:\n  thresholds:\n    warning: 40\n    critical: 60\n"), 0o600))

	_, _, err := execute(t, "rules")
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}
