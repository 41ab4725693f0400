package commands

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapdq/internal/cli/testutil"
	"github.com/leapstack-labs/leapdq/internal/config"
	"github.com/leapstack-labs/leapdq/pkg/core"
	"github.com/leapstack-labs/leapdq/pkg/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateHealthScore(t *testing.T) {
	tests := []struct {
		name   string
		checks []HealthCheck
		want   int
	}{
		{
			name: "no checks returns 100",
			want: 100,
		},
		{
			name: "all passing returns 100",
			checks: []HealthCheck{
				{Name: "Configuration", Status: HealthPass},
				{Name: "Source", Status: HealthPass},
			},
			want: 100,
		},
		{
			name: "warnings count half",
			checks: []HealthCheck{
				{Name: "Configuration", Status: HealthPass},
				{Name: "Metrics", Status: HealthWarn},
			},
			want: 75,
		},
		{
			name: "errors count nothing",
			checks: []HealthCheck{
				{Name: "Source", Status: HealthError},
				{Name: "Rules", Status: HealthError},
			},
			want: 0,
		},
		{
			name: "mixed",
			checks: []HealthCheck{
				{Name: "Configuration", Status: HealthWarn},
				{Name: "Source", Status: HealthError},
				{Name: "Rules", Status: HealthPass},
			},
			want: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateHealthScore(tt.checks))
		})
	}
}

func TestCheckConfigFile(t *testing.T) {
	assert.Equal(t, HealthWarn, checkConfigFile(&config.Config{}).Status)

	c := checkConfigFile(&config.Config{ConfigFile: "/p/leapdq.yaml"})
	assert.Equal(t, HealthPass, c.Status)
	assert.Equal(t, "/p/leapdq.yaml", c.Message)
}

func TestCheckSource(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(existing, []byte("a\n1\n"), 0o600))

	tests := []struct {
		name string
		cfg  *config.Config
		want string
	}{
		{name: "empty", cfg: &config.Config{Adapter: config.AdapterConfig{Type: config.AdapterCSV}}, want: HealthError},
		{name: "missing file", cfg: &config.Config{Source: filepath.Join(dir, "nope.csv"), Adapter: config.AdapterConfig{Type: config.AdapterCSV}}, want: HealthError},
		{name: "existing file", cfg: &config.Config{Source: existing, Adapter: config.AdapterConfig{Type: config.AdapterCSV}}, want: HealthPass},
		{name: "table name", cfg: &config.Config{Source: "marketing", Adapter: config.AdapterConfig{Type: config.AdapterDuckDB}}, want: HealthPass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checkSource(tt.cfg).Status)
		})
	}
}

func TestCheckMetricsDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	assert.Equal(t, HealthWarn, checkMetricsDir(&config.Config{}).Status)
	assert.Equal(t, HealthPass, checkMetricsDir(&config.Config{MetricsDir: dir}).Status)
	assert.Equal(t, HealthPass, checkMetricsDir(&config.Config{MetricsDir: filepath.Join(dir, "later")}).Status)
	assert.Equal(t, HealthError, checkMetricsDir(&config.Config{MetricsDir: file}).Status)
}

func TestCheckRules(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := testutil.SetupTestProject(t, "")
		c := checkRules(&CommandContext{Cfg: cfg})
		assert.Equal(t, HealthPass, c.Status)
		assert.Contains(t, c.Message, "4 rules")
	})

	t.Run("all disabled", func(t *testing.T) {
		cfg := testutil.SetupTestProject(t, "data_quality_rules:\n  completeness:\n    enabled: false\n")
		assert.Equal(t, HealthWarn, checkRules(&CommandContext{Cfg: cfg}).Status)
	})

	t.Run("unknown kind", func(t *testing.T) {
		cfg := testutil.SetupTestProject(t, "data_quality_rules:\n  freshness:\n    max_age: 3\n")
		assert.Equal(t, HealthError, checkRules(&CommandContext{Cfg: cfg}).Status)
	})
}

func TestCheckColumns(t *testing.T) {
	ctx := context.Background()
	passed := HealthCheck{Status: HealthPass}

	t.Run("defaults present", func(t *testing.T) {
		cfg := testutil.SetupTestProject(t, "")
		c := checkColumns(ctx, &CommandContext{Cfg: cfg}, passed)
		assert.Equal(t, HealthPass, c.Status)
		assert.Equal(t, "6 columns, 5 read by rules", c.Message)
	})

	t.Run("configured column missing", func(t *testing.T) {
		cfg := testutil.SetupTestProject(t, "data_quality_rules:\n  uniqueness:\n    key_columns: [record_id, order_id]\n  roi_threshold:\n    roi_column: roas\n")
		c := checkColumns(ctx, &CommandContext{Cfg: cfg}, passed)
		assert.Equal(t, HealthWarn, c.Status)
		assert.Equal(t, "Not in the source: order_id, roas", c.Message)
	})

	t.Run("source unavailable", func(t *testing.T) {
		cfg := testutil.SetupTestProject(t, "")
		c := checkColumns(ctx, &CommandContext{Cfg: cfg}, HealthCheck{Status: HealthError})
		assert.Equal(t, HealthWarn, c.Status)
	})

	t.Run("unreadable source", func(t *testing.T) {
		cfg := testutil.SetupTestProject(t, "")
		require.NoError(t, os.WriteFile(cfg.Source, nil, 0o600))
		assert.Equal(t, HealthError, checkColumns(ctx, &CommandContext{Cfg: cfg}, passed).Status)
	})
}

func TestRuleColumns(t *testing.T) {
	reg := rules.NewDefaultRegistry()

	got := ruleColumns(reg, rules.DefaultSpecs())
	assert.Equal(t, []string{"record_id", "campaign_id", "campaign_date", "ingestion_timestamp", "return_on_ad_spend"}, got)

	got = ruleColumns(reg, []core.RuleSpec{
		{Type: rules.KindUniqueness, Parameters: map[string]any{"key_columns": []any{"id", " id "}}},
		{Type: rules.KindROIThreshold, Parameters: map[string]any{"roi_column": "roas"}},
		{Type: rules.KindCompleteness},
	})
	assert.Equal(t, []string{"id", "roas"}, got)
}

func TestDoctorCommand_JSON(t *testing.T) {
	cfg := testutil.SetupTestProject(t, "output: json\n")

	// Record one run so the state check opens a real database.
	_, _, err := testutil.Execute(t, NewCheckCommand(), cfg)
	require.NoError(t, err)

	out, _, err := testutil.Execute(t, NewDoctorCommand(), cfg)
	require.NoError(t, err)

	var result DoctorOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 100, result.Score)
	assert.Zero(t, result.IssueCount)
	require.Len(t, result.HealthChecks, 7)
	assert.Equal(t, "Columns", result.HealthChecks[4].Name)
	assert.Contains(t, result.HealthChecks[5].Message, "schema version")
}

func TestDoctorCommand_Markdown(t *testing.T) {
	cfg := testutil.SetupTestProject(t, "metrics_dir: \"\"\n")
	require.NoError(t, os.Remove(cfg.Source))

	out, _, err := testutil.Execute(t, NewDoctorCommand(), cfg)
	require.NoError(t, err)

	assert.Contains(t, out, "# leapdq Setup Report")
	assert.Contains(t, out, "| Source | error |")
	assert.Contains(t, out, "| Metrics | warn |")
	assert.Contains(t, out, "| Columns | warn | Skipped, the source is unavailable |")
	assert.Contains(t, out, "**Health Score**: 71/100")
	testutil.AssertNoANSI(t, out)
}
