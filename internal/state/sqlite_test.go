package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/leapdq/internal/testutil"
	"github.com/leapstack-labs/leapdq/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(runID, ts string, status core.Status, failures ...string) core.VerdictRecord {
	if failures == nil {
		failures = []string{}
	}
	return core.VerdictRecord{
		RunID:            runID,
		Timestamp:        ts,
		SuccessRate:      75,
		TotalChecks:      4,
		PassedChecks:     4 - len(failures),
		FailedChecks:     len(failures),
		CriticalFailures: failures,
		OverallStatus:    status,
	}
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))

	version, err := store.GetMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	require.NoError(t, store.Close())
}

func TestSQLiteStore_FileBacked(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(path))
	require.NoError(t, store.SaveVerdict(ctx, record("run-1", "2024-01-01T00:00:00Z", core.StatusPassing)))
	require.NoError(t, store.Close())

	reopened := NewSQLiteStore(nil)
	require.NoError(t, reopened.Open(path))
	defer func() { _ = reopened.Close() }()

	got, err := reopened.GetVerdict(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusPassing, got.OverallStatus)
	assert.Equal(t, path, reopened.Path())
}

func TestSQLiteStore_Verdicts(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	first := record("quality_check_20240101_000000_aaaaaaaa", "2024-01-01T00:00:00Z", core.StatusWarning, "uniqueness")
	second := record("quality_check_20240102_000000_bbbbbbbb", "2024-01-02T00:00:00Z", core.StatusCritical, "uniqueness", "roi_threshold")
	third := record("quality_check_20240103_000000_cccccccc", "2024-01-03T00:00:00Z", core.StatusPassing)

	for _, r := range []core.VerdictRecord{second, first, third} {
		require.NoError(t, store.SaveVerdict(ctx, r))
	}

	got, err := store.GetVerdict(ctx, second.RunID)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	all, err := store.ListVerdicts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{third.RunID, second.RunID, first.RunID},
		[]string{all[0].RunID, all[1].RunID, all[2].RunID})
	assert.Equal(t, []string{}, all[0].CriticalFailures)

	limited, err := store.ListVerdicts(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	// Saving the same run id replaces the record.
	updated := first
	updated.OverallStatus = core.StatusPassing
	require.NoError(t, store.SaveVerdict(ctx, updated))
	got, err = store.GetVerdict(ctx, first.RunID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPassing, got.OverallStatus)

	all, err = store.ListVerdicts(ctx, -1)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLiteStore_ListVerdictsSubSecondOrder(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	base := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	older := (&core.QualityVerdict{RunID: "b_older", Timestamp: base.Add(120 * time.Millisecond), Status: core.StatusPassing}).Record()
	newer := (&core.QualityVerdict{RunID: "a_newer", Timestamp: base.Add(123 * time.Millisecond), Status: core.StatusPassing}).Record()
	require.NoError(t, store.SaveVerdict(ctx, older))
	require.NoError(t, store.SaveVerdict(ctx, newer))

	got, err := store.ListVerdicts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a_newer", got[0].RunID)
	assert.Equal(t, "b_older", got[1].RunID)
}

func TestSQLiteStore_Errors(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	_, err := store.GetVerdict(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	assert.ErrorContains(t, store.SaveVerdict(ctx, core.VerdictRecord{}), "no run id")

	closed := NewSQLiteStore(nil)
	assert.ErrorContains(t, closed.SaveVerdict(ctx, record("x", "t", core.StatusPassing)), "database not opened")
	_, err = closed.ListVerdicts(ctx, 1)
	assert.Error(t, err)
	_, err = closed.GetMigrationVersion()
	assert.Error(t, err)
	assert.NoError(t, closed.Close())
}

func TestSQLiteStore_RuleResults(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	results := []core.RuleResult{
		core.NewRuleResult("completeness", false, 70, core.DetailsOutcome{Fields: map[string]any{
			"missing_percentage": 30.0,
			"worst_column":       "return_on_ad_spend",
		}}, []string{"Investigate upstream data sources"}),
		core.NewRuleResult("uniqueness", true, 100, core.DetailsOutcome{Fields: map[string]any{
			"duplicate_count": 0,
		}}, nil),
	}

	require.NoError(t, store.SaveRuleResults(ctx, "run-1", results))

	got, err := store.ListRuleResults(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "completeness", got[0].RuleName)
	assert.False(t, got[0].Success)
	assert.InDelta(t, 70.0, got[0].Score, 1e-9)
	assert.Equal(t, "return_on_ad_spend", got[0].Details["worst_column"])
	assert.Equal(t, []string{"Investigate upstream data sources"}, got[0].Recommendations)

	assert.True(t, got[1].Success)
	assert.InDelta(t, 0.0, got[1].Details["duplicate_count"], 1e-9)
	assert.Equal(t, []string{}, got[1].Recommendations)

	// Saving again replaces the previous set.
	require.NoError(t, store.SaveRuleResults(ctx, "run-1", results[:1]))
	got, err = store.ListRuleResults(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	none, err := store.ListRuleResults(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMigrateWithDB(t *testing.T) {
	store := setupTestStore(t)
	// Running the migrations twice is a no-op.
	require.NoError(t, MigrateWithDB(store.db))
}
