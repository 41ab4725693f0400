package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapdq/internal/cli/testutil"
	"github.com/leapstack-labs/leapdq/internal/config"
	"github.com/leapstack-labs/leapdq/internal/starlark"
	"github.com/leapstack-labs/leapdq/pkg/core"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveScripts(t *testing.T) {
	cfg := &config.Config{ProjectRoot: t.TempDir()}
	abs := filepath.Join(cfg.ProjectRoot, "abs.star")
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.ProjectRoot, "checks"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ProjectRoot, "checks", "a.star"), nil, 0o600))
	specs := []core.RuleSpec{
		{Type: "completeness", Parameters: map[string]any{"missing_threshold": 5.0}},
		{Type: starlark.Kind, Parameters: map[string]any{"script": "checks/a.star"}},
		{Type: starlark.Kind, Parameters: map[string]any{"script": abs}},
	}

	got := resolveScripts(cfg, specs)

	require.Len(t, got, 3)
	assert.Equal(t, specs[0], got[0])
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "checks", "a.star"), got[1].Parameters["script"])
	assert.Equal(t, abs, got[2].Parameters["script"])
	assert.Equal(t, "checks/a.star", specs[1].Parameters["script"], "input specs are not modified")
}

func TestNewCommandContext(t *testing.T) {
	cfg := testutil.SetupTestProject(t, "output: json\n")

	var cmdCtx *CommandContext
	cmd := &cobra.Command{
		Use: "probe",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			cmdCtx = c
			return nil
		},
	}

	_, _, err := testutil.Execute(t, cmd, cfg)
	require.NoError(t, err)
	require.NotNil(t, cmdCtx)
	assert.Same(t, cfg, cmdCtx.Cfg)
	assert.NotNil(t, cmdCtx.Engine)
	assert.NotNil(t, cmdCtx.Logger)
	assert.DirExists(t, filepath.Dir(cfg.StatePath))
}

func TestGetConfig_LoadsFromWorkingDirectory(t *testing.T) {
	cfg := testutil.SetupTestProject(t, "parallelism: 3\n")

	cmd := &cobra.Command{Use: "probe"}
	cmd.SetContext(t.Context())
	got, err := getConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Parallelism)
	assert.Equal(t, cfg.ProjectRoot, got.ProjectRoot)
}
