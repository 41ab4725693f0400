package main

import (
	"testing"

	"github.com/leapstack-labs/leapdq/internal/cli"
	"github.com/leapstack-labs/leapdq/internal/cli/commands"
	"github.com/stretchr/testify/assert"
)

func TestFailOnRows(t *testing.T) {
	assert.Equal(t, []string{"--fail-on", "PASSING", "WARNING", "CRITICAL"}, failOnHeaders())
	assert.Equal(t, [][]string{
		{"`none`", "0", "0", "0"},
		{"`warning`", "0", "1", "1"},
		{"`critical`", "0", "0", "1"},
	}, failOnRows())
}

func TestRenderCommandPage(t *testing.T) {
	t.Run("check documents fail-on exit status", func(t *testing.T) {
		page := string(renderCommandPage(commands.NewCheckCommand()))
		assert.Contains(t, page, "leapdq check [source] [flags]")
		assert.Contains(t, page, "| `--fail-on` | string | `none` |")
		assert.Contains(t, page, "| `warning` | 0 | 1 | 1 |")
		assert.Contains(t, page, "leapdq check --json")
	})

	t.Run("other commands exit 0 or 1", func(t *testing.T) {
		page := string(renderCommandPage(commands.NewDoctorCommand()))
		assert.Contains(t, page, "## Exit Status\n\n0 on success, 1 on any error.")
		assert.NotContains(t, page, "| `none` |")
	})
}

func TestRenderCLIIndex(t *testing.T) {
	root := cli.NewRootCmd()
	page := string(renderCLIIndex(root))

	for _, cmd := range visibleCommands(root) {
		assert.Contains(t, page, "[`"+cmd.Name()+"`](/cli/"+cmd.Name()+")")
	}
	assert.NotContains(t, page, "(/cli/help)")
	assert.Contains(t, page, "`LEAPDQ_ADAPTER__TYPE`")
}

func TestCleanExample(t *testing.T) {
	got := cleanExample("  # Run\n  leapdq check\n\n    indented")
	assert.Equal(t, "# Run\nleapdq check\n\n  indented", got)
}
