package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapdq/internal/cli"
	"github.com/leapstack-labs/leapdq/internal/cli/commands"
	"github.com/leapstack-labs/leapdq/pkg/core"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// envVars are the LEAPDQ_ overrides listed on the index page.
var envVars = [][2]string{
	{"LEAPDQ_SOURCE", "Default dataset"},
	{"LEAPDQ_STATE_PATH", "State database path"},
	{"LEAPDQ_METRICS_DIR", "Directory for JSON metrics files"},
	{"LEAPDQ_ADAPTER__TYPE", "Dataset loader: csv, duckdb or postgres"},
	{"LEAPDQ_ALERTING__THRESHOLDS__WARNING", "Success rate below which a run is WARNING"},
	{"LEAPDQ_ALERTING__THRESHOLDS__CRITICAL", "Success rate below which a run is CRITICAL"},
}

// generateCLIDocs writes index.md plus one page per visible command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	pages := map[string][]byte{"index.md": renderCLIIndex(root)}
	for _, cmd := range visibleCommands(root) {
		pages[cmd.Name()+".md"] = renderCommandPage(cmd)
	}

	for name, content := range pages {
		if err := os.WriteFile(filepath.Join(outDir, name), content, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		log.Printf("  Generated %s", name)
	}
	return nil
}

// visibleCommands returns the user-facing subcommands of cmd.
func visibleCommands(cmd *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, sub := range cmd.Commands() {
		if sub.Hidden || sub.Name() == "help" || sub.Name() == "__complete" {
			continue
		}
		out = append(out, sub)
	}
	return out
}

func renderCLIIndex(root *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for LeapDQ")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph("LeapDQ checks datasets against data quality rules, keeps a history of verdicts and diagnoses a project setup.")
	w.CodeBlock("bash", "go install github.com/leapstack-labs/leapdq/cmd/leapdq@latest\nleapdq <command> [options]")

	w.Header(2, "Commands")
	var rows [][]string
	for _, cmd := range visibleCommands(root) {
		rows = append(rows, []string{
			fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name()),
			cleanDescription(cmd.Short),
		})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global Options")
	writeFlagsTable(w, root.PersistentFlags())

	w.Header(2, "Environment Variables")
	w.Paragraph("Every configuration key can be set with a `LEAPDQ_` variable. Nested keys use a double underscore. Flags override the environment, which overrides `leapdq.yaml`.")
	rows = rows[:0]
	for _, v := range envVars {
		rows = append(rows, []string{InlineCode(v[0]), v[1]})
	}
	w.Table([]string{"Variable", "Description"}, rows)

	w.Header(2, "Exit Status")
	w.Paragraph("Commands exit 0 on success and 1 on any error. `check` also exits 1 when the verdict reaches its `--fail-on` tier; see [check](/cli/check).")

	return w.Bytes()
}

func renderCommandPage(cmd *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.Name())
	if cmd.Long != "" {
		w.Paragraph(cmd.Long)
	} else {
		w.Paragraph(cmd.Short)
	}

	w.Header(2, "Usage")
	w.CodeBlock("bash", usageLine(cmd))

	if len(cmd.Aliases) > 0 {
		w.Header(2, "Aliases")
		aliases := make([]string, len(cmd.Aliases))
		for i, alias := range cmd.Aliases {
			aliases[i] = InlineCode(alias)
		}
		w.BulletList(aliases)
	}

	if subs := visibleCommands(cmd); len(subs) > 0 {
		w.Header(2, "Subcommands")
		var rows [][]string
		for _, sub := range subs {
			rows = append(rows, []string{InlineCode(sub.Name()), cleanDescription(sub.Short)})
		}
		w.Table([]string{"Subcommand", "Description"}, rows)
	}

	if cmd.HasLocalFlags() {
		w.Header(2, "Options")
		writeFlagsTable(w, cmd.LocalFlags())
	}
	if cmd.HasInheritedFlags() {
		w.Header(2, "Global Options")
		writeFlagsTable(w, cmd.InheritedFlags())
	}

	w.Header(2, "Exit Status")
	if cmd.Flags().Lookup("fail-on") != nil {
		w.Paragraph("`check` exits 1 without a verdict when the configuration, the source or every rule fails. Otherwise the exit status depends on `--fail-on`:")
		w.Table(failOnHeaders(), failOnRows())
	} else {
		w.Paragraph("0 on success, 1 on any error.")
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", cleanExample(cmd.Example))
	}

	return w.Bytes()
}

// usageLine renders the invocation with the binary name in front.
func usageLine(cmd *cobra.Command) string {
	if cmd.HasAvailableSubCommands() {
		return "leapdq " + cmd.Name() + " <subcommand> [options]"
	}
	line := cmd.UseLine()
	if !strings.HasPrefix(line, "leapdq") {
		line = "leapdq " + line
	}
	return line
}

var verdictTiers = []core.Status{core.StatusPassing, core.StatusWarning, core.StatusCritical}

func failOnHeaders() []string {
	headers := []string{"--fail-on"}
	for _, s := range verdictTiers {
		headers = append(headers, string(s))
	}
	return headers
}

// failOnRows gives the exit status of each --fail-on value for each verdict
// tier. A value that names no tier never fails the command.
func failOnRows() [][]string {
	var rows [][]string
	for _, value := range []string{commands.FailOnNone, commands.FailOnWarning, commands.FailOnCritical} {
		gate, gated := core.ParseStatus(value)
		row := []string{InlineCode(value)}
		for _, s := range verdictTiers {
			code := "0"
			if gated && s.AtLeastAsBadAs(gate) {
				code = "1"
			}
			row = append(row, code)
		}
		rows = append(rows, row)
	}
	return rows
}

// writeFlagsTable lists the visible flags of a set.
func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name := InlineCode("--" + f.Name)
		if f.Shorthand != "" {
			name = InlineCode("-"+f.Shorthand) + ", " + name
		}
		def := f.DefValue
		if def != "" && f.Value.Type() == "string" {
			def = InlineCode(def)
		}
		rows = append(rows, []string{name, f.Value.Type(), def, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Option", "Type", "Default", "Description"}, rows)
}

// cleanExample strips the indentation shared by every non-blank line.
func cleanExample(example string) string {
	lines := strings.Split(example, "\n")
	indent := -1
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		if n := len(line) - len(trimmed); indent < 0 || n < indent {
			indent = n
		}
	}
	for i, line := range lines {
		if len(line) >= indent && indent > 0 {
			lines[i] = line[indent:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
