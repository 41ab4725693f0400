package commands

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapdq/internal/cli/output"
	"github.com/leapstack-labs/leapdq/pkg/rules"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RulesOutput is the JSON output for the rules command.
type RulesOutput struct {
	Rules []RuleInfo `json:"rules"`
	Count int        `json:"count"`
}

// RuleInfo describes one registered rule kind.
type RuleInfo struct {
	Kind        string         `json:"kind"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Defaults    map[string]any `json:"defaults"`
	// Configured is true when the active rule set contains the kind.
	Configured bool `json:"configured"`
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List available data quality rule kinds",
		Long: `List every registered rule kind with its parameter defaults.

Rule kinds are configured in the data_quality_rules section of leapdq.yaml.
Kinds marked as configured are part of the active rule set.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # List rule kinds
  leapdq rules

  # Output as JSON
  leapdq rules -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRules(cmd)
		},
	}
}

func runRules(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	reg, err := newRegistry(cmdCtx.Logger)
	if err != nil {
		return err
	}
	specs, err := cmdCtx.Cfg.RuleSpecs(reg)
	if err != nil {
		return err
	}
	configured := make(map[string]bool, len(specs))
	for _, spec := range specs {
		configured[spec.Type] = true
	}

	out := buildRulesOutput(reg.Definitions(), configured)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		return renderRulesMarkdown(r, out)
	default:
		return renderRulesText(r, out)
	}
}

func buildRulesOutput(defs []rules.Definition, configured map[string]bool) *RulesOutput {
	titleCaser := cases.Title(language.English)
	out := &RulesOutput{Rules: make([]RuleInfo, 0, len(defs))}
	for _, def := range defs {
		out.Rules = append(out.Rules, RuleInfo{
			Kind:        def.Kind,
			Title:       titleCaser.String(strings.ReplaceAll(def.Kind, "_", " ")),
			Description: def.Description,
			Defaults:    def.Defaults,
			Configured:  configured[def.Kind],
		})
	}
	out.Count = len(out.Rules)
	return out
}

// formatDefaults renders parameter defaults as sorted key=value pairs.
func formatDefaults(defaults map[string]any) []string {
	keys := slices.Sorted(maps.Keys(defaults))
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, defaults[k]))
	}
	return pairs
}

func renderRulesText(r *output.Renderer, out *RulesOutput) error {
	styles := r.Styles()

	r.Println(styles.Header1.Render("Data Quality Rules"))
	r.Println("")

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Kind", "Description", "Defaults", "Configured"})
	for _, info := range out.Rules {
		mark := output.IconSkipped
		if info.Configured {
			mark = output.IconSuccess
		}
		t.AppendRow(table.Row{info.Kind, info.Description, strings.Join(formatDefaults(info.Defaults), "\n"), mark})
	}
	r.Println(t.Render())
	r.Println("")
	r.Muted(fmt.Sprintf("%d rule kinds", out.Count))
	return nil
}

func renderRulesMarkdown(r *output.Renderer, out *RulesOutput) error {
	r.Header(1, "Data Quality Rules")

	for _, info := range out.Rules {
		r.Header(2, info.Title)
		r.Println(output.FormatKeyValue("Kind", "`"+info.Kind+"`"))
		r.Println(output.FormatKeyValue("Description", info.Description))
		r.Println(output.FormatKeyValue("Configured", fmt.Sprintf("%t", info.Configured)))
		if len(info.Defaults) > 0 {
			r.Println("- **Defaults:**")
			for _, pair := range formatDefaults(info.Defaults) {
				r.Println("  - `" + pair + "`")
			}
		}
		r.Println("")
	}
	return nil
}
