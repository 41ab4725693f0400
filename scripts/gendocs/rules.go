package main

import (
	"fmt"
	"log"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/leapstack-labs/leapdq/internal/starlark"
	"github.com/leapstack-labs/leapdq/pkg/rules"
)

// generateRulesDocs generates the rule kind reference page.
func generateRulesDocs(outDir string) error {
	log.Printf("Generating rules docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	reg := rules.NewDefaultRegistry()
	if err := starlark.Register(reg, nil); err != nil {
		return err
	}
	defs := reg.Definitions()

	w := NewMarkdownWriter()
	w.Frontmatter("Rules", "Data quality rule kinds")
	w.GeneratedMarker()

	w.Header(1, "Rules")
	w.Paragraph(fmt.Sprintf("LeapDQ ships **%d rule kinds**. Rules run in the order listed here; a run's success rate is the share of rules that passed.", len(defs)))

	var rows [][]string
	for _, def := range defs {
		rows = append(rows, []string{fmt.Sprintf("[%s](#%s)", InlineCode(def.Kind), def.Kind), cleanDescription(def.Description)})
	}
	w.Table([]string{"Kind", "Description"}, rows)

	for _, def := range defs {
		w.Header(2, def.Kind)
		w.Paragraph(def.Description + ".")
		if len(def.Defaults) == 0 {
			continue
		}
		var params [][]string
		for _, k := range slices.Sorted(maps.Keys(def.Defaults)) {
			params = append(params, []string{InlineCode(k), InlineCode(fmt.Sprintf("%v", def.Defaults[k]))})
		}
		w.Table([]string{"Parameter", "Default"}, params)
	}

	w.Header(2, "Starlark checks")
	w.Paragraph("A Starlark script defines `check(table, options)`. `table` exposes `columns`, `rows`, `len(table)` and `table.column(name)`. The function returns a dict with `success`, `score` and optional `details`, `summary` and `recommendations`.")
	w.CodeBlock("python", `def check(table, options):
    over = [v for v in table.column("spend") if v > options["max_spend"]]
    return {"success": not over, "score": 100.0 * (len(table) - len(over)) / max(len(table), 1)}`)

	return os.WriteFile(filepath.Join(outDir, "index.md"), w.Bytes(), 0600)
}
