package report

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapdq/pkg/core"
)

// RenderMarkdown renders the verdict as a Markdown document: a summary,
// a table of every rule result, and a section per failing rule.
func RenderMarkdown(verdict *core.QualityVerdict, results []core.RuleResult) string {
	if verdict == nil {
		return NoMetrics + "\n"
	}

	var b strings.Builder
	b.WriteString("# Data Quality Report\n\n")
	fmt.Fprintf(&b, "- **Run ID:** %s\n", verdict.RunID)
	fmt.Fprintf(&b, "- **Timestamp:** %s\n", verdict.Timestamp.Format(TimestampFormat))
	fmt.Fprintf(&b, "- **Success Rate:** %s\n", SuccessLine(verdict))
	fmt.Fprintf(&b, "- **Status:** %s\n", StatusLabel(verdict.Status))

	if len(results) > 0 {
		b.WriteString("\n## Checks\n\n")
		b.WriteString(ResultsTable(results).RenderMarkdown())
		b.WriteString("\n")
	}

	failed := Failed(results)
	if len(failed) > 0 {
		b.WriteString("\n## Critical Issues\n")
		for _, r := range failed {
			fmt.Fprintf(&b, "\n### %s\n\n", r.RuleName)
			fmt.Fprintf(&b, "%s\n", r.Summary())
			if len(r.Recommendations) > 0 {
				b.WriteString("\n")
				for _, rec := range r.Recommendations {
					fmt.Fprintf(&b, "- %s\n", rec)
				}
			}
		}
	}

	return b.String()
}

// ResultsTable builds a table of rule results. Callers choose the output
// form (Render, RenderMarkdown).
func ResultsTable(results []core.RuleResult) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Rule", "Result", "Score", "Finding"})
	for _, r := range results {
		outcome := "PASSED"
		if !r.Success {
			outcome = "FAILED"
		}
		t.AppendRow(table.Row{r.RuleName, outcome, fmt.Sprintf("%.1f", r.Score), r.Summary()})
	}
	return t
}
