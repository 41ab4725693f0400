package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapdq/internal/cli/output"
	"github.com/leapstack-labs/leapdq/internal/report"
	"github.com/leapstack-labs/leapdq/internal/state"
	"github.com/leapstack-labs/leapdq/pkg/core"
	"github.com/spf13/cobra"
)

// DefaultHistoryLimit is the number of runs listed by default.
const DefaultHistoryLimit = 20

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
}

// HistoryOutput is the JSON output for the run listing.
type HistoryOutput struct {
	Runs  []core.VerdictRecord `json:"runs"`
	Count int                  `json:"count"`
}

// RunOutput is the JSON output for a single run.
type RunOutput struct {
	core.VerdictRecord
	Results []core.RuleResult `json:"results"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past data quality verdicts",
		Long: `List the verdicts recorded in the state database, most recent first.

Pass a run id to show the rule results of that run.`,
		Example: `  # List the last 20 runs
  leapdq history

  # List every run
  leapdq history --limit 0

  # Show one run
  leapdq history quality_check_20250510_120000_1a2b3c4d`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", DefaultHistoryLimit, "Maximum number of runs to list (0 for all)")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string, opts *HistoryOptions) error {
	cmdCtx, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	// Reading history never creates a state database.
	if _, err := os.Stat(cmdCtx.Cfg.StatePath); errors.Is(err, os.ErrNotExist) {
		if len(args) > 0 {
			return fmt.Errorf("run %s: %w", args[0], state.ErrNotFound)
		}
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(&HistoryOutput{Runs: []core.VerdictRecord{}})
		}
		r.Muted("No runs recorded yet. Run 'leapdq check' first.")
		return nil
	}

	store := state.NewSQLiteStore(cmdCtx.Logger)
	if err := store.Open(cmdCtx.Cfg.StatePath); err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if len(args) > 0 {
		record, err := store.GetVerdict(ctx, args[0])
		if err != nil {
			return fmt.Errorf("run %s: %w", args[0], err)
		}
		results, err := store.ListRuleResults(ctx, args[0])
		if err != nil {
			return err
		}
		return renderRun(r, record, results)
	}

	records, err := store.ListVerdicts(ctx, opts.Limit)
	if err != nil {
		return err
	}
	return renderHistory(r, records)
}

func historyTable(records []core.VerdictRecord) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run ID", "Timestamp", "Success Rate", "Checks", "Status"})
	for _, rec := range records {
		t.AppendRow(table.Row{
			rec.RunID,
			rec.Timestamp,
			fmt.Sprintf("%.1f%%", rec.SuccessRate),
			fmt.Sprintf("%d/%d", rec.PassedChecks, rec.TotalChecks),
			report.StatusLabel(rec.OverallStatus),
		})
	}
	return t
}

func renderHistory(r *output.Renderer, records []core.VerdictRecord) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if records == nil {
			records = []core.VerdictRecord{}
		}
		return r.JSON(&HistoryOutput{Runs: records, Count: len(records)})
	case output.ModeMarkdown:
		r.Header(1, "Run History")
		if len(records) == 0 {
			r.Println("No runs recorded.")
			return nil
		}
		r.Println(historyTable(records).RenderMarkdown())
	default:
		r.Println(r.Styles().Header1.Render("Run History"))
		r.Println("")
		if len(records) == 0 {
			r.Muted("No runs recorded.")
			return nil
		}
		r.Println(historyTable(records).Render())
	}
	return nil
}

func renderRun(r *output.Renderer, record core.VerdictRecord, results []core.RuleResult) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if results == nil {
			results = []core.RuleResult{}
		}
		return r.JSON(&RunOutput{VerdictRecord: record, Results: results})
	case output.ModeMarkdown:
		r.Header(1, "Run "+record.RunID)
		r.Println(output.FormatKeyValue("Timestamp", record.Timestamp))
		r.Println(output.FormatKeyValue("Success Rate", fmt.Sprintf("%.1f%% (%d/%d checks passed)",
			record.SuccessRate, record.PassedChecks, record.TotalChecks)))
		r.Println(output.FormatKeyValue("Status", report.StatusLabel(record.OverallStatus)))
		if len(results) > 0 {
			r.Println("")
			r.Println(report.ResultsTable(results).RenderMarkdown())
		}
	default:
		styles := r.Styles()
		r.Println(styles.Header1.Render("Run " + record.RunID))
		r.Printf("Timestamp:    %s\n", record.Timestamp)
		r.Printf("Success Rate: %.1f%% (%d/%d checks passed)\n", record.SuccessRate, record.PassedChecks, record.TotalChecks)
		r.Printf("Status:       %s\n", styles.Status(record.OverallStatus).Render(report.StatusLabel(record.OverallStatus)))
		if len(results) > 0 {
			r.Println("")
			r.Println(report.ResultsTable(results).Render())
		}
	}
	return nil
}
