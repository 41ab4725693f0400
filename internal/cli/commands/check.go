package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapdq/internal/cli/output"
	"github.com/leapstack-labs/leapdq/internal/engine"
	"github.com/leapstack-labs/leapdq/internal/report"
	"github.com/leapstack-labs/leapdq/pkg/core"
	"github.com/spf13/cobra"
)

// MonitoringFailed is printed when a run produced no verdict.
const MonitoringFailed = "Monitoring failed - check logs for details"

// Values of --fail-on.
const (
	FailOnNone     = "none"
	FailOnWarning  = "warning"
	FailOnCritical = "critical"
)

// CheckOptions holds options for the check command.
type CheckOptions struct {
	FailOn string // none, warning or critical
	JSON   bool   // Output as JSON
}

// CheckOutput is the JSON output of the check command.
type CheckOutput struct {
	core.VerdictRecord
	Results        []core.RuleResult `json:"results"`
	MetricsFile    string            `json:"metrics_file,omitempty"`
	ObserverErrors []string          `json:"observer_errors,omitempty"`
}

// GateError is returned when the verdict reaches the --fail-on tier.
type GateError struct {
	Status core.Status
	FailOn core.Status
}

func (e *GateError) Error() string {
	return fmt.Sprintf("data quality status %s reached the --fail-on threshold (%s)", e.Status, strings.ToLower(string(e.FailOn)))
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check [source]",
		Short: "Run data quality checks against a dataset",
		Long: `Load a dataset, run every configured data quality rule and report a
PASSING, WARNING or CRITICAL verdict.

The source is a CSV file for the csv adapter, or a file, table name or
SELECT query for database adapters. It defaults to the configured source.

Each run is recorded in the state database and, unless metrics_dir is
empty, written to a JSON metrics file.

Output adapts to environment:
  - Terminal: Styled report with the quality score
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable verdict record`,
		Example: `  # Check the configured source
  leapdq check

  # Check a specific file
  leapdq check data/subset/marketing_performance.csv

  # Check a DuckDB table and fail CI on warnings
  leapdq check campaigns --adapter duckdb --fail-on warning

  # Output as JSON
  leapdq check --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.FailOn, "fail-on", FailOnNone, "Exit non-zero when the status is at least: none, warning, critical")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output as JSON")

	_ = cmd.RegisterFlagCompletionFunc("fail-on", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{FailOnNone, FailOnWarning, FailOnCritical}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// parseFailOn returns the status tier that fails the command, or "" for none.
func parseFailOn(s string) (core.Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", FailOnNone:
		return "", nil
	case FailOnWarning:
		return core.StatusWarning, nil
	case FailOnCritical:
		return core.StatusCritical, nil
	default:
		return "", &core.ConfigurationError{
			Key:     "fail-on",
			Message: fmt.Sprintf("invalid value %q (expected none, warning or critical)", s),
		}
	}
}

func runCheck(cmd *cobra.Command, args []string, opts *CheckOptions) error {
	failOn, err := parseFailOn(opts.FailOn)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	r := cmdCtx.Renderer
	if opts.JSON {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeJSON)
	}

	source := cmdCtx.Cfg.Source
	if len(args) > 0 {
		source = cmdCtx.Cfg.ResolveSource(args[0])
	}

	res, err := cmdCtx.Engine.Run(cmd.Context(), source)
	if err != nil {
		if isRunFailure(err) && r.EffectiveMode() != output.ModeJSON {
			r.Println(MonitoringFailed)
		}
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		err = r.JSON(buildCheckOutput(res))
	case output.ModeMarkdown:
		r.Println(report.RenderMarkdown(res.Verdict, res.Results))
		r.Printf("**Quality Score:** %.1f%%\n", res.Verdict.SuccessRate)
	default:
		renderCheckText(r, res)
	}
	if err != nil {
		return err
	}

	if failOn != "" && res.Verdict.Status.AtLeastAsBadAs(failOn) {
		return &GateError{Status: res.Verdict.Status, FailOn: failOn}
	}
	return nil
}

func buildCheckOutput(res *engine.Result) CheckOutput {
	out := CheckOutput{
		VerdictRecord: res.Record,
		Results:       res.Results,
		MetricsFile:   res.MetricsFile,
	}
	for _, err := range res.ObserverErrors {
		out.ObserverErrors = append(out.ObserverErrors, err.Error())
	}
	return out
}

func renderCheckText(r *output.Renderer, res *engine.Result) {
	styles := r.Styles()

	r.Println(res.Report)
	r.Println(report.ResultsTable(res.Results).Render())

	if res.MetricsFile != "" {
		r.Muted("Metrics saved to " + res.MetricsFile)
	}
	for _, err := range res.ObserverErrors {
		r.Warning(err.Error())
	}

	r.Println("")
	score := fmt.Sprintf("Quality Score: %.1f%%", res.Verdict.SuccessRate)
	r.Println(styles.Status(res.Verdict.Status).Render(score))
}

// isRunFailure reports whether err means no verdict was produced.
func isRunFailure(err error) bool {
	var loadErr *core.DataLoadError
	return errors.As(err, &loadErr) || errors.Is(err, core.ErrNoResults)
}
