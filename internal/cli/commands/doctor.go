package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapdq/internal/cli/output"
	"github.com/leapstack-labs/leapdq/internal/config"
	"github.com/leapstack-labs/leapdq/internal/state"
	"github.com/leapstack-labs/leapdq/pkg/adapter"
	"github.com/leapstack-labs/leapdq/pkg/core"
	"github.com/leapstack-labs/leapdq/pkg/dataset"
	"github.com/leapstack-labs/leapdq/pkg/rules"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

// Health check statuses.
const (
	HealthPass  = "pass"
	HealthWarn  = "warn"
	HealthError = "error"
)

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	ConfigFile   string        `json:"config_file"`
	ProjectRoot  string        `json:"project_root"`
	HealthChecks []HealthCheck `json:"health_checks"`
	Score        int           `json:"score"`
	IssueCount   int           `json:"issue_count"`
}

// HealthCheck represents a single setup check result.
type HealthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "pass", "warn", "error"
	Message string `json:"message"`
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the leapdq setup",
		Long: `Verify that a data quality run can start: the configuration, the data
source, the adapter connection, the rule set, the columns the rules read,
the state database and the metrics directory.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Check the setup
  leapdq doctor

  # Output as JSON
  leapdq doctor -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}
}

func runDoctor(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return err
	}
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer
	ctx := cmd.Context()

	source := checkSource(cfg)
	checks := []HealthCheck{
		checkConfigFile(cfg),
		source,
		checkAdapter(ctx, cmdCtx),
		checkRules(cmdCtx),
		checkColumns(ctx, cmdCtx, source),
		checkState(cmdCtx),
		checkMetricsDir(cfg),
	}

	out := &DoctorOutput{
		ConfigFile:   cfg.ConfigFile,
		ProjectRoot:  cfg.ProjectRoot,
		HealthChecks: checks,
		Score:        calculateHealthScore(checks),
	}
	for _, c := range checks {
		if c.Status != HealthPass {
			out.IssueCount++
		}
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		return renderDoctorMarkdown(r, out)
	default:
		return renderDoctorText(r, out)
	}
}

func checkConfigFile(cfg *config.Config) HealthCheck {
	c := HealthCheck{Name: "Configuration"}
	if cfg.ConfigFile == "" {
		c.Status = HealthWarn
		c.Message = "No " + config.ConfigFileName + " found, using defaults. Run 'leapdq init' to create one"
		return c
	}
	c.Status = HealthPass
	c.Message = cfg.ConfigFile
	return c
}

func checkSource(cfg *config.Config) HealthCheck {
	c := HealthCheck{Name: "Source"}
	if cfg.Source == "" {
		c.Status = HealthError
		c.Message = "No source configured"
		return c
	}
	if cfg.Adapter.Type != config.AdapterCSV {
		c.Status = HealthPass
		c.Message = cfg.Source + " (resolved by the " + cfg.Adapter.Type + " adapter)"
		return c
	}
	if _, err := os.Stat(cfg.Source); err != nil {
		c.Status = HealthError
		c.Message = fmt.Sprintf("%s: %v", cfg.Source, err)
		return c
	}
	c.Status = HealthPass
	c.Message = cfg.Source
	return c
}

func checkAdapter(ctx context.Context, cmdCtx *CommandContext) HealthCheck {
	cfg := cmdCtx.Cfg
	c := HealthCheck{Name: "Adapter"}
	if cfg.Adapter.Type == config.AdapterCSV {
		c.Status = HealthPass
		c.Message = "csv (built-in reader)"
		return c
	}

	adp, err := adapter.NewAdapter(cfg.Adapter.Core(), cmdCtx.Logger)
	if err != nil {
		c.Status = HealthError
		c.Message = err.Error()
		return c
	}
	if err := adp.Connect(ctx, cfg.Adapter.Core()); err != nil {
		c.Status = HealthError
		c.Message = fmt.Sprintf("%s: failed to connect: %v", cfg.Adapter.Type, err)
		return c
	}
	_ = adp.Close()

	c.Status = HealthPass
	c.Message = cfg.Adapter.Type + " connection ok"
	return c
}

func checkRules(cmdCtx *CommandContext) HealthCheck {
	c := HealthCheck{Name: "Rules"}
	reg, err := newRegistry(cmdCtx.Logger)
	if err != nil {
		c.Status = HealthError
		c.Message = err.Error()
		return c
	}
	specs, err := cmdCtx.Cfg.RuleSpecs(reg)
	if err != nil {
		c.Status = HealthError
		c.Message = err.Error()
		return c
	}
	bound, err := reg.Build(resolveScripts(cmdCtx.Cfg, specs))
	if err != nil {
		c.Status = HealthError
		c.Message = err.Error()
		return c
	}
	if len(bound) == 0 {
		c.Status = HealthWarn
		c.Message = "Every rule is disabled"
		return c
	}

	names := make([]string, len(bound))
	for i, rule := range bound {
		names[i] = rule.Name()
	}
	c.Status = HealthPass
	c.Message = fmt.Sprintf("%d rules: %s", len(bound), strings.Join(names, ", "))
	return c
}

// Rule parameters that name dataset columns.
var columnParams = []string{"key_columns", "date_columns", "roi_column"}

// checkColumns warns when a rule reads a column the source does not have.
// Those rules would still run but report on nothing.
func checkColumns(ctx context.Context, cmdCtx *CommandContext, source HealthCheck) HealthCheck {
	c := HealthCheck{Name: "Columns"}
	if source.Status == HealthError {
		c.Status = HealthWarn
		c.Message = "Skipped, the source is unavailable"
		return c
	}

	reg, err := newRegistry(cmdCtx.Logger)
	if err != nil {
		c.Status = HealthWarn
		c.Message = "Skipped, " + err.Error()
		return c
	}
	specs, err := cmdCtx.Cfg.RuleSpecs(reg)
	if err != nil {
		c.Status = HealthWarn
		c.Message = "Skipped, the rules do not load"
		return c
	}
	wanted := ruleColumns(reg, specs)

	available, err := sourceColumns(ctx, cmdCtx)
	if err != nil {
		c.Status = HealthError
		c.Message = err.Error()
		return c
	}

	var missing []string
	for _, col := range wanted {
		if !slices.Contains(available, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		c.Status = HealthWarn
		c.Message = "Not in the source: " + strings.Join(missing, ", ")
		return c
	}
	c.Status = HealthPass
	c.Message = fmt.Sprintf("%d columns, %d read by rules", len(available), len(wanted))
	return c
}

// ruleColumns returns the distinct column names the rules are configured to
// read, falling back to each kind's defaults.
func ruleColumns(reg *rules.Registry, specs []core.RuleSpec) []string {
	defaults := make(map[string]map[string]any)
	for _, def := range reg.Definitions() {
		defaults[def.Kind] = def.Defaults
	}

	var cols []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name != "" && !slices.Contains(cols, name) {
			cols = append(cols, name)
		}
	}
	for _, spec := range specs {
		for _, key := range columnParams {
			v, ok := spec.Parameters[key]
			if !ok {
				v, ok = defaults[spec.Type][key]
			}
			if !ok {
				continue
			}
			if names, err := cast.ToStringSliceE(v); err == nil {
				for _, name := range names {
					add(name)
				}
			}
		}
	}
	return cols
}

// sourceColumns reads the configured source's column names through the same
// loader a check run uses.
func sourceColumns(ctx context.Context, cmdCtx *CommandContext) ([]string, error) {
	cfg := cmdCtx.Cfg
	if cfg.Adapter.Type == config.AdapterCSV {
		ds, err := dataset.NewCSVLoader(cmdCtx.Logger).Load(ctx, cfg.Source)
		if err != nil {
			return nil, err
		}
		return ds.Columns(), nil
	}

	adp, err := adapter.NewAdapter(cfg.Adapter.Core(), cmdCtx.Logger)
	if err != nil {
		return nil, err
	}
	if err := adp.Connect(ctx, cfg.Adapter.Core()); err != nil {
		return nil, fmt.Errorf("%s: failed to connect: %w", cfg.Adapter.Type, err)
	}
	defer func() { _ = adp.Close() }()

	return dataset.NewSQLLoader(adp, cmdCtx.Logger).Columns(ctx, cfg.Source)
}

func checkState(cmdCtx *CommandContext) HealthCheck {
	path := cmdCtx.Cfg.StatePath
	c := HealthCheck{Name: "State"}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		c.Status = HealthPass
		c.Message = path + " (created on the first check)"
		return c
	}

	store := state.NewSQLiteStore(cmdCtx.Logger)
	if err := store.Open(path); err != nil {
		c.Status = HealthError
		c.Message = err.Error()
		return c
	}
	defer func() { _ = store.Close() }()

	version, err := store.GetMigrationVersion()
	if err != nil {
		c.Status = HealthError
		c.Message = err.Error()
		return c
	}
	c.Status = HealthPass
	c.Message = fmt.Sprintf("%s (schema version %d)", path, version)
	return c
}

func checkMetricsDir(cfg *config.Config) HealthCheck {
	c := HealthCheck{Name: "Metrics"}
	if cfg.MetricsDir == "" {
		c.Status = HealthWarn
		c.Message = "metrics_dir is empty, JSON metrics files are disabled"
		return c
	}
	info, err := os.Stat(cfg.MetricsDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		c.Status = HealthPass
		c.Message = cfg.MetricsDir + " (created on the first check)"
	case err != nil:
		c.Status = HealthError
		c.Message = err.Error()
	case !info.IsDir():
		c.Status = HealthError
		c.Message = cfg.MetricsDir + " is not a directory"
	default:
		c.Status = HealthPass
		c.Message = cfg.MetricsDir
	}
	return c
}

// calculateHealthScore gives full credit to passing checks and half to
// warnings.
func calculateHealthScore(checks []HealthCheck) int {
	if len(checks) == 0 {
		return 100
	}
	points := 0
	for _, c := range checks {
		switch c.Status {
		case HealthPass:
			points += 2
		case HealthWarn:
			points++
		}
	}
	return points * 100 / (2 * len(checks))
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) error {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("leapdq Setup Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	for _, check := range out.HealthChecks {
		status := "success"
		switch check.Status {
		case HealthWarn:
			status = "warning"
		case HealthError:
			status = "error"
		}
		r.StatusLine(check.Name, status, check.Message)
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 100 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")
	return nil
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) error {
	r.Println("# leapdq Setup Report")
	r.Println("")

	r.Println("| Check | Status | Details |")
	r.Println("|-------|--------|---------|")
	for _, check := range out.HealthChecks {
		r.Printf("| %s | %s | %s |\n", check.Name, check.Status, strings.ReplaceAll(check.Message, "|", "\\|"))
	}
	r.Println("")
	r.Printf("**Health Score**: %d/100\n", out.Score)
	return nil
}
