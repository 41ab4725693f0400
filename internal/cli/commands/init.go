package commands

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapdq/internal/cli/output"
	"github.com/leapstack-labs/leapdq/internal/config"
	"github.com/leapstack-labs/leapdq/pkg/core"
	"github.com/leapstack-labs/leapdq/pkg/rules"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// exampleScript is the starlark check shipped with the example project.
const exampleScript = "checks/spend_cap.star"

// projectFile is the shape of a generated leapdq.yaml.
type projectFile struct {
	Source      string                    `yaml:"source"`
	Adapter     projectAdapter            `yaml:"adapter"`
	StatePath   string                    `yaml:"state_path"`
	MetricsDir  string                    `yaml:"metrics_dir"`
	Parallelism int                       `yaml:"parallelism"`
	Rules       map[string]map[string]any `yaml:"data_quality_rules"`
	Alerting    projectAlerting           `yaml:"alerting"`
}

type projectAdapter struct {
	Type string `yaml:"type"`
}

type projectAlerting struct {
	Thresholds core.Thresholds `yaml:"thresholds"`
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new leapdq project",
		Long: `Initialize a leapdq project with a leapdq.yaml configuration file.

The generated configuration enables the built-in rule set with its default
parameters and the default alerting thresholds.

Use --example to also create a sample marketing performance dataset and a
Starlark check that the configuration runs.`,
		Example: `  # Initialize in current directory
  leapdq init

  # Initialize a working example in a new directory
  leapdq init my-checks --example

  # Force overwrite existing config
  leapdq init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeAuto)
			if cfg, ok := config.FromContext(cmd.Context()); ok {
				r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
			}

			return runInit(r, dir, force, example)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&example, "example", false, "Create a sample dataset and Starlark check")

	return cmd
}

func runInit(r *output.Renderer, dir string, force, example bool) error {
	// Create directory if specified and doesn't exist
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Check if config already exists
	configPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileName)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", configPath, err)
	}

	content, err := renderProjectFile(example)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	created := []string{config.ConfigFileName}
	if example {
		if err := copyTemplate("example", dir, force); err != nil {
			return fmt.Errorf("failed to initialize project: %w", err)
		}
		files, err := listTemplateFiles("example")
		if err != nil {
			return err
		}
		created = append(created, files...)
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{"directory": dir, "files": created})
	}

	r.Header(2, "Created")
	for _, f := range created {
		r.StatusLine(f, "success", "")
	}
	r.Println("")
	r.Success("leapdq project initialized!")
	r.Println("")
	r.Println("Next steps:")
	if example {
		r.Println("  leapdq check      Run the checks against the sample dataset")
	} else {
		r.Println("  1. Point 'source' in leapdq.yaml at your dataset")
		r.Println("  2. Run 'leapdq check'")
	}
	r.Println("  leapdq rules      List available rule kinds")
	r.Println("  leapdq history    Show past verdicts")

	return nil
}

// renderProjectFile renders leapdq.yaml with the built-in rule set.
func renderProjectFile(example bool) ([]byte, error) {
	pf := projectFile{
		Source:      config.DefaultSource,
		Adapter:     projectAdapter{Type: config.AdapterCSV},
		StatePath:   config.DefaultStateFile,
		MetricsDir:  config.DefaultMetricsDir,
		Parallelism: 1,
		Rules:       make(map[string]map[string]any),
		Alerting:    projectAlerting{Thresholds: core.DefaultThresholds()},
	}
	for _, spec := range rules.DefaultSpecs() {
		pf.Rules[spec.Type] = spec.Parameters
	}
	if example {
		pf.Rules["spend_cap"] = map[string]any{
			"type":    "starlark",
			"script":  exampleScript,
			"options": map[string]any{"max_spend": 250},
		}
	}

	var buf bytes.Buffer
	buf.WriteString("# leapdq data quality configuration\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(pf); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", config.ConfigFileName, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", config.ConfigFileName, err)
	}
	return buf.Bytes(), nil
}
