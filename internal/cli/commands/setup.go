package commands

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapdq/internal/cli/output"
	"github.com/leapstack-labs/leapdq/internal/config"
	"github.com/leapstack-labs/leapdq/internal/engine"
	"github.com/leapstack-labs/leapdq/internal/starlark"
	"github.com/leapstack-labs/leapdq/pkg/core"
	"github.com/leapstack-labs/leapdq/pkg/rules"
	"github.com/spf13/cobra"

	// Register database adapters
	_ "github.com/leapstack-labs/leapdq/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapdq/pkg/adapters/postgres"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return nil, nil, err
	}

	eng, err := createEngine(cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Engine = eng

	cleanup := func() {
		if err := eng.Close(); err != nil {
			cmdCtx.Logger.Warn("failed to close engine", "error", err)
		}
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't touch the dataset or the state store.
func NewCommandContextWithoutEngine(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}, nil
}

// getConfig returns the config loaded by the root command, or loads it from
// the working directory when the command runs on its own.
func getConfig(cmd *cobra.Command) (*config.Config, error) {
	if cfg, ok := config.FromContext(cmd.Context()); ok {
		return cfg, nil
	}
	return config.Load("", nil)
}

// newRegistry returns the built-in rule kinds plus starlark.
func newRegistry(logger *slog.Logger) (*rules.Registry, error) {
	reg := rules.NewDefaultRegistry()
	if err := starlark.Register(reg, logger); err != nil {
		return nil, fmt.Errorf("failed to register starlark rules: %w", err)
	}
	return reg, nil
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	// Ensure state directory exists
	if cfg.StatePath != "" {
		stateDir := filepath.Dir(cfg.StatePath)
		if stateDir != "." && stateDir != "" {
			if err := os.MkdirAll(stateDir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	reg, err := newRegistry(logger)
	if err != nil {
		return nil, err
	}
	specs, err := cfg.RuleSpecs(reg)
	if err != nil {
		return nil, err
	}
	specs = resolveScripts(cfg, specs)

	engineCfg := engine.Config{
		Adapter:     cfg.Adapter.Core(),
		Registry:    reg,
		Rules:       specs,
		Thresholds:  cfg.Alerting.Thresholds,
		Parallelism: cfg.Parallelism,
		StatePath:   cfg.StatePath,
		MetricsDir:  cfg.MetricsDir,
		Logger:      logger,
	}

	return engine.New(engineCfg)
}

// resolveScripts resolves relative starlark script paths the same way
// sources are resolved.
func resolveScripts(cfg *config.Config, specs []core.RuleSpec) []core.RuleSpec {
	out := make([]core.RuleSpec, len(specs))
	for i, spec := range specs {
		out[i] = spec
		if spec.Type != starlark.Kind {
			continue
		}
		script, ok := spec.Parameters["script"].(string)
		if !ok || script == "" || filepath.IsAbs(script) {
			continue
		}
		params := maps.Clone(spec.Parameters)
		params["script"] = cfg.ResolveSource(script)
		out[i].Parameters = params
	}
	return out
}
