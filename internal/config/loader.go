package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/leapdq/pkg/core"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "LEAPDQ_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// loggerKey is used to store the logger in a command context.
type loggerKey struct{}

// configKey is used to store the loaded config in a command context.
type configKey struct{}

// pathFlags are flags holding paths. Explicit values are relative to the
// working directory, not to the project root.
var pathFlags = map[string]string{
	"state":       "state_path",
	"metrics-dir": "metrics_dir",
}

// flagKeys maps flag names to config keys where they differ beyond
// kebab-case to snake_case.
var flagKeys = map[string]string{
	"state":   "state_path",
	"adapter": "adapter.type",
	"threads": "parallelism",
}

// skippedFlags are CLI-only flags that never become config keys.
var skippedFlags = map[string]bool{
	"config":  true,
	"help":    true,
	"json":    true,
	"fail-on": true,
	"limit":   true,
	"force":   true,
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// configExistsIn returns the config file in dir, or "".
func configExistsIn(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// FindProjectRoot searches upward from startDir for a leapdq config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) != "" {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Load loads configuration from defaults, the config file, environment
// variables and flags. Precedence (highest to lowest): flags > env vars >
// config file > defaults.
//
// Without an explicit cfgFile the config is searched upward from the
// working directory; its directory becomes the project root. A missing
// config file is not an error: Config.ConfigFile is left empty.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	projectRoot := cwd

	if cfgFile != "" {
		abs, err := filepath.Abs(cfgFile)
		if err != nil {
			return nil, &core.ConfigurationError{Key: "config", Err: err}
		}
		cfgFile = abs
		projectRoot = filepath.Dir(abs)
	} else if root := FindProjectRoot(cwd); root != "" {
		projectRoot = root
		cfgFile = configExistsIn(root)
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaultValues(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, &core.ConfigurationError{
				Key: "config",
				Err: fmt.Errorf("error reading config file %s: %w", cfgFile, err),
			}
		}
	}

	// 3. Environment: LEAPDQ_STATE_PATH -> state_path,
	// LEAPDQ_ALERTING__THRESHOLDS__WARNING -> alerting.thresholds.warning
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Explicitly set flags
	flagPaths := map[string]string{}
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || skippedFlags[f.Name] {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeys[f.Name]; ok {
				key = mapped
			}
			if pathKey, ok := pathFlags[f.Name]; ok {
				if abs, err := filepath.Abs(f.Value.String()); err == nil && f.Value.String() != "" {
					flagPaths[pathKey] = abs
				}
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, &core.ConfigurationError{Key: "config", Err: fmt.Errorf("unable to decode config: %w", err)}
	}

	cfg.ProjectRoot = projectRoot
	cfg.ConfigFile = cfgFile

	cfg.StatePath = resolveFlagOrRoot(flagPaths["state_path"], cfg.StatePath, projectRoot)
	cfg.MetricsDir = resolveFlagOrRoot(flagPaths["metrics_dir"], cfg.MetricsDir, projectRoot)
	cfg.Source = cfg.ResolveSource(cfg.Source)

	ApplyAdapterDefaults(&cfg.Adapter)
	expandAdapterEnvVars(&cfg.Adapter)
	if cfg.Adapter.Type == AdapterDuckDB && cfg.Adapter.Database != "" && cfg.Adapter.Database != ":memory:" {
		cfg.Adapter.Database = resolvePathRelativeTo(cfg.Adapter.Database, projectRoot)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolveFlagOrRoot(flagValue, value, root string) string {
	if flagValue != "" {
		return flagValue
	}
	return resolvePathRelativeTo(value, root)
}

// envKey maps LEAPDQ_SOME_KEY to some_key and a double underscore to a
// nesting level.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// ResolveSource resolves a relative file source against the project root
// when the file exists there. Tables, queries and paths relative to the
// working directory are returned unchanged.
func (c *Config) ResolveSource(source string) string {
	if source == "" || filepath.IsAbs(source) || c.ProjectRoot == "" {
		return source
	}
	if _, err := os.Stat(source); err == nil {
		return source
	}
	candidate := filepath.Join(c.ProjectRoot, source)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return source
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}

// WithConfig returns a context carrying cfg.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config stored by WithConfig.
func FromContext(ctx context.Context) (*Config, bool) {
	if ctx == nil {
		return nil, false
	}
	cfg, ok := ctx.Value(configKey{}).(*Config)
	return cfg, ok && cfg != nil
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})
}

// expandAdapterEnvVars expands environment variables in connection fields.
func expandAdapterEnvVars(a *AdapterConfig) {
	a.Host = expandEnvVars(a.Host)
	a.User = expandEnvVars(a.User)
	a.Password = expandEnvVars(a.Password)
	a.Database = expandEnvVars(a.Database)
	for k, v := range a.Options {
		a.Options[k] = expandEnvVars(v)
	}
}
