// Package config loads leapdq configuration from defaults, leapdq.yaml,
// LEAPDQ_* environment variables and command-line flags.
package config

import (
	"github.com/leapstack-labs/leapdq/pkg/core"
)

// AdapterConfig selects and configures the dataset loader.
type AdapterConfig struct {
	// Type is csv, duckdb or postgres.
	Type string `koanf:"type"`
	// Database is the DuckDB file (empty means in-memory) or the Postgres
	// database name.
	Database string            `koanf:"database"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Schema   string            `koanf:"schema"`
	Options  map[string]string `koanf:"options"`
	Params   map[string]any    `koanf:"params"`
}

// Core converts the adapter section into the connection config handed to
// pkg/adapter implementations.
func (a AdapterConfig) Core() core.AdapterConfig {
	cfg := core.AdapterConfig{
		Type:     a.Type,
		Host:     a.Host,
		Port:     a.Port,
		Database: a.Database,
		Username: a.User,
		Password: a.Password,
		Schema:   a.Schema,
		Options:  a.Options,
		Params:   a.Params,
	}
	if a.Type == AdapterDuckDB {
		cfg.Path = a.Database
	}
	return cfg
}

// AlertingConfig holds the alerting section.
type AlertingConfig struct {
	Thresholds core.Thresholds `koanf:"thresholds"`
}

// Config holds all leapdq configuration options.
type Config struct {
	// Source is the default dataset: a file path, a table name or a query.
	Source     string        `koanf:"source"`
	Adapter    AdapterConfig `koanf:"adapter"`
	StatePath  string        `koanf:"state_path"`
	MetricsDir string        `koanf:"metrics_dir"`

	OutputFormat string `koanf:"output"`
	LogLevel     string `koanf:"log_level"`
	LogFormat    string `koanf:"log_format"`
	Verbose      bool   `koanf:"verbose"`

	// Parallelism bounds concurrent rule evaluation. 0 and 1 run rules
	// sequentially.
	Parallelism int `koanf:"parallelism"`

	// Rules maps a rule entry name to its parameters. The entry name is the
	// rule kind unless the entry carries a "type" parameter.
	Rules    map[string]map[string]any `koanf:"data_quality_rules"`
	Alerting AlertingConfig            `koanf:"alerting"`

	// ProjectRoot is the directory relative paths were resolved against.
	ProjectRoot string `koanf:"-"`
	// ConfigFile is the config file that was read, empty if none.
	ConfigFile string `koanf:"-"`
}

// Default configuration values.
const (
	ConfigFileName    = "leapdq.yaml"
	ConfigFileNameAlt = "leapdq.yml"

	DefaultStateFile  = ".leapdq/state.db"
	DefaultMetricsDir = "monitoring/metrics"
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultSource     = "data/subset/marketing_performance.csv"

	AdapterCSV      = "csv"
	AdapterDuckDB   = "duckdb"
	AdapterPostgres = "postgres"
)

// Output formats.
const (
	OutputAuto     = "auto"
	OutputText     = "text"
	OutputMarkdown = "markdown"
	OutputJSON     = "json"
)
