package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapdq/internal/config"
	"github.com/leapstack-labs/leapdq/pkg/core"
)

// ConfigField represents a configuration field definition.
type ConfigField struct {
	Name        string
	Type        string
	Default     string
	Description string
	Category    string // "project", "output", "adapter", "alerting"
}

// getConfigSchema returns the configuration schema definition.
// It mirrors internal/config/types.go.
func getConfigSchema() []ConfigField {
	th := core.DefaultThresholds()
	return []ConfigField{
		{Name: "source", Type: "string", Default: config.DefaultSource, Description: "Dataset checked when no source argument is given: a CSV path, a table name or a query", Category: "project"},
		{Name: "state_path", Type: "string", Default: config.DefaultStateFile, Description: "SQLite database that records every verdict", Category: "project"},
		{Name: "metrics_dir", Type: "string", Default: config.DefaultMetricsDir, Description: "Directory for per-run JSON metrics files, empty to disable", Category: "project"},
		{Name: "parallelism", Type: "int", Default: "1", Description: "Number of rules evaluated concurrently", Category: "project"},

		{Name: "output", Type: "string", Default: config.DefaultOutput, Description: "Output format: auto, text, markdown or json", Category: "output"},
		{Name: "log_level", Type: "string", Default: config.DefaultLogLevel, Description: "Log level: debug, info, warn or error", Category: "output"},
		{Name: "log_format", Type: "string", Default: config.DefaultLogFormat, Description: "Log format: text or json", Category: "output"},
		{Name: "verbose", Type: "bool", Default: "false", Description: "Force debug logging", Category: "output"},

		{Name: "type", Type: "string", Default: config.AdapterCSV, Description: "Dataset loader: csv, duckdb or postgres", Category: "adapter"},
		{Name: "database", Type: "string", Description: "DuckDB file (empty for in-memory) or Postgres database name", Category: "adapter"},
		{Name: "host", Type: "string", Description: "Postgres host", Category: "adapter"},
		{Name: "port", Type: "int", Default: "5432", Description: "Postgres port", Category: "adapter"},
		{Name: "user", Type: "string", Description: "Postgres username", Category: "adapter"},
		{Name: "password", Type: "string", Description: "Postgres password, ${VAR} references are expanded", Category: "adapter"},
		{Name: "schema", Type: "string", Description: "Default schema (main for DuckDB, public for Postgres)", Category: "adapter"},
		{Name: "options", Type: "map[string]string", Description: "Additional driver-specific options", Category: "adapter"},
		{Name: "params", Type: "map[string]any", Description: "Adapter settings such as DuckDB extensions", Category: "adapter"},

		{Name: "warning", Type: "float", Default: fmt.Sprintf("%g", th.Warning), Description: "Success rate at or above which a run is PASSING", Category: "alerting"},
		{Name: "critical", Type: "float", Default: fmt.Sprintf("%g", th.Critical), Description: "Success rate at or above which a run is WARNING, must not exceed warning", Category: "alerting"},
	}
}

// generateConfigDocs generates the leapdq.yaml reference page.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "LeapDQ configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph(fmt.Sprintf("LeapDQ is configured via %s in your project root. The file is searched upward from the working directory; relative paths resolve against its directory.",
		InlineCode(config.ConfigFileName)))

	fields := getConfigSchema()

	w.Header(2, "Project Settings")
	writeFieldTable(w, fields, "project", "")

	w.Header(2, "Output and Logging")
	writeFieldTable(w, fields, "output", "")

	w.Header(2, "Adapter")
	w.Paragraph("The `adapter` section selects how a source is loaded. CSV sources are read directly; DuckDB and Postgres sources are table names or SELECT queries.")
	writeFieldTable(w, fields, "adapter", "adapter.")
	w.CodeBlock("yaml", `adapter:
  type: postgres
  host: localhost
  user: analytics
  password: ${POSTGRES_PASSWORD}
  database: warehouse`)

	w.Header(2, "Alerting")
	writeFieldTable(w, fields, "alerting", "alerting.thresholds.")

	w.Header(2, "Rules")
	w.Paragraph("`data_quality_rules` maps an entry name to its parameters. The entry name is the rule kind unless the entry sets `type`, which allows several Starlark checks. `enabled: false` skips an entry. Without any entries the built-in rule set runs with its defaults.")
	w.CodeBlock("yaml", `data_quality_rules:
  completeness:
    missing_threshold: 5
  uniqueness:
    key_columns: [record_id, campaign_id, campaign_date]
  spend_cap:
    type: starlark
    script: checks/spend_cap.star
    options:
      max_spend: 250`)

	return os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0600)
}

func writeFieldTable(w *MarkdownWriter, fields []ConfigField, category, prefix string) {
	headers := []string{"Field", "Type", "Default", "Description"}
	var rows [][]string
	for _, f := range fields {
		if f.Category != category {
			continue
		}
		defVal := "-"
		if f.Default != "" {
			defVal = InlineCode(f.Default)
		}
		rows = append(rows, []string{InlineCode(prefix + f.Name), f.Type, defVal, f.Description})
	}
	w.Table(headers, rows)
}
