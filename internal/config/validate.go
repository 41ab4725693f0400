package config

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapdq/pkg/adapter"
	"github.com/leapstack-labs/leapdq/pkg/core"
	"github.com/leapstack-labs/leapdq/pkg/rules"
	"github.com/spf13/cast"
)

// Validate checks thresholds, output settings, parallelism and the adapter
// type.
func (c *Config) Validate() error {
	if err := c.Alerting.Thresholds.Validate(); err != nil {
		return err
	}

	switch c.OutputFormat {
	case OutputAuto, OutputText, OutputMarkdown, OutputJSON:
	default:
		return &core.ConfigurationError{
			Key:     "output",
			Message: fmt.Sprintf("invalid output format %q (valid: auto, text, markdown, json)", c.OutputFormat),
		}
	}

	if _, err := c.Level(); err != nil {
		return &core.ConfigurationError{Key: "log_level", Err: err}
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return &core.ConfigurationError{
			Key:     "log_format",
			Message: fmt.Sprintf("invalid log format %q (valid: text, json)", c.LogFormat),
		}
	}

	if c.Parallelism < 0 {
		return &core.ConfigurationError{
			Key:     "parallelism",
			Message: fmt.Sprintf("must not be negative, got %d", c.Parallelism),
		}
	}

	return c.Adapter.Validate()
}

// Validate checks that the adapter type is csv or a registered adapter.
func (a AdapterConfig) Validate() error {
	if a.Type == "" {
		return &core.ConfigurationError{Key: "adapter.type", Message: "adapter type is required"}
	}
	if a.Type == AdapterCSV || adapter.IsRegistered(a.Type) {
		return nil
	}
	return &core.ConfigurationError{
		Key: "adapter.type",
		Err: &adapter.UnknownAdapterError{
			Type:      a.Type,
			Available: append([]string{AdapterCSV}, adapter.ListAdapters()...),
		},
	}
}

// Level parses LogLevel. Verbose forces debug.
func (c *Config) Level() (slog.Level, error) {
	if c.Verbose {
		return slog.LevelDebug, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (valid: debug, info, warn, error)", c.LogLevel)
	}
	return level, nil
}

// Reserved keys of a data_quality_rules entry.
const (
	ruleKeyType    = "type"
	ruleKeyEnabled = "enabled"
	ruleKeyName    = "name"
)

// RuleSpecs turns data_quality_rules into an ordered rule set.
//
// An entry is keyed by its rule kind, or carries "type" to pick the kind
// (several starlark entries, say); such entries default the "name"
// parameter to the entry key. Entries with "enabled: false" are skipped.
// Registered kinds come first, in registry order, then unknown kinds
// alphabetically so Build reports them. With no entries at all the
// built-in rule set is returned.
func (c *Config) RuleSpecs(reg *rules.Registry) ([]core.RuleSpec, error) {
	if len(c.Rules) == 0 {
		return rules.DefaultSpecs(), nil
	}

	type entry struct {
		key  string
		spec core.RuleSpec
	}

	entries := make([]entry, 0, len(c.Rules))
	for key, raw := range c.Rules {
		params := maps.Clone(raw)
		if params == nil {
			params = map[string]any{}
		}

		if v, ok := params[ruleKeyEnabled]; ok {
			enabled, err := cast.ToBoolE(v)
			if err != nil {
				return nil, &core.ConfigurationError{
					Key:     "data_quality_rules." + key + ".enabled",
					Message: fmt.Sprintf("must be a bool, got %v", v),
				}
			}
			delete(params, ruleKeyEnabled)
			if !enabled {
				continue
			}
		}

		kind := key
		if v, ok := params[ruleKeyType]; ok {
			kind = strings.TrimSpace(cast.ToString(v))
			delete(params, ruleKeyType)
			if kind == "" {
				return nil, &core.ConfigurationError{
					Key:     "data_quality_rules." + key + ".type",
					Message: "must not be empty",
				}
			}
			if kind != key {
				if _, named := params[ruleKeyName]; !named {
					params[ruleKeyName] = key
				}
			}
		}

		entries = append(entries, entry{key: key, spec: core.RuleSpec{Type: kind, Parameters: params}})
	}

	rank := func(kind string) int {
		if pos := reg.Position(kind); pos >= 0 {
			return pos
		}
		return len(reg.Kinds())
	}
	slices.SortFunc(entries, func(a, b entry) int {
		if d := rank(a.spec.Type) - rank(b.spec.Type); d != 0 {
			return d
		}
		if n := strings.Compare(a.spec.Type, b.spec.Type); n != 0 {
			return n
		}
		return strings.Compare(a.key, b.key)
	})

	specs := make([]core.RuleSpec, len(entries))
	for i, e := range entries {
		specs[i] = e.spec
	}
	return specs, nil
}
