package rules

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/leapstack-labs/leapdq/pkg/core"
)

// Constructor builds a bound rule instance from configuration parameters.
type Constructor func(params map[string]any) (Rule, error)

// Definition describes a registered rule kind for discovery and tooling.
type Definition struct {
	Kind        string
	Description string
	// Defaults lists every parameter the kind accepts with its default value.
	Defaults map[string]any
	New      Constructor
}

// Registry maps rule kind names to constructors. A Registry is owned by the
// engine that uses it; there is no process-wide registry.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]Definition
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Option configures the built-in rule kinds of a default registry.
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock sets the clock used by time-dependent rules (date_validity).
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// NewDefaultRegistry creates a registry holding the built-in rule kinds:
// completeness, uniqueness, date_validity and roi_threshold.
func NewDefaultRegistry(opts ...Option) *Registry {
	o := &options{clock: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	r := NewRegistry()
	for _, def := range builtinDefinitions(o) {
		// Built-in definitions are always valid.
		_ = r.RegisterDefinition(def)
	}
	return r
}

// Register adds or replaces a rule kind. Replacing a kind keeps its original
// position in Kinds().
func (r *Registry) Register(kind string, ctor Constructor) error {
	return r.RegisterDefinition(Definition{Kind: kind, New: ctor})
}

// RegisterDefinition adds or replaces a rule kind with its metadata.
func (r *Registry) RegisterDefinition(def Definition) error {
	if def.Kind == "" {
		return &core.ConfigurationError{Key: "data_quality_rules", Message: "rule kind must not be empty"}
	}
	if def.New == nil {
		return &core.ConfigurationError{Key: "data_quality_rules." + def.Kind, Message: "rule constructor must not be nil"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Kind]; !exists {
		r.order = append(r.order, def.Kind)
	}
	r.defs[def.Kind] = def
	return nil
}

// Create builds a rule of the given kind with its parameters bound.
func (r *Registry) Create(kind string, params map[string]any) (Rule, error) {
	r.mu.RLock()
	def, ok := r.defs[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, &core.ConfigurationError{
			Key: "data_quality_rules." + kind,
			Err: &core.UnknownRuleError{Kind: kind, Available: r.Kinds()},
		}
	}

	rule, err := def.New(params)
	if err != nil {
		var cfgErr *core.ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, &core.ConfigurationError{Key: "data_quality_rules." + kind, Err: err}
	}
	if rule == nil {
		return nil, &core.ConfigurationError{Key: "data_quality_rules." + kind, Message: "constructor returned no rule"}
	}
	return rule, nil
}

// Build creates one rule per spec, in spec order. The first failure aborts.
func (r *Registry) Build(specs []core.RuleSpec) ([]Rule, error) {
	built := make([]Rule, 0, len(specs))
	for _, spec := range specs {
		rule, err := r.Create(spec.Type, spec.Parameters)
		if err != nil {
			return nil, err
		}
		built = append(built, rule)
	}
	return built, nil
}

// Has reports whether a kind is registered.
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[kind]
	return ok
}

// Kinds returns the registered kinds in registration order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Definitions returns the registered definitions in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.order))
	for _, kind := range r.order {
		def := r.defs[kind]
		def.Defaults = maps.Clone(def.Defaults)
		defs = append(defs, def)
	}
	return defs
}

// Position returns the registration index of a kind, or -1.
func (r *Registry) Position(kind string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Index(r.order, kind)
}

// DefaultSpecs returns the rule set used when no rules are configured.
func DefaultSpecs() []core.RuleSpec {
	return []core.RuleSpec{
		{Type: KindCompleteness, Parameters: map[string]any{"missing_threshold": DefaultMissingThreshold}},
		{Type: KindUniqueness, Parameters: map[string]any{"key_columns": slices.Clone(DefaultKeyColumns)}},
		{Type: KindDateValidity, Parameters: map[string]any{
			"date_columns":    slices.Clone(DefaultDateColumns),
			"max_future_days": DefaultMaxFutureDays,
		}},
		{Type: KindROIThreshold, Parameters: map[string]any{
			"roi_column":    DefaultROIColumn,
			"min_threshold": 0.0,
			"max_threshold": 3.0,
		}},
	}
}

func builtinDefinitions(o *options) []Definition {
	return []Definition{
		{
			Kind:        KindCompleteness,
			Description: "Maximum percentage of missing cells in any column stays within a threshold",
			Defaults:    map[string]any{"missing_threshold": DefaultMissingThreshold},
			New: func(params map[string]any) (Rule, error) {
				return newCompletenessFromParams(params)
			},
		},
		{
			Kind:        KindUniqueness,
			Description: "No row repeats an earlier row's key column values",
			Defaults:    map[string]any{"key_columns": slices.Clone(DefaultKeyColumns)},
			New: func(params map[string]any) (Rule, error) {
				return newUniquenessFromParams(params)
			},
		},
		{
			Kind:        KindDateValidity,
			Description: "Date columns parse and fall between 2000-01-01 and a bounded number of days ahead",
			Defaults: map[string]any{
				"date_columns":    slices.Clone(DefaultDateColumns),
				"max_future_days": DefaultMaxFutureDays,
			},
			New: func(params map[string]any) (Rule, error) {
				return newDateValidityFromParams(params, o.clock)
			},
		},
		{
			Kind:        KindROIThreshold,
			Description: "At most 5% of a numeric column's values fall outside inclusive bounds",
			Defaults: map[string]any{
				"roi_column":    DefaultROIColumn,
				"min_threshold": DefaultMinROI,
				"max_threshold": DefaultMaxROI,
			},
			New: func(params map[string]any) (Rule, error) {
				return newROIThresholdFromParams(params)
			},
		},
	}
}

// String implements fmt.Stringer for debugging output.
func (d Definition) String() string {
	return fmt.Sprintf("%s (%d parameters)", d.Kind, len(d.Defaults))
}
