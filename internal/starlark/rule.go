package starlark

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapdq/pkg/core"
	"github.com/leapstack-labs/leapdq/pkg/rules"
	"go.starlark.net/lib/json"
	"go.starlark.net/lib/math"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

// Kind is the registry key of script rules.
const Kind = "starlark"

// Defaults for script rules.
const (
	DefaultFunction = "check"
	DefaultMaxSteps = 10_000_000
)

// Params configures one script rule.
type Params struct {
	// Script is the path of the .star file.
	Script string `mapstructure:"script"`
	// Name is the rule name reported in results. Defaults to the file stem.
	Name string `mapstructure:"name"`
	// Function is the global called with (table, options).
	Function string `mapstructure:"function"`
	// Options is passed to the function as a frozen dict.
	Options map[string]any `mapstructure:"options"`
	// MaxSteps bounds the work of one evaluation.
	MaxSteps uint64 `mapstructure:"max_steps"`
}

// Outcome is the finding reported by a script.
type Outcome struct {
	Fields  map[string]any
	Message string
	Advice  []string
}

// Details returns the script's details dict.
func (o Outcome) Details() map[string]any { return o.Fields }

// Summary returns the script's summary line, if any.
func (o Outcome) Summary() string { return o.Message }

// Rule evaluates a Starlark check function against the dataset.
type Rule struct {
	name     string
	script   string
	fn       starlark.Callable
	options  starlark.Value
	maxSteps uint64
	pool     *ThreadPool
}

// predeclared are the modules available to every script.
func predeclared() starlark.StringDict {
	return starlark.StringDict{
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
		"math":   math.Module,
		"json":   json.Module,
	}
}

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
}

// NewRule loads and runs the script's top level once, then freezes its
// globals so the check function can be called from concurrent validations.
func NewRule(p Params, pool *ThreadPool) (*Rule, error) {
	if strings.TrimSpace(p.Script) == "" {
		return nil, rules.InvalidParam(Kind, "script", "a script path is required")
	}
	src, err := os.ReadFile(p.Script)
	if err != nil {
		return nil, &core.ConfigurationError{
			Key: "data_quality_rules." + Kind + ".script",
			Err: fmt.Errorf("failed to read script: %w", err),
		}
	}
	return compile(p, src, pool)
}

func compile(p Params, src []byte, pool *ThreadPool) (*Rule, error) {
	if pool == nil {
		pool = NewThreadPool(0, nil)
	}
	if p.Function == "" {
		p.Function = DefaultFunction
	}
	if p.MaxSteps == 0 {
		p.MaxSteps = DefaultMaxSteps
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(p.Script), filepath.Ext(p.Script))
	}

	thread := pool.Get(p.Script)
	thread.SetMaxExecutionSteps(thread.ExecutionSteps() + p.MaxSteps)
	globals, err := starlark.ExecFileOptions(fileOptions, thread, p.Script, src, predeclared())
	if err != nil {
		return nil, &core.ConfigurationError{
			Key: "data_quality_rules." + Kind + ".script",
			Err: fmt.Errorf("failed to load %s: %w", p.Script, scriptError(err)),
		}
	}
	pool.Put(thread)
	globals.Freeze()

	fn, ok := globals[p.Function].(starlark.Callable)
	if !ok {
		return nil, rules.InvalidParam(Kind, "function", "%s does not define a function %q", p.Script, p.Function)
	}

	if p.Options == nil {
		p.Options = map[string]any{}
	}
	options, err := GoToStarlark(p.Options)
	if err != nil {
		return nil, rules.InvalidParam(Kind, "options", "%v", err)
	}
	options.Freeze()

	return &Rule{
		name:     p.Name,
		script:   p.Script,
		fn:       fn,
		options:  options,
		maxSteps: p.MaxSteps,
		pool:     pool,
	}, nil
}

// Name implements rules.Rule.
func (r *Rule) Name() string { return r.name }

// Script returns the script path.
func (r *Rule) Script() string { return r.script }

// Validate calls the check function with the table and the options.
func (r *Rule) Validate(ds core.Dataset) (core.RuleResult, error) {
	table, err := TableToStarlark(ds)
	if err != nil {
		return core.RuleResult{}, fmt.Errorf("failed to expose dataset: %w", err)
	}

	thread := r.pool.Get(r.name)
	thread.SetMaxExecutionSteps(thread.ExecutionSteps() + r.maxSteps)

	value, err := starlark.Call(thread, r.fn, starlark.Tuple{table, r.options}, nil)
	if err != nil {
		return core.RuleResult{}, scriptError(err)
	}
	r.pool.Put(thread)

	outcome, success, score, err := parseResult(value)
	if err != nil {
		return core.RuleResult{}, fmt.Errorf("%s returned an invalid result: %w", r.script, err)
	}
	return core.NewRuleResult(r.name, success, score, outcome, r.Recommendations(outcome)), nil
}

// Recommendations returns the advice listed by the script.
func (r *Rule) Recommendations(outcome core.Outcome) []string {
	o, ok := outcome.(Outcome)
	if !ok {
		return nil
	}
	return slices.Clone(o.Advice)
}

// parseResult reads {success, score, details?, recommendations?, summary?}.
func parseResult(v starlark.Value) (Outcome, bool, float64, error) {
	dict, ok := v.(*starlark.Dict)
	if !ok {
		return Outcome{}, false, 0, fmt.Errorf("expected a dict, got %s", v.Type())
	}

	get := func(key string) (starlark.Value, bool) {
		val, found, _ := dict.Get(starlark.String(key))
		return val, found && val != starlark.None
	}

	successVal, ok := get("success")
	if !ok {
		return Outcome{}, false, 0, errors.New(`missing "success"`)
	}
	success, ok := successVal.(starlark.Bool)
	if !ok {
		return Outcome{}, false, 0, fmt.Errorf(`"success" must be a bool, got %s`, successVal.Type())
	}

	scoreVal, ok := get("score")
	if !ok {
		return Outcome{}, false, 0, errors.New(`missing "score"`)
	}
	score, ok := toFloat(scoreVal)
	if !ok {
		return Outcome{}, false, 0, fmt.Errorf(`"score" must be a number, got %s`, scoreVal.Type())
	}

	outcome := Outcome{Fields: map[string]any{}}

	if detailsVal, ok := get("details"); ok {
		if _, isDict := detailsVal.(*starlark.Dict); !isDict {
			return Outcome{}, false, 0, fmt.Errorf(`"details" must be a dict, got %s`, detailsVal.Type())
		}
		details, err := ToGo(detailsVal)
		if err != nil {
			return Outcome{}, false, 0, fmt.Errorf(`"details": %w`, err)
		}
		outcome.Fields = details.(map[string]any)
	}

	if recsVal, ok := get("recommendations"); ok {
		iterable, isIter := recsVal.(starlark.Iterable)
		if !isIter {
			return Outcome{}, false, 0, fmt.Errorf(`"recommendations" must be a list, got %s`, recsVal.Type())
		}
		iter := iterable.Iterate()
		defer iter.Done()
		var item starlark.Value
		for iter.Next(&item) {
			s, isStr := item.(starlark.String)
			if !isStr {
				return Outcome{}, false, 0, fmt.Errorf(`"recommendations" items must be strings, got %s`, item.Type())
			}
			outcome.Advice = append(outcome.Advice, string(s))
		}
	}

	if summaryVal, ok := get("summary"); ok {
		s, isStr := summaryVal.(starlark.String)
		if !isStr {
			return Outcome{}, false, 0, fmt.Errorf(`"summary" must be a string, got %s`, summaryVal.Type())
		}
		outcome.Message = string(s)
	}

	return outcome, bool(success), score, nil
}

// scriptError keeps the Starlark backtrace in the message.
func scriptError(err error) error {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return errors.New(evalErr.Backtrace())
	}
	return err
}

// Register adds the starlark rule kind to reg. Every script rule built by
// the registry shares one thread pool.
func Register(reg *rules.Registry, logger *slog.Logger) error {
	pool := NewThreadPool(0, logger)
	return reg.RegisterDefinition(rules.Definition{
		Kind:        Kind,
		Description: "Runs a Starlark check(table, options) function returning {success, score, details, recommendations}",
		Defaults: map[string]any{
			"script":    "",
			"name":      "",
			"function":  DefaultFunction,
			"options":   map[string]any{},
			"max_steps": DefaultMaxSteps,
		},
		New: func(params map[string]any) (rules.Rule, error) {
			var p Params
			if err := rules.DecodeParams(Kind, params, &p); err != nil {
				return nil, err
			}
			return NewRule(p, pool)
		},
	})
}
