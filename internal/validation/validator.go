// Package validation runs a rule set against a dataset with per-rule
// failure isolation.
package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapdq/pkg/core"
	"github.com/leapstack-labs/leapdq/pkg/rules"
	"golang.org/x/sync/errgroup"
)

// Loader loads a dataset from a source identifier (path, table, query).
type Loader interface {
	Load(ctx context.Context, source string) (core.Dataset, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, source string) (core.Dataset, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, source string) (core.Dataset, error) {
	return f(ctx, source)
}

// Config holds validator configuration.
type Config struct {
	// Loader loads the dataset in Run. Required for Run, unused by Validate.
	Loader Loader
	// Rules are evaluated in order.
	Rules []rules.Rule
	// Parallelism bounds how many rules evaluate at once. Values <= 1 run
	// the rules sequentially.
	Parallelism int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Validator runs rules against datasets.
type Validator struct {
	loader      Loader
	rules       []rules.Rule
	parallelism int
	logger      *slog.Logger
}

// New creates a validator.
func New(cfg Config) *Validator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Validator{
		loader:      cfg.Loader,
		rules:       append([]rules.Rule(nil), cfg.Rules...),
		parallelism: cfg.Parallelism,
		logger:      logger,
	}
}

// Rules returns the configured rule names in evaluation order.
func (v *Validator) Rules() []string {
	names := make([]string, len(v.rules))
	for i, r := range v.rules {
		names[i] = r.Name()
	}
	return names
}

// Run loads the dataset and validates it. A load failure is returned as a
// *core.DataLoadError and no rule runs.
func (v *Validator) Run(ctx context.Context, source string) ([]core.RuleResult, error) {
	if v.loader == nil {
		return nil, &core.DataLoadError{Source: source, Err: errors.New("no dataset loader configured")}
	}

	ds, err := v.loader.Load(ctx, source)
	if err != nil {
		var loadErr *core.DataLoadError
		if errors.As(err, &loadErr) {
			return nil, err
		}
		return nil, &core.DataLoadError{Source: source, Err: err}
	}

	v.logger.Info("loaded dataset", "source", source, "records", ds.Len(), "columns", len(ds.Columns()))

	return v.Validate(ctx, ds)
}

// Validate evaluates every rule against an already loaded dataset. Rules
// that return an error or panic are logged and left out of the results;
// the remaining results keep rule order.
func (v *Validator) Validate(ctx context.Context, ds core.Dataset) ([]core.RuleResult, error) {
	slots := make([]*core.RuleResult, len(v.rules))

	if v.parallelism > 1 && len(v.rules) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(v.parallelism)
		for i, rule := range v.rules {
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slots[i] = v.evaluate(rule, ds)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("validation canceled: %w", err)
		}
	} else {
		for i, rule := range v.rules {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("validation canceled: %w", err)
			}
			slots[i] = v.evaluate(rule, ds)
		}
	}

	results := make([]core.RuleResult, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results, nil
}

// evaluate runs one rule inside the isolation boundary. It returns nil when
// the rule could not produce a result.
func (v *Validator) evaluate(rule rules.Rule, ds core.Dataset) *core.RuleResult {
	result, err := safeValidate(rule, ds)
	if err != nil {
		v.logger.Error("error running rule", "rule", rule.Name(), "error", err)
		return nil
	}

	status := "PASSED"
	if !result.Success {
		status = "FAILED"
	}
	v.logger.Info("rule evaluated",
		"rule", result.RuleName,
		"status", status,
		"score", fmt.Sprintf("%.1f", result.Score))

	return &result
}

func safeValidate(rule rules.Rule, ds core.Dataset) (result core.RuleResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &core.RuleExecutionError{Rule: rule.Name(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	result, err = rule.Validate(ds)
	if err != nil {
		return core.RuleResult{}, &core.RuleExecutionError{Rule: rule.Name(), Err: err}
	}
	return result, nil
}
