// Package engine wires a data-quality run: it loads the dataset, runs the
// configured rules, aggregates a verdict, renders the report, persists the
// record and notifies the alert observers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/leapdq/internal/alert"
	"github.com/leapstack-labs/leapdq/internal/report"
	"github.com/leapstack-labs/leapdq/internal/starlark"
	"github.com/leapstack-labs/leapdq/internal/state"
	"github.com/leapstack-labs/leapdq/internal/validation"
	"github.com/leapstack-labs/leapdq/pkg/adapter"
	"github.com/leapstack-labs/leapdq/pkg/core"
	"github.com/leapstack-labs/leapdq/pkg/dataset"
	"github.com/leapstack-labs/leapdq/pkg/metrics"
	"github.com/leapstack-labs/leapdq/pkg/rules"
)

// AdapterCSV selects the built-in CSV reader instead of a database adapter.
const AdapterCSV = "csv"

// Engine runs data-quality checks. Rules are bound once in New and reused
// by every Run.
type Engine struct {
	// Database adapter (lazy initialized)
	db          adapter.Adapter
	dbConfig    adapter.Config
	dbConnected bool
	dbMu        sync.Mutex

	logger     *slog.Logger
	registry   *rules.Registry
	validator  *validation.Validator
	aggregator *metrics.Aggregator
	dispatcher *alert.Dispatcher
	store      state.Store
	ownsStore  bool
	metricsDir string
}

// Config holds engine configuration.
type Config struct {
	// Adapter selects the dataset loader: type csv (the default) reads local
	// CSV files, any registered adapter type loads through the database.
	Adapter adapter.Config
	// Loader replaces the loader derived from Adapter (optional).
	Loader validation.Loader
	// Registry holds the rule kinds (optional, the built-in kinds plus
	// starlark if nil). The starlark kind is added when missing.
	Registry *rules.Registry
	// Rules is the rule set in evaluation order (optional, the built-in
	// rule set if nil).
	Rules []core.RuleSpec
	// Thresholds classifies the success rate.
	Thresholds core.Thresholds
	// Parallelism bounds concurrent rule evaluation.
	Parallelism int
	// StatePath is the SQLite verdict history. Empty disables persistence
	// unless Store is set.
	StatePath string
	// Store replaces the SQLite store opened from StatePath (optional). The
	// engine does not close a store it was given.
	Store state.Store
	// MetricsDir receives one JSON record per run. Empty disables the files.
	MetricsDir string
	// Observers are notified after the built-in log and store observers.
	Observers []alert.Observer
	// Clock is used for timestamps and date checks (optional, time.Now).
	Clock func() time.Time
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Result is the outcome of one run.
type Result struct {
	Verdict *core.QualityVerdict
	Results []core.RuleResult
	// Report is the human-readable report.
	Report string
	Record core.VerdictRecord
	// MetricsFile is the written JSON record, empty if none was written.
	MetricsFile string
	// ObserverErrors holds the failures of individual observers.
	ObserverErrors []error
}

// New validates the configuration, binds the rules and opens the state
// store. The database adapter is only connected when Run needs it.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}

	reg := cfg.Registry
	if reg == nil {
		reg = rules.NewDefaultRegistry(rules.WithClock(clock))
	}
	if !reg.Has(starlark.Kind) {
		if err := starlark.Register(reg, logger); err != nil {
			return nil, fmt.Errorf("failed to register starlark rules: %w", err)
		}
	}

	specs := cfg.Rules
	if specs == nil {
		specs = rules.DefaultSpecs()
	}
	bound, err := reg.Build(specs)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		dbConfig:   cfg.Adapter,
		logger:     logger,
		registry:   reg,
		aggregator: metrics.NewAggregator(cfg.Thresholds, metrics.WithClock(clock)),
		dispatcher: alert.NewDispatcher(logger),
		store:      cfg.Store,
		metricsDir: cfg.MetricsDir,
	}
	if e.dbConfig.Type == "" {
		e.dbConfig.Type = AdapterCSV
	}

	loader := cfg.Loader
	if loader == nil {
		loader, err = e.newLoader()
		if err != nil {
			return nil, err
		}
	}

	if e.store == nil && cfg.StatePath != "" {
		store := state.NewSQLiteStore(logger)
		if err := store.Open(cfg.StatePath); err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		e.store = store
		e.ownsStore = true
	}

	e.validator = validation.New(validation.Config{
		Loader:      loader,
		Rules:       bound,
		Parallelism: cfg.Parallelism,
		Logger:      logger,
	})

	e.dispatcher.AddObserver(&alert.LogObserver{Logger: logger})
	if e.store != nil {
		e.dispatcher.AddObserver(&alert.StoreObserver{Store: e.store})
	}
	for _, o := range cfg.Observers {
		e.dispatcher.AddObserver(o)
	}

	logger.Debug("engine initialized",
		"adapter", e.dbConfig.Type,
		"rules", e.validator.Rules(),
		"state", cfg.StatePath)

	return e, nil
}

// newLoader builds the loader for the configured adapter type.
func (e *Engine) newLoader() (validation.Loader, error) {
	if e.dbConfig.Type == AdapterCSV {
		return dataset.NewCSVLoader(e.logger), nil
	}
	if !adapter.IsRegistered(e.dbConfig.Type) {
		return nil, &core.ConfigurationError{
			Key: "adapter.type",
			Err: &adapter.UnknownAdapterError{
				Type:      e.dbConfig.Type,
				Available: append([]string{AdapterCSV}, adapter.ListAdapters()...),
			},
		}
	}
	return validation.LoaderFunc(func(ctx context.Context, source string) (core.Dataset, error) {
		if err := e.ensureDBConnected(ctx); err != nil {
			return nil, err
		}
		return dataset.NewSQLLoader(e.db, e.logger).Load(ctx, source)
	}), nil
}

// ensureDBConnected lazily connects to the database.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	e.logger.Debug("connecting to database", "adapter_type", e.dbConfig.Type)

	db, err := adapter.NewAdapter(e.dbConfig, e.logger)
	if err != nil {
		return fmt.Errorf("failed to create database adapter: %w", err)
	}

	if err := db.Connect(ctx, e.dbConfig); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	e.db = db
	e.dbConnected = true
	return nil
}

// Run checks the dataset at source.
//
// A dataset that cannot be loaded returns a *core.DataLoadError; a run in
// which no rule produced a result returns core.ErrNoResults. Both return no
// Result. Failures to write the metrics file, persist rule results or
// notify observers are logged and never fail the run.
func (e *Engine) Run(ctx context.Context, source string) (*Result, error) {
	e.logger.Info("starting data quality checks", "source", source)

	results, err := e.validator.Run(ctx, source)
	if err != nil {
		return nil, err
	}

	verdict, ok := e.aggregator.Aggregate(results)
	if !ok {
		e.logger.Error("no data quality checks could run", "source", source)
		return nil, core.ErrNoResults
	}

	text, record := report.Render(verdict, results)
	res := &Result{
		Verdict: verdict,
		Results: results,
		Report:  text,
		Record:  record,
	}

	if e.metricsDir != "" {
		path, err := report.WriteJSON(e.metricsDir, record)
		if err != nil {
			e.logger.Warn("failed to write metrics file", "dir", e.metricsDir, "error", err)
		} else {
			res.MetricsFile = path
			e.logger.Info("metrics saved", "path", path)
		}
	}

	if e.store != nil {
		if err := e.store.SaveRuleResults(ctx, verdict.RunID, results); err != nil {
			e.logger.Warn("failed to save rule results", "run_id", verdict.RunID, "error", err)
		}
	}

	res.ObserverErrors = e.dispatcher.Notify(ctx, verdict)
	return res, nil
}

// Rules returns the bound rule names in evaluation order.
func (e *Engine) Rules() []string {
	return e.validator.Rules()
}

// Registry returns the rule registry.
func (e *Engine) Registry() *rules.Registry {
	return e.registry
}

// Store returns the verdict store, nil when persistence is disabled.
func (e *Engine) Store() state.Store {
	return e.store
}

// AddObserver registers an additional alert observer.
func (e *Engine) AddObserver(o alert.Observer) {
	e.dispatcher.AddObserver(o)
}

// History returns up to limit stored verdicts, most recent first.
func (e *Engine) History(ctx context.Context, limit int) ([]core.VerdictRecord, error) {
	if e.store == nil {
		return nil, errors.New("no state store configured")
	}
	return e.store.ListVerdicts(ctx, limit)
}

// Close releases the database connection and the state store.
func (e *Engine) Close() error {
	var errs []error

	e.dbMu.Lock()
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
		e.db = nil
		e.dbConnected = false
	}
	e.dbMu.Unlock()

	if e.store != nil && e.ownsStore {
		if err := e.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close state store: %w", err))
		}
		e.store = nil
	}

	return errors.Join(errs...)
}
