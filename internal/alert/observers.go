package alert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapdq/pkg/core"
)

// LogObserver writes one structured log line per verdict. CRITICAL logs at
// error level, WARNING at warn, everything else at info.
type LogObserver struct {
	Logger *slog.Logger
}

// Name implements Named.
func (o *LogObserver) Name() string { return "log" }

// HandleAlert implements Observer.
func (o *LogObserver) HandleAlert(ctx context.Context, verdict *core.QualityVerdict) error {
	logger := o.Logger
	if logger == nil {
		return nil
	}

	attrs := []any{
		"run_id", verdict.RunID,
		"success_rate", fmt.Sprintf("%.1f", verdict.SuccessRate),
		"failed_checks", verdict.FailedChecks,
		"failing_rules", verdict.FailingRuleNames,
	}

	switch {
	case verdict.FailedChecks == 0:
		logger.InfoContext(ctx, "all data quality checks passed", attrs...)
	case verdict.Status == core.StatusCritical:
		logger.ErrorContext(ctx, "CRITICAL: data quality below acceptable thresholds", attrs...)
	case verdict.Status == core.StatusWarning:
		logger.WarnContext(ctx, "WARNING: data quality issues detected", attrs...)
	default:
		logger.InfoContext(ctx, "data quality checks completed with failures", attrs...)
	}
	return nil
}

// Recorder persists verdict records.
type Recorder interface {
	SaveVerdict(ctx context.Context, record core.VerdictRecord) error
}

// StoreObserver persists every verdict through a Recorder.
type StoreObserver struct {
	Store Recorder
}

// Name implements Named.
func (o *StoreObserver) Name() string { return "store" }

// HandleAlert implements Observer.
func (o *StoreObserver) HandleAlert(ctx context.Context, verdict *core.QualityVerdict) error {
	if o.Store == nil {
		return fmt.Errorf("no verdict store configured")
	}
	if err := o.Store.SaveVerdict(ctx, verdict.Record()); err != nil {
		return fmt.Errorf("failed to save verdict %s: %w", verdict.RunID, err)
	}
	return nil
}
