// Package state persists quality verdicts and per-rule results in SQLite so
// that runs can be compared over time.
package state

import (
	"context"
	"errors"

	"github.com/leapstack-labs/leapdq/pkg/core"
)

// ErrNotFound is returned when a run id has no stored verdict.
var ErrNotFound = errors.New("verdict not found")

// Store is the persistence collaborator of the engine.
type Store interface {
	// SaveVerdict inserts or replaces the record keyed by its run id.
	SaveVerdict(ctx context.Context, record core.VerdictRecord) error

	// SaveRuleResults replaces the stored rule results of a run.
	SaveRuleResults(ctx context.Context, runID string, results []core.RuleResult) error

	// GetVerdict returns the record of one run or ErrNotFound.
	GetVerdict(ctx context.Context, runID string) (core.VerdictRecord, error)

	// ListVerdicts returns up to limit records, most recent first.
	// A limit <= 0 returns every record.
	ListVerdicts(ctx context.Context, limit int) ([]core.VerdictRecord, error)

	// ListRuleResults returns the stored results of a run in rule order.
	ListRuleResults(ctx context.Context, runID string) ([]core.RuleResult, error)

	Close() error
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
