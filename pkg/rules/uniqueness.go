package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapdq/pkg/core"
)

// KindUniqueness is the registry name of the uniqueness rule.
const KindUniqueness = "uniqueness"

// DefaultKeyColumns is the default uniqueness key.
var DefaultKeyColumns = []string{"record_id", "campaign_id"}

// UniquenessParams are the configuration parameters of the uniqueness rule.
type UniquenessParams struct {
	KeyColumns []string `mapstructure:"key_columns"`
}

// UniquenessRule fails when any row repeats the key column values of an
// earlier row.
type UniquenessRule struct {
	keyColumns []string
}

// NewUniquenessRule creates a uniqueness rule over the given key columns.
func NewUniquenessRule(keyColumns []string) (*UniquenessRule, error) {
	if len(keyColumns) == 0 {
		return nil, InvalidParam(KindUniqueness, "key_columns", "at least one key column is required")
	}
	for _, col := range keyColumns {
		if strings.TrimSpace(col) == "" {
			return nil, InvalidParam(KindUniqueness, "key_columns", "column names must not be empty")
		}
	}
	return &UniquenessRule{keyColumns: slices.Clone(keyColumns)}, nil
}

func newUniquenessFromParams(params map[string]any) (*UniquenessRule, error) {
	p := UniquenessParams{KeyColumns: slices.Clone(DefaultKeyColumns)}
	if err := DecodeParams(KindUniqueness, params, &p); err != nil {
		return nil, err
	}
	return NewUniquenessRule(p.KeyColumns)
}

// Name implements Rule.
func (r *UniquenessRule) Name() string { return KindUniqueness }

// KeyColumns returns a copy of the key columns.
func (r *UniquenessRule) KeyColumns() []string { return slices.Clone(r.keyColumns) }

// UniquenessOutcome is the finding of a uniqueness evaluation.
type UniquenessOutcome struct {
	DuplicateCount int
	TotalRows      int
	KeyColumns     []string
}

// Details implements core.Outcome.
func (o UniquenessOutcome) Details() map[string]any {
	return map[string]any{
		"duplicate_count": o.DuplicateCount,
		"total_rows":      o.TotalRows,
		"key_columns":     slices.Clone(o.KeyColumns),
	}
}

// Summary implements core.Outcome.
func (o UniquenessOutcome) Summary() string {
	return fmt.Sprintf("Duplicate records: %d found (threshold: 0)", o.DuplicateCount)
}

// Validate implements Rule. A key column absent from the dataset is an
// execution error rather than a finding.
func (r *UniquenessRule) Validate(ds core.Dataset) (core.RuleResult, error) {
	for _, col := range r.keyColumns {
		if !ds.HasColumn(col) {
			return core.RuleResult{}, fmt.Errorf("key column %q not found in dataset", col)
		}
	}

	rows := ds.Len()
	seen := make(map[string]struct{}, rows)
	duplicates := 0
	parts := make([]string, len(r.keyColumns))

	for row := range rows {
		for i, col := range r.keyColumns {
			v, _ := ds.Value(row, col)
			parts[i] = core.KeyString(v)
		}
		key := strings.Join(parts, "\x1f")
		if _, dup := seen[key]; dup {
			duplicates++
			continue
		}
		seen[key] = struct{}{}
	}

	score := 100.0
	if duplicates > 0 {
		score = 100 - float64(duplicates)/float64(rows)*100
	}

	outcome := UniquenessOutcome{DuplicateCount: duplicates, TotalRows: rows, KeyColumns: r.keyColumns}
	return core.NewRuleResult(r.Name(), duplicates == 0, score, outcome, r.Recommendations(outcome)), nil
}

// Recommendations implements Rule.
func (r *UniquenessRule) Recommendations(outcome core.Outcome) []string {
	o, ok := outcome.(UniquenessOutcome)
	if !ok {
		return nil
	}
	if o.DuplicateCount == 0 {
		return []string{}
	}
	return []string{
		"Implement deduplication logic",
		"Review data ingestion process",
	}
}

var _ Rule = (*UniquenessRule)(nil)
