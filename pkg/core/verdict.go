package core

import (
	"slices"
	"strings"
	"time"
)

// =============================================================================
// Status
// =============================================================================

// Status is the quality tier of a verdict.
type Status string

// Status tiers, best first.
const (
	StatusPassing  Status = "PASSING"
	StatusWarning  Status = "WARNING"
	StatusCritical Status = "CRITICAL"
)

// Rank orders statuses from best (0) to worst (2). Unknown statuses rank
// below CRITICAL.
func (s Status) Rank() int {
	switch s {
	case StatusPassing:
		return 0
	case StatusWarning:
		return 1
	case StatusCritical:
		return 2
	default:
		return 3
	}
}

// AtLeastAsBadAs reports whether s is the same tier as other or worse.
func (s Status) AtLeastAsBadAs(other Status) bool {
	return s.Rank() >= other.Rank()
}

// Emoji returns the marker used in human-readable output.
func (s Status) Emoji() string {
	switch s {
	case StatusPassing:
		return "✅"
	case StatusWarning:
		return "⚠️"
	case StatusCritical:
		return "🚨"
	default:
		return "?"
	}
}

// ParseStatus converts a string to a Status, case-insensitively.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusPassing:
		return StatusPassing, true
	case StatusWarning:
		return StatusWarning, true
	case StatusCritical:
		return StatusCritical, true
	default:
		return "", false
	}
}

// =============================================================================
// QualityVerdict
// =============================================================================

// QualityVerdict is the aggregated outcome of one validation run. It is
// derived from the rule results and the thresholds and never modified
// afterwards.
type QualityVerdict struct {
	RunID            string
	Timestamp        time.Time
	SuccessRate      float64
	TotalChecks      int
	PassedChecks     int
	FailedChecks     int
	FailingRuleNames []string
	Status           Status
}

// RecordTimeFormat is the textual timestamp form used in records. Records
// are always UTC and the fraction is fixed width, so the text sorts in time
// order.
const RecordTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Record flattens the verdict into its persisted shape.
func (v *QualityVerdict) Record() VerdictRecord {
	failing := slices.Clone(v.FailingRuleNames)
	if failing == nil {
		failing = []string{}
	}
	return VerdictRecord{
		RunID:            v.RunID,
		Timestamp:        v.Timestamp.UTC().Format(RecordTimeFormat),
		SuccessRate:      v.SuccessRate,
		TotalChecks:      v.TotalChecks,
		PassedChecks:     v.PassedChecks,
		FailedChecks:     v.FailedChecks,
		CriticalFailures: failing,
		OverallStatus:    v.Status,
	}
}

// VerdictRecord is the flat, persisted form of a QualityVerdict. One record
// is written per run, keyed by RunID.
type VerdictRecord struct {
	RunID            string   `json:"run_id"`
	Timestamp        string   `json:"timestamp"`
	SuccessRate      float64  `json:"success_rate"`
	TotalChecks      int      `json:"total_checks"`
	PassedChecks     int      `json:"passed_checks"`
	FailedChecks     int      `json:"failed_checks"`
	CriticalFailures []string `json:"critical_failures"`
	OverallStatus    Status   `json:"overall_status"`
}

// Time parses the record timestamp. Any RFC 3339 timestamp is accepted.
func (r VerdictRecord) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, r.Timestamp)
}
