// Package report renders quality verdicts as human-readable reports and
// persists their flat records as JSON files.
package report

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapdq/pkg/core"
)

// TimestampFormat is the timestamp layout used in rendered reports.
const TimestampFormat = "2006-01-02 15:04:05"

// NoMetrics is rendered when no verdict could be produced.
const NoMetrics = "No metrics available"

// Render produces the plain-text report and the structured record of a
// verdict. Every failing result contributes its finding line followed by
// each of its recommendations.
func Render(verdict *core.QualityVerdict, results []core.RuleResult) (string, core.VerdictRecord) {
	if verdict == nil {
		return NoMetrics, core.VerdictRecord{}
	}

	var b strings.Builder
	b.WriteString("\nDATA QUALITY REPORT\n")
	b.WriteString("==================\n")
	fmt.Fprintf(&b, "Run ID: %s\n", verdict.RunID)
	fmt.Fprintf(&b, "Timestamp: %s\n", verdict.Timestamp.Format(TimestampFormat))
	fmt.Fprintf(&b, "Success Rate: %s\n", SuccessLine(verdict))
	fmt.Fprintf(&b, "Status: %s\n", StatusLabel(verdict.Status))

	failed := Failed(results)
	if len(failed) > 0 {
		b.WriteString("\nCritical Issues:\n")
		for _, r := range failed {
			fmt.Fprintf(&b, "• %s\n", r.Summary())
			for _, rec := range r.Recommendations {
				fmt.Fprintf(&b, "  → %s\n", rec)
			}
		}
	}

	return b.String(), verdict.Record()
}

// SuccessLine formats the success rate with the passed fraction, e.g.
// "75.0% (3/4 checks passed)".
func SuccessLine(verdict *core.QualityVerdict) string {
	return fmt.Sprintf("%.1f%% (%d/%d checks passed)", verdict.SuccessRate, verdict.PassedChecks, verdict.TotalChecks)
}

// StatusLabel prefixes a status with its marker, e.g. "⚠️ WARNING".
func StatusLabel(s core.Status) string {
	return s.Emoji() + " " + string(s)
}

// Failed returns the failing results in their original order.
func Failed(results []core.RuleResult) []core.RuleResult {
	var failed []core.RuleResult
	for _, r := range results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	return failed
}
