package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapdq/pkg/core"
)

// CampaignColumns are the columns of the campaign fixtures.
var CampaignColumns = []string{
	"record_id", "campaign_id", "campaign_date", "ingestion_timestamp", "spend", "return_on_ad_spend",
}

// CampaignCSV is a small, clean marketing performance extract.
const CampaignCSV = `record_id,campaign_id,campaign_date,ingestion_timestamp,spend,return_on_ad_spend
r1,c1,2025-05-01,2025-05-02T08:00:00Z,120.5,1.8
r2,c1,2025-05-02,2025-05-03T08:00:00Z,98.0,2.1
r3,c2,2025-05-01,2025-05-02T08:00:00Z,45.25,0.9
r4,c2,2025-05-02,2025-05-03T08:00:00Z,60.0,1.2
r5,c3,2025-05-03,2025-05-04T08:00:00Z,210.0,2.7
`

// CampaignTable returns CampaignCSV as an in-memory table. Every built-in
// rule passes on it with a clock after 2025-05-03.
func CampaignTable(t testing.TB) *core.Table {
	t.Helper()

	lines := strings.Split(strings.TrimSpace(CampaignCSV), "\n")
	rows := make([][]any, 0, len(lines)-1)
	for _, line := range lines[1:] {
		fields := strings.Split(line, ",")
		row := make([]any, len(fields))
		for i, f := range fields {
			row[i] = f
		}
		rows = append(rows, row)
	}

	table, err := core.NewTable(CampaignColumns, rows)
	if err != nil {
		t.Fatalf("failed to build campaign table: %v", err)
	}
	return table
}

// WriteFile writes content to name inside a fresh temp dir and returns the
// full path.
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}
