package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapdq/pkg/core"

	_ "modernc.org/sqlite" // sqlite driver
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite state store instance.
// If logger is nil, a discard logger is used.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens the database at path, creating parent directories, and runs
// the migrations. Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A second connection to ":memory:" would see a different database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path

	if err := s.Migrate(); err != nil {
		_ = db.Close()
		s.db = nil
		return err
	}

	s.logger.Debug("state store opened", slog.String("path", path))
	return nil
}

// Path returns the path the store was opened with.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveVerdict inserts or replaces a verdict record.
func (s *SQLiteStore) SaveVerdict(ctx context.Context, record core.VerdictRecord) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if record.RunID == "" {
		return fmt.Errorf("verdict record has no run id")
	}

	failures := record.CriticalFailures
	if failures == nil {
		failures = []string{}
	}
	failuresJSON, err := json.Marshal(failures)
	if err != nil {
		return fmt.Errorf("failed to encode critical failures: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO quality_verdicts
			(run_id, timestamp, success_rate, total_checks, passed_checks, failed_checks, critical_failures, overall_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RunID, record.Timestamp, record.SuccessRate, record.TotalChecks,
		record.PassedChecks, record.FailedChecks, string(failuresJSON), string(record.OverallStatus),
	)
	if err != nil {
		return fmt.Errorf("failed to save verdict: %w", err)
	}
	return nil
}

// GetVerdict returns the record for runID.
func (s *SQLiteStore) GetVerdict(ctx context.Context, runID string) (core.VerdictRecord, error) {
	if s.db == nil {
		return core.VerdictRecord{}, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, timestamp, success_rate, total_checks, passed_checks, failed_checks, critical_failures, overall_status
		FROM quality_verdicts WHERE run_id = ?`, runID)

	record, err := scanVerdict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.VerdictRecord{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return core.VerdictRecord{}, fmt.Errorf("failed to get verdict: %w", err)
	}
	return record, nil
}

// ListVerdicts returns the most recent records first.
func (s *SQLiteStore) ListVerdicts(ctx context.Context, limit int) ([]core.VerdictRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, timestamp, success_rate, total_checks, passed_checks, failed_checks, critical_failures, overall_status
		FROM quality_verdicts
		ORDER BY timestamp DESC, run_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list verdicts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []core.VerdictRecord
	for rows.Next() {
		record, err := scanVerdict(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating verdicts: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVerdict(row scanner) (core.VerdictRecord, error) {
	var (
		record   core.VerdictRecord
		failures string
		status   string
	)
	if err := row.Scan(&record.RunID, &record.Timestamp, &record.SuccessRate, &record.TotalChecks,
		&record.PassedChecks, &record.FailedChecks, &failures, &status); err != nil {
		return core.VerdictRecord{}, err
	}
	if err := json.Unmarshal([]byte(failures), &record.CriticalFailures); err != nil {
		return core.VerdictRecord{}, fmt.Errorf("invalid critical_failures for %s: %w", record.RunID, err)
	}
	if record.CriticalFailures == nil {
		record.CriticalFailures = []string{}
	}
	record.OverallStatus = core.Status(status)
	return record, nil
}

// SaveRuleResults replaces the stored results of runID in one transaction.
func (s *SQLiteStore) SaveRuleResults(ctx context.Context, runID string, results []core.RuleResult) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rule_results WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to clear rule results: %w", err)
	}

	for i, r := range results {
		details, err := json.Marshal(r.Details)
		if err != nil {
			return fmt.Errorf("failed to encode details of %s: %w", r.RuleName, err)
		}
		recs, err := json.Marshal(r.Recommendations)
		if err != nil {
			return fmt.Errorf("failed to encode recommendations of %s: %w", r.RuleName, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO rule_results (run_id, position, rule_name, success, score, details, recommendations)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, i, r.RuleName, r.Success, r.Score, string(details), string(recs),
		)
		if err != nil {
			return fmt.Errorf("failed to save result of %s: %w", r.RuleName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rule results: %w", err)
	}
	return nil
}

// ListRuleResults returns the results of runID in rule order. The typed
// outcome is not persisted; Details carries the finding.
func (s *SQLiteStore) ListRuleResults(ctx context.Context, runID string) ([]core.RuleResult, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_name, success, score, details, recommendations
		FROM rule_results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rule results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []core.RuleResult
	for rows.Next() {
		var (
			r       core.RuleResult
			details string
			recs    string
		)
		if err := rows.Scan(&r.RuleName, &r.Success, &r.Score, &details, &recs); err != nil {
			return nil, fmt.Errorf("failed to scan rule result: %w", err)
		}
		if err := json.Unmarshal([]byte(details), &r.Details); err != nil {
			return nil, fmt.Errorf("invalid details for %s: %w", r.RuleName, err)
		}
		if err := json.Unmarshal([]byte(recs), &r.Recommendations); err != nil {
			return nil, fmt.Errorf("invalid recommendations for %s: %w", r.RuleName, err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rule results: %w", err)
	}
	return results, nil
}
