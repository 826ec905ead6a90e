package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quantumflow/agentflow/internal/models"
)

// SQLiteAuditLogger implements decision audit logging using SQLite
type SQLiteAuditLogger struct {
	db *sql.DB
}

// NewSQLiteAuditLogger creates a new SQLite audit logger
func NewSQLiteAuditLogger(dbPath string) (*SQLiteAuditLogger, error) {
	if strings.HasPrefix(dbPath, "~/") {
		home, _ := os.UserHomeDir()
		dbPath = filepath.Join(home, dbPath[2:])
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer; a single connection also keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	logger := &SQLiteAuditLogger{db: db}

	if err := logger.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return logger, nil
}

// initSchema creates the decision audit table
func (a *SQLiteAuditLogger) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS decision_audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		session_id TEXT NOT NULL,
		user_id TEXT,
		strategy TEXT NOT NULL,
		action TEXT,
		confidence REAL,
		quality TEXT,
		stage TEXT,
		sentiment TEXT,
		escalation_needed BOOLEAN,
		rounds INTEGER,
		tool_calls INTEGER,
		duration_ms INTEGER,
		success BOOLEAN,
		failure_reason TEXT,
		error TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON decision_audit(timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_strategy ON decision_audit(strategy);
	CREATE INDEX IF NOT EXISTS idx_audit_session ON decision_audit(session_id);
	`

	_, err := a.db.Exec(schema)
	return err
}

// LogTurn records one turn, successful or not
func (a *SQLiteAuditLogger) LogTurn(ctx context.Context, record *models.TurnRecord) error {
	query := `
		INSERT INTO decision_audit (
			timestamp, session_id, user_id, strategy, action, confidence, quality,
			stage, sentiment, escalation_needed, rounds, tool_calls, duration_ms,
			success, failure_reason, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	entry := entryFromRecord(record)
	_, err := a.db.ExecContext(ctx, query,
		entry.Timestamp.UTC(),
		entry.SessionID,
		entry.UserID,
		entry.Strategy,
		entry.Action,
		entry.Confidence,
		entry.Quality,
		entry.Stage,
		entry.Sentiment,
		entry.EscalationNeeded,
		entry.Rounds,
		entry.ToolCalls,
		entry.Duration.Milliseconds(),
		entry.Success,
		entry.FailureReason,
		entry.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

func entryFromRecord(record *models.TurnRecord) *AuditEntry {
	entry := &AuditEntry{
		Timestamp:     record.Timestamp,
		SessionID:     record.SessionID,
		UserID:        record.UserID,
		Strategy:      record.StrategyName,
		Rounds:        record.Rounds,
		ToolCalls:     len(record.ToolCalls),
		Duration:      record.Latency,
		Success:       record.Succeeded(),
		FailureReason: record.FailureReason,
		Error:         record.Error,
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if r := record.Response; r != nil {
		entry.Action = string(r.ActionTaken)
		entry.Confidence = r.Confidence
		entry.Quality = string(r.Meta.Quality)
		entry.Stage = r.Meta.Stage
		entry.Sentiment = r.Meta.Sentiment
		entry.EscalationNeeded = r.Meta.EscalationNeeded
	}
	return entry
}

// Query retrieves audit entries, newest first
func (a *SQLiteAuditLogger) Query(ctx context.Context, filter *AuditFilter) ([]*AuditEntry, error) {
	query := `SELECT id, timestamp, session_id, user_id, strategy, action, confidence, quality,
		stage, sentiment, escalation_needed, rounds, tool_calls, duration_ms, success,
		failure_reason, error FROM decision_audit WHERE 1=1`
	args := []interface{}{}

	if filter == nil {
		filter = &AuditFilter{}
	}

	if filter.SessionID != nil {
		query += " AND session_id = ?"
		args = append(args, *filter.SessionID)
	}

	if filter.Strategy != nil {
		query += " AND strategy = ?"
		args = append(args, *filter.Strategy)
	}

	if filter.StartTime != nil {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartTime.UTC())
	}

	if filter.EndTime != nil {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndTime.UTC())
	}

	if filter.Success != nil {
		query += " AND success = ?"
		args = append(args, *filter.Success)
	}

	query += " ORDER BY timestamp DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		var entry AuditEntry
		var durationMs int64
		var userID, action, quality, stage, sentiment, reason, errText sql.NullString

		err := rows.Scan(
			&entry.ID,
			&entry.Timestamp,
			&entry.SessionID,
			&userID,
			&entry.Strategy,
			&action,
			&entry.Confidence,
			&quality,
			&stage,
			&sentiment,
			&entry.EscalationNeeded,
			&entry.Rounds,
			&entry.ToolCalls,
			&durationMs,
			&entry.Success,
			&reason,
			&errText,
		)
		if err != nil {
			return nil, err
		}

		entry.UserID = userID.String
		entry.Action = action.String
		entry.Quality = quality.String
		entry.Stage = stage.String
		entry.Sentiment = sentiment.String
		entry.FailureReason = reason.String
		entry.Error = errText.String
		entry.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// Summary aggregates the audit entries of a strategy since the given time
func (a *SQLiteAuditLogger) Summary(ctx context.Context, strategy string, since time.Time) (*AuditSummary, error) {
	query := `
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0) as failed,
			COALESCE(SUM(CASE WHEN escalation_needed = 1 THEN 1 ELSE 0 END), 0) as escalations,
			AVG(CASE WHEN success = 1 THEN confidence END) as avg_confidence,
			AVG(duration_ms) as avg_duration_ms
		FROM decision_audit
		WHERE strategy = ? AND timestamp >= ?
	`

	summary := &AuditSummary{
		Strategy:     strategy,
		QualityTiers: make(map[string]int),
		Actions:      make(map[string]int),
	}
	var avgConfidence, avgDuration sql.NullFloat64

	err := a.db.QueryRowContext(ctx, query, strategy, since.UTC()).Scan(
		&summary.TotalTurns,
		&summary.FailedTurns,
		&summary.Escalations,
		&avgConfidence,
		&avgDuration,
	)
	if err != nil {
		return nil, err
	}

	if avgConfidence.Valid {
		summary.AverageConfidence = avgConfidence.Float64
	}
	if avgDuration.Valid {
		summary.AverageDuration = time.Duration(avgDuration.Float64) * time.Millisecond
	}
	if summary.TotalTurns > 0 {
		summary.ErrorRate = float64(summary.FailedTurns) / float64(summary.TotalTurns)
	}

	if err := a.countBy(ctx, "quality", strategy, since, summary.QualityTiers); err != nil {
		return nil, err
	}
	if err := a.countBy(ctx, "action", strategy, since, summary.Actions); err != nil {
		return nil, err
	}

	return summary, nil
}

// countBy fills out with per-value counts of a column for successful turns
func (a *SQLiteAuditLogger) countBy(ctx context.Context, column, strategy string, since time.Time, out map[string]int) error {
	query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM decision_audit
		WHERE strategy = ? AND timestamp >= ? AND success = 1
		GROUP BY %s`, column, column)

	rows, err := a.db.QueryContext(ctx, query, strategy, since.UTC())
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key sql.NullString
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		out[key.String] = n
	}
	return rows.Err()
}

// Close closes the database connection
func (a *SQLiteAuditLogger) Close() error {
	return a.db.Close()
}
