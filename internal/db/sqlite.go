package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)
)

// schema for the run history layer. Version is tracked in the
// schema_versions table.
var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_versions (
    version     INTEGER PRIMARY KEY,
    applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS runs (
    id                   TEXT PRIMARY KEY,
    alert_id             TEXT NOT NULL,
    alert_type           TEXT NOT NULL DEFAULT '',
    alert_summary        TEXT NOT NULL DEFAULT '',
    alert_details        TEXT NOT NULL DEFAULT '',
    alert_metadata       TEXT NOT NULL DEFAULT '{}',
    context              TEXT NOT NULL DEFAULT '',
    tier                 INTEGER NOT NULL DEFAULT 1,
    plan_source          TEXT NOT NULL DEFAULT '',
    recommendation_text  TEXT NOT NULL DEFAULT '',
    similar_incidents    TEXT NOT NULL DEFAULT '[]',
    completed_tasks      TEXT NOT NULL DEFAULT '[]',
    knowledge            TEXT NOT NULL DEFAULT '',
    created_at           DATETIME NOT NULL,
    finished_at          DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_alert_id   ON runs(alert_id);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);

CREATE TABLE IF NOT EXISTS run_steps (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    step_index      INTEGER NOT NULL,
    description     TEXT NOT NULL,
    status          TEXT NOT NULL,
    tool_used       TEXT NOT NULL DEFAULT 'none',
    result_summary  TEXT NOT NULL DEFAULT '',
    started_at      DATETIME,
    finished_at     DATETIME
);
CREATE INDEX IF NOT EXISTS idx_run_steps_run ON run_steps(run_id, step_index ASC);

CREATE TABLE IF NOT EXISTS run_reflections (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    step_index  INTEGER NOT NULL,
    text        TEXT NOT NULL,
    timestamp   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_run_reflections_run ON run_reflections(run_id, step_index ASC);

CREATE TABLE IF NOT EXISTS audit_events (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    correlation_id  TEXT NOT NULL DEFAULT '',
    event_type      TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    alert_id        TEXT NOT NULL DEFAULT '',
    result          TEXT NOT NULL DEFAULT '',
    metadata        TEXT NOT NULL DEFAULT '{}',
    timestamp       DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_audit_alert_id  ON audit_events(alert_id);
CREATE INDEX IF NOT EXISTS idx_audit_event_type ON audit_events(event_type);
`,
	},
}

// sqliteStore is the SQLite-backed implementation of Store.
type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path and
// runs all pending schema migrations. Pass ":memory:" for an in-memory store.
func NewSQLiteStore(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// Enable WAL mode for better concurrency and performance.
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	// Enable foreign-key constraints.
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &sqliteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate applies any unapplied migrations in order.
func (s *sqliteStore) migrate() error {
	// Ensure schema_versions table exists before reading from it.
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
        version    INTEGER PRIMARY KEY,
        applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_versions WHERE version = ?`, m.version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if count > 0 {
			continue // already applied
		}

		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}

		if _, err := s.db.Exec(`INSERT INTO schema_versions(version) VALUES(?)`, m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

func (s *sqliteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// ─── Runs ─────────────────────────────────────────────────────────────────────

func (s *sqliteStore) SaveRun(ctx context.Context, rec *RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO runs(id, alert_id, alert_type, alert_summary, alert_details, alert_metadata,
                         context, tier, plan_source, recommendation_text, similar_incidents,
                         completed_tasks, knowledge, created_at, finished_at)
        VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET
            tier                = excluded.tier,
            recommendation_text = excluded.recommendation_text,
            similar_incidents   = excluded.similar_incidents,
            completed_tasks     = excluded.completed_tasks,
            knowledge           = excluded.knowledge,
            finished_at         = excluded.finished_at
    `,
		rec.ID, rec.AlertID, rec.AlertType, rec.AlertSummary, rec.AlertDetails, rec.AlertMetadata,
		rec.Context, rec.Tier, rec.PlanSource, rec.RecommendationText, rec.SimilarIncidents,
		rec.CompletedTasks, rec.Knowledge, rec.CreatedAt.UTC(), rec.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_steps WHERE run_id=?`, rec.ID); err != nil {
		return fmt.Errorf("delete steps: %w", err)
	}
	for _, st := range rec.Steps {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO run_steps(run_id, step_index, description, status, tool_used, result_summary, started_at, finished_at)
            VALUES(?,?,?,?,?,?,?,?)
        `, rec.ID, st.StepIndex, st.Description, st.Status, st.ToolUsed, st.ResultSummary,
			st.StartedAt.UTC(), st.FinishedAt.UTC())
		if err != nil {
			return fmt.Errorf("insert step: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_reflections WHERE run_id=?`, rec.ID); err != nil {
		return fmt.Errorf("delete reflections: %w", err)
	}
	for _, r := range rec.Reflections {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO run_reflections(run_id, step_index, text, timestamp)
            VALUES(?,?,?,?)
        `, rec.ID, r.StepIndex, r.Text, r.Timestamp.UTC())
		if err != nil {
			return fmt.Errorf("insert reflection: %w", err)
		}
	}

	return tx.Commit()
}

func (s *sqliteStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, alert_id, alert_type, alert_summary, alert_details, alert_metadata,
               context, tier, plan_source, recommendation_text, similar_incidents,
               completed_tasks, knowledge, created_at, finished_at
        FROM runs WHERE id=?`, id)
	rec, err := scanRun(row)
	if err != nil {
		return nil, err
	}

	sRows, err := s.db.QueryContext(ctx, `
        SELECT id, step_index, description, status, tool_used, result_summary, started_at, finished_at
        FROM run_steps WHERE run_id=? ORDER BY step_index ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer sRows.Close()
	for sRows.Next() {
		var st RunStepRecord
		var startedAt, finishedAt string
		st.RunID = id
		if err := sRows.Scan(&st.ID, &st.StepIndex, &st.Description, &st.Status, &st.ToolUsed, &st.ResultSummary, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		st.StartedAt, _ = parseTime(startedAt)
		st.FinishedAt, _ = parseTime(finishedAt)
		rec.Steps = append(rec.Steps, st)
	}

	rRows, err := s.db.QueryContext(ctx, `
        SELECT id, step_index, text, timestamp
        FROM run_reflections WHERE run_id=? ORDER BY step_index ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query reflections: %w", err)
	}
	defer rRows.Close()
	for rRows.Next() {
		var r ReflectionRecord
		var ts string
		r.RunID = id
		if err := rRows.Scan(&r.ID, &r.StepIndex, &r.Text, &ts); err != nil {
			return nil, err
		}
		r.Timestamp, _ = parseTime(ts)
		rec.Reflections = append(rec.Reflections, r)
	}

	return rec, nil
}

func (s *sqliteStore) ListRuns(ctx context.Context, limit, offset int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, alert_id, alert_type, alert_summary, alert_details, alert_metadata,
               context, tier, plan_source, recommendation_text, similar_incidents,
               completed_tasks, knowledge, created_at, finished_at
        FROM runs ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (s *sqliteStore) DeleteRun(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id=?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	rec := &RunRecord{}
	var createdAt, finishedAt string
	err := row.Scan(&rec.ID, &rec.AlertID, &rec.AlertType, &rec.AlertSummary, &rec.AlertDetails,
		&rec.AlertMetadata, &rec.Context, &rec.Tier, &rec.PlanSource, &rec.RecommendationText,
		&rec.SimilarIncidents, &rec.CompletedTasks, &rec.Knowledge, &createdAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt, _ = parseTime(createdAt)
	rec.FinishedAt, _ = parseTime(finishedAt)
	return rec, nil
}

// ─── Audit events ─────────────────────────────────────────────────────────────

func (s *sqliteStore) AppendAuditEvent(ctx context.Context, rec *AuditRecord) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO audit_events(correlation_id, event_type, description, alert_id, result, metadata, timestamp)
        VALUES(?,?,?,?,?,?,?)
    `,
		rec.CorrelationID, rec.EventType, rec.Description, rec.AlertID,
		rec.Result, rec.Metadata, rec.Timestamp.UTC(),
	)
	return err
}

func (s *sqliteStore) QueryAuditEvents(ctx context.Context, q AuditQuery) ([]*AuditRecord, error) {
	query := `SELECT id, correlation_id, event_type, description, alert_id, result, metadata, timestamp FROM audit_events WHERE 1=1`
	args := []any{}

	if q.AlertID != "" {
		query += ` AND alert_id = ?`
		args = append(args, q.AlertID)
	}
	if q.EventType != "" {
		query += ` AND event_type = ?`
		args = append(args, q.EventType)
	}
	if !q.From.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, q.From.UTC())
	}
	if !q.To.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, q.To.UTC())
	}
	query += ` ORDER BY timestamp DESC`

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*AuditRecord
	for rows.Next() {
		rec := &AuditRecord{}
		var ts string
		if err := rows.Scan(&rec.ID, &rec.CorrelationID, &rec.EventType, &rec.Description,
			&rec.AlertID, &rec.Result, &rec.Metadata, &ts); err != nil {
			return nil, err
		}
		rec.Timestamp, _ = parseTime(ts)
		result = append(result, rec)
	}
	return result, rows.Err()
}

// parseTime handles the timestamp formats SQLite hands back depending on
// how the value was written.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", s)
}
