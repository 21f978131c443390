package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"github.com/codewithboateng/riskrule/internal/analyzer"
)

// DB is the concrete storage backed by SQLite.
type DB struct {
	conn *sql.DB
}

// OpenSQLite opens (and creates if missing) a SQLite DB at path.
func OpenSQLite(path string) (*DB, error) {
	// Pragmas via DSN keep it portable with the modernc driver.
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	c, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{conn: c}, nil
}

func (db *DB) Close() error { return db.conn.Close() }

// Run is one recorded validation or analysis pass over a rule document.
type Run struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	ModelID   string           `json:"model_id"`
	ModelName string           `json:"model_name"`
	Source    string           `json:"source"`
	Valid     bool             `json:"valid"`
	Errors    []string         `json:"errors,omitempty"`
	Report    *analyzer.Report `json:"report,omitempty"`
}

// CreateSchema ensures tables exist.
func (db *DB) CreateSchema() error {
	_, err := db.conn.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id          TEXT PRIMARY KEY,
  created_at  TEXT NOT NULL,   -- RFC3339
  model_id    TEXT,
  model_name  TEXT,
  source      TEXT,
  valid       INTEGER NOT NULL,
  errors_json TEXT,
  report_json TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_model ON runs(model_id);

CREATE TABLE IF NOT EXISTS warnings (
  run_id   TEXT NOT NULL,
  severity TEXT NOT NULL,
  category TEXT NOT NULL,
  message  TEXT NOT NULL,
  context  TEXT,
  FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_warnings_run ON warnings(run_id);

CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT UNIQUE NOT NULL,
  pass_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'viewer',
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
  token TEXT PRIMARY KEY,
  user_id INTEGER NOT NULL,
  expires_at TEXT NOT NULL,
  created_at TEXT NOT NULL,
  FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS audit (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts TEXT NOT NULL,
  username TEXT,
  action TEXT NOT NULL,
  resource TEXT,
  meta_json TEXT
);
`)
	return err
}

// SaveRun upserts a run and (re)writes its warning rows.
func (db *DB) SaveRun(run *Run) error {
	var reportJSON, errorsJSON []byte
	var err error
	if run.Report != nil {
		if reportJSON, err = json.Marshal(run.Report); err != nil {
			return err
		}
	}
	if len(run.Errors) > 0 {
		if errorsJSON, err = json.Marshal(run.Errors); err != nil {
			return err
		}
	}
	ts := run.CreatedAt.UTC().Format(time.RFC3339Nano)

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO runs (id, created_at, model_id, model_name, source, valid, errors_json, report_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET created_at=excluded.created_at, model_id=excluded.model_id,
           model_name=excluded.model_name, source=excluded.source, valid=excluded.valid,
           errors_json=excluded.errors_json, report_json=excluded.report_json`,
		run.ID, ts, run.ModelID, run.ModelName, run.Source, boolInt(run.Valid),
		nullable(errorsJSON), nullable(reportJSON),
	); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM warnings WHERE run_id = ?`, run.ID); err != nil {
		return err
	}
	if run.Report != nil && len(run.Report.Warnings) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO warnings (run_id, severity, category, message, context)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, w := range run.Report.Warnings {
			if _, err := stmt.Exec(run.ID, string(w.Severity), string(w.Category), w.Message, w.Context); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// LoadRun returns one run by id; sql.ErrNoRows when absent.
func (db *DB) LoadRun(id string) (Run, error) {
	row := db.conn.QueryRow(
		`SELECT id, created_at, model_id, model_name, source, valid, errors_json, report_json
		 FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// LatestRun returns the most recent run for a model.
func (db *DB) LatestRun(modelID string) (Run, error) {
	row := db.conn.QueryRow(
		`SELECT id, created_at, model_id, model_name, source, valid, errors_json, report_json
		 FROM runs WHERE model_id = ? ORDER BY created_at DESC LIMIT 1`, modelID)
	return scanRun(row)
}

// ListRuns returns the newest runs first, capped at limit.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(
		`SELECT id, created_at, model_id, model_name, source, valid, errors_json, report_json
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var created string
	var valid int
	var errorsJSON, reportJSON sql.NullString
	if err := row.Scan(&r.ID, &created, &r.ModelID, &r.ModelName, &r.Source, &valid, &errorsJSON, &reportJSON); err != nil {
		return Run{}, err
	}
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		r.CreatedAt = t
	}
	r.Valid = valid != 0
	if errorsJSON.Valid {
		_ = json.Unmarshal([]byte(errorsJSON.String), &r.Errors)
	}
	if reportJSON.Valid {
		var rep analyzer.Report
		if err := json.Unmarshal([]byte(reportJSON.String), &rep); err == nil {
			r.Report = &rep
		}
	}
	return r, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
