// internal/history/db.go
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// CaptureRecord is one row of capture provenance: what was captured, why,
// and where the image went.
type CaptureRecord struct {
	ID          int64
	Stream      string
	TriggerType string // condition or periodic
	Condition   string // trigger expression, empty in periodic mode
	TimestampNS int64  // capture timestamp from the frame
	Path        string // final path (spool path when uploaded)
	Uploaded    bool
	CreatedAt   time.Time
}

// DB wraps the SQLite database holding capture history.
type DB struct {
	db *sql.DB
}

const historySchema = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL,
    applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS capture_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    stream TEXT NOT NULL,
    trigger_type TEXT NOT NULL,
    condition TEXT,
    timestamp_ns INTEGER NOT NULL,
    path TEXT NOT NULL,
    uploaded BOOLEAN NOT NULL DEFAULT FALSE,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_capture_history_stream ON capture_history(stream);
CREATE INDEX IF NOT EXISTS idx_capture_history_trigger ON capture_history(trigger_type);
CREATE INDEX IF NOT EXISTS idx_capture_history_created ON capture_history(created_at);
`

// Open opens or creates a history database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count)
	if count == 0 {
		db.Exec("INSERT INTO schema_version (version) VALUES (1)")
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// RecordCapture stores a capture record and returns its ID.
func (d *DB) RecordCapture(rec CaptureRecord) (int64, error) {
	result, err := d.db.Exec(`
		INSERT INTO capture_history
		(stream, trigger_type, condition, timestamp_ns, path, uploaded)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Stream, rec.TriggerType, rec.Condition, rec.TimestampNS, rec.Path, rec.Uploaded,
	)
	if err != nil {
		return 0, fmt.Errorf("recording capture: %w", err)
	}
	return result.LastInsertId()
}

// GetHistory retrieves capture history filtered by stream and/or trigger
// type, newest first.
func (d *DB) GetHistory(stream, triggerType string, limit int) ([]CaptureRecord, error) {
	query := "SELECT id, stream, trigger_type, condition, timestamp_ns, path, uploaded, created_at FROM capture_history WHERE 1=1"
	var args []any

	if stream != "" {
		query += " AND stream = ?"
		args = append(args, stream)
	}
	if triggerType != "" {
		query += " AND trigger_type = ?"
		args = append(args, triggerType)
	}

	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var records []CaptureRecord
	for rows.Next() {
		var r CaptureRecord
		var condition sql.NullString
		if err := rows.Scan(&r.ID, &r.Stream, &r.TriggerType, &condition,
			&r.TimestampNS, &r.Path, &r.Uploaded, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.Condition = condition.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// LastCapture returns the most recent capture for a stream, or sql.ErrNoRows
// if there is none.
func (d *DB) LastCapture(stream string) (CaptureRecord, error) {
	records, err := d.GetHistory(stream, "", 1)
	if err != nil {
		return CaptureRecord{}, err
	}
	if len(records) == 0 {
		return CaptureRecord{}, sql.ErrNoRows
	}
	return records[0], nil
}
