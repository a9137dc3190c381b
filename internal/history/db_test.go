// internal/history/db_test.go
package history

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_CreatesDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "history.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_CreatesSchema(t *testing.T) {
	db := openTestDB(t)

	var tableName string
	err := db.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='capture_history'",
	).Scan(&tableName)
	if err != nil {
		t.Errorf("capture_history table not created: %v", err)
	}
}

func TestRecordCapture_Roundtrip(t *testing.T) {
	db := openTestDB(t)

	id, err := db.RecordCapture(CaptureRecord{
		Stream:      "camera",
		TriggerType: "condition",
		Condition:   "env_temperature > 30",
		TimestampNS: 1700000000123456789,
		Path:        "/data/uploads/2023-11-14T22:13:20+0000.jpg",
		Uploaded:    true,
	})
	if err != nil {
		t.Fatalf("RecordCapture() error = %v", err)
	}
	if id <= 0 {
		t.Errorf("RecordCapture() id = %d, want > 0", id)
	}

	records, err := db.GetHistory("camera", "", 0)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("GetHistory() returned %d records, want 1", len(records))
	}
	r := records[0]
	if r.Condition != "env_temperature > 30" {
		t.Errorf("Condition = %q, want %q", r.Condition, "env_temperature > 30")
	}
	if r.TimestampNS != 1700000000123456789 {
		t.Errorf("TimestampNS = %d, want 1700000000123456789", r.TimestampNS)
	}
	if !r.Uploaded {
		t.Error("Uploaded = false, want true")
	}
}

func TestGetHistory_Filters(t *testing.T) {
	db := openTestDB(t)

	for _, rec := range []CaptureRecord{
		{Stream: "camera", TriggerType: "periodic", TimestampNS: 1, Path: "a.jpg"},
		{Stream: "camera", TriggerType: "condition", TimestampNS: 2, Path: "b.jpg"},
		{Stream: "thermal", TriggerType: "periodic", TimestampNS: 3, Path: "c.jpg"},
	} {
		if _, err := db.RecordCapture(rec); err != nil {
			t.Fatalf("RecordCapture() error = %v", err)
		}
	}

	periodic, err := db.GetHistory("camera", "periodic", 0)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(periodic) != 1 || periodic[0].Path != "a.jpg" {
		t.Errorf("filtered history = %+v, want just a.jpg", periodic)
	}

	all, err := db.GetHistory("", "", 0)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("unfiltered history has %d records, want 3", len(all))
	}
}

func TestLastCapture(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.LastCapture("camera"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("LastCapture() on empty db error = %v, want sql.ErrNoRows", err)
	}

	db.RecordCapture(CaptureRecord{Stream: "camera", TriggerType: "periodic", TimestampNS: 1, Path: "old.jpg"})
	db.RecordCapture(CaptureRecord{Stream: "camera", TriggerType: "periodic", TimestampNS: 2, Path: "new.jpg"})

	last, err := db.LastCapture("camera")
	if err != nil {
		t.Fatalf("LastCapture() error = %v", err)
	}
	if last.Path != "new.jpg" {
		t.Errorf("LastCapture() path = %q, want %q", last.Path, "new.jpg")
	}
}
