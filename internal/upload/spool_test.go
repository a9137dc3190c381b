// internal/upload/spool_test.go
package upload

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSpool_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads", "nested")
	if _, err := NewSpool(dir, discardLogger()); err != nil {
		t.Fatalf("NewSpool() error = %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("spool directory not created: %v", err)
	}
}

func TestUpload_MovesFile(t *testing.T) {
	tmp := t.TempDir()
	spoolDir := filepath.Join(tmp, "uploads")
	s, err := NewSpool(spoolDir, discardLogger())
	if err != nil {
		t.Fatalf("NewSpool() error = %v", err)
	}

	src := filepath.Join(tmp, "sample.jpg")
	if err := os.WriteFile(src, []byte("jpeg bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := s.Upload(src); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source file still exists after upload")
	}
	moved, err := os.ReadFile(filepath.Join(spoolDir, "sample.jpg"))
	if err != nil {
		t.Fatalf("spooled file missing: %v", err)
	}
	if string(moved) != "jpeg bytes" {
		t.Errorf("spooled content = %q, want %q", moved, "jpeg bytes")
	}
}

func TestUpload_MissingSource(t *testing.T) {
	s, err := NewSpool(filepath.Join(t.TempDir(), "uploads"), discardLogger())
	if err != nil {
		t.Fatalf("NewSpool() error = %v", err)
	}
	if err := s.Upload(filepath.Join(t.TempDir(), "nope.jpg")); err == nil {
		t.Error("Upload() error = nil for missing source, want error")
	}
}
