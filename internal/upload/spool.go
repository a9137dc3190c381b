// internal/upload/spool.go
package upload

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Spool hands files to the platform uploader by moving them into a spool
// directory the uploader watches.
type Spool struct {
	dir    string
	logger *slog.Logger
}

// NewSpool creates the spool directory if needed.
func NewSpool(dir string, logger *slog.Logger) (*Spool, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating spool directory: %w", err)
	}
	return &Spool{dir: dir, logger: logger}, nil
}

// Upload moves the file into the spool directory. A plain rename is tried
// first; when the spool lives on another filesystem the file is copied and
// the original removed.
func (s *Spool) Upload(path string) error {
	dest := filepath.Join(s.dir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		if err := copyFile(path, dest); err != nil {
			return fmt.Errorf("spooling %s: %w", path, err)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing %s after spooling: %w", path, err)
		}
	}
	s.logger.Info("spooled image for upload", "path", dest)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
