// internal/camera/source.go
package camera

import (
	"errors"
	"time"
)

// ErrFetchTimeout reports that no frame arrived within the per-attempt
// timeout. The capture sequencer retries these; anything else is permanent.
var ErrFetchTimeout = errors.New("timed out waiting for frame")

// Frame is one captured image with its capture timestamp.
// Pixels are packed BGR, three bytes per pixel, row-major.
type Frame struct {
	TimestampNS int64
	Width       int
	Height      int
	Pixels      []byte
}

// Session is a scoped handle on a single stream. Close must be called on
// every exit path.
type Session interface {
	// Fetch blocks until the next frame or ErrFetchTimeout.
	Fetch(timeout time.Duration) (Frame, error)
	// Close releases the session.
	Close() error
}

// Source yields timestamped image frames for named streams.
type Source interface {
	Open(streamID string) (Session, error)
}
