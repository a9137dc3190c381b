// internal/capture/sequencer.go
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/colebrumley/camsampler/internal/camera"
)

// ErrNoFrame reports that every fetch attempt timed out. Callers treat this
// as unrecoverable: a camera that cannot deliver a frame after several
// timeouts needs external intervention, not more retries.
var ErrNoFrame = errors.New("failed to receive an image")

// Sequencer fetches single frames from a stream with bounded retry on
// timeout.
type Sequencer struct {
	source  camera.Source
	retry   int
	timeout time.Duration
	logger  *slog.Logger
}

// NewSequencer configures a sequencer. retry is the total number of fetch
// attempts per capture; timeout bounds each attempt.
func NewSequencer(source camera.Source, retry int, timeout time.Duration, logger *slog.Logger) *Sequencer {
	if retry < 1 {
		retry = 1
	}
	return &Sequencer{source: source, retry: retry, timeout: timeout, logger: logger}
}

// Capture opens a scoped session on the stream and fetches one frame,
// retrying timeouts immediately up to the configured attempt count. The
// session is released on every path. Exhausting all attempts returns
// ErrNoFrame; any other fetch failure is returned as-is.
func (s *Sequencer) Capture(streamID string) (camera.Frame, error) {
	sess, err := s.source.Open(streamID)
	if err != nil {
		return camera.Frame{}, fmt.Errorf("opening stream %s: %w", streamID, err)
	}
	defer sess.Close()

	var frame camera.Frame
	attempt := 0
	fetch := func() error {
		attempt++
		var err error
		frame, err = sess.Fetch(s.timeout)
		if err == nil {
			return nil
		}
		if errors.Is(err, camera.ErrFetchTimeout) {
			s.logger.Warn("get image timed out", "attempt", attempt, "stream", streamID)
			return err
		}
		return backoff.Permanent(err)
	}

	// Retries are immediate; the per-attempt timeout is the pacing.
	policy := backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(s.retry-1))
	if err := backoff.Retry(fetch, policy); err != nil {
		if errors.Is(err, camera.ErrFetchTimeout) {
			return camera.Frame{}, fmt.Errorf("%w from stream %s after %d attempts", ErrNoFrame, streamID, s.retry)
		}
		return camera.Frame{}, fmt.Errorf("fetching frame from stream %s: %w", streamID, err)
	}
	return frame, nil
}
