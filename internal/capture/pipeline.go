// internal/capture/pipeline.go
package capture

import (
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/colebrumley/camsampler/internal/camera"
	"github.com/colebrumley/camsampler/internal/upload"
)

// fallbackFilename is used when no output directory is configured. It is
// overwritten on every capture; the history DB keeps the durable record.
const fallbackFilename = "sample.jpg"

// pathTimeFormat renders a capture timestamp as an ISO-8601-like UTC string,
// e.g. 2023-11-14T22:13:20+0000. Nanoseconds are dropped.
const pathTimeFormat = "2006-01-02T15:04:05-0700"

// Pipeline persists a captured frame and hands it to the upload sink.
type Pipeline struct {
	outDir  string
	quality int
	sink    upload.Sink // nil disables upload
	logger  *slog.Logger
}

// NewPipeline configures the persist+upload step shared by both scheduling
// modes.
func NewPipeline(outDir string, quality int, sink upload.Sink, logger *slog.Logger) *Pipeline {
	return &Pipeline{outDir: outDir, quality: quality, sink: sink, logger: logger}
}

// Result describes where a frame ended up.
type Result struct {
	Path     string
	Uploaded bool
}

// Persist converts the frame for encoding, writes it as JPEG under the
// timestamp-derived path, and hands the path to the sink. Any failure is
// returned; there is no partial-success bookkeeping.
func (p *Pipeline) Persist(frame camera.Frame) (Result, error) {
	path := OutputPath(p.outDir, frame.TimestampNS)

	p.logger.Info("writing image", "path", path)
	img := toRGBA(frame)
	f, err := os.Create(path)
	if err != nil {
		return Result{}, fmt.Errorf("creating %s: %w", path, err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: p.quality}); err != nil {
		f.Close()
		return Result{}, fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return Result{}, fmt.Errorf("writing %s: %w", path, err)
	}

	if p.sink == nil {
		return Result{Path: path}, nil
	}
	p.logger.Info("uploading image", "path", path)
	if err := p.sink.Upload(path); err != nil {
		return Result{}, fmt.Errorf("uploading %s: %w", path, err)
	}
	return Result{Path: path, Uploaded: true}, nil
}

// OutputPath derives the file path for a capture timestamp. With no output
// directory configured the fixed fallback name in the working directory is
// used.
func OutputPath(outDir string, tsNS int64) string {
	if outDir == "" {
		return fallbackFilename
	}
	ts := time.Unix(0, tsNS).UTC()
	return filepath.Join(outDir, ts.Format(pathTimeFormat)+".jpg")
}

// toRGBA converts the frame's packed BGR bytes into the RGBA image the JPEG
// encoder expects. One pass, swapping the blue and red channels.
func toRGBA(frame camera.Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			src := (y*frame.Width + x) * 3
			dst := img.PixOffset(x, y)
			img.Pix[dst+0] = frame.Pixels[src+2] // R from BGR
			img.Pix[dst+1] = frame.Pixels[src+1] // G
			img.Pix[dst+2] = frame.Pixels[src+0] // B
			img.Pix[dst+3] = 0xff
		}
	}
	return img
}
