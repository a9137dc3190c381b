// internal/upload/sink.go
package upload

// Sink receives paths to captured images for delivery upstream. The core
// hands the path over and moves on; what happens to the file afterwards is
// the sink's business.
type Sink interface {
	Upload(path string) error
}
