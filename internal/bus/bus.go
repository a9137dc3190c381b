// internal/bus/bus.go
package bus

import "context"

// Message is one named scalar update delivered by the bus. Name is the dotted
// form used on the wire.
type Message struct {
	Name  string
	Value float64
}

// Bus delivers named scalar signal updates. Implementations may receive in the
// background, but Next presents them to the core as a single blocking call.
type Bus interface {
	// Subscribe registers interest in a dotted signal name.
	Subscribe(dottedName string) error
	// Next blocks until the next message arrives or ctx is done.
	Next(ctx context.Context) (Message, error)
	// Close releases the connection.
	Close() error
}
