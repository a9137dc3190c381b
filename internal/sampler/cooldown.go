// internal/sampler/cooldown.go
package sampler

import "time"

// Clock supplies the current time. The daemon uses time.Now; tests inject a
// fake to exercise the gate deterministically.
type Clock func() time.Time

// Gate suppresses trigger-driven captures until a deadline. It starts open
// so the first decision is never blocked, and is closed for the cooldown
// duration after each completed capture.
type Gate struct {
	deadline time.Time
}

// NewGate returns a gate whose deadline is now, i.e. already open.
func NewGate(now time.Time) *Gate {
	return &Gate{deadline: now}
}

// IsOpen reports whether now has reached the deadline.
func (g *Gate) IsOpen(now time.Time) bool {
	return !now.Before(g.deadline)
}

// Close moves the deadline to now plus the cooldown duration.
func (g *Gate) Close(now time.Time, cooldown time.Duration) {
	g.deadline = now.Add(cooldown)
}
