// Package graph implements the directed labeled multigraph kernel shared by
// the ordered-NFA construction and the automaton checker's product-graph
// ambiguity analysis: reachability, Tarjan SCC, and BFS shortest-label-path,
// all cooperatively cancellable via a Timeout token.
package graph

import (
	"errors"
	"time"
)

// ErrTimeout is returned by Timeout.Check when the deadline has passed.
var ErrTimeout = errors.New("graph: operation timed out")

// Timeout is a shared, read-only deadline token threaded through every
// potentially-long graph traversal. It is the single cooperative
// cancellation channel in the analysis pipeline: there is no other
// suspension point, no locks, no async.
type Timeout struct {
	deadline time.Time
	enabled  bool
}

// NoTimeout disables deadline checking entirely.
var NoTimeout = Timeout{}

// NewTimeout returns a token that expires after d elapses from now.
func NewTimeout(d time.Duration) Timeout {
	return Timeout{deadline: time.Now().Add(d), enabled: true}
}

// Check compares the current monotonic time against the deadline and
// returns ErrTimeout if exceeded. tag identifies the call site for
// profiling and debugging; it is otherwise unused here.
func (t Timeout) Check(tag string) error {
	if !t.enabled {
		return nil
	}
	if time.Now().After(t.deadline) {
		return ErrTimeout
	}
	return nil
}
