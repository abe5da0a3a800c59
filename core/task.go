package core

import (
	"context"
	"fmt"
	"time"
)

// Func is the unit of work a coordinator runs. The context carries the invocation's
// cancellation signal: it is cancelled when the invocation is displaced by a
// newer Run, by Abort, or by Shutdown. Cancellation is cooperative; a Func
// that never inspects ctx runs to completion, but a late outcome from a
// cancelled Func never becomes authoritative.
type Func[T any] func(ctx context.Context) (T, error)

// =============================================================================
// State: Coordinator lifecycle snapshot
// =============================================================================

// State is the externally observable coordinator state.
type State int

const (
	// StateIdle: no active task, no pending series future.
	StateIdle State = iota

	// StateRunning: an invocation occupies the active slot and its
	// cancellation signal has not been triggered.
	StateRunning

	// StateCancelling: the occupant's cancellation has been requested but the
	// task has not settled yet.
	StateCancelling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCancelling:
		return "cancelling"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// =============================================================================
// Config: Rate-limiting deferral configuration
// =============================================================================

// Mode selects the rate-limiting behavior applied to Run calls.
type Mode int

const (
	// ModeNone: every Run executes immediately, displacing the previous
	// occupant of the active slot.
	ModeNone Mode = iota

	// ModeDebounce: the window restarts on every Run; a task executes only
	// once the window elapses quietly (plus the leading edge if configured).
	ModeDebounce

	// ModeThrottle: the window opens on the first Run and does not restart;
	// at most one task per configured edge executes per window.
	ModeThrottle
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeDebounce:
		return "debounce"
	case ModeThrottle:
		return "throttle"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Edge selects which edge(s) of the deferral window execute a task.
type Edge int

const (
	// EdgeTrailing: the last call of the window executes when it elapses.
	EdgeTrailing Edge = iota

	// EdgeLeading: the first call of a quiet period / window executes
	// immediately; later calls inside the window are superseded.
	EdgeLeading

	// EdgeBoth: leading and trailing combined. A burst spanning the window
	// executes exactly two tasks: the first call immediately and the last
	// call at the trailing edge. A single-call burst executes once.
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeTrailing:
		return "trailing"
	case EdgeLeading:
		return "leading"
	case EdgeBoth:
		return "both"
	default:
		return fmt.Sprintf("Edge(%d)", int(e))
	}
}

// Config describes the deferral layer between Run and the active slot.
// It is immutable after the coordinator is constructed.
type Config struct {
	Mode   Mode
	Window time.Duration
	Edge   Edge
}

// DefaultConfig returns a configuration with no deferral.
func DefaultConfig() Config {
	return Config{Mode: ModeNone}
}

// Debounce returns a debounce configuration for the given window and edge.
func Debounce(window time.Duration, edge Edge) Config {
	return Config{Mode: ModeDebounce, Window: window, Edge: edge}
}

// Throttle returns a throttle configuration for the given window and edge.
func Throttle(window time.Duration, edge Edge) Config {
	return Config{Mode: ModeThrottle, Window: window, Edge: edge}
}
