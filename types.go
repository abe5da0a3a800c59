package taskcoord

import "github.com/taskcoord/go-task-coordinator/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the taskcoord package for most use cases.

// Func is the unit of work a coordinator runs
type Func[T any] = core.Func[T]

// Coordinator owns the active-task slot and the series future
type Coordinator[T any] = core.Coordinator[T]

// Future is a single-assignment result container
type Future[T any] = core.Future[T]

// Event is the payload delivered to hook handlers
type Event[T any] = core.Event[T]

// Handler observes coordinator events
type Handler[T any] = core.Handler[T]

// EventKind identifies a coordinator transition
type EventKind = core.EventKind

// Config describes the deferral layer (mode, window, edge)
type Config = core.Config

// CoordinatorConfig holds construction-time options
type CoordinatorConfig = core.CoordinatorConfig

// State is the externally observable coordinator state
type State = core.State

// CoordinatorStats is a runtime observability snapshot
type CoordinatorStats = core.CoordinatorStats

// InvocationRecord captures one settled invocation
type InvocationRecord = core.InvocationRecord

// Mode and Edge constants
const (
	ModeNone     = core.ModeNone
	ModeDebounce = core.ModeDebounce
	ModeThrottle = core.ModeThrottle

	EdgeLeading  = core.EdgeLeading
	EdgeTrailing = core.EdgeTrailing
	EdgeBoth     = core.EdgeBoth
)

// State constants
const (
	StateIdle       = core.StateIdle
	StateRunning    = core.StateRunning
	StateCancelling = core.StateCancelling
)

// Event kinds
const (
	EventTaskStarted         = core.EventTaskStarted
	EventTaskAborted         = core.EventTaskAborted
	EventTaskDeferred        = core.EventTaskDeferred
	EventTaskIgnored         = core.EventTaskIgnored
	EventSeriesStarted       = core.EventSeriesStarted
	EventSeriesSucceeded     = core.EventSeriesSucceeded
	EventSeriesFailed        = core.EventSeriesFailed
	EventAbortedTaskFinished = core.EventAbortedTaskFinished
)

// Sentinel errors
var (
	ErrTaskAborted  = core.ErrTaskAborted
	ErrTaskIgnored  = core.ErrTaskIgnored
	ErrTaskPanicked = core.ErrTaskPanicked
	ErrClosed       = core.ErrClosed
)

// Convenience constructors for deferral configurations
var (
	DefaultConfig = core.DefaultConfig
	Debounce      = core.Debounce
	Throttle      = core.Throttle
)

// DefaultCoordinatorConfig returns a CoordinatorConfig with default handlers.
func DefaultCoordinatorConfig() *core.CoordinatorConfig {
	return core.DefaultCoordinatorConfig()
}

// New creates a coordinator with the given deferral configuration.
// config may be nil for defaults.
func New[T any](deferral Config, config *CoordinatorConfig) *Coordinator[T] {
	return core.NewCoordinator[T](deferral, config)
}
