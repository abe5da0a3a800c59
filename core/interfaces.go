package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// PanicHandler: Interface for handling panics
// =============================================================================

// PanicHandler is called when an invocation function or a hook handler
// panics. This allows custom panic handling, logging, and recovery
// strategies.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called with the recovered panic value.
	//
	// Parameters:
	// - coordinatorName: The name of the coordinator where the panic occurred
	// - origin: Where the panic was recovered ("task" or "hook")
	// - panicInfo: The panic value recovered
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(coordinatorName string, origin string, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(coordinatorName string, origin string, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Coordinator %s] %s panic: %v\nStack trace:\n%s",
		coordinatorName, origin, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting coordination metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast to avoid impacting coordination.
type Metrics interface {
	// RecordTaskStarted records that an invocation entered the active slot.
	RecordTaskStarted(coordinatorName string)

	// RecordTaskDuration records how long an invocation ran before settling,
	// whether or not its outcome became authoritative.
	RecordTaskDuration(coordinatorName string, duration time.Duration)

	// RecordTaskAborted records a cancelled invocation.
	//
	// reason is "displaced" when a newer Run took the slot, "abort" for an
	// explicit Abort, or "shutdown".
	RecordTaskAborted(coordinatorName string, reason string)

	// RecordTaskIgnored records a Run call dropped by the deferral policy
	// without ever starting.
	RecordTaskIgnored(coordinatorName string)

	// RecordSeriesOutcome records a concluded series.
	//
	// outcome is "succeeded", "failed", or "aborted".
	RecordSeriesOutcome(coordinatorName string, outcome string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordTaskStarted is a no-op.
func (m *NilMetrics) RecordTaskStarted(coordinatorName string) {}

// RecordTaskDuration is a no-op.
func (m *NilMetrics) RecordTaskDuration(coordinatorName string, duration time.Duration) {}

// RecordTaskAborted is a no-op.
func (m *NilMetrics) RecordTaskAborted(coordinatorName string, reason string) {}

// RecordTaskIgnored is a no-op.
func (m *NilMetrics) RecordTaskIgnored(coordinatorName string) {}

// RecordSeriesOutcome is a no-op.
func (m *NilMetrics) RecordSeriesOutcome(coordinatorName string, outcome string) {}

// =============================================================================
// CoordinatorConfig: Configuration for Coordinator
// =============================================================================

// CoordinatorConfig holds construction-time options for a Coordinator.
// All fields are optional; zero values get default implementations.
type CoordinatorConfig struct {
	// Name identifies the coordinator in logs, metrics, and stats.
	// Defaults to a random UUID.
	Name string

	// Logger receives state-transition logs. Defaults to NoOpLogger.
	Logger Logger

	// PanicHandler is called when a task or hook panics. Defaults to
	// DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics records coordination metrics. Defaults to NilMetrics.
	Metrics Metrics

	// HistoryCapacity bounds the invocation history ring buffer.
	// Defaults to defaultHistoryCapacity.
	HistoryCapacity int
}

// DefaultCoordinatorConfig returns a config with default handlers.
func DefaultCoordinatorConfig() *CoordinatorConfig {
	return &CoordinatorConfig{
		Name:         uuid.NewString(),
		Logger:       NewNoOpLogger(),
		PanicHandler: &DefaultPanicHandler{},
		Metrics:      &NilMetrics{},
	}
}

// withDefaults fills zero fields in place and returns the config.
func (c *CoordinatorConfig) withDefaults() *CoordinatorConfig {
	if c == nil {
		return DefaultCoordinatorConfig()
	}
	if c.Name == "" {
		c.Name = uuid.NewString()
	}
	if c.Logger == nil {
		c.Logger = NewNoOpLogger()
	}
	if c.PanicHandler == nil {
		c.PanicHandler = &DefaultPanicHandler{}
	}
	if c.Metrics == nil {
		c.Metrics = &NilMetrics{}
	}
	if c.HistoryCapacity < 1 {
		c.HistoryCapacity = defaultHistoryCapacity
	}
	return c
}
