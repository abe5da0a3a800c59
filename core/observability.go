package core

import "time"

// InvocationRecord captures one settled invocation.
type InvocationRecord struct {
	Seq           uint64
	StartedAt     time.Time
	SettledAt     time.Time
	Duration      time.Duration
	Authoritative bool
	Outcome       string // "succeeded", "failed", "aborted"
	Err           error
	Panicked      bool
}

// CoordinatorStats represents runtime observability state for a coordinator.
type CoordinatorStats struct {
	ID              string
	State           string
	Active          bool
	SeriesOpen      bool
	DeferredPending bool
	Closed          bool

	TasksStarted    uint64
	TasksAborted    uint64
	TasksIgnored    uint64
	SeriesSucceeded uint64
	SeriesFailed    uint64
	SeriesAborted   uint64

	LastOutcome   string
	LastSettledAt time.Time
}
