package core

import (
	"context"
	"runtime/debug"
	"sync"
	"time"
)

// Coordinator serializes a stream of mutually-exclusive invocations so that
// only the most recently accepted one is authoritative. Accepting a new
// invocation cancels the current occupant of the active slot; a superseded
// invocation's outcome never reaches the series future, even if it settles
// last.
//
// A Coordinator manages exactly one logical invocation stream. Instances are
// fully independent and safe for concurrent use.
type Coordinator[T any] struct {
	cfg      *CoordinatorConfig
	deferral Config
	policy   *deferralPolicy // nil when deferral.Mode == ModeNone
	hooks    *hookRegistry[T]
	history  invocationHistory

	mu         sync.Mutex
	seq        uint64
	active     *activeTask[T]
	series     *Future[T]
	cancelling int // cancelled occupants not yet settled
	closed     bool

	tasksStarted    uint64
	tasksAborted    uint64
	tasksIgnored    uint64
	seriesSucceeded uint64
	seriesFailed    uint64
	seriesAborted   uint64
	lastOutcome     string
	lastSettledAt   time.Time
}

// activeTask is the single occupant of the active slot.
type activeTask[T any] struct {
	seq       uint64
	cancel    context.CancelFunc
	caller    *Future[T]
	startedAt time.Time

	// canceled is set (under the coordinator lock) when the occupant's
	// cancellation signal is triggered. A canceled task's settlement is
	// bookkeeping only.
	canceled bool
}

// NewCoordinator creates a coordinator with the given deferral configuration.
// config may be nil for defaults.
func NewCoordinator[T any](deferral Config, config *CoordinatorConfig) *Coordinator[T] {
	cfg := config.withDefaults()
	c := &Coordinator[T]{
		cfg:      cfg,
		deferral: deferral,
		hooks:    newHookRegistry[T](cfg.Name, cfg.PanicHandler),
		history:  newInvocationHistory(cfg.HistoryCapacity),
	}
	if deferral.Mode != ModeNone {
		c.policy = newDeferralPolicy(deferral)
	}
	return c
}

// Name returns the coordinator's configured name.
func (c *Coordinator[T]) Name() string {
	return c.cfg.Name
}

// =============================================================================
// Run / Abort / Shutdown
// =============================================================================

// Run requests an invocation. The returned future is tied 1:1 to this call:
// it resolves with the invocation's result, or rejects with ErrTaskAborted if
// this call's cancellation is triggered before it settles, ErrTaskIgnored if
// the deferral policy determines this call will never execute, ErrClosed
// after Shutdown, or the invocation's own error otherwise.
//
// Whether this call becomes the active one immediately, later, or never is
// decided by the configured deferral mode.
func (c *Coordinator[T]) Run(fn Func[T]) *Future[T] {
	fut := NewFuture[T]()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		fut.reject(ErrClosed)
		return fut
	}
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	if c.policy == nil {
		c.startInvocation(seq, fn, fut)
		return fut
	}

	c.policy.schedule(&deferredCall{
		run: func() {
			c.startInvocation(seq, fn, fut)
		},
		drop: func(err error) {
			c.dropCall(seq, fut, err)
		},
		held: func() {
			c.cfg.Logger.Debug("call deferred", F("coordinator", c.cfg.Name), F("seq", seq))
			c.hooks.enqueue(Event[T]{Kind: EventTaskDeferred, Seq: seq, Time: time.Now()})
			c.hooks.dispatch()
		},
	})
	return fut
}

// startInvocation is the immediate-run path: it displaces the current
// occupant, opens a series if none is open, installs the new occupant, and
// launches the invocation.
func (c *Coordinator[T]) startInvocation(seq uint64, fn Func[T], fut *Future[T]) {
	now := time.Now()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		fut.reject(ErrClosed)
		return
	}

	if prev := c.active; prev != nil {
		// Displacement: trigger the occupant's cancellation and settle its
		// caller future now. Its late settlement is bookkeeping only.
		prev.canceled = true
		prev.cancel()
		prev.caller.reject(ErrTaskAborted)
		c.cancelling++
		c.tasksAborted++
		c.hooks.enqueue(Event[T]{
			Kind: EventTaskAborted,
			Seq:  prev.seq,
			Err:  ErrTaskAborted,
			Time: now,
		})
		c.cfg.Metrics.RecordTaskAborted(c.cfg.Name, "displaced")
	}

	if c.series == nil {
		c.series = NewFuture[T]()
		c.hooks.enqueue(Event[T]{Kind: EventSeriesStarted, Seq: seq, Time: now})
	}

	ctx, cancel := context.WithCancel(context.Background())
	task := &activeTask[T]{seq: seq, cancel: cancel, caller: fut, startedAt: now}
	c.active = task
	c.tasksStarted++
	c.hooks.enqueue(Event[T]{Kind: EventTaskStarted, Seq: seq, Time: now})
	c.mu.Unlock()

	c.cfg.Metrics.RecordTaskStarted(c.cfg.Name)
	c.cfg.Logger.Debug("task started", F("coordinator", c.cfg.Name), F("seq", seq))
	c.hooks.dispatch()

	go c.execute(ctx, task, fn)
}

// execute runs the invocation body and routes its settlement.
func (c *Coordinator[T]) execute(ctx context.Context, task *activeTask[T], fn Func[T]) {
	defer task.cancel()

	var value T
	var err error
	panicked := false

	func() {
		defer func() {
			if p := recover(); p != nil {
				c.cfg.PanicHandler.HandlePanic(c.cfg.Name, "task", p, debug.Stack())
				err = newPanicError(p)
				panicked = true
			}
		}()
		value, err = fn(ctx)
	}()

	c.settle(task, value, err, panicked)
}

// settle decides whether a settled invocation's outcome is authoritative.
func (c *Coordinator[T]) settle(task *activeTask[T], value T, err error, panicked bool) {
	now := time.Now()
	duration := now.Sub(task.startedAt)

	c.mu.Lock()

	if task.canceled {
		// The occupant was displaced or aborted before settling. Its caller
		// future already rejected; only the late-finish observers hear
		// about the outcome.
		c.cancelling--
		c.history.Add(InvocationRecord{
			Seq:       task.seq,
			StartedAt: task.startedAt,
			SettledAt: now,
			Duration:  duration,
			Outcome:   "aborted",
			Err:       err,
			Panicked:  panicked,
		})
		c.hooks.enqueue(Event[T]{
			Kind:  EventAbortedTaskFinished,
			Seq:   task.seq,
			Value: value,
			Err:   err,
			Time:  now,
		})
		c.mu.Unlock()

		c.cfg.Metrics.RecordTaskDuration(c.cfg.Name, duration)
		c.hooks.dispatch()
		return
	}

	// Authoritative outcome: conclude the series.
	series := c.series
	c.active = nil
	c.series = nil

	outcome := "succeeded"
	kind := EventSeriesSucceeded
	if err != nil {
		outcome = "failed"
		kind = EventSeriesFailed
		c.seriesFailed++
	} else {
		c.seriesSucceeded++
	}
	c.lastOutcome = outcome
	c.lastSettledAt = now
	c.history.Add(InvocationRecord{
		Seq:           task.seq,
		StartedAt:     task.startedAt,
		SettledAt:     now,
		Duration:      duration,
		Authoritative: true,
		Outcome:       outcome,
		Err:           err,
		Panicked:      panicked,
	})
	c.hooks.enqueue(Event[T]{
		Kind:        kind,
		IsSeriesEnd: true,
		Seq:         task.seq,
		Value:       value,
		Err:         err,
		Time:        now,
	})
	c.mu.Unlock()

	// Settle the futures before the terminal event is delivered, so
	// subscribers always observe a settled series.
	if err != nil {
		task.caller.reject(err)
		series.reject(err)
	} else {
		task.caller.resolve(value)
		series.resolve(value)
	}

	c.cfg.Metrics.RecordTaskDuration(c.cfg.Name, duration)
	c.cfg.Metrics.RecordSeriesOutcome(c.cfg.Name, outcome)
	c.cfg.Logger.Debug("series concluded",
		F("coordinator", c.cfg.Name), F("seq", task.seq), F("outcome", outcome))
	c.hooks.dispatch()
}

// dropCall settles a Run call the deferral policy decided will never
// execute.
func (c *Coordinator[T]) dropCall(seq uint64, fut *Future[T], err error) {
	fut.reject(err)

	now := time.Now()
	c.mu.Lock()
	kind := EventTaskIgnored
	if err == ErrTaskIgnored {
		c.tasksIgnored++
	} else {
		// Discarded by Abort or Shutdown before it could run.
		kind = EventTaskAborted
		c.tasksAborted++
	}
	c.hooks.enqueue(Event[T]{Kind: kind, Seq: seq, Err: err, Time: now})
	c.mu.Unlock()

	if kind == EventTaskIgnored {
		c.cfg.Metrics.RecordTaskIgnored(c.cfg.Name)
	} else {
		c.cfg.Metrics.RecordTaskAborted(c.cfg.Name, "abort")
	}
	c.hooks.dispatch()
}

// Abort cancels the active task's signal (if any) and discards any deferred
// invocation held by the deferral policy. With nothing active and nothing
// deferred it is a no-op: no events fire and state is unchanged. After Abort
// the coordinator accepts Run calls normally; State reports Cancelling
// rather than Idle until an aborted task that ignores its signal actually
// settles.
func (c *Coordinator[T]) Abort() {
	c.abort(ErrTaskAborted, "abort")
}

func (c *Coordinator[T]) abort(err error, reason string) {
	// Discard the held call first so the trailing edge cannot fire while
	// the active occupant is being torn down.
	if c.policy != nil {
		c.policy.cancelPending(err)
	}

	now := time.Now()
	c.mu.Lock()
	task := c.active
	if task == nil {
		c.mu.Unlock()
		return
	}

	task.canceled = true
	task.cancel()
	task.caller.reject(err)
	series := c.series
	c.active = nil
	c.series = nil
	c.cancelling++
	c.tasksAborted++
	c.seriesAborted++
	c.lastOutcome = "aborted"
	c.lastSettledAt = now
	c.hooks.enqueue(Event[T]{
		Kind:        EventTaskAborted,
		IsSeriesEnd: true,
		Seq:         task.seq,
		Err:         err,
		Time:        now,
	})
	c.mu.Unlock()

	series.reject(err)
	c.cfg.Metrics.RecordTaskAborted(c.cfg.Name, reason)
	c.cfg.Metrics.RecordSeriesOutcome(c.cfg.Name, "aborted")
	c.cfg.Logger.Debug("series aborted",
		F("coordinator", c.cfg.Name), F("seq", task.seq), F("reason", reason))
	c.hooks.dispatch()
}

// Shutdown aborts everything in flight and permanently closes the
// coordinator. Subsequent Run calls settle with ErrClosed. Shutdown is
// idempotent.
func (c *Coordinator[T]) Shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.abort(ErrTaskAborted, "shutdown")
}

// IsClosed returns true if the coordinator has been shut down.
func (c *Coordinator[T]) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// =============================================================================
// Introspection
// =============================================================================

// CurrentSeriesResult returns the pending series future. ok is false exactly
// when no series is open.
func (c *Coordinator[T]) CurrentSeriesResult() (result *Future[T], ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.series, c.series != nil
}

// State reports a diagnostic snapshot: Running while an occupant's signal is
// untriggered, Cancelling while a cancelled occupant has not yet settled and
// no replacement is running, Idle otherwise.
func (c *Coordinator[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.active != nil:
		return StateRunning
	case c.cancelling > 0:
		return StateCancelling
	default:
		return StateIdle
	}
}

// Stats returns a snapshot of the coordinator's runtime state.
func (c *Coordinator[T]) Stats() CoordinatorStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := StateIdle
	switch {
	case c.active != nil:
		state = StateRunning
	case c.cancelling > 0:
		state = StateCancelling
	}

	return CoordinatorStats{
		ID:              c.cfg.Name,
		State:           state.String(),
		Active:          c.active != nil,
		SeriesOpen:      c.series != nil,
		DeferredPending: c.policy != nil && c.policy.hasPending(),
		Closed:          c.closed,
		TasksStarted:    c.tasksStarted,
		TasksAborted:    c.tasksAborted,
		TasksIgnored:    c.tasksIgnored,
		SeriesSucceeded: c.seriesSucceeded,
		SeriesFailed:    c.seriesFailed,
		SeriesAborted:   c.seriesAborted,
		LastOutcome:     c.lastOutcome,
		LastSettledAt:   c.lastSettledAt,
	}
}

// RecentInvocations returns up to limit settled invocation records, newest
// first. limit <= 0 returns all retained records.
func (c *Coordinator[T]) RecentInvocations(limit int) []InvocationRecord {
	return c.history.Recent(limit)
}

// =============================================================================
// Hook registration
// =============================================================================

// OnTaskStarted registers a handler for EventTaskStarted. The returned
// function unsubscribes; it is idempotent.
func (c *Coordinator[T]) OnTaskStarted(h Handler[T]) func() {
	return c.hooks.subscribe(EventTaskStarted, h)
}

// OnTaskAborted registers a handler for EventTaskAborted.
func (c *Coordinator[T]) OnTaskAborted(h Handler[T]) func() {
	return c.hooks.subscribe(EventTaskAborted, h)
}

// OnTaskDeferred registers a handler for EventTaskDeferred.
func (c *Coordinator[T]) OnTaskDeferred(h Handler[T]) func() {
	return c.hooks.subscribe(EventTaskDeferred, h)
}

// OnTaskIgnored registers a handler for EventTaskIgnored.
func (c *Coordinator[T]) OnTaskIgnored(h Handler[T]) func() {
	return c.hooks.subscribe(EventTaskIgnored, h)
}

// OnSeriesStarted registers a handler for EventSeriesStarted.
func (c *Coordinator[T]) OnSeriesStarted(h Handler[T]) func() {
	return c.hooks.subscribe(EventSeriesStarted, h)
}

// OnSeriesSucceeded registers a handler for EventSeriesSucceeded.
func (c *Coordinator[T]) OnSeriesSucceeded(h Handler[T]) func() {
	return c.hooks.subscribe(EventSeriesSucceeded, h)
}

// OnSeriesFailed registers a handler for EventSeriesFailed.
func (c *Coordinator[T]) OnSeriesFailed(h Handler[T]) func() {
	return c.hooks.subscribe(EventSeriesFailed, h)
}

// OnSeriesEnded registers a handler for the union of the terminal kinds:
// series-succeeded, series-failed, and task-aborted with IsSeriesEnd set.
func (c *Coordinator[T]) OnSeriesEnded(h Handler[T]) func() {
	return c.hooks.subscribe(eventSeriesEnded, h)
}

// OnAbortedTaskFinished registers a handler for EventAbortedTaskFinished.
func (c *Coordinator[T]) OnAbortedTaskFinished(h Handler[T]) func() {
	return c.hooks.subscribe(EventAbortedTaskFinished, h)
}
