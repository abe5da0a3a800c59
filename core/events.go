package core

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

// =============================================================================
// EventKind: Hook event taxonomy
// =============================================================================

// EventKind identifies which coordinator transition an Event describes.
type EventKind int

const (
	// EventTaskStarted: an invocation entered the active slot.
	EventTaskStarted EventKind = iota

	// EventTaskAborted: the active occupant's cancellation was triggered.
	// IsSeriesEnd is false when a replacement is starting, true when the
	// abort forecloses the series (explicit Abort with nothing queued).
	EventTaskAborted

	// EventTaskDeferred: the deferral policy held a Run call back.
	EventTaskDeferred

	// EventTaskIgnored: the deferral policy dropped a Run call that will
	// never execute.
	EventTaskIgnored

	// EventSeriesStarted: a new series future was opened.
	EventSeriesStarted

	// EventSeriesSucceeded: the authoritative invocation resolved.
	EventSeriesSucceeded

	// EventSeriesFailed: the authoritative invocation rejected.
	EventSeriesFailed

	// EventAbortedTaskFinished: a displaced or aborted invocation ignored its
	// cancellation signal and settled later. Its outcome is carried on the
	// event for observability only; it never reaches the series future.
	EventAbortedTaskFinished
)

// eventSeriesEnded is an internal subscription slot for the union of the
// terminal kinds (series succeeded, series failed, and task aborted with
// IsSeriesEnd set). It is never carried on an Event itself.
const eventSeriesEnded EventKind = -1

func (k EventKind) String() string {
	switch k {
	case EventTaskStarted:
		return "task-started"
	case EventTaskAborted:
		return "task-aborted"
	case EventTaskDeferred:
		return "task-deferred"
	case EventTaskIgnored:
		return "task-ignored"
	case EventSeriesStarted:
		return "series-started"
	case EventSeriesSucceeded:
		return "series-succeeded"
	case EventSeriesFailed:
		return "series-failed"
	case EventAbortedTaskFinished:
		return "aborted-task-finished"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is the payload delivered to hook handlers.
type Event[T any] struct {
	Kind EventKind

	// IsSeriesEnd is true exactly on the event corresponding to the final
	// outcome of a series.
	IsSeriesEnd bool

	// Seq is the sequence number of the Run call the event refers to.
	Seq uint64

	// Value carries the settled value for EventSeriesSucceeded and
	// EventAbortedTaskFinished; zero otherwise.
	Value T

	// Err carries the settlement error, if any.
	Err error

	Time time.Time
}

// isTerminal reports whether the event concludes a series.
func (e Event[T]) isTerminal() bool {
	switch e.Kind {
	case EventSeriesSucceeded, EventSeriesFailed:
		return true
	case EventTaskAborted:
		return e.IsSeriesEnd
	}
	return false
}

// Handler observes coordinator events. Handlers are best-effort observers:
// a panic in a handler is recovered and reported, and never prevents the
// remaining handlers or the coordinator's bookkeeping from running.
type Handler[T any] func(Event[T])

// =============================================================================
// hookRegistry: Ordered per-kind subscriptions + serialized dispatch
// =============================================================================

type subscription[T any] struct {
	id      uint64
	handler Handler[T]
}

// hookRegistry holds ordered handler lists per event kind and a dispatch
// queue that serializes event delivery.
//
// Events are enqueued while the coordinator's state lock is held, which pins
// queue order to transition order. Delivery happens outside that lock via a
// single drainer, so handlers may freely call back into the coordinator.
// The subscriber list is snapshotted per event: (un)subscribing during a
// dispatch pass never affects that pass.
type hookRegistry[T any] struct {
	coordinatorName string
	panicHandler    PanicHandler

	mu     sync.Mutex
	nextID uint64
	subs   map[EventKind][]subscription[T]

	queue    []Event[T]
	draining bool
}

func newHookRegistry[T any](coordinatorName string, panicHandler PanicHandler) *hookRegistry[T] {
	return &hookRegistry[T]{
		coordinatorName: coordinatorName,
		panicHandler:    panicHandler,
		subs:            make(map[EventKind][]subscription[T]),
	}
}

// subscribe appends handler to the kind's ordered list and returns an
// idempotent unsubscribe function.
func (r *hookRegistry[T]) subscribe(kind EventKind, handler Handler[T]) func() {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.subs[kind] = append(r.subs[kind], subscription[T]{id: id, handler: handler})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			list := r.subs[kind]
			for i, sub := range list {
				if sub.id == id {
					// Copy-on-remove so an in-flight snapshot stays intact.
					next := make([]subscription[T], 0, len(list)-1)
					next = append(next, list[:i]...)
					next = append(next, list[i+1:]...)
					r.subs[kind] = next
					return
				}
			}
		})
	}
}

// enqueue appends events to the dispatch queue without delivering them.
// Callers enqueue in transition order and then call dispatch once their
// state lock is released.
func (r *hookRegistry[T]) enqueue(events ...Event[T]) {
	if len(events) == 0 {
		return
	}
	r.mu.Lock()
	r.queue = append(r.queue, events...)
	r.mu.Unlock()
}

// dispatch drains the queue, delivering events in order. If another
// goroutine is already draining, it will pick up the new events; dispatch
// returns immediately in that case.
func (r *hookRegistry[T]) dispatch() {
	r.mu.Lock()
	if r.draining {
		r.mu.Unlock()
		return
	}
	r.draining = true
	for len(r.queue) > 0 {
		ev := r.queue[0]
		r.queue = r.queue[1:]

		// Snapshot the subscriber lists for this event.
		handlers := make([]subscription[T], 0, len(r.subs[ev.Kind]))
		handlers = append(handlers, r.subs[ev.Kind]...)
		if ev.isTerminal() {
			handlers = append(handlers, r.subs[eventSeriesEnded]...)
		}
		r.mu.Unlock()

		for _, sub := range handlers {
			r.invoke(sub.handler, ev)
		}

		r.mu.Lock()
	}
	r.draining = false
	if len(r.queue) == 0 {
		r.queue = nil
	}
	r.mu.Unlock()
}

// invoke calls one handler with panic recovery.
func (r *hookRegistry[T]) invoke(handler Handler[T], ev Event[T]) {
	defer func() {
		if p := recover(); p != nil {
			r.panicHandler.HandlePanic(r.coordinatorName, "hook", p, debug.Stack())
		}
	}()
	handler(ev)
}
