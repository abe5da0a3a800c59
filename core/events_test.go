package core

import (
	"testing"
	"time"
)

func newTestRegistry() *hookRegistry[int] {
	return newHookRegistry[int]("test", &DefaultPanicHandler{})
}

func TestHookRegistry_DispatchOrderMatchesEnqueueOrder(t *testing.T) {
	r := newTestRegistry()

	var kinds []EventKind
	r.subscribe(EventTaskAborted, func(ev Event[int]) {
		kinds = append(kinds, ev.Kind)
	})
	r.subscribe(EventTaskStarted, func(ev Event[int]) {
		kinds = append(kinds, ev.Kind)
	})

	r.enqueue(
		Event[int]{Kind: EventTaskAborted},
		Event[int]{Kind: EventTaskStarted},
	)
	r.dispatch()

	if len(kinds) != 2 || kinds[0] != EventTaskAborted || kinds[1] != EventTaskStarted {
		t.Fatalf("delivery order = %v, want [task-aborted task-started]", kinds)
	}
}

func TestHookRegistry_ReentrantEnqueueIsDrainedInOrder(t *testing.T) {
	r := newTestRegistry()

	var kinds []EventKind
	r.subscribe(EventTaskStarted, func(ev Event[int]) {
		kinds = append(kinds, ev.Kind)
		// A handler reacting to an event, e.g. by calling Run, produces
		// follow-up events; they must be delivered by the outer drainer.
		if len(kinds) == 1 {
			r.enqueue(Event[int]{Kind: EventSeriesSucceeded, IsSeriesEnd: true})
			r.dispatch() // no-op: the outer pass is still draining
		}
	})
	r.subscribe(EventSeriesSucceeded, func(ev Event[int]) {
		kinds = append(kinds, ev.Kind)
	})

	r.enqueue(Event[int]{Kind: EventTaskStarted})
	r.dispatch()

	if len(kinds) != 2 || kinds[1] != EventSeriesSucceeded {
		t.Fatalf("delivery order = %v, want started then series-succeeded", kinds)
	}
}

func TestHookRegistry_SeriesEndedUnion(t *testing.T) {
	r := newTestRegistry()

	var got []Event[int]
	r.subscribe(eventSeriesEnded, func(ev Event[int]) {
		got = append(got, ev)
	})

	r.enqueue(
		Event[int]{Kind: EventSeriesSucceeded, IsSeriesEnd: true},
		Event[int]{Kind: EventSeriesFailed, IsSeriesEnd: true},
		Event[int]{Kind: EventTaskAborted, IsSeriesEnd: true},
		Event[int]{Kind: EventTaskAborted},         // displacement, not terminal
		Event[int]{Kind: EventTaskStarted},         // not terminal
		Event[int]{Kind: EventAbortedTaskFinished}, // not terminal
	)
	r.dispatch()

	if len(got) != 3 {
		t.Fatalf("series-ended union received %d events, want 3", len(got))
	}
}

func TestHookRegistry_HandlerPanicDoesNotStopDelivery(t *testing.T) {
	var recovered bool
	r := newHookRegistry[int]("test", panicRecorder{&recovered})

	var delivered int
	r.subscribe(EventTaskStarted, func(ev Event[int]) {
		panic("first handler")
	})
	r.subscribe(EventTaskStarted, func(ev Event[int]) {
		delivered++
	})

	r.enqueue(Event[int]{Kind: EventTaskStarted, Time: time.Now()})
	r.dispatch()

	if !recovered {
		t.Fatal("panic not routed to the panic handler")
	}
	if delivered != 1 {
		t.Fatalf("later handler delivered %d times, want 1", delivered)
	}
}

type panicRecorder struct {
	hit *bool
}

func (p panicRecorder) HandlePanic(string, string, any, []byte) {
	*p.hit = true
}

func TestHookRegistry_UnsubscribeUnknownKindSafe(t *testing.T) {
	r := newTestRegistry()

	unsub := r.subscribe(EventTaskIgnored, func(ev Event[int]) {})
	unsub()
	unsub()

	// Dispatch to a kind with no subscribers is a no-op.
	r.enqueue(Event[int]{Kind: EventTaskIgnored})
	r.dispatch()
}
