// Package taskcoord coordinates streams of asynchronous, mutually-exclusive
// task invocations so that only the most recently requested invocation's
// outcome is authoritative, while superseded in-flight work is actively
// cancelled.
//
// It is aimed at call sites that repeatedly trigger an async operation,
// such as search-as-you-type, autosave, and live validation, where only the
// freshest result matters and stale work should stop consuming resources.
//
// # Quick Start
//
// Create a coordinator and run invocations through it:
//
//	coord := taskcoord.New[[]Result](taskcoord.DefaultConfig(), nil)
//
//	fut := coord.Run(func(ctx context.Context) ([]Result, error) {
//		return search(ctx, query)
//	})
//	results, err := fut.Wait(ctx)
//
// Every Run cancels the previous invocation's context. A cancelled
// invocation's future rejects with ErrTaskAborted; its eventual outcome never
// reaches the series future.
//
// # Rate limiting
//
// A debounce or throttle window can be placed in front of the active slot:
//
//	coord := taskcoord.New[[]Result](
//		taskcoord.Debounce(200*time.Millisecond, taskcoord.EdgeTrailing), nil)
//
// Calls superseded inside the window never run; their futures reject with
// ErrTaskIgnored. At most one deferred call is held at a time.
//
// # Series
//
// The series future represents "the answer that currently matters": it
// settles with the outcome of the last invocation accepted to run, regardless
// of the settlement order of earlier, cancelled invocations. Read it via
// CurrentSeriesResult or subscribe to OnSeriesEnded.
//
// # Hooks
//
// Subscribers can observe every lifecycle transition (task started, aborted,
// deferred, ignored; series started, succeeded, failed, ended; aborted task
// finished late). Handlers are best-effort observers: panics are recovered
// and reported, never propagated into coordination.
//
// # Cancellation
//
// Cancellation is cooperative. The coordinator cancels the invocation's
// context, but a task body that never inspects it runs to completion; the
// engine guarantees only that such a completion cannot become authoritative.
//
// For more details, see https://github.com/taskcoord/go-task-coordinator
package taskcoord
