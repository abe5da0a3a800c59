package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFuture_ResolveOnce(t *testing.T) {
	f := NewFuture[int]()

	if f.Settled() {
		t.Fatal("new future reports settled")
	}

	f.resolve(42)
	f.resolve(43)                    // no-op
	f.reject(errors.New("too late")) // no-op

	if !f.Settled() {
		t.Fatal("future not settled after resolve")
	}
	if v, err := f.Result(); err != nil || v != 42 {
		t.Fatalf("Result() = (%v, %v), want (42, nil)", v, err)
	}
}

func TestFuture_RejectOnce(t *testing.T) {
	f := NewFuture[string]()
	errBoom := errors.New("boom")

	f.reject(errBoom)
	f.resolve("too late") // no-op

	if v, err := f.Result(); !errors.Is(err, errBoom) || v != "" {
		t.Fatalf("Result() = (%q, %v), want (\"\", boom)", v, err)
	}
}

func TestFuture_WaitContextCancelled(t *testing.T) {
	f := NewFuture[int]()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := f.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait error = %v, want DeadlineExceeded", err)
	}

	// The future itself is still pending and can settle later.
	f.resolve(1)
	if v, err := f.Wait(nil); err != nil || v != 1 {
		t.Fatalf("Wait after resolve = (%v, %v), want (1, nil)", v, err)
	}
}

func TestFuture_ConcurrentWaiters(t *testing.T) {
	f := NewFuture[int]()

	results := make(chan int, 8)
	for range 8 {
		go func() {
			v, _ := f.Result()
			results <- v
		}()
	}

	f.resolve(7)
	for range 8 {
		select {
		case v := <-results:
			if v != 7 {
				t.Fatalf("waiter saw %d, want 7", v)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("waiter did not observe settlement")
		}
	}
}
