package prometheus

import (
	"context"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/taskcoord/go-task-coordinator/core"
)

type coordinatorStub struct {
	stats core.CoordinatorStats
}

func (s coordinatorStub) Stats() core.CoordinatorStats { return s.stats }

func TestSnapshotPoller_CollectsCoordinatorStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.AddCoordinator("coord-a", coordinatorStub{stats: core.CoordinatorStats{
		State:           "running",
		Active:          true,
		SeriesOpen:      true,
		DeferredPending: false,
		Closed:          false,
		TasksStarted:    5,
		TasksAborted:    2,
		TasksIgnored:    3,
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		started := testutil.ToFloat64(poller.tasksStarted.WithLabelValues("coord-a"))
		active := testutil.ToFloat64(poller.active.WithLabelValues("coord-a"))
		return started == 5 && active == 1
	})

	if got := testutil.ToFloat64(poller.seriesOpen.WithLabelValues("coord-a")); got != 1 {
		t.Fatalf("series open gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(poller.tasksIgnored.WithLabelValues("coord-a")); got != 3 {
		t.Fatalf("ignored gauge = %v, want 3", got)
	}
	if got := testutil.ToFloat64(poller.closed.WithLabelValues("coord-a")); got != 0 {
		t.Fatalf("closed gauge = %v, want 0", got)
	}
}

func TestSnapshotPoller_PollsLiveCoordinator(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	coord := core.NewCoordinator[int](core.DefaultConfig(), nil)
	defer coord.Shutdown()
	poller.AddCoordinator(coord.Name(), coord)

	fut := coord.Run(func(ctx context.Context) (int, error) { return 1, nil })
	if _, err := fut.Wait(nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		return testutil.ToFloat64(poller.tasksStarted.WithLabelValues(coord.Name())) == 1
	})
}

func TestSnapshotPoller_StartStop_Idempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.Start(ctx)
	poller.Start(ctx)
	poller.Stop()
	poller.Stop()
}

func assertEventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
