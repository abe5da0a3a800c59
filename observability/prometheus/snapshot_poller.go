package prometheus

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/taskcoord/go-task-coordinator/core"
)

// SnapshotProvider provides current coordinator stats snapshots.
type SnapshotProvider interface {
	Stats() core.CoordinatorStats
}

// SnapshotPoller periodically exports coordinator Stats() snapshots into
// Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	providersMu sync.RWMutex
	providers   map[string]SnapshotProvider

	active          *prom.GaugeVec
	seriesOpen      *prom.GaugeVec
	deferredPending *prom.GaugeVec
	closed          *prom.GaugeVec
	tasksStarted    *prom.GaugeVec
	tasksAborted    *prom.GaugeVec
	tasksIgnored    *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	active := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskcoord",
		Name:      "coordinator_active",
		Help:      "Active slot occupancy (1=occupied, 0=empty).",
	}, []string{"coordinator"})
	seriesOpen := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskcoord",
		Name:      "coordinator_series_open",
		Help:      "Series future pending (1=open, 0=idle).",
	}, []string{"coordinator"})
	deferredPending := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskcoord",
		Name:      "coordinator_deferred_pending",
		Help:      "Deferral policy holding a call (1=held, 0=none).",
	}, []string{"coordinator"})
	closed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskcoord",
		Name:      "coordinator_closed",
		Help:      "Coordinator closed state (1=closed, 0=open).",
	}, []string{"coordinator"})
	tasksStarted := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskcoord",
		Name:      "coordinator_tasks_started",
		Help:      "Started invocation count snapshot.",
	}, []string{"coordinator"})
	tasksAborted := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskcoord",
		Name:      "coordinator_tasks_aborted",
		Help:      "Aborted invocation count snapshot.",
	}, []string{"coordinator"})
	tasksIgnored := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskcoord",
		Name:      "coordinator_tasks_ignored",
		Help:      "Ignored Run call count snapshot.",
	}, []string{"coordinator"})

	var err error
	if active, err = registerCollector(reg, active); err != nil {
		return nil, err
	}
	if seriesOpen, err = registerCollector(reg, seriesOpen); err != nil {
		return nil, err
	}
	if deferredPending, err = registerCollector(reg, deferredPending); err != nil {
		return nil, err
	}
	if closed, err = registerCollector(reg, closed); err != nil {
		return nil, err
	}
	if tasksStarted, err = registerCollector(reg, tasksStarted); err != nil {
		return nil, err
	}
	if tasksAborted, err = registerCollector(reg, tasksAborted); err != nil {
		return nil, err
	}
	if tasksIgnored, err = registerCollector(reg, tasksIgnored); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:        interval,
		providers:       make(map[string]SnapshotProvider),
		active:          active,
		seriesOpen:      seriesOpen,
		deferredPending: deferredPending,
		closed:          closed,
		tasksStarted:    tasksStarted,
		tasksAborted:    tasksAborted,
		tasksIgnored:    tasksIgnored,
	}, nil
}

// AddCoordinator adds or replaces a coordinator snapshot provider by name.
func (p *SnapshotPoller) AddCoordinator(name string, provider SnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "coordinator")
	p.providersMu.Lock()
	p.providers[name] = provider
	p.providersMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.providersMu.RLock()
	defer p.providersMu.RUnlock()

	for name, provider := range p.providers {
		stats := provider.Stats()
		p.active.WithLabelValues(name).Set(boolGauge(stats.Active))
		p.seriesOpen.WithLabelValues(name).Set(boolGauge(stats.SeriesOpen))
		p.deferredPending.WithLabelValues(name).Set(boolGauge(stats.DeferredPending))
		p.closed.WithLabelValues(name).Set(boolGauge(stats.Closed))
		p.tasksStarted.WithLabelValues(name).Set(float64(stats.TasksStarted))
		p.tasksAborted.WithLabelValues(name).Set(float64(stats.TasksAborted))
		p.tasksIgnored.WithLabelValues(name).Set(float64(stats.TasksIgnored))
	}
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
