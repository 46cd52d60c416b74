package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/latency-sim/latency-sim/sim/trace"
)

const (
	// DefaultTickPeriod is the scheduler cadence.
	DefaultTickPeriod = 5 * time.Second
)

// EngineConfig holds the tunables of an Engine. Zero values fall back to defaults.
type EngineConfig struct {
	Seed             int64
	TickPeriod       time.Duration
	ArbitragePeriod  time.Duration
	AlertThresholdMs float64
	AlertPolicy      AlertPolicy
	Trace            trace.TraceConfig

	// Jitter, when set, replaces the seeded per-tick jitter source.
	Jitter Float64Source
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.TickPeriod <= 0 {
		c.TickPeriod = DefaultTickPeriod
	}
	if c.ArbitragePeriod <= 0 {
		c.ArbitragePeriod = DefaultArbitragePeriod
	}
	if c.AlertThresholdMs == 0 {
		c.AlertThresholdMs = DefaultAlertThresholdMs
	}
	if c.AlertPolicy == "" {
		c.AlertPolicy = AlertPolicyAppend
	}
	return c
}

// Engine is the composition root: it owns the latency store, its scheduler and
// the analytics consumers fed from each delivered snapshot.
//
// Each delivered snapshot flows, in order, through alert evaluation, the
// arbitrage scanner's latest-snapshot slot, the run trace and finally every
// subscriber.
type Engine struct {
	config    EngineConfig
	servers   *ServerSet
	rng       *PartitionedRNG
	store     *LatencyStore
	scheduler *Scheduler
	alerts    *AlertEvaluator
	scanner   *ArbitrageScanner
	trace     *trace.RunTrace

	mu          sync.RWMutex
	latest      Snapshot
	subscribers []SnapshotFunc

	historyMu sync.Mutex

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool
	cancelRun   context.CancelFunc
	group       *errgroup.Group
}

// NewEngine builds an engine over servers. The latency table is initialized here.
func NewEngine(servers *ServerSet, config EngineConfig) (*Engine, error) {
	if servers == nil {
		return nil, errors.New("engine: server set is nil")
	}
	config = config.withDefaults()
	if !trace.IsValidTraceLevel(string(config.Trace.Level)) {
		return nil, fmt.Errorf("engine: unknown trace level %q", config.Trace.Level)
	}

	rng := NewPartitionedRNG(NewSimulationKey(config.Seed))
	if config.Jitter != nil {
		rng.Override(SubsystemJitter, config.Jitter)
	}
	alerts, err := NewAlertEvaluator(servers, config.AlertThresholdMs, config.AlertPolicy)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	store := NewLatencyStore(servers, rng)

	e := &Engine{
		config:    config,
		servers:   servers,
		rng:       rng,
		store:     store,
		scheduler: NewScheduler(store),
		alerts:    alerts,
		scanner:   NewArbitrageScanner(servers),
		trace:     trace.NewRunTrace(config.Trace),
	}
	e.scheduler.SetSubscriber(e.handleSnapshot)
	logrus.WithFields(logrus.Fields{
		"servers":   servers.Len(),
		"pairs":     store.Len(),
		"seed":      config.Seed,
		"tick":      config.TickPeriod,
		"arbitrage": config.ArbitragePeriod,
	}).Info("engine initialized")
	return e, nil
}

// Subscribe registers fn to receive every delivered snapshot.
func (e *Engine) Subscribe(fn SnapshotFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, fn)
}

// handleSnapshot is the scheduler's subscriber.
func (e *Engine) handleSnapshot(snap Snapshot) {
	fresh := e.alerts.Evaluate(snap)
	e.scanner.Observe(snap)

	e.mu.Lock()
	e.latest = snap
	subscribers := append([]SnapshotFunc(nil), e.subscribers...)
	e.mu.Unlock()

	if e.trace.Enabled() {
		e.trace.RecordTick(tickRecord(e.scheduler.Ticks(), snap, fresh))
	}
	for _, fn := range subscribers {
		fn(snap.Clone())
	}
}

func tickRecord(tick int64, snap Snapshot, fresh []AlertEvent) trace.TickRecord {
	m := SummarizeSnapshot(snap, 0)
	rec := trace.TickRecord{
		Tick:          tick,
		Delivered:     true,
		Samples:       len(snap),
		MeanLatencyMs: m.AvgLatencyMs,
		MaxLatencyMs:  m.MaxLatencyMs,
		NewAlerts:     len(fresh),
	}
	if len(snap) > 0 {
		rec.Timestamp = snap[0].Timestamp
	}
	for _, a := range fresh {
		if a.Severity == SeverityCritical {
			rec.CriticalNew++
		}
	}
	return rec
}

// Publish delivers the current store state without perturbing it.
// Start calls it once so consumers have data before the first tick.
func (e *Engine) Publish() {
	e.scheduler.Publish()
}

// Step performs one scheduler tick synchronously. Paused ticks are traced as suppressed.
func (e *Engine) Step() {
	e.scheduler.Tick()
	if e.scheduler.Paused() && e.trace.Enabled() {
		e.trace.RecordTick(trace.TickRecord{
			Tick:      e.scheduler.Ticks(),
			Timestamp: time.Now(),
			Samples:   e.store.Len(),
		})
	}
}

// ScanArbitrage runs one arbitrage scan over the latest snapshot and traces it.
func (e *Engine) ScanArbitrage() []Opportunity {
	result := e.scanner.Scan()
	e.recordScan(result)
	return result
}

func (e *Engine) recordScan(result []Opportunity) {
	rec := trace.ScanRecord{Timestamp: time.Now(), Opportunities: len(result)}
	if len(result) > 0 {
		rec.BestProfit = result[0].ProfitEstimate
	}
	e.trace.RecordScan(rec)
}

// Start publishes the initial state, starts the tick timer and the arbitrage
// cadence. It returns an error if the engine was already started or stopped.
func (e *Engine) Start(ctx context.Context) error {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	if e.stopped {
		return errors.New("engine: already stopped")
	}
	if e.started {
		return errors.New("engine: Start called more than once")
	}
	e.started = true

	e.Publish()
	runCtx, cancel := context.WithCancel(ctx)
	e.cancelRun = cancel
	e.group, runCtx = errgroup.WithContext(runCtx)

	e.scheduler.Start(e.config.TickPeriod, e.handleSnapshot)
	e.group.Go(func() error {
		err := e.scanner.Run(runCtx, e.config.ArbitragePeriod, e.recordScan)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	e.group.Go(func() error {
		<-runCtx.Done()
		e.scheduler.Stop()
		return nil
	})
	return nil
}

// Stop tears down the timers and waits for them to exit. Idempotent.
// Must not be called from a subscriber.
func (e *Engine) Stop() error {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	if e.stopped {
		return nil
	}
	e.stopped = true
	if !e.started {
		e.scheduler.Stop()
		return nil
	}
	e.cancelRun()
	err := e.group.Wait()
	logrus.Info("engine stopped")
	return err
}

// Pause freezes snapshot delivery.
func (e *Engine) Pause() { e.scheduler.Pause() }

// Resume re-enables delivery and delivers the current state immediately.
func (e *Engine) Resume() { e.scheduler.Resume() }

// Paused reports whether delivery is paused.
func (e *Engine) Paused() bool { return e.scheduler.Paused() }

// Latency is the point query passthrough to the store.
func (e *Engine) Latency(sourceID, targetID string) float64 {
	return e.store.Latency(sourceID, targetID)
}

// Latest returns a copy of the last delivered snapshot, or nil before the first delivery.
func (e *Engine) Latest() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latest.Clone()
}

// Topology aggregates the last delivered snapshot.
func (e *Engine) Topology() TopologyStats {
	return AggregateTopology(e.servers, e.Latest())
}

// Metrics summarizes the last delivered snapshot.
func (e *Engine) Metrics() Metrics {
	return SummarizeSnapshot(e.Latest(), e.servers.Len())
}

// Predictions forecasts from the last delivered snapshot.
func (e *Engine) Predictions(seed int) []Prediction {
	return PredictLatency(e.Latest(), seed)
}

// History synthesizes a latency history for charting from the seeded history source.
func (e *Engine) History(hours float64) []HistoricalPoint {
	e.historyMu.Lock()
	defer e.historyMu.Unlock()
	return HistoricalSeries(hours, time.Now(), e.rng.ForSubsystem(SubsystemHistory))
}

// Servers returns the engine's server set.
func (e *Engine) Servers() *ServerSet { return e.servers }

// Alerts returns the alert evaluator.
func (e *Engine) Alerts() *AlertEvaluator { return e.alerts }

// Scanner returns the arbitrage scanner.
func (e *Engine) Scanner() *ArbitrageScanner { return e.scanner }

// Trace returns the run trace.
func (e *Engine) Trace() *trace.RunTrace { return e.trace }

// Ticks returns the number of scheduler ticks so far.
func (e *Engine) Ticks() int64 { return e.scheduler.Ticks() }
