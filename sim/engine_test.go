package sim_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latency-sim/latency-sim/sim"
	"github.com/latency-sim/latency-sim/sim/internal/testutil"
	"github.com/latency-sim/latency-sim/sim/trace"
)

func newEngine(t *testing.T, cfg sim.EngineConfig) *sim.Engine {
	t.Helper()
	e, err := sim.NewEngine(testutil.NewServerSet(t, testutil.TriangleServers()), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Stop() })
	return e
}

func TestEngine_EndToEnd_SingleAlertOnLongestPair(t *testing.T) {
	// GIVEN three equator servers and a threshold between B-C and A-C
	e := newEngine(t, sim.EngineConfig{Seed: 42, AlertThresholdMs: 88.4})

	// THEN the table has three samples ordered by distance
	ab, bc, ac := e.Latency("A", "B"), e.Latency("B", "C"), e.Latency("A", "C")
	require.Less(t, ab, bc)
	require.Less(t, bc, ac)
	require.Greater(t, ac, 88.4)
	require.Less(t, bc, 88.4)

	// WHEN the current state is published
	e.Publish()

	// THEN exactly one alert names the A-C pair
	require.Len(t, e.Latest(), 3)
	alerts := e.Alerts().Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, "A-C", alerts[0].SampleID)
	assert.Equal(t, "A", alerts[0].ServerID)
	assert.Equal(t, sim.SeverityWarning, alerts[0].Severity)
}

func TestNewEngine_Validation(t *testing.T) {
	_, err := sim.NewEngine(nil, sim.EngineConfig{})
	assert.Error(t, err)

	set := testutil.NewServerSet(t, testutil.TriangleServers())
	_, err = sim.NewEngine(set, sim.EngineConfig{AlertThresholdMs: -1})
	assert.Error(t, err)
	_, err = sim.NewEngine(set, sim.EngineConfig{AlertPolicy: "bogus"})
	assert.Error(t, err)
	_, err = sim.NewEngine(set, sim.EngineConfig{Trace: trace.TraceConfig{Level: "verbose"}})
	assert.Error(t, err)
}

func TestEngine_LatestIsNilUntilFirstDelivery(t *testing.T) {
	e := newEngine(t, sim.EngineConfig{})
	assert.Nil(t, e.Latest())
	assert.Equal(t, 0, e.Topology().LinkCount())
	assert.Equal(t, 100.0, e.Metrics().PerformanceScore)
}

func TestEngine_SubscribersReceiveIndependentCopies(t *testing.T) {
	e := newEngine(t, sim.EngineConfig{})
	var got sim.Snapshot
	e.Subscribe(func(s sim.Snapshot) {
		got = s
		s[0].LatencyMs = -1
	})

	e.Publish()

	require.Len(t, got, 3)
	assert.Greater(t, e.Latest()[0].LatencyMs, 0.0, "subscriber edits must not leak into the engine")
	assert.Greater(t, e.Latency("A", "B"), 0.0)
}

func TestEngine_StepPauseResume(t *testing.T) {
	// GIVEN jitter fixed at +2.5ms and tracing on
	e := newEngine(t, sim.EngineConfig{
		Jitter: testutil.ConstSource(0.75),
		Trace:  trace.TraceConfig{Level: trace.TraceLevelTicks},
	})
	var deliveries atomic.Int64
	e.Subscribe(func(sim.Snapshot) { deliveries.Add(1) })
	base := e.Latency("A", "B")

	// WHEN stepping twice, then twice more while paused
	e.Step()
	e.Step()
	e.Pause()
	e.Step()
	e.Step()

	// THEN only the unpaused steps delivered, but all four drifted the table
	assert.Equal(t, int64(2), deliveries.Load())
	assert.Equal(t, int64(4), e.Ticks())
	assert.InDelta(t, base+10, e.Latency("A", "B"), 1e-9)
	assert.InDelta(t, base+5, e.Latest()[0].LatencyMs, 1e-9, "latest is from the last delivered tick")

	// WHEN resuming
	e.Resume()

	// THEN the current state is delivered once
	assert.Equal(t, int64(3), deliveries.Load())
	assert.InDelta(t, base+10, e.Latest()[0].LatencyMs, 1e-9)
	assert.False(t, e.Paused())

	s := trace.Summarize(e.Trace())
	assert.Equal(t, 5, s.TotalTicks)
	assert.Equal(t, 3, s.DeliveredTicks)
	assert.Equal(t, 2, s.SuppressedTicks)
}

func TestEngine_ScanArbitrage(t *testing.T) {
	e := newEngine(t, sim.EngineConfig{Trace: trace.TraceConfig{Level: trace.TraceLevelTicks}})
	assert.Empty(t, e.ScanArbitrage(), "no snapshot delivered yet")

	e.Publish()
	opps := e.ScanArbitrage()

	assert.Len(t, opps, 3)
	assert.Equal(t, opps, e.Scanner().Opportunities())
	scans := e.Trace().Scans()
	require.Len(t, scans, 2)
	assert.Equal(t, 3, scans[1].Opportunities)
	assert.Equal(t, opps[0].ProfitEstimate, scans[1].BestProfit)
}

func TestEngine_Analytics(t *testing.T) {
	e := newEngine(t, sim.EngineConfig{})
	e.Publish()

	assert.Equal(t, 3, e.Topology().LinkCount())
	m := e.Metrics()
	assert.Equal(t, 3, m.TotalServers)
	assert.Equal(t, 3, m.TotalConnections)
	assert.Len(t, e.Predictions(sim.DefaultForecastSeed), 2, "A and B are the only sources")
	assert.Len(t, e.History(1), 100)
}

func TestEngine_StartStop(t *testing.T) {
	// GIVEN an engine on short timers
	e := newEngine(t, sim.EngineConfig{TickPeriod: 5 * time.Millisecond, ArbitragePeriod: 10 * time.Millisecond})
	var deliveries atomic.Int64
	e.Subscribe(func(sim.Snapshot) { deliveries.Add(1) })

	// WHEN started
	require.NoError(t, e.Start(context.Background()))

	// THEN the initial state is available at once and the timers keep delivering
	assert.NotNil(t, e.Latest())
	assert.Eventually(t, func() bool { return e.Ticks() >= 3 && deliveries.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return e.Scanner().Opportunities() != nil }, 2*time.Second, 5*time.Millisecond)

	// WHEN stopped
	require.NoError(t, e.Stop())
	stoppedAt := deliveries.Load()
	time.Sleep(30 * time.Millisecond)

	// THEN nothing more is delivered, Stop is idempotent and the engine cannot restart
	assert.Equal(t, stoppedAt, deliveries.Load())
	assert.NoError(t, e.Stop())
	assert.Error(t, e.Start(context.Background()))
}

func TestEngine_StartStopsWhenContextEnds(t *testing.T) {
	e := newEngine(t, sim.EngineConfig{TickPeriod: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, e.Start(ctx))
	assert.Error(t, e.Start(ctx), "second Start")

	cancel()
	assert.Eventually(t, func() bool {
		ticks := e.Ticks()
		time.Sleep(20 * time.Millisecond)
		return ticks == e.Ticks()
	}, 2*time.Second, time.Millisecond)
	assert.NoError(t, e.Stop())
}
