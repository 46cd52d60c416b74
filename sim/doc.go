// Package sim provides the latency simulation engine: a fixed set of exchange
// servers, a pairwise latency table that drifts on a timer, and the analytics
// computed from each snapshot of that table.
//
// # Reading Guide
//
// Start with these files to understand the data flow:
//   - server.go: Server, CloudProvider and the validated ServerSet
//   - store.go: LatencyStore, the single owner and mutator of the latency table
//   - scheduler.go: the tick timer, pause/resume and snapshot delivery
//   - engine.go: the composition root wiring delivery into the consumers
//
// # Consumers
//
// Every delivered Snapshot is an independent copy. Consumers only read it:
//   - alert.go: AlertEvaluator, threshold breaches with warning/critical severity
//   - arbitrage.go: ArbitrageScanner, synthetic opportunities on its own cadence
//   - topology.go: connection counts and links
//   - metrics.go: summary statistics and per-provider breakdowns
//   - forecast.go: seeded predictions and synthetic history for charts
//   - filter.go: narrowing by exchange, provider and latency range
//
// # Sub-packages
//
//   - sim/trace/: per-tick and per-scan run records
//   - sim/export/: the JSON latency report
//   - sim/feed/: WebSocket fan-out of delivered snapshots
//
// # Randomness
//
// All noise comes from PartitionedRNG, so one seed reproduces the base
// latencies and the jitter sequence. Predictions use SeededValue and are a pure
// function of the snapshot and the prediction seed.
package sim
