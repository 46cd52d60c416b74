package trace

import "sync"

// TraceLevel controls the verbosity of run tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelTicks captures every tick and every arbitrage scan.
	TraceLevelTicks TraceLevel = "ticks"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:  true,
	TraceLevelTicks: true,
	"":              true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// RunTrace collects tick and scan records during an engine run.
// Safe for concurrent use: ticks and scans are recorded from different timers.
type RunTrace struct {
	Config TraceConfig

	mu    sync.Mutex
	ticks []TickRecord
	scans []ScanRecord
}

// NewRunTrace creates a RunTrace ready for recording.
func NewRunTrace(config TraceConfig) *RunTrace {
	return &RunTrace{
		Config: config,
		ticks:  make([]TickRecord, 0),
		scans:  make([]ScanRecord, 0),
	}
}

// Enabled reports whether records are kept.
func (rt *RunTrace) Enabled() bool {
	return rt != nil && rt.Config.Level == TraceLevelTicks
}

// RecordTick appends a tick record. No-op when tracing is disabled.
func (rt *RunTrace) RecordTick(record TickRecord) {
	if !rt.Enabled() {
		return
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.ticks = append(rt.ticks, record)
}

// RecordScan appends a scan record. No-op when tracing is disabled.
func (rt *RunTrace) RecordScan(record ScanRecord) {
	if !rt.Enabled() {
		return
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.scans = append(rt.scans, record)
}

// Ticks returns a copy of the tick records in recording order.
func (rt *RunTrace) Ticks() []TickRecord {
	if rt == nil {
		return nil
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append([]TickRecord(nil), rt.ticks...)
}

// Scans returns a copy of the scan records in recording order.
func (rt *RunTrace) Scans() []ScanRecord {
	if rt == nil {
		return nil
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append([]ScanRecord(nil), rt.scans...)
}
