// Package trace provides per-tick record keeping for engine runs.
// This package has no dependencies on sim/; it stores pure data types.
package trace

import "time"

// TickRecord captures what one scheduler tick produced.
type TickRecord struct {
	Tick          int64
	Timestamp     time.Time
	Delivered     bool    // false when the scheduler was paused
	Samples       int     // snapshot size
	MeanLatencyMs float64 // mean over the snapshot; 0 when empty
	MaxLatencyMs  float64
	NewAlerts     int
	CriticalNew   int
}

// ScanRecord captures one arbitrage scan.
type ScanRecord struct {
	Timestamp     time.Time
	Opportunities int
	BestProfit    float64 // 0 when no opportunities
}
