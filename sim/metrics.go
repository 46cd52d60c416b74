// Tracks snapshot-wide latency metrics such as:
// average, min, max, p95 latency, connection counts and per-provider breakdowns.

package sim

import (
	"fmt"
	"io"
	"math"
)

// LatencyRange buckets a latency for display and filtering.
type LatencyRange string

const (
	RangeLow    LatencyRange = "low"
	RangeMedium LatencyRange = "medium"
	RangeHigh   LatencyRange = "high"
)

// ClassifyLatency: low below 50ms, medium below 150ms, high otherwise.
func ClassifyLatency(latencyMs float64) LatencyRange {
	switch {
	case latencyMs < 50:
		return RangeLow
	case latencyMs < 150:
		return RangeMedium
	default:
		return RangeHigh
	}
}

// Metrics aggregates statistics about one snapshot for reporting.
type Metrics struct {
	AvgLatencyMs      float64              `json:"avgLatency"`
	MinLatencyMs      float64              `json:"minLatency"`
	MaxLatencyMs      float64              `json:"maxLatency"`
	P95LatencyMs      float64              `json:"p95Latency"`
	TotalConnections  int                  `json:"totalConnections"`
	TotalServers      int                  `json:"totalServers"`
	PerformanceScore  float64              `json:"performanceScore"` // max(0, 100 - avg/2)
	RangeDistribution map[LatencyRange]int `json:"rangeDistribution"`
}

// SummarizeSnapshot computes Metrics over snap. totalServers is reported as given.
// An empty snapshot yields zero latencies and a performance score of 100.
func SummarizeSnapshot(snap Snapshot, totalServers int) Metrics {
	m := Metrics{
		TotalConnections:  len(snap),
		TotalServers:      totalServers,
		RangeDistribution: map[LatencyRange]int{RangeLow: 0, RangeMedium: 0, RangeHigh: 0},
	}
	if len(snap) == 0 {
		m.PerformanceScore = 100
		return m
	}
	values := snap.Values()
	m.MinLatencyMs = math.Inf(1)
	for _, v := range values {
		m.MinLatencyMs = math.Min(m.MinLatencyMs, v)
		m.MaxLatencyMs = math.Max(m.MaxLatencyMs, v)
		m.RangeDistribution[ClassifyLatency(v)]++
	}
	m.AvgLatencyMs = CalculateMean(values)
	m.P95LatencyMs = CalculatePercentile(values, 95)
	m.PerformanceScore = math.Max(0, 100-m.AvgLatencyMs/2)
	return m
}

// ProviderStats is the per-provider breakdown.
type ProviderStats struct {
	Provider     CloudProvider `json:"provider"`
	Servers      int           `json:"servers"`
	AvgLatencyMs float64       `json:"avgLatency"` // over samples whose source is on this provider
}

// SummarizeProviders counts servers per provider and averages latency by the
// source server's provider. Every provider in AllProviders is present.
func SummarizeProviders(servers *ServerSet, snap Snapshot) []ProviderStats {
	type acc struct {
		servers int
		total   float64
		count   int
	}
	byProvider := make(map[CloudProvider]*acc, len(AllProviders))
	for _, p := range AllProviders {
		byProvider[p] = &acc{}
	}
	for _, s := range servers.Servers() {
		byProvider[s.Provider].servers++
	}
	for _, sample := range snap {
		if s, ok := servers.Lookup(sample.SourceID); ok {
			a := byProvider[s.Provider]
			a.total += sample.LatencyMs
			a.count++
		}
	}

	out := make([]ProviderStats, 0, len(AllProviders))
	for _, p := range AllProviders {
		a := byProvider[p]
		ps := ProviderStats{Provider: p, Servers: a.servers}
		if a.count > 0 {
			ps.AvgLatencyMs = a.total / float64(a.count)
		}
		out = append(out, ps)
	}
	return out
}

// Print writes a human-readable report of the metrics.
func (m Metrics) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Latency Metrics ===")
	fmt.Fprintf(w, "Total Servers        : %d\n", m.TotalServers)
	fmt.Fprintf(w, "Active Connections   : %d\n", m.TotalConnections)
	if m.TotalConnections > 0 {
		fmt.Fprintf(w, "Avg Latency          : %.1fms\n", m.AvgLatencyMs)
		fmt.Fprintf(w, "Min Latency          : %.1fms\n", m.MinLatencyMs)
		fmt.Fprintf(w, "Max Latency          : %.1fms\n", m.MaxLatencyMs)
		fmt.Fprintf(w, "P95 Latency          : %.1fms\n", m.P95LatencyMs)
		fmt.Fprintf(w, "Ranges (low/med/high): %d/%d/%d\n",
			m.RangeDistribution[RangeLow], m.RangeDistribution[RangeMedium], m.RangeDistribution[RangeHigh])
	}
	fmt.Fprintf(w, "Performance Score    : %.1f\n", m.PerformanceScore)
}
