// Package export renders the latency report document: the latest snapshot,
// the (filtered) server set and summary metrics as indented JSON.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sugawarayuuta/sonnet"

	"github.com/latency-sim/latency-sim/sim"
)

// ReportMetrics is the summary block of a report.
type ReportMetrics struct {
	AvgLatencyMs     float64 `json:"avgLatency"`
	MinLatencyMs     float64 `json:"minLatency"`
	MaxLatencyMs     float64 `json:"maxLatency"`
	TotalConnections int     `json:"totalConnections"`
	TotalServers     int     `json:"totalServers"`
}

// ReportFilters echoes the filters the report was produced with.
type ReportFilters struct {
	CloudProviders []sim.CloudProvider `json:"cloudProviders"`
	Exchanges      []string            `json:"exchanges"`
	LatencyRange   *sim.LatencyRange   `json:"latencyRange"`
}

// Report is the exported document.
type Report struct {
	Timestamp string                  `json:"timestamp"` // RFC 3339, UTC
	Servers   []sim.Server            `json:"servers"`
	Latencies []sim.LatencySample     `json:"latencies"`
	Metrics   ReportMetrics           `json:"metrics"`
	Providers []sim.ProviderStats     `json:"providers"`
	Alerts    []sim.AlertEvent        `json:"alerts"`
	Arbitrage []sim.Opportunity       `json:"arbitrage"`
	Topology  []sim.ServerConnections `json:"topConnected"`
	Filters   ReportFilters           `json:"filters"`
}

// BuildReport assembles a report from already computed engine state.
// Servers and samples are narrowed by filters; metrics are computed over the
// narrowed set so they describe exactly what the document contains.
func BuildReport(engine *sim.Engine, filters sim.Filters, now time.Time) Report {
	set := engine.Servers()
	servers := filters.Servers(set)
	samples := filters.Samples(set, engine.Latest())
	m := sim.SummarizeSnapshot(samples, len(servers))

	if servers == nil {
		servers = []sim.Server{}
	}
	return Report{
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Servers:   servers,
		Latencies: samples,
		Metrics: ReportMetrics{
			AvgLatencyMs:     m.AvgLatencyMs,
			MinLatencyMs:     m.MinLatencyMs,
			MaxLatencyMs:     m.MaxLatencyMs,
			TotalConnections: m.TotalConnections,
			TotalServers:     m.TotalServers,
		},
		Providers: sim.SummarizeProviders(set, samples),
		Alerts:    engine.Alerts().Alerts(),
		Arbitrage: engine.Scanner().Opportunities(),
		Topology:  sim.AggregateTopology(set, samples).TopConnected(sim.DefaultTopConnected),
		Filters: ReportFilters{
			CloudProviders: filters.CloudProviders,
			Exchanges:      filters.Exchanges,
			LatencyRange:   filters.LatencyRange,
		},
	}
}

// Encode renders r as two-space indented JSON.
func Encode(r Report) ([]byte, error) {
	raw, err := sonnet.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("indenting report: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// WriteReport encodes r to w.
func WriteReport(w io.Writer, r Report) error {
	data, err := Encode(r)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// FileName is the download name of a report produced at now:
// latency-report-YYYY-MM-DD-<unix millis>.json.
func FileName(now time.Time) string {
	return fmt.Sprintf("latency-report-%s-%d.json", now.UTC().Format("2006-01-02"), now.UnixMilli())
}

// SaveReport writes r into dir under FileName(now) and returns the path.
func SaveReport(dir string, r Report, now time.Time) (string, error) {
	data, err := Encode(r)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing report %s: %w", path, err)
	}
	logrus.WithField("path", path).Info("latency report exported")
	return path, nil
}

// ReadReport decodes a report previously produced by Encode.
func ReadReport(data []byte) (Report, error) {
	var r Report
	if err := sonnet.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("decoding report: %w", err)
	}
	return r, nil
}
