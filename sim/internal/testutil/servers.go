// Package testutil provides shared fixtures and assertion helpers used across
// the sim/ test packages.
package testutil

import (
	"math"
	"testing"

	"github.com/latency-sim/latency-sim/sim"
)

// TriangleServers returns three servers A, B, C on the equator at longitudes
// 0, 10 and 80. Base latencies (before noise) are about 16ms for A-B, 83ms for
// B-C and 94ms for A-C, so every pair is at least 10ms from the next.
func TriangleServers() []sim.Server {
	return []sim.Server{
		{ID: "A", Name: "Alpha", Location: sim.Location{City: "Gulf of Guinea", Country: "None", Lat: 0, Lon: 0}, Provider: sim.ProviderAWS, Region: "af-south-1"},
		{ID: "B", Name: "Bravo", Location: sim.Location{City: "Libreville", Country: "Gabon", Lat: 0, Lon: 10}, Provider: sim.ProviderGCP, Region: "africa-south1"},
		{ID: "C", Name: "Charlie", Location: sim.Location{City: "Indian Ocean", Country: "None", Lat: 0, Lon: 80}, Provider: sim.ProviderAzure, Region: "centralindia"},
	}
}

// NewServerSet builds a ServerSet and fails the test on error.
func NewServerSet(t *testing.T, servers []sim.Server) *sim.ServerSet {
	t.Helper()
	set, err := sim.NewServerSet(servers)
	if err != nil {
		t.Fatalf("NewServerSet: %v", err)
	}
	return set
}

// Sample builds a LatencySample for source->target.
func Sample(source, target string, latencyMs float64) sim.LatencySample {
	return sim.LatencySample{ID: sim.PairKey(source, target), SourceID: source, TargetID: target, LatencyMs: latencyMs}
}

// ConstSource always returns the same value from Float64.
type ConstSource float64

func (c ConstSource) Float64() float64 { return float64(c) }

// SeqSource replays a fixed sequence of Float64 values, wrapping around.
type SeqSource struct {
	Values []float64
	next   int
}

func (s *SeqSource) Float64() float64 {
	v := s.Values[s.next%len(s.Values)]
	s.next++
	return v
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
