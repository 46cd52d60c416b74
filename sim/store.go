package sim

import (
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// pairEntry is one row of the latency table.
type pairEntry struct {
	key       string
	sourceID  string
	targetID  string
	latencyMs float64
}

// LatencyStore owns the pairwise latency table for a fixed server set.
// The table holds exactly one entry per unordered pair of distinct servers,
// keyed "{id_i}-{id_j}" with i < j in server-set order.
//
// The store is the only mutator of the table. A RWMutex guards it so that
// point queries from other goroutines never observe a half-perturbed table.
type LatencyStore struct {
	mu      sync.RWMutex
	entries []pairEntry       // insertion order; never re-keyed
	index   map[[2]string]int // {source, target} -> position in entries
	jitter  Float64Source
	now     func() time.Time
}

// NewLatencyStore builds the table from great-circle base latencies.
// Base-latency noise is drawn from the rng's SubsystemInit source and
// per-tick jitter from SubsystemJitter.
func NewLatencyStore(servers *ServerSet, rng *PartitionedRNG) *LatencyStore {
	n := servers.Len()
	s := &LatencyStore{
		entries: make([]pairEntry, 0, n*(n-1)/2),
		index:   make(map[[2]string]int, n*(n-1)/2),
		jitter:  rng.ForSubsystem(SubsystemJitter),
		now:     time.Now,
	}
	initSrc := rng.ForSubsystem(SubsystemInit)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			src, dst := servers.At(i), servers.At(j)
			km := DistanceKm(src.Location.Lat, src.Location.Lon, dst.Location.Lat, dst.Location.Lon)
			s.index[[2]string{src.ID, dst.ID}] = len(s.entries)
			s.entries = append(s.entries, pairEntry{
				key:       PairKey(src.ID, dst.ID),
				sourceID:  src.ID,
				targetID:  dst.ID,
				latencyMs: EstimateBaseLatency(km, initSrc),
			})
		}
	}
	logrus.Debugf("latency store initialized: %d servers, %d pairs", n, len(s.entries))
	return s
}

// Len returns the number of stored pairs, n*(n-1)/2.
func (s *LatencyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Latency returns the current latency between two servers in either order.
// Returns 0 when no entry exists (same server, or an unknown id).
// Lookups go by id pair, not by the joined key, since ids may contain '-'.
func (s *LatencyStore) Latency(sourceID, targetID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.index[[2]string{sourceID, targetID}]; ok {
		return s.entries[i].latencyMs
	}
	if i, ok := s.index[[2]string{targetID, sourceID}]; ok {
		return s.entries[i].latencyMs
	}
	return 0
}

// Perturb adds uniform jitter in [-5, +5) to every entry, floored at MinLatencyMs.
// The key set is unchanged.
func (s *LatencyStore) Perturb() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		e := &s.entries[i]
		e.latencyMs = math.Max(MinLatencyMs, e.latencyMs+uniform(s.jitter, jitterHalfWidthMs))
	}
}

// Snapshot materializes every entry in insertion order with one shared timestamp.
func (s *LatencyStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts := s.now()
	out := make(Snapshot, len(s.entries))
	for i, e := range s.entries {
		out[i] = LatencySample{
			ID:        e.key,
			SourceID:  e.sourceID,
			TargetID:  e.targetID,
			LatencyMs: e.latencyMs,
			Timestamp: ts,
		}
	}
	return out
}
