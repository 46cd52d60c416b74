package sim

import "time"

// LatencySample is one pairwise latency reading in a snapshot.
type LatencySample struct {
	ID        string    `json:"id"` // "{sourceId}-{targetId}"
	SourceID  string    `json:"sourceId"`
	TargetID  string    `json:"targetId"`
	LatencyMs float64   `json:"latency"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is an independent, fully materialized copy of the latency table at one instant.
// Consumers may keep or modify it freely; the store never sees those changes.
type Snapshot []LatencySample

// PairKey builds the sample id for an ordered pair.
func PairKey(sourceID, targetID string) string {
	return sourceID + "-" + targetID
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	copy(out, s)
	return out
}

// Values returns the latency values in snapshot order.
func (s Snapshot) Values() []float64 {
	out := make([]float64, len(s))
	for i, sample := range s {
		out[i] = sample.LatencyMs
	}
	return out
}
