package sim

import (
	"hash/fnv"
	"math"
	"math/rand"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two engines built from the same SimulationKey and server set produce
// identical base latencies and identical jitter sequences.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemInit is the RNG subsystem for base-latency measurement noise.
	// Uses master seed directly.
	SubsystemInit = "init"

	// SubsystemJitter is the RNG subsystem for per-tick perturbation.
	SubsystemJitter = "jitter"

	// SubsystemHistory is the RNG subsystem for synthetic historical series.
	SubsystemHistory = "history"
)

// Float64Source yields uniform values in [0, 1). *rand.Rand satisfies it;
// tests substitute deterministic stubs.
type Float64Source interface {
	Float64() float64
}

// uniform maps a [0,1) draw onto [-halfWidth, +halfWidth).
func uniform(src Float64Source, halfWidth float64) float64 {
	return (src.Float64() - 0.5) * 2 * halfWidth
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula:
//   - For SubsystemInit: uses masterSeed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Overrides installed with Override take precedence over derived instances.
//
// Thread-safety: NOT thread-safe. Callers serialize per subsystem: the
// LatencyStore (init, jitter) under its mutex, and Engine.History (history)
// under historyMu.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]Float64Source
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]Float64Source),
	}
}

// ForSubsystem returns a deterministically-seeded source for the named subsystem.
// The same subsystem name always returns the same instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) Float64Source {
	if src, ok := p.subsystems[name]; ok {
		return src
	}

	var derivedSeed int64
	if name == SubsystemInit {
		derivedSeed = int64(p.key)
	} else {
		derivedSeed = int64(p.key) ^ fnv1a64(name)
	}

	src := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = src
	return src
}

// Override installs src as the source for a subsystem.
func (p *PartitionedRNG) Override(name string, src Float64Source) {
	p.subsystems[name] = src
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}

// SeededValue is a pure pseudo-random function of seed returning a value in [0, 1).
// It is the fractional part of sin(seed)*10000, so equal seeds always agree.
func SeededValue(seed int) float64 {
	x := math.Sin(float64(seed)) * 10000
	return x - math.Floor(x)
}
