package sim_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latency-sim/latency-sim/sim"
	"github.com/latency-sim/latency-sim/sim/internal/testutil"
)

func newStore(t *testing.T, servers []sim.Server, jitter sim.Float64Source) *sim.LatencyStore {
	t.Helper()
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(42))
	if jitter != nil {
		rng.Override(sim.SubsystemJitter, jitter)
	}
	return sim.NewLatencyStore(testutil.NewServerSet(t, servers), rng)
}

// gridServers returns n servers spread over a latitude/longitude grid.
func gridServers(n int) []sim.Server {
	out := make([]sim.Server, n)
	for i := range out {
		out[i] = sim.Server{
			ID:       fmt.Sprintf("s%02d", i),
			Name:     fmt.Sprintf("Exchange %d", i%4),
			Location: sim.Location{Lat: float64(i%9)*10 - 40, Lon: float64(i)*23 - 170},
			Provider: sim.AllProviders[i%len(sim.AllProviders)],
		}
	}
	return out
}

func TestLatencyStore_PairCompleteness(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 12} {
		t.Run(fmt.Sprintf("%d servers", n), func(t *testing.T) {
			// GIVEN n servers
			servers := gridServers(n)
			store := newStore(t, servers, nil)

			// THEN the table holds n*(n-1)/2 entries, one per i<j pair in set order
			want := n * (n - 1) / 2
			assert.Equal(t, want, store.Len())
			snap := store.Snapshot()
			require.Len(t, snap, want)
			k := 0
			for i := 0; i < n; i++ {
				for j := i + 1; j < n; j++ {
					assert.Equal(t, sim.PairKey(servers[i].ID, servers[j].ID), snap[k].ID)
					assert.Equal(t, servers[i].ID, snap[k].SourceID)
					assert.Equal(t, servers[j].ID, snap[k].TargetID)
					k++
				}
			}
		})
	}
}

func TestLatencyStore_Latency_SymmetricAndZeroForMissing(t *testing.T) {
	store := newStore(t, testutil.TriangleServers(), nil)

	for _, pair := range [][2]string{{"A", "B"}, {"A", "C"}, {"B", "C"}} {
		forward := store.Latency(pair[0], pair[1])
		assert.Greater(t, forward, 0.0)
		assert.Equal(t, forward, store.Latency(pair[1], pair[0]), "latency(%s,%s) must equal latency(%s,%s)", pair[0], pair[1], pair[1], pair[0])
	}
	assert.Equal(t, 0.0, store.Latency("A", "A"), "same server")
	assert.Equal(t, 0.0, store.Latency("A", "Z"), "unknown id")
}

func TestLatencyStore_BaseLatencyFollowsDistance(t *testing.T) {
	// GIVEN three equator servers whose pair distances differ by more than the noise band
	store := newStore(t, testutil.TriangleServers(), nil)

	// THEN closer pairs start with lower latency
	ab, bc, ac := store.Latency("A", "B"), store.Latency("B", "C"), store.Latency("A", "C")
	assert.Less(t, ab, bc)
	assert.Less(t, bc, ac)
}

func TestLatencyStore_SameSeedSameTable(t *testing.T) {
	a := newStore(t, gridServers(8), nil).Snapshot()
	b := newStore(t, gridServers(8), nil).Snapshot()
	assert.Equal(t, a.Values(), b.Values())
}

func TestLatencyStore_Perturb_ExactShiftWithStubJitter(t *testing.T) {
	// GIVEN jitter that always draws +2.5ms
	store := newStore(t, testutil.TriangleServers(), testutil.ConstSource(0.75))
	before := store.Snapshot()

	// WHEN perturbing once
	store.Perturb()

	// THEN every entry moved by exactly 2.5 and no key changed
	after := store.Snapshot()
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.InDelta(t, before[i].LatencyMs+2.5, after[i].LatencyMs, 1e-9)
	}
}

func TestLatencyStore_Perturb_BoundedAndPositive(t *testing.T) {
	// GIVEN the seeded jitter source
	store := newStore(t, gridServers(10), nil)

	for tick := 0; tick < 200; tick++ {
		before := store.Snapshot()
		store.Perturb()
		after := store.Snapshot()
		for i := range before {
			delta := after[i].LatencyMs - before[i].LatencyMs
			if after[i].LatencyMs < sim.MinLatencyMs {
				t.Fatalf("tick %d: %s = %v, want >= %v", tick, after[i].ID, after[i].LatencyMs, sim.MinLatencyMs)
			}
			// The floor can lift a value by more than -5 but never push it past +5.
			if delta > 5 || (delta < -5 && after[i].LatencyMs != sim.MinLatencyMs) {
				t.Fatalf("tick %d: %s moved by %v, want within [-5, 5]", tick, after[i].ID, delta)
			}
		}
	}
}

func TestLatencyStore_Perturb_FloorsAtMinimum(t *testing.T) {
	// GIVEN jitter that always draws -5ms
	store := newStore(t, testutil.TriangleServers(), testutil.ConstSource(0))

	// WHEN perturbing long enough to drive every entry down
	for i := 0; i < 50; i++ {
		store.Perturb()
	}

	// THEN every entry sits at the floor
	for _, s := range store.Snapshot() {
		assert.Equal(t, sim.MinLatencyMs, s.LatencyMs, s.ID)
	}
}

func TestLatencyStore_Snapshot_IndependentCopyWithSharedTimestamp(t *testing.T) {
	store := newStore(t, gridServers(5), nil)

	snap := store.Snapshot()
	for i := 1; i < len(snap); i++ {
		assert.Equal(t, snap[0].Timestamp, snap[i].Timestamp)
	}

	// WHEN the caller mutates its snapshot
	original := snap[0].LatencyMs
	snap[0].LatencyMs = -1

	// THEN the store is unaffected
	assert.Equal(t, original, store.Latency(snap[0].SourceID, snap[0].TargetID))
	assert.Equal(t, original, store.Snapshot()[0].LatencyMs)
}

func TestLatencyStore_Latency_HyphenatedIDsDoNotCollide(t *testing.T) {
	// GIVEN ids whose joined pair keys coincide: "a"+"b-c" and "a-b"+"c" both read "a-b-c"
	servers := []sim.Server{
		{ID: "a", Name: "Alpha", Location: sim.Location{Lat: 0, Lon: 0}, Provider: sim.ProviderAWS},
		{ID: "a-b", Name: "Beta", Location: sim.Location{Lat: 0, Lon: 10}, Provider: sim.ProviderGCP},
		{ID: "b-c", Name: "Gamma", Location: sim.Location{Lat: 0, Lon: 40}, Provider: sim.ProviderAzure},
		{ID: "c", Name: "Delta", Location: sim.Location{Lat: 0, Lon: 90}, Provider: sim.ProviderAWS},
	}
	store := newStore(t, servers, nil)

	// THEN every point query agrees with the snapshot entry for that pair, in both orders
	snap := store.Snapshot()
	require.Len(t, snap, 6)
	for _, s := range snap {
		if got := store.Latency(s.SourceID, s.TargetID); got != s.LatencyMs {
			t.Errorf("Latency(%s, %s) = %v, snapshot holds %v", s.SourceID, s.TargetID, got, s.LatencyMs)
		}
		assert.Equal(t, s.LatencyMs, store.Latency(s.TargetID, s.SourceID))
	}
	assert.NotEqual(t, store.Latency("a", "b-c"), store.Latency("a-b", "c"))
}
