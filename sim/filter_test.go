package sim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/latency-sim/latency-sim/sim"
	"github.com/latency-sim/latency-sim/sim/internal/testutil"
)

func idsOf(servers []sim.Server) []string {
	out := make([]string, len(servers))
	for i, s := range servers {
		out[i] = s.ID
	}
	return out
}

func TestFilters_Servers(t *testing.T) {
	set := testutil.NewServerSet(t, testutil.TriangleServers())

	assert.Equal(t, []string{"A", "B", "C"}, idsOf(sim.Filters{}.Servers(set)), "zero value keeps everything")
	assert.Equal(t, []string{"A", "C"}, idsOf(sim.Filters{CloudProviders: []sim.CloudProvider{sim.ProviderAWS, sim.ProviderAzure}}.Servers(set)))
	assert.Equal(t, []string{"B"}, idsOf(sim.Filters{Exchanges: []string{"B"}}.Servers(set)))
	assert.Empty(t, sim.Filters{Exchanges: []string{"A"}, CloudProviders: []sim.CloudProvider{sim.ProviderGCP}}.Servers(set))
}

func TestFilters_Samples(t *testing.T) {
	set := testutil.NewServerSet(t, testutil.TriangleServers())
	snap := sim.Snapshot{
		testutil.Sample("A", "B", 20),
		testutil.Sample("A", "C", 160),
		testutil.Sample("B", "C", 90),
		testutil.Sample("A", "Z", 10),
	}
	medium := sim.RangeMedium

	assert.Len(t, sim.Filters{}.Samples(set, snap), 3, "unknown endpoints are dropped")

	got := sim.Filters{LatencyRange: &medium}.Samples(set, snap)
	assert.Equal(t, sim.Snapshot{snap[2]}, got)

	got = sim.Filters{Exchanges: []string{"A", "B"}}.Samples(set, snap)
	assert.Equal(t, sim.Snapshot{snap[0]}, got, "both endpoints must pass")
}
