package sim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latency-sim/latency-sim/sim"
	"github.com/latency-sim/latency-sim/sim/internal/testutil"
)

func TestParseCloudProvider(t *testing.T) {
	tests := []struct {
		in      string
		want    sim.CloudProvider
		wantErr bool
	}{
		{"AWS", sim.ProviderAWS, false},
		{"aws", sim.ProviderAWS, false},
		{" GCP ", sim.ProviderGCP, false},
		{"azure", sim.ProviderAzure, false},
		{"Oracle", sim.ProviderUnknown, true},
		{"", sim.ProviderUnknown, true},
	}
	for _, tt := range tests {
		got, err := sim.ParseCloudProvider(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestCloudProvider_TextRoundTrip(t *testing.T) {
	for _, p := range sim.AllProviders {
		text, err := p.MarshalText()
		require.NoError(t, err)
		var back sim.CloudProvider
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, p, back)
	}

	_, err := sim.ProviderUnknown.MarshalText()
	assert.Error(t, err, "the zero value never serializes")
	assert.Equal(t, "unknown", sim.CloudProvider(99).String())
	assert.False(t, sim.ProviderUnknown.IsValid())
}

func TestNewServerSet(t *testing.T) {
	set := testutil.NewServerSet(t, testutil.TriangleServers())

	assert.Equal(t, 3, set.Len())
	assert.Equal(t, 1, set.Index("B"))
	assert.Equal(t, -1, set.Index("Z"))
	b, ok := set.Lookup("B")
	require.True(t, ok)
	assert.Equal(t, "Bravo", b.Name)
	_, ok = set.Lookup("Z")
	assert.False(t, ok)
	assert.Equal(t, "C", set.At(2).ID)

	// Servers returns a copy
	servers := set.Servers()
	servers[0].Name = "mutated"
	assert.Equal(t, "Alpha", set.At(0).Name)
}

func TestNewServerSet_Validation(t *testing.T) {
	tests := []struct {
		name    string
		servers []sim.Server
	}{
		{"empty id", []sim.Server{{ID: "", Provider: sim.ProviderAWS}}},
		{"duplicate id", []sim.Server{{ID: "a", Provider: sim.ProviderAWS}, {ID: "a", Provider: sim.ProviderGCP}}},
		{"missing provider", []sim.Server{{ID: "a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.NewServerSet(tt.servers)
			assert.Error(t, err)
		})
	}

	empty, err := sim.NewServerSet(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestServerSet_NilSafe(t *testing.T) {
	var set *sim.ServerSet
	assert.Equal(t, 0, set.Len())
	assert.Nil(t, set.Servers())
	assert.Equal(t, -1, set.Index("a"))
	_, ok := set.Lookup("a")
	assert.False(t, ok)
}

func TestSnapshot_CloneAndValues(t *testing.T) {
	snap := sim.Snapshot{testutil.Sample("A", "B", 10), testutil.Sample("A", "C", 20)}

	clone := snap.Clone()
	clone[0].LatencyMs = 99

	assert.Equal(t, []float64{10, 20}, snap.Values())
	assert.Equal(t, "A-B", snap[0].ID)
	assert.Nil(t, sim.Snapshot(nil).Clone())
}
