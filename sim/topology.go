package sim

import "sort"

// DefaultTopConnected is how many servers the connection ranking shows.
const DefaultTopConnected = 5

// Link is one edge of the topology.
type Link struct {
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	LatencyMs float64 `json:"latency"`
}

// ServerConnections pairs a server with its connection count.
type ServerConnections struct {
	Server      Server `json:"server"`
	Connections int    `json:"connections"`
}

// TopologyStats is the connection summary of one snapshot.
type TopologyStats struct {
	ConnectionCount map[string]int `json:"connectionCount"` // server id -> links touching it
	Links           []Link         `json:"links"`
	order           []Server
}

// AggregateTopology counts, for every known server, the samples it appears in,
// and records every sample as a link. Unknown ids still produce a link but no count.
func AggregateTopology(servers *ServerSet, snap Snapshot) TopologyStats {
	stats := TopologyStats{
		ConnectionCount: make(map[string]int, servers.Len()),
		Links:           make([]Link, 0, len(snap)),
		order:           servers.Servers(),
	}
	for _, s := range stats.order {
		stats.ConnectionCount[s.ID] = 0
	}
	for _, sample := range snap {
		if _, ok := stats.ConnectionCount[sample.SourceID]; ok {
			stats.ConnectionCount[sample.SourceID]++
		}
		if _, ok := stats.ConnectionCount[sample.TargetID]; ok {
			stats.ConnectionCount[sample.TargetID]++
		}
		stats.Links = append(stats.Links, Link{
			Source:    sample.SourceID,
			Target:    sample.TargetID,
			LatencyMs: sample.LatencyMs,
		})
	}
	return stats
}

// NodeCount returns the number of distinct known servers.
func (t TopologyStats) NodeCount() int {
	return len(t.ConnectionCount)
}

// LinkCount returns the number of links.
func (t TopologyStats) LinkCount() int {
	return len(t.Links)
}

// TopConnected returns up to k servers by descending connection count.
// Ties keep server-set order.
func (t TopologyStats) TopConnected(k int) []ServerConnections {
	ranked := make([]ServerConnections, 0, len(t.order))
	for _, s := range t.order {
		ranked = append(ranked, ServerConnections{Server: s, Connections: t.ConnectionCount[s.ID]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Connections > ranked[j].Connections
	})
	if k >= 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}
