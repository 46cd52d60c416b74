package sim

// Filters narrows the server set and samples shown to a consumer.
// Zero-value fields do not filter.
type Filters struct {
	Exchanges      []string        `json:"exchanges"`      // server ids; empty = all
	CloudProviders []CloudProvider `json:"cloudProviders"` // empty = all
	LatencyRange   *LatencyRange   `json:"latencyRange"`   // nil = all
}

func (f Filters) allowsServer(s Server) bool {
	if len(f.Exchanges) > 0 && !contains(f.Exchanges, s.ID) {
		return false
	}
	if len(f.CloudProviders) > 0 && !contains(f.CloudProviders, s.Provider) {
		return false
	}
	return true
}

// Servers returns the servers of set that pass the filter, in set order.
func (f Filters) Servers(set *ServerSet) []Server {
	var out []Server
	for _, s := range set.Servers() {
		if f.allowsServer(s) {
			out = append(out, s)
		}
	}
	return out
}

// Samples keeps samples whose endpoints both pass the server filter and whose
// latency falls in the selected range.
func (f Filters) Samples(set *ServerSet, snap Snapshot) Snapshot {
	out := make(Snapshot, 0, len(snap))
	for _, sample := range snap {
		src, okS := set.Lookup(sample.SourceID)
		dst, okT := set.Lookup(sample.TargetID)
		if !okS || !okT || !f.allowsServer(src) || !f.allowsServer(dst) {
			continue
		}
		if f.LatencyRange != nil && ClassifyLatency(sample.LatencyMs) != *f.LatencyRange {
			continue
		}
		out = append(out, sample)
	}
	return out
}

func contains[T comparable](items []T, v T) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}
