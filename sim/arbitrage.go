package sim

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultArbitragePeriod is the scanner's own re-scan cadence.
	DefaultArbitragePeriod = 8 * time.Second

	arbMaxLatencyMs  = 200.0
	arbCandidateCap  = 15
	arbMinProfit     = 50.0
	arbMaxResults    = 5
	arbBaseProfit    = 150.0
	arbProfitSwing   = 500.0
	arbLatencyWeight = 0.3
)

// RiskTier grades an opportunity by its latency.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// RiskForLatency: low below 50ms, medium below 100ms, high otherwise.
func RiskForLatency(latencyMs float64) RiskTier {
	switch {
	case latencyMs < 50:
		return RiskLow
	case latencyMs < 100:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// EstimateProfit is the synthetic profit heuristic:
// max(0, 150 + |sin(latency)|*500 - 0.3*latency).
func EstimateProfit(latencyMs float64) float64 {
	return math.Max(0, arbBaseProfit+math.Abs(math.Sin(latencyMs))*arbProfitSwing-arbLatencyWeight*latencyMs)
}

// Opportunity is a synthetic scored (source, target) pair. Not a trading signal.
type Opportunity struct {
	ID             string    `json:"id"` // "{sourceId}-{targetId}"
	SourceExchange string    `json:"sourceExchange"`
	TargetExchange string    `json:"targetExchange"`
	ProfitEstimate float64   `json:"profit"`
	LatencyMs      float64   `json:"latency"`
	Risk           RiskTier  `json:"risk"`
	Timestamp      time.Time `json:"timestamp"`
}

// ScanOpportunities scores the first 15 samples with latency in (0, 200) ms,
// keeps those with profit > 50, dedups by (source name, target name) keeping
// the first occurrence, and returns the top 5 by profit, descending.
func ScanOpportunities(servers *ServerSet, snap Snapshot, now time.Time) []Opportunity {
	candidates := make([]LatencySample, 0, arbCandidateCap)
	for _, sample := range snap {
		if sample.LatencyMs > 0 && sample.LatencyMs < arbMaxLatencyMs {
			candidates = append(candidates, sample)
			if len(candidates) == arbCandidateCap {
				break
			}
		}
	}

	type namePair struct{ source, target string }
	seen := make(map[namePair]bool)
	var out []Opportunity
	for _, sample := range candidates {
		source, okS := servers.Lookup(sample.SourceID)
		target, okT := servers.Lookup(sample.TargetID)
		if !okS || !okT || source.ID == target.ID {
			continue
		}
		profit := EstimateProfit(sample.LatencyMs)
		if profit <= arbMinProfit {
			continue
		}
		key := namePair{source.Name, target.Name}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Opportunity{
			ID:             PairKey(source.ID, target.ID),
			SourceExchange: source.Name,
			TargetExchange: target.Name,
			ProfitEstimate: profit,
			LatencyMs:      sample.LatencyMs,
			Risk:           RiskForLatency(sample.LatencyMs),
			Timestamp:      now,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ProfitEstimate > out[j].ProfitEstimate
	})
	if len(out) > arbMaxResults {
		out = out[:arbMaxResults]
	}
	return out
}

// ArbitrageScanner re-scans the latest observed snapshot on its own cadence.
// Safe for concurrent use.
type ArbitrageScanner struct {
	servers *ServerSet
	now     func() time.Time

	mu            sync.RWMutex
	latest        Snapshot
	opportunities []Opportunity
}

// NewArbitrageScanner creates a scanner over servers.
func NewArbitrageScanner(servers *ServerSet) *ArbitrageScanner {
	return &ArbitrageScanner{servers: servers, now: time.Now}
}

// Observe records snap as the latest snapshot available to the scanner.
func (a *ArbitrageScanner) Observe(snap Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.latest = snap
}

// Scan recomputes opportunities from the latest snapshot and stores the result.
func (a *ArbitrageScanner) Scan() []Opportunity {
	a.mu.RLock()
	snap := a.latest
	a.mu.RUnlock()

	result := ScanOpportunities(a.servers, snap, a.now())

	a.mu.Lock()
	a.opportunities = result
	a.mu.Unlock()
	return cloneOpportunities(result)
}

// Opportunities returns the result of the most recent scan.
func (a *ArbitrageScanner) Opportunities() []Opportunity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return cloneOpportunities(a.opportunities)
}

// Run scans immediately and then every period until ctx is done. onResult,
// if non-nil, receives each scan's result. Always returns ctx.Err().
func (a *ArbitrageScanner) Run(ctx context.Context, period time.Duration, onResult func([]Opportunity)) error {
	if period <= 0 {
		period = DefaultArbitragePeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		result := a.Scan()
		logrus.Debugf("arbitrage scan: %d opportunities", len(result))
		if onResult != nil {
			onResult(result)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func cloneOpportunities(in []Opportunity) []Opportunity {
	if in == nil {
		return nil
	}
	out := make([]Opportunity, len(in))
	copy(out, in)
	return out
}
