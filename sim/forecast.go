package sim

import (
	"math"
	"time"
)

const (
	// DefaultForecastSeed is the seed the predictions panel uses.
	DefaultForecastSeed = 42

	maxPredictions  = 5
	trendDeadband   = 0.1
	trendSwingMs    = 20.0
	historyPoints   = 100
	healthyAvgMs    = 100.0
	historySpreadMs = 10.0
)

// Trend is the predicted direction of a server's latency.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// Prediction is a reproducible latency forecast for one source server.
type Prediction struct {
	ServerID           string  `json:"serverId"`
	CurrentLatencyMs   float64 `json:"currentLatency"`
	PredictedLatencyMs float64 `json:"predictedLatency"`
	Confidence         float64 `json:"confidence"`
	Trend              Trend   `json:"trend"`
}

// PredictLatency forecasts the first five distinct source servers in snapshot
// order. Every random term comes from SeededValue, so the result is a pure
// function of snap and seed.
func PredictLatency(snap Snapshot, seed int) []Prediction {
	var order []string
	bySource := make(map[string][]float64)
	for _, sample := range snap {
		if _, ok := bySource[sample.SourceID]; !ok {
			order = append(order, sample.SourceID)
		}
		bySource[sample.SourceID] = append(bySource[sample.SourceID], sample.LatencyMs)
	}
	if len(order) > maxPredictions {
		order = order[:maxPredictions]
	}

	out := make([]Prediction, 0, len(order))
	for idx, id := range order {
		current := CalculateMean(bySource[id])
		trend := SeededValue(seed+idx*1000) - 0.5
		p := Prediction{
			ServerID:           id,
			CurrentLatencyMs:   current,
			PredictedLatencyMs: math.Max(MinLatencyMs, current+trend*trendSwingMs),
			Confidence:         0.7 + SeededValue(seed+idx*2000)*0.25,
			Trend:              TrendStable,
		}
		if trend > trendDeadband {
			p.Trend = TrendIncreasing
		} else if trend < -trendDeadband {
			p.Trend = TrendDecreasing
		}
		out = append(out, p)
	}
	return out
}

// NetworkHealth is "Excellent" when the average latency is under 100ms.
func NetworkHealth(avgLatencyMs float64) string {
	if avgLatencyMs < healthyAvgMs {
		return "Excellent"
	}
	return "Needs Attention"
}

// HistoricalPoint is one point of a synthetic latency history.
type HistoricalPoint struct {
	Timestamp time.Time `json:"timestamp"`
	LatencyMs float64   `json:"latency"`
	MinMs     float64   `json:"min"`
	MaxMs     float64   `json:"max"`
	AvgMs     float64   `json:"avg"`
}

// HistoricalSeries synthesizes 100 evenly spaced points covering the last
// `hours` hours before now: a random base in [50, 100) plus a sine swing of ±20ms.
func HistoricalSeries(hours float64, now time.Time, src Float64Source) []HistoricalPoint {
	interval := time.Duration(hours * float64(time.Hour) / historyPoints)
	out := make([]HistoricalPoint, historyPoints)
	for i := 0; i < historyPoints; i++ {
		base := 50 + src.Float64()*50
		latency := math.Max(MinLatencyMs, base+math.Sin(float64(i)/10)*trendSwingMs)
		out[i] = HistoricalPoint{
			Timestamp: now.Add(-time.Duration(historyPoints-i) * interval),
			LatencyMs: latency,
			MinMs:     math.Max(MinLatencyMs, latency-historySpreadMs),
			MaxMs:     latency + historySpreadMs,
			AvgMs:     latency,
		}
	}
	return out
}
