package trace

// TraceSummary aggregates statistics from a RunTrace.
type TraceSummary struct {
	TotalTicks        int
	DeliveredTicks    int
	SuppressedTicks   int // ticks that happened while paused
	TotalAlerts       int
	CriticalAlerts    int
	PeakLatencyMs     float64
	MeanOfMeansMs     float64
	TotalScans        int
	ScansWithResults  int
	BestProfitOverall float64
}

// Summarize computes aggregate statistics from a RunTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(rt *RunTrace) *TraceSummary {
	summary := &TraceSummary{}
	if rt == nil {
		return summary
	}

	ticks := rt.Ticks()
	summary.TotalTicks = len(ticks)
	totalMean := 0.0
	for _, t := range ticks {
		if t.Delivered {
			summary.DeliveredTicks++
		} else {
			summary.SuppressedTicks++
		}
		summary.TotalAlerts += t.NewAlerts
		summary.CriticalAlerts += t.CriticalNew
		if t.MaxLatencyMs > summary.PeakLatencyMs {
			summary.PeakLatencyMs = t.MaxLatencyMs
		}
		totalMean += t.MeanLatencyMs
	}
	if len(ticks) > 0 {
		summary.MeanOfMeansMs = totalMean / float64(len(ticks))
	}

	scans := rt.Scans()
	summary.TotalScans = len(scans)
	for _, s := range scans {
		if s.Opportunities > 0 {
			summary.ScansWithResults++
		}
		if s.BestProfit > summary.BestProfitOverall {
			summary.BestProfitOverall = s.BestProfit
		}
	}

	return summary
}
