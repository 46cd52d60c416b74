package trace

import "testing"

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	rt := NewRunTrace(TraceConfig{Level: TraceLevelTicks})

	// WHEN summarized
	summary := Summarize(rt)

	// THEN all counts are zero
	if summary.TotalTicks != 0 || summary.DeliveredTicks != 0 || summary.SuppressedTicks != 0 {
		t.Errorf("expected zero tick counts, got %+v", summary)
	}
	if summary.MeanOfMeansMs != 0 || summary.PeakLatencyMs != 0 {
		t.Error("expected zero latency aggregates")
	}
	if summary.TotalScans != 0 || summary.BestProfitOverall != 0 {
		t.Error("expected zero scan aggregates")
	}
}

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	summary := Summarize(nil)
	if summary == nil || summary.TotalTicks != 0 {
		t.Fatal("expected non-nil zero summary")
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN ticks with one paused tick and alerts
	rt := NewRunTrace(TraceConfig{Level: TraceLevelTicks})
	rt.RecordTick(TickRecord{Tick: 1, Delivered: true, MeanLatencyMs: 40, MaxLatencyMs: 90, NewAlerts: 2, CriticalNew: 1})
	rt.RecordTick(TickRecord{Tick: 2, Delivered: false, MeanLatencyMs: 50, MaxLatencyMs: 120})
	rt.RecordTick(TickRecord{Tick: 3, Delivered: true, MeanLatencyMs: 60, MaxLatencyMs: 100, NewAlerts: 1})
	rt.RecordScan(ScanRecord{Opportunities: 0})
	rt.RecordScan(ScanRecord{Opportunities: 3, BestProfit: 420.5})

	// WHEN summarized
	summary := Summarize(rt)

	// THEN counts match
	if summary.TotalTicks != 3 {
		t.Errorf("expected 3 ticks, got %d", summary.TotalTicks)
	}
	if summary.DeliveredTicks != 2 || summary.SuppressedTicks != 1 {
		t.Errorf("expected 2 delivered / 1 suppressed, got %d / %d", summary.DeliveredTicks, summary.SuppressedTicks)
	}
	if summary.TotalAlerts != 3 || summary.CriticalAlerts != 1 {
		t.Errorf("expected 3 alerts (1 critical), got %d (%d)", summary.TotalAlerts, summary.CriticalAlerts)
	}
	if summary.PeakLatencyMs != 120 {
		t.Errorf("expected peak 120, got %v", summary.PeakLatencyMs)
	}
	if summary.MeanOfMeansMs < 49.999 || summary.MeanOfMeansMs > 50.001 {
		t.Errorf("expected mean of means ~50, got %v", summary.MeanOfMeansMs)
	}
	if summary.TotalScans != 2 || summary.ScansWithResults != 1 {
		t.Errorf("expected 2 scans with 1 productive, got %d / %d", summary.TotalScans, summary.ScansWithResults)
	}
	if summary.BestProfitOverall != 420.5 {
		t.Errorf("expected best profit 420.5, got %v", summary.BestProfitOverall)
	}
}
