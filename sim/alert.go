package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultAlertThresholdMs is the threshold an evaluator starts with.
	DefaultAlertThresholdMs = 150.0

	// AlertCapacity bounds the retained alert list.
	AlertCapacity = 20

	// criticalMultiplier: latency strictly above threshold*1.5 is critical.
	criticalMultiplier = 1.5
)

// Severity classifies an alert.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AlertPolicy controls how repeated breaches accumulate.
type AlertPolicy string

const (
	// AlertPolicyAppend prepends every breach as a new event, so a persistently
	// slow server re-fires every cycle.
	AlertPolicyAppend AlertPolicy = "append"

	// AlertPolicyCoalesce keeps at most one event per source server, updating it
	// in place and moving it to the front when it re-fires.
	AlertPolicyCoalesce AlertPolicy = "coalesce"
)

var validAlertPolicies = map[AlertPolicy]bool{
	AlertPolicyAppend:   true,
	AlertPolicyCoalesce: true,
	"":                  true, // empty defaults to append
}

// IsValidAlertPolicy returns true if the given policy string is recognized.
func IsValidAlertPolicy(policy string) bool {
	return validAlertPolicies[AlertPolicy(policy)]
}

// AlertEvent is one threshold crossing.
type AlertEvent struct {
	ID          string    `json:"id"`
	ServerID    string    `json:"serverId"`
	ServerName  string    `json:"serverName"`
	SampleID    string    `json:"sampleId"`
	LatencyMs   float64   `json:"latency"`
	ThresholdMs float64   `json:"threshold"`
	Severity    Severity  `json:"severity"`
	Timestamp   time.Time `json:"timestamp"`
}

// ClassifySeverity returns the severity of latency against threshold and whether
// it breaches at all. latency <= threshold is not a breach; latency exactly at
// 1.5*threshold is still a warning.
func ClassifySeverity(latencyMs, thresholdMs float64) (Severity, bool) {
	if latencyMs <= thresholdMs {
		return "", false
	}
	if latencyMs > thresholdMs*criticalMultiplier {
		return SeverityCritical, true
	}
	return SeverityWarning, true
}

// DetectBreaches emits one event per sample whose latency exceeds threshold, in
// snapshot order. Events are attributed to the sample's source server; samples
// whose source is not in servers are skipped.
func DetectBreaches(servers *ServerSet, snap Snapshot, thresholdMs float64, now time.Time) []AlertEvent {
	var events []AlertEvent
	for _, sample := range snap {
		severity, breached := ClassifySeverity(sample.LatencyMs, thresholdMs)
		if !breached {
			continue
		}
		server, ok := servers.Lookup(sample.SourceID)
		if !ok {
			continue
		}
		events = append(events, AlertEvent{
			ID:          uuid.NewString(),
			ServerID:    server.ID,
			ServerName:  server.Name,
			SampleID:    sample.ID,
			LatencyMs:   sample.LatencyMs,
			ThresholdMs: thresholdMs,
			Severity:    severity,
			Timestamp:   now,
		})
	}
	return events
}

// AlertEvaluator accumulates threshold breaches into a bounded, most-recent-first list.
// The threshold can be changed at any time; the next Evaluate uses it.
// Safe for concurrent use.
type AlertEvaluator struct {
	servers *ServerSet
	policy  AlertPolicy
	now     func() time.Time

	mu        sync.Mutex
	threshold float64
	alerts    []AlertEvent
}

// NewAlertEvaluator creates an evaluator with the given starting threshold and policy.
func NewAlertEvaluator(servers *ServerSet, thresholdMs float64, policy AlertPolicy) (*AlertEvaluator, error) {
	if thresholdMs <= 0 {
		return nil, fmt.Errorf("alert threshold must be > 0, got %v", thresholdMs)
	}
	if !IsValidAlertPolicy(string(policy)) {
		return nil, fmt.Errorf("unknown alert policy %q; valid: append, coalesce", policy)
	}
	if policy == "" {
		policy = AlertPolicyAppend
	}
	return &AlertEvaluator{
		servers:   servers,
		policy:    policy,
		now:       time.Now,
		threshold: thresholdMs,
	}, nil
}

// Threshold returns the threshold in effect.
func (a *AlertEvaluator) Threshold() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.threshold
}

// SetThreshold changes the threshold for subsequent evaluations.
func (a *AlertEvaluator) SetThreshold(thresholdMs float64) error {
	if thresholdMs <= 0 {
		return fmt.Errorf("alert threshold must be > 0, got %v", thresholdMs)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.threshold = thresholdMs
	return nil
}

// Evaluate detects breaches in snap against the current threshold, merges them
// into the retained list and returns the newly produced events.
func (a *AlertEvaluator) Evaluate(snap Snapshot) []AlertEvent {
	a.mu.Lock()
	defer a.mu.Unlock()

	fresh := DetectBreaches(a.servers, snap, a.threshold, a.now())
	if len(fresh) == 0 {
		return nil
	}

	switch a.policy {
	case AlertPolicyCoalesce:
		a.alerts = coalesce(fresh, a.alerts)
	default:
		merged := make([]AlertEvent, 0, len(fresh)+len(a.alerts))
		merged = append(merged, fresh...)
		merged = append(merged, a.alerts...)
		a.alerts = merged
	}
	if len(a.alerts) > AlertCapacity {
		a.alerts = a.alerts[:AlertCapacity]
	}

	logrus.WithFields(logrus.Fields{
		"new":       len(fresh),
		"retained":  len(a.alerts),
		"threshold": a.threshold,
	}).Debug("alerts evaluated")
	return fresh
}

// coalesce keeps one event per server: the first fresh event for a server wins,
// older retained events for that server are dropped.
func coalesce(fresh, retained []AlertEvent) []AlertEvent {
	seen := make(map[string]bool, len(fresh))
	out := make([]AlertEvent, 0, len(fresh)+len(retained))
	for _, e := range fresh {
		if seen[e.ServerID] {
			continue
		}
		seen[e.ServerID] = true
		out = append(out, e)
	}
	for _, e := range retained {
		if !seen[e.ServerID] {
			out = append(out, e)
		}
	}
	return out
}

// Alerts returns a copy of the retained list, most recent first.
func (a *AlertEvaluator) Alerts() []AlertEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]AlertEvent, len(a.alerts))
	copy(out, a.alerts)
	return out
}

// Dismiss removes the event with the given id. Returns false if it was not present.
func (a *AlertEvaluator) Dismiss(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, e := range a.alerts {
		if e.ID == id {
			a.alerts = append(a.alerts[:i], a.alerts[i+1:]...)
			return true
		}
	}
	return false
}

// CriticalCount returns the number of retained critical alerts.
func (a *AlertEvaluator) CriticalCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, e := range a.alerts {
		if e.Severity == SeverityCritical {
			n++
		}
	}
	return n
}
