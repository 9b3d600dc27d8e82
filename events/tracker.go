package events

import (
	"sync"
	"time"
)

// FailureRecord is a single failure event seen by a tracker
type FailureRecord struct {
	Kind      Kind
	SessionID string
	Timestamp time.Time
}

// FailureTracker counts failure events so the host can decide when a session
// is beyond saving
type FailureTracker interface {
	// RecordFailure records a failure and returns how many failures of the same
	// kind the session had within the time window
	RecordFailure(kind Kind, sessionID string, timestamp time.Time) int
	// ShouldEscalate returns true if the failure count reaches the threshold
	ShouldEscalate(failureCount int) bool
}

// EscalationSettings configure when repeated failures escalate
type EscalationSettings struct {
	Threshold  int           // Number of failures that escalate (0 to never escalate)
	TimeWindow time.Duration // Time window for counting failures
	// Kinds limits which failure kinds are counted, empty counts every failure kind
	Kinds []Kind
}

type nopFailureTracker struct{}

var NopFailureTracker FailureTracker = &nopFailureTracker{}

func (n *nopFailureTracker) RecordFailure(Kind, string, time.Time) int {
	return 0
}

func (n *nopFailureTracker) ShouldEscalate(int) bool {
	return false
}

type memoryFailureTracker struct {
	settings      EscalationSettings
	failures      []FailureRecord
	failuresMutex sync.Mutex
}

func NewMemoryFailureTracker(settings EscalationSettings) FailureTracker {
	return &memoryFailureTracker{
		settings: settings,
		failures: make([]FailureRecord, 0),
	}
}

func (t *memoryFailureTracker) ShouldEscalate(failureCount int) bool {
	return t.settings.Threshold > 0 && failureCount >= t.settings.Threshold
}

func (t *memoryFailureTracker) RecordFailure(kind Kind, sessionID string, timestamp time.Time) int {
	t.failuresMutex.Lock()
	defer t.failuresMutex.Unlock()

	t.failures = append(t.failures, FailureRecord{
		Kind:      kind,
		SessionID: sessionID,
		Timestamp: timestamp,
	})

	cutoffTime := timestamp.Add(-t.settings.TimeWindow)
	validFailures := make([]FailureRecord, 0, len(t.failures))
	for _, failure := range t.failures {
		if !failure.Timestamp.Before(cutoffTime) {
			validFailures = append(validFailures, failure)
		}
	}
	t.failures = validFailures

	count := 0
	for _, failure := range t.failures {
		if failure.Kind == kind && failure.SessionID == sessionID {
			count++
		}
	}

	return count
}

type escalatingDispatcher struct {
	tracker    FailureTracker
	kinds      map[Kind]bool
	onEscalate func(event Event, count int)
	now        func() time.Time
}

// NewEscalatingDispatcher feeds failure events into tracker and calls
// onEscalate every time a kind reaches the threshold
func NewEscalatingDispatcher(tracker FailureTracker, settings EscalationSettings, onEscalate func(event Event, count int)) Dispatcher {
	if tracker == nil {
		tracker = NopFailureTracker
	}
	kinds := make(map[Kind]bool, len(settings.Kinds))
	for _, k := range settings.Kinds {
		kinds[k] = true
	}
	return &escalatingDispatcher{
		tracker:    tracker,
		kinds:      kinds,
		onEscalate: onEscalate,
		now:        time.Now,
	}
}

func (d *escalatingDispatcher) Dispatch(event Event) {
	if !event.Kind.IsFailure() {
		return
	}
	if len(d.kinds) > 0 && !d.kinds[event.Kind] {
		return
	}

	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = d.now()
	}

	count := d.tracker.RecordFailure(event.Kind, event.SessionID, timestamp)
	if d.tracker.ShouldEscalate(count) && d.onEscalate != nil {
		d.onEscalate(event, count)
	}
}
