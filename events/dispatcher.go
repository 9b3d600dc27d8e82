package events

import (
	"context"
	"sync"
	"time"

	"github.com/yeti47/camkit/ccc/logging"
)

type Dispatcher interface {
	// Dispatch delivers the event. It must not block on the camera session.
	Dispatch(event Event)
}

type nopDispatcher struct{}

var NopDispatcher Dispatcher = &nopDispatcher{}

func (n *nopDispatcher) Dispatch(Event) {}

// DispatcherFunc adapts a function to the Dispatcher interface
type DispatcherFunc func(event Event)

func (f DispatcherFunc) Dispatch(event Event) {
	f(event)
}

type multiDispatcher struct {
	dispatchers []Dispatcher
}

// NewMultiDispatcher fans events out to all non-nil dispatchers in order
func NewMultiDispatcher(dispatchers ...Dispatcher) Dispatcher {
	filtered := make([]Dispatcher, 0, len(dispatchers))
	for _, d := range dispatchers {
		if d != nil {
			filtered = append(filtered, d)
		}
	}
	return &multiDispatcher{dispatchers: filtered}
}

func (m *multiDispatcher) Dispatch(event Event) {
	for _, d := range m.dispatchers {
		d.Dispatch(event)
	}
}

type loggingDispatcher struct {
	logger logging.Logger
}

// NewLoggingDispatcher writes every event to logger, failures as warnings
func NewLoggingDispatcher(logger logging.Logger) Dispatcher {
	if logger == nil {
		logger = logging.NopLogger
	}
	return &loggingDispatcher{logger: logger}
}

func (l *loggingDispatcher) Dispatch(event Event) {
	args := []any{"kind", string(event.Kind), "session_id", event.SessionID}
	for k, v := range event.Data {
		args = append(args, k, v)
	}
	if event.Message != "" {
		args = append(args, "message", event.Message)
	}

	if event.Kind.IsFailure() {
		l.logger.Warn("Camera event", args...)
		return
	}
	l.logger.Info("Camera event", args...)
}

type repositoryDispatcher struct {
	repo    EventRepository
	logger  logging.Logger
	timeout time.Duration
}

// NewRepositoryDispatcher persists every event. Storage failures are logged, never returned.
func NewRepositoryDispatcher(repo EventRepository, logger logging.Logger) Dispatcher {
	if logger == nil {
		logger = logging.NopLogger
	}
	return &repositoryDispatcher{repo: repo, logger: logger, timeout: 5 * time.Second}
}

func (r *repositoryDispatcher) Dispatch(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.repo.Create(ctx, &event); err != nil {
		r.logger.Error("Failed to store camera event", "kind", string(event.Kind), "error", err)
	}
}

// Recorder keeps every dispatched event in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Dispatch(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of all recorded events in dispatch order
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfKind returns the recorded events of kind
func (r *Recorder) OfKind(kind Kind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []Event
	for _, e := range r.events {
		if e.Kind == kind {
			result = append(result, e)
		}
	}
	return result
}

func (r *Recorder) Count(kind Kind) int {
	return len(r.OfKind(kind))
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
