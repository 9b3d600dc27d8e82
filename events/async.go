package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/yeti47/camkit/ccc/logging"
)

// DefaultQueueSize is the number of events an AsyncDispatcher buffers
const DefaultQueueSize = 256

// AsyncDispatcher hands events to a background worker that forwards them to
// a slower dispatcher, such as the repository. Events are dropped when the
// queue is full.
type AsyncDispatcher struct {
	next    Dispatcher
	logger  logging.Logger
	queue   chan Event
	done    chan struct{}
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// NewAsyncDispatcher starts the worker forwarding to next
func NewAsyncDispatcher(next Dispatcher, queueSize int, logger logging.Logger) *AsyncDispatcher {
	if logger == nil {
		logger = logging.NopLogger
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	d := &AsyncDispatcher{
		next:   next,
		logger: logger,
		queue:  make(chan Event, queueSize),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *AsyncDispatcher) run() {
	defer close(d.done)
	for event := range d.queue {
		d.next.Dispatch(event)
	}
}

func (d *AsyncDispatcher) Dispatch(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	select {
	case d.queue <- event:
	default:
		d.dropped.Add(1)
		d.logger.Warn("Event queue full, dropping event", "kind", string(event.Kind))
	}
}

// Dropped returns how many events were discarded because the queue was full
func (d *AsyncDispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Close stops accepting events and waits up to timeout for the queued ones
// to be forwarded. It reports whether the queue was drained in time.
func (d *AsyncDispatcher) Close(timeout time.Duration) bool {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return true
	case <-time.After(timeout):
		d.logger.Warn("Timed out draining event queue", "pending", len(d.queue))
		return false
	}
}
