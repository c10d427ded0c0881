package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gocomet/rideshare/pkg/logger"
)

var (
	ErrQueueFull       = errors.New("event queue is full")
	ErrPublisherClosed = errors.New("event publisher is closed")
)

// AsyncPublisher queues events and hands them to the wrapped publisher from
// a single background worker, in queue order. Publish never waits on the
// broker.
type AsyncPublisher struct {
	next    Publisher
	queue   chan Event
	timeout time.Duration
	logger  *logger.Logger

	mu     sync.RWMutex
	closed bool
	abort  chan struct{}
	done   chan struct{}
}

// NewAsyncPublisher starts a worker delivering to next. Each delivery gets
// timeout; Close waits at most that long for the queue to drain.
func NewAsyncPublisher(next Publisher, bufferSize int, timeout time.Duration, log *logger.Logger) *AsyncPublisher {
	if bufferSize < 1 {
		bufferSize = 1
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	p := &AsyncPublisher{
		next:    next,
		queue:   make(chan Event, bufferSize),
		timeout: timeout,
		logger:  log,
		abort:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish queues event. It fails fast with ErrQueueFull when the broker
// falls behind.
func (p *AsyncPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events, drains the queue and closes the wrapped
// publisher. Events still queued after the drain window are dropped.
func (p *AsyncPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-p.done:
	case <-timer.C:
		close(p.abort)
		<-p.done
	}
	return p.next.Close()
}

func (p *AsyncPublisher) run() {
	defer close(p.done)

	dropped := 0
	for event := range p.queue {
		select {
		case <-p.abort:
			dropped++
			continue
		default:
		}
		p.deliver(event)
	}

	if dropped > 0 {
		p.logger.Warn("Dropped queued events on shutdown", logger.Int("count", dropped))
	}
}

func (p *AsyncPublisher) deliver(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.next.Publish(ctx, event); err != nil {
		p.logger.Warn("Failed to publish event",
			logger.Err(err),
			logger.String("type", event.Type),
			logger.String("key", event.Key),
		)
	}
}
