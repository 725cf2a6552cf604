package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lankaconnect/support-service/internal/events"
)

// ErrQueueFull is returned to the publisher when a background handler cannot
// accept another event.
var ErrQueueFull = errors.New("background event queue full")

const (
	defaultBackgroundWorkers = 4
	defaultBackgroundQueue   = 256
	backgroundHandlerTimeout = 10 * time.Second
)

type job struct {
	handler events.EventHandler
	event   events.Event
}

// Background is a Dispatcher whose subscribers run on a small goroutine pool
// instead of inside Publish. Slow consumers such as webhooks and Kafka then
// stay off the request path. Publish still goes through the wrapped
// dispatcher, so synchronous subscribers registered there are unaffected.
type Background struct {
	events.Dispatcher

	logger   *zap.Logger
	failures events.FailureRecorder
	jobs     chan job
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewBackground starts workers goroutines draining a queue of queueSize
// events. Zero values pick the defaults. failures may be nil.
func NewBackground(next events.Dispatcher, logger *zap.Logger, failures events.FailureRecorder, workers, queueSize int) *Background {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = defaultBackgroundWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultBackgroundQueue
	}
	b := &Background{
		Dispatcher: next,
		logger:     logger,
		failures:   failures,
		jobs:       make(chan job, queueSize),
	}
	b.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go b.run()
	}
	return b
}

// Subscribe registers handler to run in the background for eventType.
func (b *Background) Subscribe(eventType events.EventType, handler events.EventHandler) {
	b.Dispatcher.Subscribe(eventType, b.enqueue(handler))
}

// SubscribeAll registers handler to run in the background for every event.
func (b *Background) SubscribeAll(handler events.EventHandler) {
	b.Dispatcher.SubscribeAll(b.enqueue(handler))
}

// Close stops accepting events and waits for queued ones to finish.
func (b *Background) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.jobs)
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *Background) enqueue(handler events.EventHandler) events.EventHandler {
	return func(_ context.Context, event events.Event) error {
		b.mu.RLock()
		defer b.mu.RUnlock()
		if b.closed {
			return ErrQueueFull
		}
		select {
		case b.jobs <- job{handler: handler, event: event}:
			return nil
		default:
			return ErrQueueFull
		}
	}
}

func (b *Background) run() {
	defer b.wg.Done()
	for j := range b.jobs {
		if err := b.invoke(j); err != nil {
			b.logger.Error("background event handler failed",
				zap.String("event_id", j.event.ID),
				zap.String("event_type", string(j.event.Type)),
				zap.String("ticket_id", j.event.TicketID),
				zap.Error(err))
			if b.failures != nil {
				b.failures.RecordEventFailure(string(j.event.Type))
			}
		}
	}
}

func (b *Background) invoke(j job) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundHandlerTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return j.handler(ctx, j.event)
}
