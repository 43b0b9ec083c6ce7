package infrastructure

import (
	"fmt"
	"time"

	"socialbets/domain/events"
	"socialbets/domain/interfaces"

	"github.com/panjf2000/ants/v2"
	log "github.com/sirupsen/logrus"
)

// AsyncEventDispatcher hands events to a bounded goroutine pool so a flush after
// commit never waits on the message bus
type AsyncEventDispatcher struct {
	next interfaces.EventPublisher
	pool *ants.Pool
}

// NewAsyncEventDispatcher creates a dispatcher with the given number of workers
func NewAsyncEventDispatcher(next interfaces.EventPublisher, workers int) (*AsyncEventDispatcher, error) {
	if workers <= 0 {
		workers = 1
	}

	pool, err := ants.NewPool(workers,
		ants.WithNonblocking(false),
		ants.WithMaxBlockingTasks(workers*64),
		ants.WithPanicHandler(func(p any) {
			log.WithField("panic", p).Error("Event dispatch worker panicked")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatch pool: %w", err)
	}

	return &AsyncEventDispatcher{next: next, pool: pool}, nil
}

// Publish schedules the event and returns without waiting for delivery.
// Delivery failures are logged only.
func (d *AsyncEventDispatcher) Publish(event events.Event) error {
	err := d.pool.Submit(func() {
		if err := d.next.Publish(event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to dispatch event")
		}
	})
	if err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Error("Event dispatch queue rejected event")
	}
	return nil
}

// Running reports how many events are being delivered right now
func (d *AsyncEventDispatcher) Running() int {
	return d.pool.Running()
}

// Close waits up to timeout for in-flight events, then releases the pool
func (d *AsyncEventDispatcher) Close(timeout time.Duration) error {
	if err := d.pool.ReleaseTimeout(timeout); err != nil {
		return fmt.Errorf("failed to drain event dispatch pool: %w", err)
	}
	return nil
}
