package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrQueueFull is the cause recorded when a notification is dropped
	// because every slot of the queue is taken.
	ErrQueueFull = errors.New("notification queue full")
	// ErrQueueClosed is the cause recorded when Dispatch is called after Close.
	ErrQueueClosed = errors.New("notification queue closed")
)

// DefaultSendTimeout bounds a single send on a queue worker.
const DefaultSendTimeout = 30 * time.Second

// Queue is a bounded in-process notification queue drained by a fixed set
// of workers. Dispatch never blocks: when the buffer is full the
// notification is dropped.
type Queue struct {
	mailer  Mailer
	timeout time.Duration
	jobs    chan Notification
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// QueueOption customizes a Queue.
type QueueOption func(*Queue)

// WithSendTimeout bounds each send. Non-positive values keep
// DefaultSendTimeout.
func WithSendTimeout(d time.Duration) QueueOption {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// NewQueue starts workers goroutines consuming a buffer of size
// notifications. Non-positive values fall back to 1 worker and 100 slots.
func NewQueue(m Mailer, workers, size int, opts ...QueueOption) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 100
	}
	q := &Queue{
		mailer:  m,
		timeout: DefaultSendTimeout,
		jobs:    make(chan Notification, size),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.worker(i)
	}
	return q
}

// Dispatch enqueues n. It returns a NotificationError when n is dropped.
func (q *Queue) Dispatch(_ context.Context, n Notification) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return drop(n, ErrQueueClosed)
	}
	select {
	case q.jobs <- n:
		return nil
	default:
		return drop(n, ErrQueueFull)
	}
}

// Close stops accepting notifications and waits until the workers have
// drained everything already queued.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	log.Info().Msg("notification queue drained")
}

// Len reports the number of queued notifications.
func (q *Queue) Len() int { return len(q.jobs) }

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	for n := range q.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if err := deliver(ctx, q.mailer, n); err != nil {
			log.Debug().Int("worker", id).Str("kind", n.Kind).Msg("notification discarded")
		}
		cancel()
	}
}
