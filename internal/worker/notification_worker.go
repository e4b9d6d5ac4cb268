package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Notification is a queued outbound message.
type Notification struct {
	Recipient string
	Subject   string
	Body      string
}

// Sender delivers one notification.
type Sender func(ctx context.Context, n Notification) error

// NotificationWorker drains a bounded queue of notifications with a small
// pool of goroutines so delivery never blocks the request path. When the
// queue is full new notifications are dropped and counted.
type NotificationWorker struct {
	queue   chan Notification
	send    Sender
	logger  *zap.Logger
	workers int

	mu      sync.Mutex
	dropped int
	closed  bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
	once   sync.Once
}

// NewNotificationWorker constructs a worker pool.
func NewNotificationWorker(queueSize, workers int, send Sender, logger *zap.Logger) *NotificationWorker {
	if queueSize <= 0 {
		queueSize = 128
	}
	if workers <= 0 {
		workers = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		queue:   make(chan Notification, queueSize),
		send:    send,
		logger:  logger,
		workers: workers,
	}
}

// Start launches the worker goroutines.
func (w *NotificationWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx)
	}
}

// Stop closes the queue, waits for the workers to drain it, then cancels
// their context. The close happens behind the same mutex Enqueue holds
// while sending so a late Enqueue cannot hit a closed channel.
func (w *NotificationWorker) Stop() {
	w.once.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.queue)
		w.mu.Unlock()
	})
	w.wg.Wait()
	if w.cancel != nil {
		w.cancel()
	}
}

// Enqueue schedules a notification. Returns false if the queue is full or
// the worker has been stopped.
func (w *NotificationWorker) Enqueue(n Notification) bool {
	w.mu.Lock()
	if w.closed {
		w.dropped++
		w.mu.Unlock()
		w.logger.Warn("notification worker stopped, dropping",
			zap.String("recipient", n.Recipient),
			zap.String("subject", n.Subject))
		return false
	}
	select {
	case w.queue <- n:
		w.mu.Unlock()
		return true
	default:
		w.dropped++
		w.mu.Unlock()
		w.logger.Warn("notification queue full, dropping",
			zap.String("recipient", n.Recipient),
			zap.String("subject", n.Subject))
		return false
	}
}

// Dropped reports how many notifications were discarded due to a full queue.
func (w *NotificationWorker) Dropped() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

func (w *NotificationWorker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-w.queue:
			if !ok {
				return
			}
			if err := w.send(ctx, n); err != nil {
				w.logger.Warn("notification delivery failed",
					zap.String("recipient", n.Recipient),
					zap.String("subject", n.Subject),
					zap.Error(err))
			}
		}
	}
}
