package worker

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestWorkerDeliversQueuedNotifications(t *testing.T) {
	var mu sync.Mutex
	var delivered []Notification
	done := make(chan struct{}, 3)

	w := NewNotificationWorker(8, 2, func(_ context.Context, n Notification) error {
		mu.Lock()
		delivered = append(delivered, n)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, nil)
	w.Start(context.Background())
	defer w.Stop()

	for i := 0; i < 3; i++ {
		if !w.Enqueue(Notification{Recipient: "carla@example.com", Subject: "test"}) {
			t.Fatalf("enqueue %d rejected", i)
		}
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for delivery %d", i)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 3 {
		t.Fatalf("delivered = %d, want 3", len(delivered))
	}
}

func TestWorkerDropsWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	w := NewNotificationWorker(1, 1, func(ctx context.Context, _ Notification) error {
		<-block
		return nil
	}, nil)
	w.Start(context.Background())
	defer func() {
		close(block)
		w.Stop()
	}()

	// The single worker blocks on the first delivery and the queue holds
	// one more; later enqueues must be dropped without blocking.
	accepted := 0
	for i := 0; i < 5; i++ {
		if w.Enqueue(Notification{Subject: "x"}) {
			accepted++
		}
	}
	if accepted == 5 {
		t.Fatalf("all enqueues accepted, queue never filled")
	}
	if w.Dropped() == 0 {
		t.Fatalf("expected dropped notifications to be counted")
	}
}

func TestWorkerStopDrainsQueue(t *testing.T) {
	var mu sync.Mutex
	delivered := 0
	w := NewNotificationWorker(8, 1, func(_ context.Context, _ Notification) error {
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		delivered++
		mu.Unlock()
		return nil
	}, nil)
	w.Start(context.Background())

	for i := 0; i < 3; i++ {
		if !w.Enqueue(Notification{Subject: "x"}) {
			t.Fatalf("enqueue %d rejected", i)
		}
	}
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	if delivered != 3 {
		t.Fatalf("delivered = %d, want everything queued before Stop returned", delivered)
	}
}

func TestWorkerEnqueueAfterStopRejected(t *testing.T) {
	w := NewNotificationWorker(8, 1, func(_ context.Context, _ Notification) error { return nil }, nil)
	w.Start(context.Background())
	w.Stop()

	if w.Enqueue(Notification{Subject: "x"}) {
		t.Fatalf("enqueue after Stop must be rejected")
	}
	if w.Dropped() == 0 {
		t.Fatalf("rejected enqueue must be counted as dropped")
	}
}
