package events

import (
	"testing"
	"time"
)

func TestPublishReachesSubscribers(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe()
	defer cancel()

	if hub.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.Subscribers())
	}

	hub.Publish(Event{Type: TypePanelUpdated, Panel: "usdbrl", Price: 4.95})

	select {
	case evt := <-ch:
		if evt.Type != TypePanelUpdated || evt.Panel != "usdbrl" {
			t.Fatalf("unexpected event %+v", evt)
		}
		if evt.At.IsZero() {
			t.Fatal("expected a timestamp to be filled in")
		}
	case <-time.After(time.Second):
		t.Fatal("expected the event to be delivered")
	}
}

func TestCancelRemovesSubscriber(t *testing.T) {
	hub := NewHub()

	_, cancel := hub.Subscribe()
	cancel()
	if hub.Subscribers() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", hub.Subscribers())
	}

	// Double cancel must be safe.
	cancel()
}

func TestPublishNeverBlocks(t *testing.T) {
	hub := NewHub()

	_, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Overflow the subscriber buffer without anyone reading.
		for i := 0; i < subscriberBuffer*3; i++ {
			hub.Publish(Event{Type: TypeNewsUpdated})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}
