package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/kafka"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (p *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, append([]kafka.Event(nil), events...))
	return nil
}

func (p *fakePublisher) events() []kafka.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []kafka.Event
	for _, b := range p.batches {
		out = append(out, b...)
	}
	return out
}

func TestCollectorBatchesAndDrainsOnClose(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 16, 2, time.Hour)
	c.Start(context.Background())

	for _, intent := range []string{"course_info", "faculty_search", "general"} {
		c.Track(RouteEvent{Type: EventRoute, Intent: intent})
	}
	c.Close()

	got := pub.events()
	if len(got) != 3 {
		t.Fatalf("published %d events, want 3", len(got))
	}
	if got[0].Key != "course_info" || got[0].Type != string(EventRoute) {
		t.Errorf("first event = %+v", got[0])
	}
	if published, dropped := c.Stats(); published != 3 || dropped != 0 {
		t.Errorf("stats = %d/%d", published, dropped)
	}
}

func TestCollectorFlushesOnInterval(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 16, 100, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	c.Track(RouteEvent{Type: EventZeroResult, Intent: "general"})
	deadline := time.Now().Add(2 * time.Second)
	for len(pub.events()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event never flushed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCollectorDropsWhenFull(t *testing.T) {
	c := NewCollector(&fakePublisher{}, 1, 10, time.Hour)
	c.Track(RouteEvent{})
	c.Track(RouteEvent{})
	if _, dropped := c.Stats(); dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
}

func TestCollectorCountsFailedBatches(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	c := NewCollector(pub, 4, 10, time.Hour)
	c.Start(context.Background())
	c.Track(RouteEvent{})
	c.Close()
	if published, dropped := c.Stats(); published != 0 || dropped != 1 {
		t.Errorf("stats = %d/%d", published, dropped)
	}
}
