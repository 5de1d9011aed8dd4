package dispatch

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"trainfeed/internal/feed"
	"trainfeed/pkg/logx"
)

// recordingSink captures delivered jobs; failFirst makes the first n text
// deliveries fail completely.
type recordingSink struct {
	mu        sync.Mutex
	texts     []string
	images    []string
	failFirst int
	attempts  int
}

func (s *recordingSink) PostTextLong(_ context.Context, msg string) []feed.DeliveryResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.attempts <= s.failFirst {
		return []feed.DeliveryResult{{Detail: "down"}}
	}
	s.texts = append(s.texts, msg)
	return []feed.DeliveryResult{{OK: true}}
}

func (s *recordingSink) PostImage(_ context.Context, _ []byte, caption string) feed.DeliveryResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, caption)
	return feed.DeliveryResult{OK: true}
}

func (s *recordingSink) snapshotTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

func TestDeliveryOrderPreserved(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{}
	svc := New(Config{QueueSize: 32, RatePerSec: 1000}, sink, logx.Nop())
	svc.Start(context.Background())

	p := svc.Poster()
	for i := 0; i < 10; i++ {
		res := p.PostTextLong(context.Background(), "msg-"+strconv.Itoa(i))
		if !res[0].OK {
			t.Fatalf("enqueue %d rejected: %+v", i, res[0])
		}
	}
	svc.Stop(context.Background())

	got := sink.snapshotTexts()
	if len(got) != 10 {
		t.Fatalf("delivered %d, want 10", len(got))
	}
	for i, msg := range got {
		if msg != "msg-"+strconv.Itoa(i) {
			t.Fatalf("order broken at %d: %q", i, msg)
		}
	}
}

func TestEnqueueNeverBlocks(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{}
	svc := New(Config{QueueSize: 1, RatePerSec: 1}, sink, logx.Nop())
	// Not started: the queue does not exist yet.
	res := svc.Poster().PostTextLong(context.Background(), "early")
	if res[0].OK {
		t.Fatal("expected rejection before Start")
	}

	svc.Start(context.Background())
	defer svc.Stop(context.Background())

	// Flood well past capacity; calls must return immediately with
	// ErrQueueFull rather than block the caller.
	start := time.Now()
	var rejected int
	for i := 0; i < 50; i++ {
		res := svc.Poster().PostTextLong(context.Background(), "flood")
		if !res[0].OK {
			rejected++
		}
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("enqueue blocked the caller")
	}
	if rejected == 0 {
		t.Fatal("expected at least one queue-full rejection")
	}
}

func TestRetryAfterTotalFailure(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{failFirst: 2}
	svc := New(Config{
		QueueSize:     4,
		RatePerSec:    1000,
		RetryMax:      3,
		RetryBase:     time.Millisecond,
		RetryMaxDelay: 5 * time.Millisecond,
	}, sink, logx.Nop())
	svc.Start(context.Background())

	svc.Poster().PostTextLong(context.Background(), "eventually")
	svc.Stop(context.Background())

	got := sink.snapshotTexts()
	if len(got) != 1 || got[0] != "eventually" {
		t.Fatalf("expected delivery after retries, got %v", got)
	}
}

func TestImageJob(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{}
	svc := New(Config{QueueSize: 4, RatePerSec: 1000}, sink, logx.Nop())
	svc.Start(context.Background())

	res := svc.Poster().PostImage(context.Background(), []byte{1, 2}, "loss plot")
	if !res.OK {
		t.Fatalf("enqueue rejected: %+v", res)
	}
	svc.Stop(context.Background())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.images) != 1 || sink.images[0] != "loss plot" {
		t.Fatalf("images = %v", sink.images)
	}
}

func TestStopDrainsQueue(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{}
	svc := New(Config{QueueSize: 16, RatePerSec: 1000}, sink, logx.Nop())
	svc.Start(context.Background())

	for i := 0; i < 5; i++ {
		svc.Poster().PostTextLong(context.Background(), "pending")
	}
	svc.Stop(context.Background())

	if got := len(sink.snapshotTexts()); got != 5 {
		t.Fatalf("drained %d, want 5", got)
	}

	// After Stop the queue rejects.
	if res := svc.Poster().PostTextLong(context.Background(), "late"); res[0].OK {
		t.Fatal("expected rejection after Stop")
	}
}
