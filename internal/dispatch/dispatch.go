// Package dispatch is an optional asynchronous delivery layer between the
// reporter and the feed channel: a bounded queue drained by a single
// worker, so the training thread never waits on network I/O and posts for
// one run keep their order.
package dispatch

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"trainfeed/internal/feed"
	"trainfeed/pkg/logx"
)

var (
	ErrQueueFull = errors.New("dispatch: queue full")
	ErrStopped   = errors.New("dispatch: stopped")
)

// Sink is the delivery target. Satisfied by *feed.Channel.
type Sink interface {
	PostTextLong(ctx context.Context, msg string) []feed.DeliveryResult
	PostImage(ctx context.Context, image []byte, caption string) feed.DeliveryResult
}

// Config controls the delivery queue.
type Config struct {
	QueueSize     int           // default 64
	RatePerSec    int           // default 1
	SendTimeout   time.Duration // per-job delivery bound, default 15s
	RetryMax      int           // extra attempts after a total failure
	RetryBase     time.Duration // default 500ms
	RetryMaxDelay time.Duration // default 10s
}

func (c *Config) applyDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 1
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 15 * time.Second
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 500 * time.Millisecond
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = 10 * time.Second
	}
}

type jobKind int

const (
	jobText jobKind = iota
	jobImage
)

type job struct {
	kind    jobKind
	message string
	image   []byte
	caption string
}

// Service owns the queue and its worker goroutine.
type Service struct {
	cfg     Config
	sink    Sink
	limiter *rate.Limiter
	log     logx.Logger

	mu        sync.Mutex
	queue     chan job
	accepting bool
	done      chan struct{}
	cancel    context.CancelFunc
}

func New(cfg Config, sink Sink, log logx.Logger) *Service {
	cfg.applyDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:     cfg,
		sink:    sink,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		log:     log,
	}
}

// Start launches the worker. Idempotent.
func (s *Service) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue != nil {
		return
	}
	s.queue = make(chan job, s.cfg.QueueSize)
	s.accepting = true
	s.done = make(chan struct{})

	wctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.workerLoop(wctx, s.queue, s.done)
}

// Stop blocks intake and drains queued jobs until ctx expires, then cuts
// the worker loose.
func (s *Service) Stop(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	q := s.queue
	done := s.done
	cancel := s.cancel
	if q == nil {
		s.mu.Unlock()
		return
	}
	s.accepting = false
	s.queue = nil
	s.mu.Unlock()

	close(q)

	select {
	case <-done:
	case <-ctx.Done():
		cancel()
		<-done
	}
	cancel()

	s.mu.Lock()
	s.done = nil
	s.cancel = nil
	s.mu.Unlock()
}

func (s *Service) enqueue(j job) error {
	s.mu.Lock()
	q := s.queue
	accepting := s.accepting
	s.mu.Unlock()

	if q == nil || !accepting {
		return ErrStopped
	}
	select {
	case q <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Service) workerLoop(ctx context.Context, q <-chan job, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-q:
			if !ok {
				return
			}
			s.deliver(ctx, j)
		}
	}
}

// deliver runs one job, retrying with backoff only when every post in the
// job failed. Partial failures are not retried: re-posting a multi-chunk
// message would duplicate the chunks that did land.
func (s *Service) deliver(ctx context.Context, j job) {
	maxAttempts := 1 + s.cfg.RetryMax
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}

		callCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
		delivered, total := s.runJob(callCtx, j)
		cancel()

		if delivered > 0 || total == 0 {
			if delivered < total {
				s.log.Warn("partial delivery, not retrying",
					logx.Int("delivered", delivered), logx.Int("total", total))
			}
			return
		}

		s.log.Warn("delivery failed",
			logx.Int("attempt", attempt), logx.Int("max", maxAttempts))
		if attempt >= maxAttempts {
			return
		}

		t := time.NewTimer(s.retryDelay(attempt))
		select {
		case <-t.C:
		case <-ctx.Done():
			if !t.Stop() {
				<-t.C
			}
			return
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (delivered, total int) {
	switch j.kind {
	case jobText:
		results := s.sink.PostTextLong(ctx, j.message)
		for _, r := range results {
			if r.OK {
				delivered++
			}
		}
		return delivered, len(results)
	case jobImage:
		res := s.sink.PostImage(ctx, j.image, j.caption)
		if res.OK {
			return 1, 1
		}
		return 0, 1
	}
	return 0, 0
}

func (s *Service) retryDelay(attempt int) time.Duration {
	d := s.cfg.RetryBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= s.cfg.RetryMaxDelay {
			d = s.cfg.RetryMaxDelay
			break
		}
	}
	// Jitter 0.7..1.3
	j := 0.7 + rand.Float64()*0.6
	d = time.Duration(float64(d) * j)
	if d > s.cfg.RetryMaxDelay {
		d = s.cfg.RetryMaxDelay
	}
	return d
}

// Poster returns an async front for the queue. Its results report queue
// acceptance, not delivery: actual outcomes are resolved by the worker and
// surfaced through logs.
func (s *Service) Poster() Sink { return asyncPoster{s: s} }

type asyncPoster struct{ s *Service }

func (p asyncPoster) PostTextLong(_ context.Context, msg string) []feed.DeliveryResult {
	if err := p.s.enqueue(job{kind: jobText, message: msg}); err != nil {
		return []feed.DeliveryResult{{Detail: err.Error()}}
	}
	return []feed.DeliveryResult{{OK: true, Detail: "queued"}}
}

func (p asyncPoster) PostImage(_ context.Context, image []byte, caption string) feed.DeliveryResult {
	// The queue owns the bytes from here on; copy so the caller may reuse
	// its buffer.
	img := append([]byte(nil), image...)
	if err := p.s.enqueue(job{kind: jobImage, image: img, caption: caption}); err != nil {
		return feed.DeliveryResult{Detail: err.Error()}
	}
	return feed.DeliveryResult{OK: true, Detail: "queued"}
}
