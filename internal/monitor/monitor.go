// Package monitor holds the per-run training metric history the reporter
// reads from. Each named channel is an append-only series of
// (epoch, elapsed seconds, value) triples recorded by the training loop.
package monitor

import (
	"errors"
	"fmt"
	"sync"
)

var ErrChannelNotFound = errors.New("monitor: channel not found")

// Channel is a single recorded metric series. The three records are kept
// index-consistent: entry i of each belongs to the same monitor callback.
type Channel struct {
	Name string

	epochs  []int
	seconds []float64
	values  []float64
}

// Snapshot is an immutable read-only view of the latest state of one
// channel, built fresh per report cycle.
type Snapshot struct {
	Channel        string
	Epoch          int
	ElapsedSeconds float64
	Value          float64
	Min            float64
	MinIndex       int
}

// Point is one (epoch, value) pair, used by plotting.
type Point struct {
	Epoch int
	Value float64
}

// Monitor owns the named channels of one training run.
// Safe for concurrent use; the training loop appends, the reporter reads.
type Monitor struct {
	mu       sync.RWMutex
	channels map[string]*Channel
}

func New() *Monitor {
	return &Monitor{channels: map[string]*Channel{}}
}

// Append records one observation for the named channel, creating the
// channel on first use.
func (m *Monitor) Append(name string, epoch int, seconds, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[name]
	if !ok {
		ch = &Channel{Name: name}
		m.channels[name] = ch
	}
	ch.epochs = append(ch.epochs, epoch)
	ch.seconds = append(ch.seconds, seconds)
	ch.values = append(ch.values, value)
}

// Names returns the known channel names (unordered).
func (m *Monitor) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.channels))
	for name := range m.channels {
		out = append(out, name)
	}
	return out
}

// Len reports the number of recorded entries for a channel (0 if unknown).
func (m *Monitor) Len(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	if !ok {
		return 0
	}
	return len(ch.epochs)
}

// Snapshot builds the reporter's view of a channel: latest entry plus the
// running minimum over the full history.
func (m *Monitor) Snapshot(name string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ch, ok := m.channels[name]
	if !ok || len(ch.values) == 0 {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrChannelNotFound, name)
	}

	last := len(ch.values) - 1
	minIdx := 0
	for i, v := range ch.values {
		if v < ch.values[minIdx] {
			minIdx = i
		}
	}

	return Snapshot{
		Channel:        name,
		Epoch:          ch.epochs[last],
		ElapsedSeconds: ch.seconds[last],
		Value:          ch.values[last],
		Min:            ch.values[minIdx],
		MinIndex:       minIdx,
	}, nil
}

// Series returns the channel's (epoch, value) pairs in recorded order.
func (m *Monitor) Series(name string) ([]Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ch, ok := m.channels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrChannelNotFound, name)
	}
	out := make([]Point, len(ch.epochs))
	for i := range ch.epochs {
		out[i] = Point{Epoch: ch.epochs[i], Value: ch.values[i]}
	}
	return out, nil
}
