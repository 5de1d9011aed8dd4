package monitor

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// LogEntry is one recorded observation in a metric log file (JSON Lines,
// one entry per line).
type LogEntry struct {
	Channel string  `json:"channel"`
	Epoch   int     `json:"epoch"`
	Seconds float64 `json:"t"`
	Value   float64 `json:"value"`
}

// ReadLog decodes a JSONL metric log. Blank lines are skipped; a malformed
// line fails the whole read with its line number.
func ReadLog(r io.Reader) ([]LogEntry, error) {
	var out []LogEntry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, fmt.Errorf("monitor: log line %d: %w", lineNo, err)
		}
		if e.Channel == "" {
			return nil, fmt.Errorf("monitor: log line %d: missing channel", lineNo)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("monitor: read log: %w", err)
	}
	return out, nil
}

// FromEntries builds a monitor holding all entries in file order.
func FromEntries(entries []LogEntry) *Monitor {
	m := New()
	for _, e := range entries {
		m.Append(e.Channel, e.Epoch, e.Seconds, e.Value)
	}
	return m
}

// LoadFile reads a JSONL metric log from disk into a fresh monitor.
func LoadFile(path string) (*Monitor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("monitor: open log: %w", err)
	}
	defer f.Close()

	entries, err := ReadLog(f)
	if err != nil {
		return nil, err
	}
	return FromEntries(entries), nil
}
