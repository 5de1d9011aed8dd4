// Package plot prepares metric series for rendering and defines the
// renderer collaborator. The first recorded sample of a channel is a known
// warm-up outlier and is excluded from every plot.
package plot

import (
	"errors"
	"fmt"

	"trainfeed/internal/monitor"
)

var (
	ErrNotEnoughData = errors.New("plot: not enough data points")
	ErrRender        = errors.New("plot: render failed")
)

// Series is a render-ready view of one channel: points in epoch order with
// the minimum highlighted. Points never include the channel's first sample.
type Series struct {
	Channel  string
	Points   []monitor.Point
	MinIndex int // index into Points of the minimum value
}

// Renderer turns a series into an encoded raster image.
type Renderer interface {
	Render(s Series) ([]byte, error)
}

// Prepare drops the warm-up sample and locates the minimum. At least two
// recorded points are required so that one survives the drop.
func Prepare(channel string, pts []monitor.Point) (Series, error) {
	if len(pts) < 2 {
		return Series{}, fmt.Errorf("%w: channel %q has %d points", ErrNotEnoughData, channel, len(pts))
	}
	pts = pts[1:]

	minIdx := 0
	for i, p := range pts {
		if p.Value < pts[minIdx].Value {
			minIdx = i
		}
	}
	return Series{Channel: channel, Points: pts, MinIndex: minIdx}, nil
}

// SourceKind tags how plot data is obtained.
type SourceKind int

const (
	// SourceHandle plots from an in-process monitor.
	SourceHandle SourceKind = iota
	// SourcePath plots from a recorded metric log on disk.
	SourcePath
)

// Source is an explicit tagged union replacing "is it a path or an
// object?" guessing: the caller states what it has and Resolve produces
// the monitor before any plotting happens.
type Source struct {
	Kind   SourceKind
	Handle *monitor.Monitor
	Path   string
}

func ByHandle(m *monitor.Monitor) Source { return Source{Kind: SourceHandle, Handle: m} }
func ByPath(path string) Source          { return Source{Kind: SourcePath, Path: path} }

func (s Source) Resolve() (*monitor.Monitor, error) {
	switch s.Kind {
	case SourceHandle:
		if s.Handle == nil {
			return nil, errors.New("plot: nil monitor handle")
		}
		return s.Handle, nil
	case SourcePath:
		return monitor.LoadFile(s.Path)
	default:
		return nil, fmt.Errorf("plot: unknown source kind %d", s.Kind)
	}
}
