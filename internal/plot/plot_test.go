package plot

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"trainfeed/internal/monitor"
)

func points(vals ...float64) []monitor.Point {
	out := make([]monitor.Point, len(vals))
	for i, v := range vals {
		out[i] = monitor.Point{Epoch: i, Value: v}
	}
	return out
}

func TestPrepareSkipsWarmupSample(t *testing.T) {
	t.Parallel()
	// First value is an outlier and must not participate.
	s, err := Prepare("valid_y_nll", points(99.0, 4.0, 3.0, 3.5))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(s.Points) != 3 {
		t.Fatalf("points = %d, want 3", len(s.Points))
	}
	if s.Points[0].Epoch != 1 {
		t.Fatalf("first retained epoch = %d, want 1", s.Points[0].Epoch)
	}
	if s.MinIndex != 1 || s.Points[s.MinIndex].Value != 3.0 {
		t.Fatalf("min = %v at %d", s.Points[s.MinIndex].Value, s.MinIndex)
	}
}

func TestPrepareNotEnoughData(t *testing.T) {
	t.Parallel()
	if _, err := Prepare("loss", points(1.0)); !errors.Is(err, ErrNotEnoughData) {
		t.Fatalf("expected ErrNotEnoughData, got %v", err)
	}
	if _, err := Prepare("loss", nil); !errors.Is(err, ErrNotEnoughData) {
		t.Fatalf("expected ErrNotEnoughData, got %v", err)
	}
}

func TestPNGRendererProducesDecodableImage(t *testing.T) {
	t.Parallel()
	s, err := Prepare("loss", points(9.0, 5.0, 4.0, 2.0, 3.0))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	data, err := PNGRenderer{}.Render(s)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not valid PNG: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 600 || b.Dy() != 300 {
		t.Fatalf("size = %dx%d, want 600x300", b.Dx(), b.Dy())
	}
}

func TestPNGRendererEmptySeries(t *testing.T) {
	t.Parallel()
	if _, err := (PNGRenderer{}).Render(Series{Channel: "x"}); !errors.Is(err, ErrRender) {
		t.Fatalf("expected ErrRender, got %v", err)
	}
}

func TestChannelColorStable(t *testing.T) {
	t.Parallel()
	if channelColor("valid_y_nll") != channelColor("valid_y_nll") {
		t.Fatal("color must be stable per channel")
	}
}

func TestSourceResolve(t *testing.T) {
	t.Parallel()
	m := monitor.New()
	m.Append("loss", 0, 0, 1.0)

	got, err := ByHandle(m).Resolve()
	if err != nil || got != m {
		t.Fatalf("ByHandle resolve: %v", err)
	}

	if _, err := ByHandle(nil).Resolve(); err == nil {
		t.Fatal("expected error for nil handle")
	}

	path := filepath.Join(t.TempDir(), "metrics.jsonl")
	log := `{"channel":"loss","epoch":0,"t":1.5,"value":3.0}
{"channel":"loss","epoch":1,"t":3.0,"value":2.0}
`
	if err := os.WriteFile(path, []byte(log), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	fromPath, err := ByPath(path).Resolve()
	if err != nil {
		t.Fatalf("ByPath resolve: %v", err)
	}
	if fromPath.Len("loss") != 2 {
		t.Fatalf("loaded %d entries, want 2", fromPath.Len("loss"))
	}
}
