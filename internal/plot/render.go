package plot

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"trainfeed/internal/monitor"
)

// lineColors mirrors the palette the channel color is hashed into, so the
// same channel always renders in the same color across runs.
var lineColors = []color.RGBA{
	{0xcc, 0x00, 0x00, 0xff}, // r
	{0x00, 0x99, 0x00, 0xff}, // g
	{0x00, 0x00, 0xcc, 0xff}, // b
	{0xcc, 0x00, 0xcc, 0xff}, // m
	{0xbb, 0xaa, 0x00, 0xff}, // y
	{0x00, 0x00, 0x00, 0xff}, // k
	{0x00, 0xaa, 0xaa, 0xff}, // c
}

// channelColor picks a stable palette entry from the md5 of the name.
func channelColor(name string) color.RGBA {
	sum := md5.Sum([]byte(name))
	idx := binary.BigEndian.Uint64(sum[:8]) % uint64(len(lineColors))
	return lineColors[idx]
}

// PNGRenderer is a dependency-free raster backend: a line plot of the
// series with a filled marker on the minimum point. It exists so the
// module works without an external plotting service; callers with a real
// renderer inject their own Renderer.
type PNGRenderer struct {
	Width  int // default 600
	Height int // default 300
}

func (r PNGRenderer) Render(s Series) ([]byte, error) {
	if len(s.Points) == 0 {
		return nil, fmt.Errorf("%w: empty series", ErrRender)
	}
	w, h := r.Width, r.Height
	if w <= 0 {
		w = 600
	}
	if h <= 0 {
		h = 300
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	white := color.RGBA{0xff, 0xff, 0xff, 0xff}
	grey := color.RGBA{0x88, 0x88, 0x88, 0xff}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, white)
		}
	}

	const margin = 20
	// Axis frame.
	for x := margin; x < w-margin; x++ {
		img.SetRGBA(x, h-margin, grey)
		img.SetRGBA(x, margin, grey)
	}
	for y := margin; y < h-margin; y++ {
		img.SetRGBA(margin, y, grey)
		img.SetRGBA(w-margin, y, grey)
	}

	minE, maxE := s.Points[0].Epoch, s.Points[0].Epoch
	minV, maxV := s.Points[0].Value, s.Points[0].Value
	for _, p := range s.Points {
		if p.Epoch < minE {
			minE = p.Epoch
		}
		if p.Epoch > maxE {
			maxE = p.Epoch
		}
		if p.Value < minV {
			minV = p.Value
		}
		if p.Value > maxV {
			maxV = p.Value
		}
	}
	spanE := float64(maxE - minE)
	if spanE == 0 {
		spanE = 1
	}
	spanV := maxV - minV
	if spanV == 0 {
		spanV = 1
	}

	toXY := func(p monitor.Point) (int, int) {
		x := margin + int(float64(w-2*margin)*(float64(p.Epoch-minE)/spanE))
		y := (h - margin) - int(float64(h-2*margin)*((p.Value-minV)/spanV))
		return x, y
	}

	col := channelColor(s.Channel)
	px, py := toXY(s.Points[0])
	for _, p := range s.Points[1:] {
		x, y := toXY(p)
		drawLine(img, px, py, x, y, col)
		px, py = x, y
	}

	// Highlight the minimum.
	mx, my := toXY(s.Points[s.MinIndex])
	drawMarker(img, mx, my, col)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return buf.Bytes(), nil
}

func drawLine(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		if image.Pt(x0, y0).In(img.Rect) {
			img.SetRGBA(x0, y0, col)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func drawMarker(img *image.RGBA, cx, cy int, col color.RGBA) {
	for dy := -3; dy <= 3; dy++ {
		for dx := -3; dx <= 3; dx++ {
			if dx*dx+dy*dy <= 9 && image.Pt(cx+dx, cy+dy).In(img.Rect) {
				img.SetRGBA(cx+dx, cy+dy, col)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
