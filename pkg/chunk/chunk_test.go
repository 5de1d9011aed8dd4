package chunk

import (
	"strings"
	"testing"
)

func TestSplitShortTextUnchanged(t *testing.T) {
	t.Parallel()
	got, err := Split("hello", 140, " [...] ")
	if err != nil {
		t.Fatalf("Split error: %v", err)
	}
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("expected single unmarked piece, got %q", got)
	}
}

func TestSplitBounds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		text   string
		maxLen int
		marker string
		pieces int
	}{
		{name: "exact fit", text: strings.Repeat("a", 140), maxLen: 140, marker: " [...] ", pieces: 1},
		{name: "300 chars", text: strings.Repeat("x", 300), maxLen: 140, marker: " [...] ", pieces: 3},
		{name: "one over", text: strings.Repeat("b", 141), maxLen: 140, marker: " [...] ", pieces: 2},
		{name: "tiny window", text: strings.Repeat("c", 30), maxLen: 5, marker: "~", pieces: 10},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.text, tt.maxLen, tt.marker)
			if err != nil {
				t.Fatalf("Split error: %v", err)
			}
			if len(got) != tt.pieces {
				t.Fatalf("pieces = %d, want %d", len(got), tt.pieces)
			}
			for i, p := range got {
				if n := len([]rune(p)); n > tt.maxLen {
					t.Fatalf("piece %d has %d runes, max %d", i, n, tt.maxLen)
				}
			}
		})
	}
}

func TestSplitMarkers(t *testing.T) {
	t.Parallel()
	const marker = " [...] "
	text := strings.Repeat("x", 300)
	got, err := Split(text, 140, marker)
	if err != nil {
		t.Fatalf("Split error: %v", err)
	}
	// raw piece size 140 - 14 = 126; 300 chars -> 3 pieces.
	if len(got) != 3 {
		t.Fatalf("pieces = %d, want 3", len(got))
	}
	if !strings.HasSuffix(got[0], marker) || strings.HasPrefix(got[0], marker) {
		t.Fatalf("first piece markers wrong: %q", got[0])
	}
	if !strings.HasPrefix(got[1], marker) || !strings.HasSuffix(got[1], marker) {
		t.Fatalf("middle piece markers wrong: %q", got[1])
	}
	if !strings.HasPrefix(got[2], marker) || strings.HasSuffix(got[2], marker) {
		t.Fatalf("last piece markers wrong: %q", got[2])
	}
}

func TestSplitRoundTrip(t *testing.T) {
	t.Parallel()
	const marker = " [...] "
	texts := []string{
		strings.Repeat("abcdef", 80),
		strings.Repeat("héllo wörld ", 40), // multi-byte runes
		strings.Repeat("z", 141),
	}
	for _, text := range texts {
		got, err := Split(text, 140, marker)
		if err != nil {
			t.Fatalf("Split error: %v", err)
		}
		var b strings.Builder
		for i, p := range got {
			b.WriteString(Strip(p, i, len(got), marker))
		}
		if b.String() != text {
			t.Fatalf("round trip lost characters for %d-rune input", len([]rune(text)))
		}
	}
}

func TestSplitMarkerTooWide(t *testing.T) {
	t.Parallel()
	if _, err := Split(strings.Repeat("a", 50), 10, " [...] "); err != ErrMarkerTooWide {
		t.Fatalf("expected ErrMarkerTooWide, got %v", err)
	}
	if _, err := Split("long enough to split", 0, ""); err == nil {
		t.Fatal("expected error for non-positive max length")
	}
}
