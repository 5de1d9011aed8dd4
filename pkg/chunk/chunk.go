// Package chunk splits long messages into bounded-length pieces with
// continuation markers, so a multi-part status update stays readable on a
// feed that caps post length.
package chunk

import "errors"

// ErrMarkerTooWide is returned when maxLen cannot fit two continuation
// markers plus at least one character of payload.
var ErrMarkerTooWide = errors.New("chunk: marker too wide for max length")

// Split cuts text into ordered pieces of at most maxLen runes each.
//
// A text that already fits is returned as a single piece, unmarked.
// Otherwise interior cut points reserve room for marker on both sides:
// the first piece ends with marker, the last begins with it, and middle
// pieces carry it on both ends. Stripping the markers and concatenating
// the pieces reproduces text exactly.
func Split(text string, maxLen int, marker string) ([]string, error) {
	if maxLen <= 0 {
		return nil, ErrMarkerTooWide
	}

	rs := []rune(text)
	if len(rs) <= maxLen {
		return []string{text}, nil
	}

	mlen := len([]rune(marker))
	raw := maxLen - 2*mlen
	if raw <= 0 {
		return nil, ErrMarkerTooWide
	}

	pieces := make([]string, 0, (len(rs)+raw-1)/raw)
	for start := 0; start < len(rs); start += raw {
		end := start + raw
		if end > len(rs) {
			end = len(rs)
		}
		pieces = append(pieces, string(rs[start:end]))
	}

	last := len(pieces) - 1
	for i := range pieces {
		if i > 0 {
			pieces[i] = marker + pieces[i]
		}
		if i < last {
			pieces[i] = pieces[i] + marker
		}
	}
	return pieces, nil
}

// Strip removes the continuation markers that Split attached to piece i of n.
// It is the inverse of the marker attachment and is mainly useful in tests
// and reassembly.
func Strip(piece string, i, n int, marker string) string {
	rs := []rune(piece)
	mlen := len([]rune(marker))
	if n <= 1 {
		return piece
	}
	if i > 0 {
		rs = rs[mlen:]
	}
	if i < n-1 {
		rs = rs[:len(rs)-mlen]
	}
	return string(rs)
}
