// Package hls resolves a track's adaptive media manifest: variant
// selection from the streams endpoint, master playlist indirection, and
// the segment timeline used to map positions to segments.
package hls

import "sort"

// Segment is one media segment of a manifest. Immutable.
type Segment struct {
	URL        string
	DurationMS int64
}

// Manifest is a fully resolved media playlist. SegmentStartMS[i] is the
// cumulative start offset of segment i; it always begins at 0 and is
// non-decreasing. Immutable once built.
type Manifest struct {
	Segments        []Segment
	InitURL         string
	SegmentStartMS  []int64
	TotalDurationMS int64
}

// Locate maps a position in milliseconds to (segment index, offset
// within that segment). Positions past the end clamp to the last
// segment. An empty manifest locates to (0, 0).
func (m *Manifest) Locate(positionMS int64) (int, int64) {
	if len(m.Segments) == 0 {
		return 0, 0
	}

	clamped := positionMS
	if clamped < 0 {
		clamped = 0
	}
	if max := m.TotalDurationMS - 1; clamped > max {
		clamped = max
	}

	// Greatest index with start <= clamped.
	idx := sort.Search(len(m.SegmentStartMS), func(i int) bool {
		return m.SegmentStartMS[i] > clamped
	}) - 1
	if idx < 0 {
		idx = 0
	}

	return idx, clamped - m.SegmentStartMS[idx]
}
