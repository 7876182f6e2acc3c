// Package transcript fetches and parses video captions into ordered,
// timestamped segments.
package transcript

import (
	"fmt"
	"strings"
)

// Segment is one timed block of transcript text. Segments are ordered,
// non-overlapping, with monotonically increasing start times.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Validate checks ordering and timing invariants over a segment sequence.
func Validate(segments []Segment) error {
	prevStart := -1.0
	for i, seg := range segments {
		if seg.End < seg.Start {
			return fmt.Errorf("segment %d: end %.2f before start %.2f", i, seg.End, seg.Start)
		}
		if seg.Start < prevStart {
			return fmt.Errorf("segment %d: start %.2f before previous start %.2f", i, seg.Start, prevStart)
		}
		prevStart = seg.Start
	}
	return nil
}

// Overlapping returns the segments whose time range intersects [start, end).
func Overlapping(segments []Segment, start, end float64) []Segment {
	var out []Segment
	for _, seg := range segments {
		if seg.End <= start || seg.Start >= end {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// JoinText concatenates segment texts with single spaces.
func JoinText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
