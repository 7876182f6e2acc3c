package render

import (
	"fmt"
	"os"
	"strings"

	"clipmill/internal/transcript"
)

// writeCaptionFile renders the transcript segments that overlap the clip
// window as an SRT file, with timestamps re-based to clip time and clamped to
// the clip bounds. Returns "" when no segment overlaps the window.
func writeCaptionFile(path string, segments []transcript.Segment, start, end float64) (string, error) {
	overlapping := transcript.Overlapping(segments, start, end)
	if len(overlapping) == 0 {
		return "", nil
	}

	var b strings.Builder
	index := 0
	for _, seg := range overlapping {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		from := clamp(seg.Start-start, 0, end-start)
		to := clamp(seg.End-start, 0, end-start)
		if to <= from {
			continue
		}
		index++
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", index, srtTimestamp(from), srtTimestamp(to), text)
	}
	if index == 0 {
		return "", nil
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write caption file: %w", err)
	}
	return path, nil
}

func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(seconds*1000 + 0.5)
	h := millis / 3600000
	millis %= 3600000
	m := millis / 60000
	millis %= 60000
	s := millis / 1000
	millis %= 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, millis)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
