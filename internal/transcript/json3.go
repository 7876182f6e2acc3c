package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// json3Document models the caption format yt-dlp writes for YouTube's
// timedtext endpoint (--sub-format json3).
type json3Document struct {
	Events []json3Event `json:"events"`
}

type json3Event struct {
	StartMs    int64      `json:"tStartMs"`
	DurationMs int64      `json:"dDurationMs"`
	Segs       []json3Seg `json:"segs"`
}

type json3Seg struct {
	UTF8 string `json:"utf8"`
}

// ParseJSON3 converts a json3 caption document into transcript segments.
// Events without text (window styling, newlines only) are dropped.
func ParseJSON3(data []byte) ([]Segment, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var doc json3Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse json3 captions: %w", err)
	}

	segments := make([]Segment, 0, len(doc.Events))
	for _, event := range doc.Events {
		var sb strings.Builder
		for _, seg := range event.Segs {
			sb.WriteString(seg.UTF8)
		}
		text := strings.TrimSpace(strings.ReplaceAll(sb.String(), "\n", " "))
		if text == "" {
			continue
		}
		start := float64(event.StartMs) / 1000
		end := start + float64(event.DurationMs)/1000
		if end < start {
			end = start
		}
		segments = append(segments, Segment{Text: text, Start: start, End: end})
	}
	return segments, nil
}
