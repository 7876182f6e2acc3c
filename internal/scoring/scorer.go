// Package scoring turns a raw transcript into ranked candidate clip windows.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"clipmill/internal/services"
	"clipmill/internal/transcript"
)

// Window is a candidate clip boundary with its relevance score.
type Window struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Score      float64 `json:"score"`
	SourceText string  `json:"source_text"`
}

// Duration returns the window length in seconds.
func (w Window) Duration() float64 {
	return w.End - w.Start
}

// Options tunes the window sweep. All values come from configuration; the
// threshold and step size are deliberately not constants.
type Options struct {
	MinDuration    float64
	MaxDuration    float64
	StepSeconds    float64
	ScoreThreshold float64
	MaxCandidates  int
}

// Score sweeps every segment start with every trial duration, scoring each
// window by the fraction of distinct topic terms present in its concatenated
// text. Returned windows are sorted by descending score (ties keep discovery
// order, which is start-time order) and capped at MaxCandidates.
//
// The sweep is O(N*D) for N segments and D duration steps, which is fine for
// single-video transcripts of a few hundred segments.
func Score(segments []transcript.Segment, terms []string, opts Options) ([]Window, error) {
	if err := validate(segments, terms, opts); err != nil {
		return nil, err
	}
	if len(segments) == 0 || len(terms) == 0 {
		return nil, nil
	}

	lowered := make([]string, 0, len(terms))
	seenTerms := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if _, dup := seenTerms[term]; dup {
			continue
		}
		seenTerms[term] = struct{}{}
		lowered = append(lowered, term)
	}
	if len(lowered) == 0 {
		return nil, nil
	}

	var windows []Window
	seen := make(map[Window]struct{})
	for i := range segments {
		for d := opts.MinDuration; d <= opts.MaxDuration; d += opts.StepSeconds {
			window, ok := buildWindow(segments, i, d, lowered)
			if !ok || window.Score < opts.ScoreThreshold {
				continue
			}
			if _, dup := seen[window]; dup {
				continue
			}
			seen[window] = struct{}{}
			windows = append(windows, window)
		}
	}

	sort.SliceStable(windows, func(a, b int) bool {
		return windows[a].Score > windows[b].Score
	})
	if opts.MaxCandidates > 0 && len(windows) > opts.MaxCandidates {
		windows = windows[:opts.MaxCandidates]
	}
	return windows, nil
}

// buildWindow grows a window starting at segment i out to trial duration d.
// A segment is included when its start falls inside the window, even if it
// overflows past the trial end.
func buildWindow(segments []transcript.Segment, i int, d float64, terms []string) (Window, bool) {
	start := segments[i].Start
	end := start + d

	last := i
	for last+1 < len(segments) && segments[last+1].Start <= end {
		last++
	}
	included := segments[i : last+1]
	text := transcript.JoinText(included)
	if text == "" {
		return Window{}, false
	}

	lowerText := strings.ToLower(text)
	hits := 0
	for _, term := range terms {
		if strings.Contains(lowerText, term) {
			hits++
		}
	}

	return Window{
		Start:      start,
		End:        end,
		Score:      float64(hits) / float64(len(terms)),
		SourceText: text,
	}, true
}

func validate(segments []transcript.Segment, terms []string, opts Options) error {
	if opts.MinDuration <= 0 || opts.MaxDuration <= 0 {
		return services.Wrap(services.ErrInvalidInput, "scoring", "score",
			fmt.Sprintf("durations must be positive, got min=%.2f max=%.2f", opts.MinDuration, opts.MaxDuration), nil)
	}
	if opts.MinDuration > opts.MaxDuration {
		return services.Wrap(services.ErrInvalidInput, "scoring", "score",
			fmt.Sprintf("min duration %.2f exceeds max %.2f", opts.MinDuration, opts.MaxDuration), nil)
	}
	if opts.StepSeconds <= 0 {
		return services.Wrap(services.ErrInvalidInput, "scoring", "score",
			fmt.Sprintf("step must be positive, got %.2f", opts.StepSeconds), nil)
	}
	if opts.ScoreThreshold < 0 || opts.ScoreThreshold > 1 {
		return services.Wrap(services.ErrInvalidInput, "scoring", "score",
			fmt.Sprintf("threshold must be in [0,1], got %.2f", opts.ScoreThreshold), nil)
	}
	if err := transcript.Validate(segments); err != nil {
		return services.Wrap(services.ErrInvalidInput, "scoring", "score", "malformed transcript", err)
	}
	return nil
}
