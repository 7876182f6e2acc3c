package render

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// Tolerance when verifying a stream-copied concatenation against the sum of
// its parts. Stream copy is fast but silently produces broken output when the
// parts disagree on codec parameters, so the result is checked with ffprobe.
const concatDurationTolerance = 2.0

type concatStrategy struct {
	name string
	run  func(ctx context.Context, parts []string, output string) error
}

// concatenate joins the rendered parts into a single clip, trying each
// strategy in order and keeping the first that produces usable output.
func (r *Renderer) concatenate(ctx context.Context, scratchDir string, parts []string, output string) error {
	strategies := []concatStrategy{
		{name: "filter re-encode", run: r.concatFilter},
		{name: "demuxer re-encode", run: func(ctx context.Context, parts []string, output string) error {
			return r.concatDemuxer(ctx, scratchDir, parts, output, false)
		}},
		{name: "demuxer stream copy", run: func(ctx context.Context, parts []string, output string) error {
			return r.concatDemuxer(ctx, scratchDir, parts, output, true)
		}},
	}

	var lastErr error
	for _, strategy := range strategies {
		err := strategy.run(ctx, parts, output)
		if err == nil {
			r.logger.Info("concatenated clip parts",
				"strategy", strategy.name, "parts", len(parts))
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		r.logger.Warn("concat strategy failed",
			"strategy", strategy.name, slog.Any("error", err))
		os.Remove(output)
		lastErr = err
	}
	return fmt.Errorf("all concat strategies failed: %w", lastErr)
}

// concatFilter re-encodes the parts through the concat filter graph. Slowest
// strategy but tolerant of mismatched stream parameters between parts.
func (r *Renderer) concatFilter(ctx context.Context, parts []string, output string) error {
	args := []string{"-hide_banner", "-y"}
	for _, part := range parts {
		args = append(args, "-i", part)
	}
	var graph strings.Builder
	for i := range parts {
		fmt.Fprintf(&graph, "[%d:v:0][%d:a:0]", i, i)
	}
	fmt.Fprintf(&graph, "concat=n=%d:v=1:a=1[v][a]", len(parts))
	args = append(args,
		"-filter_complex", graph.String(),
		"-map", "[v]", "-map", "[a]",
		"-c:v", r.selectEncoder(ctx), "-c:a", "aac",
		output,
	)
	return r.runFFmpeg(ctx, args)
}

// concatDemuxer joins the parts through the concat demuxer, either re-encoding
// or stream-copying. Stream copy results are verified against the summed part
// durations before being accepted.
func (r *Renderer) concatDemuxer(ctx context.Context, scratchDir string, parts []string, output string, streamCopy bool) error {
	listPath := filepath.Join(scratchDir, "concat.txt")
	var list strings.Builder
	for _, part := range parts {
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(part, "'", `'\''`))
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	args := []string{
		"-hide_banner", "-y",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
	}
	if streamCopy {
		args = append(args, "-c", "copy")
	} else {
		args = append(args, "-c:v", r.selectEncoder(ctx), "-c:a", "aac")
	}
	args = append(args, output)
	if err := r.runFFmpeg(ctx, args); err != nil {
		return err
	}

	if streamCopy {
		expected := 0.0
		for _, part := range parts {
			duration, err := r.probeDuration(ctx, part)
			if err != nil {
				return err
			}
			expected += duration
		}
		actual, err := r.probeDuration(ctx, output)
		if err != nil {
			return err
		}
		if math.Abs(actual-expected) > concatDurationTolerance {
			return fmt.Errorf("stream copy produced %.2fs, expected %.2fs", actual, expected)
		}
	}
	return nil
}
