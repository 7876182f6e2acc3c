package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipmill/internal/config"
	"clipmill/internal/scoring"
	"clipmill/internal/testsupport"
	"clipmill/internal/transcript"
)

// scriptedExec simulates ffmpeg and ffprobe invocations. It writes fake
// output files for ffmpeg calls and reports a fixed duration for ffprobe.
type scriptedExec struct {
	calls    [][]string
	failWhen func(args []string) bool
	outBytes int
	duration float64
}

func (e *scriptedExec) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	e.calls = append(e.calls, append([]string{binary}, args...))
	if strings.Contains(binary, "ffprobe") {
		if onOutput != nil {
			onOutput(fmt.Sprintf("%.3f", e.duration))
		}
		return nil
	}
	if e.failWhen != nil && e.failWhen(args) {
		return errors.New("simulated ffmpeg failure")
	}
	output := args[len(args)-1]
	if output != "-" {
		if err := os.WriteFile(output, bytes.Repeat([]byte{'x'}, e.outBytes), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func newTestRenderer(t *testing.T, exec *scriptedExec, mutate func(*config.Config)) *Renderer {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Rendering.Encoder = "libx264"
	cfg.Rendering.IntroEnabled = false
	cfg.Rendering.OutroEnabled = false
	cfg.Rendering.CaptionsEnabled = false
	if mutate != nil {
		mutate(cfg)
	}
	return New(cfg, exec, nil)
}

func testRequest() Request {
	return Request{
		SourcePath: "/tmp/source.mp4",
		Window:     scoring.Window{Start: 30, End: 75, Score: 0.5},
		Segments: []transcript.Segment{
			{Text: "first line", Start: 32, End: 36},
			{Text: "second line", Start: 40, End: 44},
		},
		Title:       "Test clip",
		Description: "A test clip.",
		Hashtags:    []string{"#test"},
	}
}

func TestRenderBodyOnly(t *testing.T) {
	exec := &scriptedExec{outBytes: 4096, duration: 45}
	r := newTestRenderer(t, exec, nil)

	clip, err := r.Render(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if clip.ID == "" {
		t.Error("expected a clip ID")
	}
	if clip.DurationSeconds != 45 {
		t.Errorf("duration = %v, want 45", clip.DurationSeconds)
	}
	if _, err := os.Stat(clip.Path); err != nil {
		t.Errorf("clip file missing: %v", err)
	}
	if filepath.Dir(clip.Path) != r.workDir {
		t.Errorf("clip written to %s, want %s", filepath.Dir(clip.Path), r.workDir)
	}
	// Body only: one ffmpeg cut plus the validation ffprobe.
	if len(exec.calls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d: %v", len(exec.calls), exec.calls)
	}
}

func TestRenderRetriesWithoutCaptions(t *testing.T) {
	exec := &scriptedExec{outBytes: 4096, duration: 45}
	exec.failWhen = func(args []string) bool {
		for _, arg := range args {
			if strings.Contains(arg, "subtitles=") {
				return true
			}
		}
		return false
	}
	r := newTestRenderer(t, exec, func(cfg *config.Config) {
		cfg.Rendering.CaptionsEnabled = true
	})

	clip, err := r.Render(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if clip.Path == "" {
		t.Fatal("expected a clip path")
	}

	withCaptions := 0
	for _, call := range exec.calls {
		for _, arg := range call {
			if strings.Contains(arg, "subtitles=") {
				withCaptions++
				break
			}
		}
	}
	if withCaptions != 1 {
		t.Errorf("expected exactly one captioned attempt, got %d", withCaptions)
	}
}

func TestRenderSkipsFailedIntro(t *testing.T) {
	exec := &scriptedExec{outBytes: 4096, duration: 45}
	exec.failWhen = func(args []string) bool {
		for _, arg := range args {
			if strings.HasPrefix(arg, "color=") {
				return true
			}
		}
		return false
	}
	r := newTestRenderer(t, exec, func(cfg *config.Config) {
		cfg.Rendering.IntroEnabled = true
		cfg.Rendering.IntroText = "Welcome"
		cfg.Rendering.IntroSeconds = 2
	})

	clip, err := r.Render(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := os.Stat(clip.Path); err != nil {
		t.Errorf("clip file missing: %v", err)
	}
}

func TestRenderConcatFallsBackToDemuxer(t *testing.T) {
	exec := &scriptedExec{outBytes: 4096, duration: 49}
	exec.failWhen = func(args []string) bool {
		for _, arg := range args {
			if arg == "-filter_complex" {
				return true
			}
		}
		return false
	}
	r := newTestRenderer(t, exec, func(cfg *config.Config) {
		cfg.Rendering.IntroEnabled = true
		cfg.Rendering.IntroText = "Welcome"
		cfg.Rendering.IntroSeconds = 2
		cfg.Rendering.OutroEnabled = true
		cfg.Rendering.OutroText = "Subscribe"
		cfg.Rendering.OutroSeconds = 2
	})

	clip, err := r.Render(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := os.Stat(clip.Path); err != nil {
		t.Errorf("clip file missing: %v", err)
	}

	sawDemuxer := false
	for _, call := range exec.calls {
		for i, arg := range call {
			if arg == "-f" && i+1 < len(call) && call[i+1] == "concat" {
				sawDemuxer = true
			}
		}
	}
	if !sawDemuxer {
		t.Error("expected a concat demuxer invocation")
	}
}

func TestRenderRejectsUndersizedOutput(t *testing.T) {
	exec := &scriptedExec{outBytes: 16, duration: 45}
	r := newTestRenderer(t, exec, nil)

	_, err := r.Render(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected validation failure for undersized output")
	}
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %T", err)
	}
	if stageErr.Stage != StageValidate {
		t.Errorf("stage = %s, want %s", stageErr.Stage, StageValidate)
	}
}

func TestRenderReportsBodyStageFailure(t *testing.T) {
	exec := &scriptedExec{outBytes: 4096, duration: 45}
	exec.failWhen = func(args []string) bool { return true }
	r := newTestRenderer(t, exec, nil)

	_, err := r.Render(context.Background(), testRequest())
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if stageErr.Stage != StageExtractBody {
		t.Errorf("stage = %s, want %s", stageErr.Stage, StageExtractBody)
	}
}

func TestWriteCaptionFileRebasesTimestamps(t *testing.T) {
	dir := t.TempDir()
	segments := []transcript.Segment{
		{Text: "before window", Start: 10, End: 14},
		{Text: "inside window", Start: 32, End: 36},
		{Text: "straddles end", Start: 73, End: 80},
		{Text: "after window", Start: 90, End: 95},
	}
	path, err := writeCaptionFile(filepath.Join(dir, "c.srt"), segments, 30, 75)
	if err != nil {
		t.Fatalf("writeCaptionFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read captions: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "00:00:02,000 --> 00:00:06,000") {
		t.Errorf("expected rebased cue for inside segment, got:\n%s", content)
	}
	// The straddling segment is clamped to the window end.
	if !strings.Contains(content, "00:00:43,000 --> 00:00:45,000") {
		t.Errorf("expected clamped cue for straddling segment, got:\n%s", content)
	}
	if strings.Contains(content, "before window") || strings.Contains(content, "after window") {
		t.Errorf("caption file includes non-overlapping segments:\n%s", content)
	}
}

func TestWriteCaptionFileEmptyWhenNoOverlap(t *testing.T) {
	segments := []transcript.Segment{{Text: "early", Start: 1, End: 3}}
	path, err := writeCaptionFile(filepath.Join(t.TempDir(), "c.srt"), segments, 30, 75)
	if err != nil {
		t.Fatalf("writeCaptionFile: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path when nothing overlaps, got %q", path)
	}
}

func TestSrtTimestamp(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{61.25, "00:01:01,250"},
		{3661.001, "01:01:01,001"},
	}
	for _, tc := range cases {
		if got := srtTimestamp(tc.seconds); got != tc.want {
			t.Errorf("srtTimestamp(%v) = %s, want %s", tc.seconds, got, tc.want)
		}
	}
}
