package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"clipmill/internal/config"
	"clipmill/internal/logging"
	"clipmill/internal/queue"
	"clipmill/internal/render"
	"clipmill/internal/scoring"
	"clipmill/internal/stage"
	"clipmill/internal/transcript"
)

// RenderStage assembles one clip per candidate window. Candidates render
// independently: one window's failure never stops the remaining windows, and
// a video whose candidates all fail still advances with zero clips.
type RenderStage struct {
	cfg      *config.Config
	renderer *render.Renderer
	logger   *slog.Logger
}

// NewRenderStage builds the render stage.
func NewRenderStage(cfg *config.Config, renderer *render.Renderer, logger *slog.Logger) *RenderStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RenderStage{cfg: cfg, renderer: renderer, logger: logger}
}

func (s *RenderStage) Prepare(ctx context.Context, item *queue.Item) error {
	item.SetProgress("Rendering", "Assembling clips", 0)
	return nil
}

func (s *RenderStage) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)

	var windows []scoring.Window
	if err := json.Unmarshal([]byte(item.CandidatesJSON), &windows); err != nil {
		return fmt.Errorf("decode candidate windows: %w", err)
	}
	var segments []transcript.Segment
	if err := json.Unmarshal([]byte(item.TranscriptJSON), &segments); err != nil {
		return fmt.Errorf("decode transcript: %w", err)
	}

	clips := make([]render.Clip, 0, len(windows))
	for i, window := range windows {
		title := item.Title
		if len(windows) > 1 {
			title = fmt.Sprintf("%s (Part %d)", item.Title, i+1)
		}
		req := render.Request{
			SourcePath:  item.SourceFile,
			Window:      window,
			Segments:    segments,
			Title:       title,
			Description: clipDescription(item),
			Hashtags:    s.cfg.Publishing.Hashtags,
		}
		clip, err := s.renderer.Render(ctx, req)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			var stageErr *render.StageError
			if errors.As(err, &stageErr) {
				logger.Warn("candidate render failed",
					"candidate", i+1, "render_stage", stageErr.Stage, slog.Any("error", err))
			} else {
				logger.Warn("candidate render failed", "candidate", i+1, slog.Any("error", err))
			}
			continue
		}
		clips = append(clips, *clip)
		item.SetProgress("Rendering",
			fmt.Sprintf("Rendered %d of %d candidates", i+1, len(windows)),
			float64(i+1)/float64(len(windows))*100)
	}

	clipsJSON, err := json.Marshal(clips)
	if err != nil {
		return fmt.Errorf("encode clips: %w", err)
	}
	item.ClipsJSON = string(clipsJSON)
	item.ClipsCreated = len(clips)
	item.SetProgress("Rendered",
		fmt.Sprintf("%d of %d candidates rendered", len(clips), len(windows)), 100)
	logger.Info("render stage finished", "candidates", len(windows), "clips", len(clips))
	return nil
}

func (s *RenderStage) HealthCheck(ctx context.Context) stage.Health {
	if _, err := exec.LookPath(s.cfg.Tools.FFmpegBinary); err != nil {
		return stage.Unhealthy("render", fmt.Sprintf("ffmpeg not found: %v", err))
	}
	if _, err := exec.LookPath(s.cfg.Tools.FFprobeBinary); err != nil {
		return stage.Unhealthy("render", fmt.Sprintf("ffprobe not found: %v", err))
	}
	return stage.Healthy("render")
}

func clipDescription(item *queue.Item) string {
	if item.ChannelTitle != "" {
		return fmt.Sprintf("Clipped from %q by %s.", item.Title, item.ChannelTitle)
	}
	return fmt.Sprintf("Clipped from %q.", item.Title)
}
