package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipmill/internal/config"
	"clipmill/internal/logging"
	"clipmill/internal/toolrun"
)

// Renderer assembles clips with ffmpeg. A single instance is shared across a
// pipeline run; the hardware encoder probe result is cached on first use.
type Renderer struct {
	ffmpegBin     string
	ffprobeBin    string
	workDir       string
	targetWidth   int
	targetHeight  int
	captions      bool
	introEnabled  bool
	introText     string
	introSeconds  int
	outroEnabled  bool
	outroText     string
	outroSeconds  int
	minBytes      int64
	stageTimeout  time.Duration
	forcedEncoder string

	exec   toolrun.Executor
	logger *slog.Logger

	encoderOnce sync.Once
	encoder     string
}

// New builds a Renderer from configuration.
func New(cfg *config.Config, exec toolrun.Executor, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Renderer{
		ffmpegBin:     cfg.Tools.FFmpegBinary,
		ffprobeBin:    cfg.Tools.FFprobeBinary,
		workDir:       cfg.Paths.StagingDir,
		targetWidth:   cfg.Rendering.TargetWidth,
		targetHeight:  cfg.Rendering.TargetHeight,
		captions:      cfg.Rendering.CaptionsEnabled,
		introEnabled:  cfg.Rendering.IntroEnabled,
		introText:     cfg.Rendering.IntroText,
		introSeconds:  cfg.Rendering.IntroSeconds,
		outroEnabled:  cfg.Rendering.OutroEnabled,
		outroText:     cfg.Rendering.OutroText,
		outroSeconds:  cfg.Rendering.OutroSeconds,
		minBytes:      cfg.Rendering.MinOutputBytes,
		stageTimeout:  time.Duration(cfg.Rendering.StageTimeoutSeconds) * time.Second,
		forcedEncoder: cfg.Rendering.Encoder,
		exec:          exec,
		logger:        logging.NewComponentLogger(logger, "render"),
	}
}

// Render assembles one clip from the request's source window. Intro and outro
// failures degrade to a body-only clip; body extraction, concatenation, and
// validation failures are fatal and reported with the failing stage.
func (r *Renderer) Render(ctx context.Context, req Request) (*Clip, error) {
	clipID := uuid.New().String()
	scratchDir := filepath.Join(r.workDir, "render-"+clipID)
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("create render scratch dir: %w", err)
	}
	defer os.RemoveAll(scratchDir)

	log := r.logger.With("clip_id", clipID, "window_start", req.Window.Start, "window_end", req.Window.End)

	bodyPath := filepath.Join(scratchDir, "body.mp4")
	if err := r.extractBody(ctx, req, scratchDir, bodyPath); err != nil {
		return nil, stageFailure(StageExtractBody, err)
	}

	parts := make([]string, 0, 3)
	if r.introEnabled {
		introPath := filepath.Join(scratchDir, "intro.mp4")
		if err := r.buildCard(ctx, r.introText, r.introSeconds, introPath); err != nil {
			log.Warn("intro card failed; continuing without intro", slog.Any("error", err))
		} else {
			parts = append(parts, introPath)
		}
	}
	parts = append(parts, bodyPath)
	if r.outroEnabled {
		outroPath := filepath.Join(scratchDir, "outro.mp4")
		if err := r.buildCard(ctx, r.outroText, r.outroSeconds, outroPath); err != nil {
			log.Warn("outro card failed; continuing without outro", slog.Any("error", err))
		} else {
			parts = append(parts, outroPath)
		}
	}

	output := filepath.Join(r.workDir, clipID+".mp4")
	if len(parts) == 1 {
		if err := os.Rename(bodyPath, output); err != nil {
			return nil, stageFailure(StageConcatenate, fmt.Errorf("move body clip: %w", err))
		}
	} else if err := r.concatenate(ctx, scratchDir, parts, output); err != nil {
		return nil, stageFailure(StageConcatenate, err)
	}

	clip, err := r.validate(ctx, output, req, clipID)
	if err != nil {
		os.Remove(output)
		return nil, err
	}
	log.Info("rendered clip", "path", clip.Path, "duration_seconds", clip.DurationSeconds)
	return clip, nil
}

// extractBody cuts the window from the source, normalizes it to the vertical
// target frame, and burns captions in. A caption-related failure is retried
// once without captions before giving up.
func (r *Renderer) extractBody(ctx context.Context, req Request, scratchDir, output string) error {
	captionPath := ""
	if r.captions {
		path, err := writeCaptionFile(filepath.Join(scratchDir, "captions.srt"), req.Segments, req.Window.Start, req.Window.End)
		if err != nil {
			r.logger.Warn("caption file generation failed; rendering without captions", slog.Any("error", err))
		} else {
			captionPath = path
		}
	}

	err := r.runFFmpeg(ctx, r.bodyArgs(ctx, req, captionPath, output))
	if err != nil && captionPath != "" && ctx.Err() == nil {
		r.logger.Warn("body render with captions failed; retrying without captions", slog.Any("error", err))
		os.Remove(output)
		err = r.runFFmpeg(ctx, r.bodyArgs(ctx, req, "", output))
	}
	return err
}

func (r *Renderer) bodyArgs(ctx context.Context, req Request, captionPath, output string) []string {
	duration := req.Window.End - req.Window.Start
	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		r.targetWidth, r.targetHeight, r.targetWidth, r.targetHeight,
	)
	if captionPath != "" {
		filter += ",subtitles=" + escapeFilterPath(captionPath)
	}
	return []string{
		"-hide_banner", "-y",
		"-ss", formatSeconds(req.Window.Start),
		"-t", formatSeconds(duration),
		"-i", req.SourcePath,
		"-vf", filter,
		"-c:v", r.selectEncoder(ctx),
		"-c:a", "aac",
		output,
	}
}

// buildCard renders a title card of the given duration from synthetic video
// and silent audio sources.
func (r *Renderer) buildCard(ctx context.Context, text string, seconds int, output string) error {
	if seconds <= 0 {
		return fmt.Errorf("card duration %d is not positive", seconds)
	}
	drawtext := fmt.Sprintf(
		"drawtext=text='%s':fontcolor=white:fontsize=64:x=(w-text_w)/2:y=(h-text_h)/2",
		escapeDrawText(text),
	)
	args := []string{
		"-hide_banner", "-y",
		"-f", "lavfi", "-i", fmt.Sprintf("color=c=black:s=%dx%d:d=%d", r.targetWidth, r.targetHeight, seconds),
		"-f", "lavfi", "-i", fmt.Sprintf("anullsrc=r=44100:cl=stereo:d=%d", seconds),
		"-vf", drawtext,
		"-c:v", r.selectEncoder(ctx),
		"-c:a", "aac",
		"-shortest",
		output,
	}
	return r.runFFmpeg(ctx, args)
}

// validate checks the finished file meets the minimum size and reads its real
// duration for the clip record.
func (r *Renderer) validate(ctx context.Context, output string, req Request, clipID string) (*Clip, error) {
	info, err := os.Stat(output)
	if err != nil {
		return nil, stageFailure(StageValidate, fmt.Errorf("stat output: %w", err))
	}
	if info.Size() < r.minBytes {
		return nil, stageFailure(StageValidate,
			fmt.Errorf("output is %d bytes, below minimum %d", info.Size(), r.minBytes))
	}
	duration, err := r.probeDuration(ctx, output)
	if err != nil {
		return nil, stageFailure(StageValidate, err)
	}
	return &Clip{
		ID:              clipID,
		Window:          req.Window,
		Path:            output,
		Title:           req.Title,
		Description:     req.Description,
		Hashtags:        req.Hashtags,
		DurationSeconds: duration,
	}, nil
}

func (r *Renderer) runFFmpeg(ctx context.Context, args []string) error {
	if r.stageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.stageTimeout)
		defer cancel()
	}
	return r.exec.Run(ctx, r.ffmpegBin, args, nil)
}

func formatSeconds(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

// escapeDrawText escapes the characters the drawtext filter treats specially.
func escapeDrawText(text string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return replacer.Replace(text)
}

// escapeFilterPath escapes a file path for use inside a filter graph string.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
	)
	return replacer.Replace(path)
}
