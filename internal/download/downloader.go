// Package download retrieves source videos with yt-dlp.
package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipmill/internal/services"
	"clipmill/internal/toolrun"
)

// Downloader fetches a source video into a local file.
type Downloader interface {
	Download(ctx context.Context, videoID string) (string, error)
}

// YtDlp invokes the yt-dlp binary to download a single video.
type YtDlp struct {
	binary  string
	destDir string
	timeout time.Duration
	exec    toolrun.Executor
}

// Option configures the downloader.
type Option func(*YtDlp)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec toolrun.Executor) Option {
	return func(d *YtDlp) {
		if exec != nil {
			d.exec = exec
		}
	}
}

// New constructs a yt-dlp downloader writing into destDir.
func New(binary, destDir string, timeoutSeconds int, opts ...Option) (*YtDlp, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	if strings.TrimSpace(destDir) == "" {
		return nil, errors.New("destination directory required")
	}
	dl := &YtDlp{
		binary:  binary,
		destDir: destDir,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    toolrun.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(dl)
	}
	return dl, nil
}

// Download fetches the video and returns the local file path. The output is
// constrained to an mp4 container so later ffmpeg stages see one format.
func (d *YtDlp) Download(ctx context.Context, videoID string) (string, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return "", services.Wrap(services.ErrInvalidInput, "download", "fetch", "video id required", nil)
	}
	if err := os.MkdirAll(d.destDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, "download", "fetch", "create destination", err)
	}

	destPath := filepath.Join(d.destDir, videoID+".mp4")
	// Remove any partial file from a previous cancelled run.
	_ = os.Remove(destPath)

	dlCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		dlCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	args := []string{
		"--no-playlist",
		"--format", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
		"--merge-output-format", "mp4",
		"--output", destPath,
		"https://www.youtube.com/watch?v=" + videoID,
	}
	if err := d.exec.Run(dlCtx, d.binary, args, nil); err != nil {
		_ = os.Remove(destPath)
		if errors.Is(err, context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, "download", "fetch", "yt-dlp timed out", err)
		}
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", services.Wrap(services.ErrExternalTool, "download", "fetch", "yt-dlp failed", err)
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "download", "fetch", "yt-dlp produced no output file", err)
	}
	if info.Size() == 0 {
		_ = os.Remove(destPath)
		return "", services.Wrap(services.ErrExternalTool, "download", "fetch", "yt-dlp produced empty file", nil)
	}
	return destPath, nil
}
