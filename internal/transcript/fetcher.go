package transcript

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

// Fetcher returns the transcript segments for a source video id. An empty
// slice with a nil error means no transcript is available; callers treat
// "unavailable" and "empty" identically.
type Fetcher interface {
	Fetch(ctx context.Context, videoID string) ([]Segment, error)
}

// YtDlpFetcher downloads auto-generated or uploaded captions via yt-dlp
// without downloading the video itself.
type YtDlpFetcher struct {
	binary  string
	workDir string
	timeout time.Duration
	exec    toolrun.Executor
}

// FetcherOption configures the fetcher.
type FetcherOption func(*YtDlpFetcher)

// WithFetcherExecutor injects a custom executor (primarily for tests).
func WithFetcherExecutor(exec toolrun.Executor) FetcherOption {
	return func(f *YtDlpFetcher) {
		if exec != nil {
			f.exec = exec
		}
	}
}

// NewYtDlpFetcher constructs a caption fetcher.
func NewYtDlpFetcher(binary, workDir string, timeoutSeconds int, opts ...FetcherOption) (*YtDlpFetcher, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	if strings.TrimSpace(workDir) == "" {
		return nil, errors.New("work directory required")
	}
	fetcher := &YtDlpFetcher{
		binary:  binary,
		workDir: workDir,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    toolrun.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	return fetcher, nil
}

// Fetch downloads captions for the video and parses them into segments. A
// video without captions yields an empty slice, not an error.
func (f *YtDlpFetcher) Fetch(ctx context.Context, videoID string) ([]Segment, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, services.Wrap(services.ErrInvalidInput, "transcript", "fetch", "video id required", nil)
	}

	destDir := filepath.Join(f.workDir, "captions", videoID)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcript", "fetch", "create caption dir", err)
	}
	defer os.RemoveAll(destDir)

	fetchCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	args := []string{
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-format", "json3",
		"--sub-langs", "en.*",
		"--output", filepath.Join(destDir, "%(id)s"),
		"https://www.youtube.com/watch?v=" + videoID,
	}
	if err := f.exec.Run(fetchCtx, f.binary, args, nil); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, "transcript", "fetch", "yt-dlp timed out", err)
		}
		// yt-dlp exits non-zero for videos with no captions at all; that is
		// "unavailable", which callers treat the same as empty.
		return nil, nil
	}

	captionFile, err := newestCaptionFile(destDir)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcript", "fetch", "inspect caption output", err)
	}
	if captionFile == "" {
		return nil, nil
	}

	data, err := os.ReadFile(captionFile)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcript", "fetch", "read captions", err)
	}
	segments, err := ParseJSON3(data)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcript", "fetch", "malformed captions", err)
	}
	return segments, nil
}

func newestCaptionFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	var newest string
	var newestMod time.Time
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json3") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(dir, entry.Name())
			newestMod = info.ModTime()
		}
	}
	return newest, nil
}
