package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"clipmill/internal/config"
	"clipmill/internal/download"
	"clipmill/internal/logging"
	"clipmill/internal/queue"
	"clipmill/internal/stage"
	"clipmill/internal/toolrun"
)

// DownloadStage fetches the source video file. A download failure abandons
// the video: it counts as processed with zero clips and is never retried, so
// no render or publish work runs for it.
type DownloadStage struct {
	cfg        *config.Config
	downloader download.Downloader
	logger     *slog.Logger
}

func newDownloadStage(cfg *config.Config, exec toolrun.Executor, logger *slog.Logger) (*DownloadStage, error) {
	dl, err := download.New(
		cfg.Tools.YtDlpBinary,
		cfg.Paths.StagingDir,
		cfg.Workflow.DownloadTimeoutSeconds,
		download.WithExecutor(exec),
	)
	if err != nil {
		return nil, err
	}
	return NewDownloadStage(cfg, dl, logger), nil
}

// NewDownloadStage builds the download stage around a Downloader.
func NewDownloadStage(cfg *config.Config, downloader download.Downloader, logger *slog.Logger) *DownloadStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &DownloadStage{cfg: cfg, downloader: downloader, logger: logger}
}

func (s *DownloadStage) Prepare(ctx context.Context, item *queue.Item) error {
	item.SetProgress("Downloading", "Fetching source video", 0)
	return nil
}

func (s *DownloadStage) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)

	path, err := s.downloader.Download(ctx, item.VideoID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		logger.Warn("source download failed; abandoning video", slog.Any("error", err))
		item.SetAbandoned(fmt.Sprintf("source download failed: %v", err))
		return nil
	}

	item.SourceFile = path
	item.SetProgress("Downloaded", "Source video ready", 100)
	logger.Info("downloaded source video", "path", path)
	return nil
}

func (s *DownloadStage) HealthCheck(ctx context.Context) stage.Health {
	if _, err := exec.LookPath(s.cfg.Tools.YtDlpBinary); err != nil {
		return stage.Unhealthy("download", fmt.Sprintf("yt-dlp not found: %v", err))
	}
	return stage.Healthy("download")
}
