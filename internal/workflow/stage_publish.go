package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"

	"clipmill/internal/config"
	"clipmill/internal/logging"
	"clipmill/internal/notifications"
	"clipmill/internal/publish"
	"clipmill/internal/queue"
	"clipmill/internal/render"
	"clipmill/internal/stage"
)

// PublishStage uploads every rendered clip to every configured channel. Clip
// files are deleted once all channel attempts for that clip have completed,
// regardless of outcome.
type PublishStage struct {
	cfg         *config.Config
	coordinator *publish.Coordinator
	notifier    notifications.Service
	logger      *slog.Logger
	clipPacer   *rate.Limiter
}

// NewPublishStage builds the publish stage.
func NewPublishStage(cfg *config.Config, coordinator *publish.Coordinator, notifier notifications.Service, logger *slog.Logger) *PublishStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	clipLimit := rate.Inf
	if cfg.Publishing.InterClipDelaySeconds > 0 {
		clipLimit = rate.Every(time.Duration(cfg.Publishing.InterClipDelaySeconds) * time.Second)
	}
	return &PublishStage{
		cfg:         cfg,
		coordinator: coordinator,
		notifier:    notifier,
		logger:      logger,
		clipPacer:   rate.NewLimiter(clipLimit, 1),
	}
}

func (s *PublishStage) Prepare(ctx context.Context, item *queue.Item) error {
	item.SetProgress("Publishing", "Uploading clips", 0)
	return nil
}

func (s *PublishStage) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)

	var clips []render.Clip
	if item.ClipsJSON != "" {
		if err := json.Unmarshal([]byte(item.ClipsJSON), &clips); err != nil {
			return fmt.Errorf("decode clips: %w", err)
		}
	}
	if len(clips) == 0 {
		item.SetProgress("Completed", "No clips to publish", 100)
		return nil
	}

	reports := make([]publish.Report, 0, len(clips))
	published := 0
	for i := range clips {
		clip := &clips[i]
		if err := s.clipPacer.Wait(ctx); err != nil {
			return err
		}

		report := s.coordinator.Publish(ctx, clip, s.cfg.Publishing.Channels)
		reports = append(reports, report)
		published += report.Succeeded()

		// All channels have been attempted for this clip; the file is done.
		if err := os.Remove(clip.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to remove clip file", "path", clip.Path, slog.Any("error", err))
		}

		if err := s.notifier.NotifyClipPublished(ctx, clip.Title, report.Succeeded(), len(s.cfg.Publishing.Channels)); err != nil {
			logger.Debug("clip-published notification failed", slog.Any("error", err))
		}
		item.SetProgress("Publishing",
			fmt.Sprintf("Published %d of %d clips", i+1, len(clips)),
			float64(i+1)/float64(len(clips))*100)
	}

	reportJSON, err := json.Marshal(reports)
	if err != nil {
		return fmt.Errorf("encode publish report: %w", err)
	}
	item.PublishReportJSON = string(reportJSON)
	item.ClipsPublished = published
	item.SetProgress("Completed",
		fmt.Sprintf("%d clip uploads succeeded across %d clips", published, len(clips)), 100)
	logger.Info("publish stage finished", "clips", len(clips), "successful_uploads", published)
	return nil
}

func (s *PublishStage) HealthCheck(ctx context.Context) stage.Health {
	if len(s.cfg.Publishing.Channels) == 0 {
		return stage.Unhealthy("publish", "no publish channels configured")
	}
	return stage.Healthy("publish")
}
