package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"clipmill/internal/discovery"
)

// Discover searches for source videos on the configured topic and enqueues
// the ones not already processed or queued. Returns the number of newly
// queued videos.
func (m *Manager) Discover(ctx context.Context, searcher discovery.Searcher) (int, error) {
	logger := m.logger.With("component", "discovery")

	videos, err := searcher.Search(ctx, m.cfg.Discovery.Query, m.cfg.Discovery.MaxResults)
	if err != nil {
		return 0, fmt.Errorf("search source videos: %w", err)
	}

	queued := 0
	for _, video := range videos {
		if m.processed.Contains(video.ID) {
			logger.Debug("skipping already-processed video", "video_id", video.ID)
			continue
		}
		existing, err := m.store.GetByVideoID(ctx, video.ID)
		if err != nil {
			return queued, fmt.Errorf("check queue for video %s: %w", video.ID, err)
		}
		if existing != nil {
			continue
		}
		if _, err := m.store.NewVideo(ctx, video.ID, video.Title, video.ChannelTitle, video.PublishedAt); err != nil {
			return queued, fmt.Errorf("enqueue video %s: %w", video.ID, err)
		}
		queued++
		logger.Info("queued source video",
			"video_id", video.ID, "title", video.Title,
			slog.String("channel", video.ChannelTitle))
	}
	logger.Info("discovery finished", "results", len(videos), "queued", queued)
	return queued, nil
}
