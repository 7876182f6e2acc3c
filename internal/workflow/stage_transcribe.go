package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"

	"clipmill/internal/config"
	"clipmill/internal/logging"
	"clipmill/internal/queue"
	"clipmill/internal/scoring"
	"clipmill/internal/stage"
	"clipmill/internal/transcript"
)

// TranscribeStage fetches the transcript for a source video and scores it
// into candidate clip windows. A video without a usable transcript, or whose
// transcript yields no window above the score threshold, terminates with no
// candidates rather than failing.
type TranscribeStage struct {
	cfg     *config.Config
	fetcher transcript.Fetcher
	logger  *slog.Logger
}

// NewTranscribeStage builds the transcribe+score stage.
func NewTranscribeStage(cfg *config.Config, fetcher transcript.Fetcher, logger *slog.Logger) *TranscribeStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &TranscribeStage{cfg: cfg, fetcher: fetcher, logger: logger}
}

func (s *TranscribeStage) Prepare(ctx context.Context, item *queue.Item) error {
	item.SetProgress("Transcribing", "Fetching transcript", 0)
	return nil
}

func (s *TranscribeStage) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)

	segments, err := s.fetcher.Fetch(ctx, item.VideoID)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		logger.Info("no transcript available", "video_id", item.VideoID)
		item.Status = queue.StatusNoCandidates
		item.SetProgress("No candidates", "No transcript available", 100)
		return nil
	}

	windows, err := scoring.Score(segments, s.cfg.Scoring.TopicTerms, scoring.Options{
		MinDuration:    s.cfg.Scoring.MinClipSeconds,
		MaxDuration:    s.cfg.Scoring.MaxClipSeconds,
		StepSeconds:    s.cfg.Scoring.StepSeconds,
		ScoreThreshold: s.cfg.Scoring.ScoreThreshold,
		MaxCandidates:  s.cfg.Scoring.MaxCandidates,
	})
	if err != nil {
		return err
	}

	transcriptJSON, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	item.TranscriptJSON = string(transcriptJSON)

	if len(windows) == 0 {
		logger.Info("no windows above threshold", "video_id", item.VideoID, "segments", len(segments))
		item.Status = queue.StatusNoCandidates
		item.SetProgress("No candidates", "No window scored above threshold", 100)
		return nil
	}

	candidatesJSON, err := json.Marshal(windows)
	if err != nil {
		return fmt.Errorf("encode candidates: %w", err)
	}
	item.CandidatesJSON = string(candidatesJSON)
	item.SetProgress("Scored", fmt.Sprintf("%d candidate windows", len(windows)), 100)
	logger.Info("scored transcript",
		"segments", len(segments), "candidates", len(windows),
		"top_score", windows[0].Score)
	return nil
}

func (s *TranscribeStage) HealthCheck(ctx context.Context) stage.Health {
	if _, err := exec.LookPath(s.cfg.Tools.YtDlpBinary); err != nil {
		return stage.Unhealthy("transcribe", fmt.Sprintf("yt-dlp not found: %v", err))
	}
	if len(s.cfg.Scoring.TopicTerms) == 0 {
		return stage.Unhealthy("transcribe", "no topic terms configured")
	}
	return stage.Healthy("transcribe")
}
