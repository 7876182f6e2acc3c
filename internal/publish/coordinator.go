package publish

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"clipmill/internal/config"
	"clipmill/internal/logging"
	"clipmill/internal/render"
	"clipmill/internal/services"
)

// Coordinator publishes one clip to every configured channel, sequentially.
// Channel attempts never run concurrently: the platform's anti-abuse
// heuristics penalize parallel uploads from one credential set, so pacing
// between attempts is enforced with a rate limiter instead.
type Coordinator struct {
	client        *http.Client
	apiBaseURL    string
	uploader      *Uploader
	hashtags      []string
	uploadTimeout time.Duration
	limiter       *rate.Limiter
	logger        *slog.Logger
}

// New builds a Coordinator from configuration. Channel identity lookups go
// through the same Data API base as discovery.
func New(cfg *config.Config, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "publish")

	client := &http.Client{Timeout: 30 * time.Second}
	limit := rate.Inf
	if cfg.Publishing.InterChannelDelaySeconds > 0 {
		limit = rate.Every(time.Duration(cfg.Publishing.InterChannelDelaySeconds) * time.Second)
	}

	return &Coordinator{
		client:     client,
		apiBaseURL: cfg.Discovery.BaseURL,
		uploader: &Uploader{
			client:    &http.Client{},
			baseURL:   cfg.Publishing.UploadBaseURL,
			chunkSize: int64(cfg.Publishing.ChunkSizeMiB) * 1024 * 1024,
			retries:   cfg.Publishing.ChunkRetries,
			backoff:   time.Duration(cfg.Publishing.ChunkRetryBackoffSeconds) * time.Second,
			logger:    logger,
		},
		hashtags:      cfg.Publishing.Hashtags,
		uploadTimeout: time.Duration(cfg.Publishing.UploadTimeoutSeconds) * time.Second,
		limiter:       rate.NewLimiter(limit, 1),
		logger:        logger,
	}
}

// Publish attempts the clip on every target and aggregates the outcomes.
// One channel's failure never aborts the remaining channels; the report
// always carries one result per target.
func (c *Coordinator) Publish(ctx context.Context, clip *render.Clip, targets []config.Channel) Report {
	report := Report{ClipID: clip.ID, Results: make([]Result, 0, len(targets))}
	for _, target := range targets {
		if err := c.limiter.Wait(ctx); err != nil {
			report.Results = append(report.Results, Result{
				Channel:     target.Name,
				Status:      StatusFailed,
				FailureKind: FailureNetworkError,
				ErrorReason: "canceled before attempt: " + err.Error(),
			})
			continue
		}
		result := c.publishOne(ctx, clip, target)
		report.Results = append(report.Results, result)
		c.logger.Info("channel attempt finished",
			"channel", target.Name, "status", result.Status,
			"remote_video_id", result.RemoteVideoID, "failure_kind", result.FailureKind)
	}
	return report
}

func (c *Coordinator) publishOne(ctx context.Context, clip *render.Clip, target config.Channel) Result {
	result := Result{Channel: target.Name}

	token, err := loadToken(target.TokenFile)
	if err != nil {
		result.Status = StatusSkipped
		result.FailureKind = FailureAuthenticationMissing
		result.ErrorReason = err.Error()
		return result
	}

	if err := c.verifyChannelIdentity(ctx, token, target.ExpectedChannelID); err != nil {
		result.Status = StatusFailed
		result.FailureKind, result.ErrorReason = classifyFailure(err)
		return result
	}

	uploadCtx := ctx
	if c.uploadTimeout > 0 {
		var cancel context.CancelFunc
		uploadCtx, cancel = context.WithTimeout(ctx, c.uploadTimeout)
		defer cancel()
	}

	metadata := BuildMetadata(clip, target, c.hashtags)
	videoID, err := c.uploader.Upload(uploadCtx, token, metadata, clip.Path)
	if err != nil {
		result.Status = StatusFailed
		result.FailureKind, result.ErrorReason = classifyFailure(err)
		return result
	}

	result.Status = StatusSuccess
	result.RemoteVideoID = videoID
	result.RemoteURL = "https://youtu.be/" + videoID
	return result
}

func classifyFailure(err error) (kind, reason string) {
	switch {
	case errors.Is(err, services.ErrIdentityMismatch):
		return FailureChannelIdentityMismatch, err.Error()
	case errors.Is(err, services.ErrTimeout):
		return FailureUploadTimeout, err.Error()
	case errors.Is(err, services.ErrExternalTool):
		return FailureUploadRejected, err.Error()
	default:
		return FailureNetworkError, err.Error()
	}
}
