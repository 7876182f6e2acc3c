package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipmill/internal/logging"
	"clipmill/internal/queue"
	"clipmill/internal/services"
)

func (m *Manager) processItem(ctx context.Context, item *queue.Item) error {
	ps, ok := m.byStatus[item.Status]
	if !ok {
		m.logger.Warn("no stage configured for status", "status", string(item.Status))
		m.waitForItemOrShutdown(ctx)
		return nil
	}

	// A pending item is the start of a new source video; pace video starts.
	if ps.readyStatus == queue.StatusPending {
		if err := m.videoPacer.Wait(ctx); err != nil {
			return err
		}
	}

	stageCtx := services.WithRequestID(
		services.WithStage(services.WithVideoID(ctx, item.VideoID), ps.name),
		uuid.NewString(),
	)
	stageLogger := logging.WithContext(stageCtx, m.logger)

	if err := m.transitionToProcessing(stageCtx, ps, item); err != nil {
		stageLogger.Error("failed to transition item to processing", slog.Any("error", err))
		m.setLastError(err)
		return err
	}
	return m.executeStage(stageCtx, stageLogger, ps, item)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, ps pipelineStage, item *queue.Item) error {
	stageStart := time.Now()
	stageLogger.Info("stage started",
		"processing_status", string(ps.processingStatus),
		"video_title", strings.TrimSpace(item.Title))

	if err := ps.handler.Prepare(ctx, item); err != nil {
		m.handleStageFailure(ctx, ps.name, item, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(ctx, item); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", slog.Any("error", wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(ctx, ps, item)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, ps.name, item, execErr)
		m.setLastError(execErr)
		return execErr
	}

	// Handlers may set a terminal status themselves (no candidates,
	// abandoned); otherwise the item advances to the stage's done status.
	if item.Status == ps.processingStatus || item.Status == "" {
		item.Status = ps.doneStatus
	}
	item.LastHeartbeat = nil
	if err := m.store.Update(ctx, item); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", slog.Any("error", wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	stageLogger.Info("stage completed",
		"next_status", string(item.Status),
		"stage_duration", time.Since(stageStart))

	if queue.IsTerminalSuccess(item.Status) {
		m.finalizeVideo(ctx, stageLogger, item)
	}
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, ps pipelineStage, item *queue.Item) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, item.ID)

	execErr := ps.handler.Execute(ctx, item)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) transitionToProcessing(ctx context.Context, ps pipelineStage, item *queue.Item) error {
	now := time.Now().UTC()
	item.Status = ps.processingStatus
	item.ErrorMessage = ""
	item.ProgressPercent = 0
	item.LastHeartbeat = &now
	if err := m.store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	return nil
}

// finalizeVideo runs once a video reaches a terminal-success status. Working
// files are removed first; recording the video in the processed set is the
// last operation, so a crash before this point leaves the video eligible for
// a rerun.
func (m *Manager) finalizeVideo(ctx context.Context, logger *slog.Logger, item *queue.Item) {
	if path := strings.TrimSpace(item.SourceFile); path != "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to remove source file", "path", path, slog.Any("error", err))
		}
	}

	if err := m.processed.Add(item.VideoID); err != nil {
		m.setLastError(err)
		logger.Error("failed to record video in processed set", slog.Any("error", err))
		return
	}
	logger.Info("video finalized",
		"status", string(item.Status),
		"clips_created", item.ClipsCreated,
		"clips_published", item.ClipsPublished)

	if err := m.notifier.NotifyVideoProcessed(ctx, item.Title, item.ClipsCreated, item.ClipsPublished); err != nil {
		logger.Debug("video-processed notification failed", slog.Any("error", err))
	}
}
