package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"clipmill/internal/logging"
	"clipmill/internal/queue"
)

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, item *queue.Item, stageErr error) {
	logger := logging.WithContext(ctx, m.logger).With("component", "workflow-manager")

	message := classifyStageFailure(stageName, stageErr)
	item.SetFailed(message)

	logger.Error("stage failed",
		"stage", stageName,
		"error_message", strings.TrimSpace(message),
		slog.Any("error", stageErr))

	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", slog.Any("error", err))
		}
	}

	if err := m.notifier.NotifyError(ctx, stageErr, stageName); err != nil {
		logger.Debug("error notification failed", slog.Any("error", err))
	}
}

func classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		return fmt.Sprintf("%s failed without error detail", stageName)
	}
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = fmt.Sprintf("%s failed", stageName)
	}
	return message
}
