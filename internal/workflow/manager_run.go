package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"clipmill/internal/queue"
)

// Start begins background processing. It returns immediately; processing
// continues until Stop or context cancellation.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.stages) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		m.run(runCtx)
	}()
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context) {
	logger := m.logger.With("component", "workflow-manager")
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.heartbeat.ReclaimStaleItems(ctx, logger); err != nil {
			logger.Warn("reclaim stale processing failed; stuck items may remain",
				slog.Any("error", err))
		}

		item, err := m.store.NextForStatuses(ctx, m.readyStatuses()...)
		if err != nil {
			m.handleNextItemError(ctx, logger, err)
			continue
		}
		if item == nil {
			m.waitForItemOrShutdown(ctx)
			continue
		}

		if err := m.processItem(ctx, item); err != nil && errors.Is(err, context.Canceled) {
			return
		}
	}
}

// ProcessQueue drains the queue once: every actionable item is advanced until
// nothing is left to do. Returns the number of videos that reached a
// terminal-success status and the number left failed.
func (m *Manager) ProcessQueue(ctx context.Context) (processed, failed int, err error) {
	logger := m.logger.With("component", "workflow-manager")
	start := time.Now()

	stats, err := m.store.Stats(ctx)
	if err == nil {
		if notifyErr := m.notifier.NotifyRunStarted(ctx, stats[queue.StatusPending]); notifyErr != nil {
			logger.Debug("run-started notification failed", slog.Any("error", notifyErr))
		}
	}

	seen := make(map[string]queue.Status)
	for {
		select {
		case <-ctx.Done():
			return processed, failed, ctx.Err()
		default:
		}

		if reclaimErr := m.heartbeat.ReclaimStaleItems(ctx, logger); reclaimErr != nil {
			logger.Warn("reclaim stale processing failed", slog.Any("error", reclaimErr))
		}

		item, nextErr := m.store.NextForStatuses(ctx, m.readyStatuses()...)
		if nextErr != nil {
			return processed, failed, nextErr
		}
		if item == nil {
			break
		}

		procErr := m.processItem(ctx, item)
		if procErr != nil && errors.Is(procErr, context.Canceled) {
			return processed, failed, procErr
		}
		seen[item.VideoID] = item.Status
	}

	for _, status := range seen {
		switch {
		case queue.IsTerminalSuccess(status):
			processed++
		case status == queue.StatusFailed:
			failed++
		}
	}
	if notifyErr := m.notifier.NotifyRunCompleted(ctx, processed, failed, time.Since(start)); notifyErr != nil {
		logger.Debug("run-completed notification failed", slog.Any("error", notifyErr))
	}
	return processed, failed, nil
}

func (m *Manager) handleNextItemError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to fetch next queue item", slog.Any("error", err))
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second):
	}
}

func (m *Manager) waitForItemOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}
