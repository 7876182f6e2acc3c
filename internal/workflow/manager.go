package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"clipmill/internal/config"
	"clipmill/internal/logging"
	"clipmill/internal/notifications"
	"clipmill/internal/publish"
	"clipmill/internal/queue"
	"clipmill/internal/render"
	"clipmill/internal/stage"
	"clipmill/internal/state"
	"clipmill/internal/toolrun"
	"clipmill/internal/transcript"
)

type pipelineStage struct {
	name             string
	readyStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
	handler          stage.Handler
}

// Manager coordinates queue processing using registered stage handlers.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	processed    *state.ProcessedSet
	logger       *slog.Logger
	notifier     notifications.Service
	pollInterval time.Duration
	heartbeat    *HeartbeatMonitor

	stages   []pipelineStage
	byStatus map[queue.Status]pipelineStage

	// Paces starts of successive source videos.
	videoPacer *rate.Limiter

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a workflow manager with the default stage wiring.
func NewManager(cfg *config.Config, store *queue.Store, processed *state.ProcessedSet, logger *slog.Logger) (*Manager, error) {
	return NewManagerWithNotifier(cfg, store, processed, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier
// (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, processed *state.ProcessedSet, logger *slog.Logger, notifier notifications.Service) (*Manager, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	videoLimit := rate.Inf
	if cfg.Publishing.InterVideoDelaySeconds > 0 {
		videoLimit = rate.Every(time.Duration(cfg.Publishing.InterVideoDelaySeconds) * time.Second)
	}
	m := &Manager{
		cfg:          cfg,
		store:        store,
		processed:    processed,
		logger:       logger,
		notifier:     notifier,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		byStatus:   make(map[queue.Status]pipelineStage),
		videoPacer: rate.NewLimiter(videoLimit, 1),
	}
	if err := m.configureDefaultStages(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) configureDefaultStages() error {
	exec := toolrun.CommandExecutor{}

	fetcher, err := transcript.NewYtDlpFetcher(
		m.cfg.Tools.YtDlpBinary,
		m.cfg.Paths.StagingDir,
		m.cfg.Workflow.TranscriptTimeoutSeconds,
		transcript.WithFetcherExecutor(exec),
	)
	if err != nil {
		return err
	}
	downloader, err := newDownloadStage(m.cfg, exec, m.logger)
	if err != nil {
		return err
	}

	m.RegisterStage("transcribe", queue.StatusPending, queue.StatusTranscribing, queue.StatusScored,
		NewTranscribeStage(m.cfg, fetcher, m.logger))
	m.RegisterStage("download", queue.StatusScored, queue.StatusDownloading, queue.StatusDownloaded,
		downloader)
	m.RegisterStage("render", queue.StatusDownloaded, queue.StatusRendering, queue.StatusRendered,
		NewRenderStage(m.cfg, render.New(m.cfg, exec, m.logger), m.logger))
	m.RegisterStage("publish", queue.StatusRendered, queue.StatusPublishing, queue.StatusCompleted,
		NewPublishStage(m.cfg, publish.New(m.cfg, m.logger), m.notifier, m.logger))
	return nil
}

// RegisterStage binds a handler to a (ready, processing, done) status triple.
// Registering for an already-bound ready status replaces the binding.
func (m *Manager) RegisterStage(name string, ready, processing, done queue.Status, handler stage.Handler) {
	ps := pipelineStage{
		name:             name,
		readyStatus:      ready,
		processingStatus: processing,
		doneStatus:       done,
		handler:          handler,
	}
	if _, exists := m.byStatus[ready]; exists {
		for i := range m.stages {
			if m.stages[i].readyStatus == ready {
				m.stages[i] = ps
			}
		}
	} else {
		m.stages = append(m.stages, ps)
	}
	m.byStatus[ready] = ps
}

func (m *Manager) readyStatuses() []queue.Status {
	statuses := make([]queue.Status, 0, len(m.stages))
	for _, ps := range m.stages {
		statuses = append(statuses, ps.readyStatus)
	}
	return statuses
}

// Health reports the readiness of every registered stage.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	health := make([]stage.Health, 0, len(m.stages))
	for _, ps := range m.stages {
		health = append(health, ps.handler.HealthCheck(ctx))
	}
	return health
}

// LastError returns the most recent processing error, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
