package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"clipmill/internal/discovery"
	"clipmill/internal/workflow"
)

// How often the daemon re-runs topic discovery to pick up new source videos.
const discoverInterval = 30 * time.Minute

func newRunCommand(cctx *commandContext) *cobra.Command {
	var skipDiscovery bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline daemon until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cctx.newLogger()
			if err != nil {
				return err
			}
			store, err := cctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			processed, err := cctx.openProcessedSet()
			if err != nil {
				return err
			}
			defer processed.Close()

			manager, err := workflow.NewManager(cfg, store, processed, logger)
			if err != nil {
				return err
			}
			reportUnhealthyStages(cmd, manager)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var searcher discovery.Searcher
			if !skipDiscovery {
				searcher, err = discovery.New(cfg.Discovery.APIKey, cfg.Discovery.BaseURL,
					discovery.WithMinDuration(cfg.Discovery.MinDuration))
				if err != nil {
					return fmt.Errorf("configure discovery: %w", err)
				}
			}

			if err := manager.Start(ctx); err != nil {
				return err
			}
			logger.Info("daemon started", "poll_interval", cfg.Workflow.QueuePollInterval)

			if searcher != nil {
				runDiscovery(ctx, manager, searcher, logger)
				ticker := time.NewTicker(discoverInterval)
				defer ticker.Stop()
				go func() {
					for {
						select {
						case <-ctx.Done():
							return
						case <-ticker.C:
							runDiscovery(ctx, manager, searcher, logger)
						}
					}
				}()
			}

			<-ctx.Done()
			logger.Info("shutting down")
			manager.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipDiscovery, "skip-discovery", false, "Process the existing queue without searching for new videos")
	return cmd
}

func runDiscovery(ctx context.Context, manager *workflow.Manager, searcher discovery.Searcher, logger *slog.Logger) {
	if ctx.Err() != nil {
		return
	}
	if _, err := manager.Discover(ctx, searcher); err != nil {
		logger.Warn("discovery failed", slog.Any("error", err))
	}
}

func reportUnhealthyStages(cmd *cobra.Command, manager *workflow.Manager) {
	for _, h := range manager.Health(cmd.Context()) {
		if !h.Ready {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: stage %s not ready: %s\n", h.Name, h.Detail)
		}
	}
}
