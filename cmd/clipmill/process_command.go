package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"clipmill/internal/discovery"
	"clipmill/internal/publish"
	"clipmill/internal/queue"
	"clipmill/internal/render"
	"clipmill/internal/report"
	"clipmill/internal/workflow"
)

func newProcessCommand(cctx *commandContext) *cobra.Command {
	var skipDiscovery bool

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Discover, process, and publish one batch of videos, then exit",
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

			start := time.Now().UTC()
			if !skipDiscovery {
				searcher, err := discovery.New(cfg.Discovery.APIKey, cfg.Discovery.BaseURL,
					discovery.WithMinDuration(cfg.Discovery.MinDuration))
				if err != nil {
					return fmt.Errorf("configure discovery: %w", err)
				}
				queued, err := manager.Discover(ctx, searcher)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %d new videos\n", queued)
			}

			processedCount, failedCount, err := manager.ProcessQueue(ctx)
			if err != nil {
				return err
			}

			reportPath, err := writeRunReport(ctx, cfg.Paths.ReportDir, store, start)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Processed", "Failed", "Duration"},
				[][]string{{
					strconv.Itoa(processedCount),
					strconv.Itoa(failedCount),
					time.Since(start).Round(time.Second).String(),
				}},
				[]columnAlignment{alignRight, alignRight, alignLeft},
			))
			if reportPath != "" {
				fmt.Fprintf(out, "Report written to %s\n", reportPath)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipDiscovery, "skip-discovery", false, "Process the existing queue without searching for new videos")
	return cmd
}

// writeRunReport collects the items this run touched into the JSON/CSV run
// report.
func writeRunReport(ctx context.Context, dir string, store *queue.Store, since time.Time) (string, error) {
	items, err := store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list queue items: %w", err)
	}

	run := &report.RunReport{StartedAt: since, FinishedAt: time.Now().UTC()}
	for _, item := range items {
		if item.UpdatedAt.Before(since) {
			continue
		}
		if !queue.IsTerminalSuccess(item.Status) && item.Status != queue.StatusFailed {
			continue
		}
		run.AddVideo(report.VideoRecord{
			VideoID:        item.VideoID,
			Title:          item.Title,
			Status:         string(item.Status),
			ClipsCreated:   item.ClipsCreated,
			ClipsPublished: item.ClipsPublished,
			Error:          item.ErrorMessage,
		})
		appendClipRecords(run, item)
	}
	if len(run.Videos) == 0 {
		return "", nil
	}
	return run.Write(dir)
}

func appendClipRecords(run *report.RunReport, item *queue.Item) {
	if item.ClipsJSON == "" || item.PublishReportJSON == "" {
		return
	}
	var clips []render.Clip
	if err := json.Unmarshal([]byte(item.ClipsJSON), &clips); err != nil {
		return
	}
	var reports []publish.Report
	if err := json.Unmarshal([]byte(item.PublishReportJSON), &reports); err != nil {
		return
	}
	byClip := make(map[string]publish.Report, len(reports))
	for _, r := range reports {
		byClip[r.ClipID] = r
	}
	for _, clip := range clips {
		r, ok := byClip[clip.ID]
		if !ok {
			continue
		}
		for _, result := range r.Results {
			run.AddClip(report.ClipRecord{
				VideoID:       item.VideoID,
				ClipID:        clip.ID,
				Title:         clip.Title,
				WindowStart:   clip.Window.Start,
				WindowEnd:     clip.Window.End,
				Score:         clip.Window.Score,
				Channel:       result.Channel,
				Status:        result.Status,
				RemoteVideoID: result.RemoteVideoID,
				RemoteURL:     result.RemoteURL,
				Reason:        result.ErrorReason,
			})
		}
	}
}
