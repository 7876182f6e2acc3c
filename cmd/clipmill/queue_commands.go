package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipmill/internal/queue"
)

func newQueueCommand(cctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the processing queue",
	}
	queueCmd.AddCommand(newQueueStatusCommand(cctx))
	queueCmd.AddCommand(newQueueListCommand(cctx))
	queueCmd.AddCommand(newQueueAddCommand(cctx))
	queueCmd.AddCommand(newQueueClearCommand(cctx))
	queueCmd.AddCommand(newQueueClearFailedCommand(cctx))
	queueCmd.AddCommand(newQueueRetryCommand(cctx))
	return queueCmd
}

func newQueueStatusCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show item counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(stats))
			total := 0
			for _, status := range queue.AllStatuses() {
				count, ok := stats[status]
				if !ok || count == 0 {
					continue
				}
				rows = append(rows, []string{string(status), strconv.Itoa(count)})
				total += count
			}
			rows = append(rows, []string{"total", strconv.Itoa(total)})
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Status", "Count"}, rows,
				[]columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func newQueueListCommand(cctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var statuses []queue.Status
			if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
				status, ok := queue.ParseStatus(trimmed)
				if !ok {
					return fmt.Errorf("unknown status %q", trimmed)
				}
				statuses = append(statuses, status)
			}

			items, err := store.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, []string{
					strconv.FormatInt(item.ID, 10),
					item.VideoID,
					truncate(item.Title, 40),
					string(item.Status),
					strconv.Itoa(item.ClipsCreated),
					strconv.Itoa(item.ClipsPublished),
					truncate(item.ErrorMessage, 40),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Video", "Title", "Status", "Clips", "Published", "Error"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}))
			return nil
		},
	}
	cmd.Flags().StringVar(&statusFilter, "status", "", "Only list items with this status")
	return cmd
}

func newQueueAddCommand(cctx *commandContext) *cobra.Command {
	var title string
	var channelTitle string

	cmd := &cobra.Command{
		Use:   "add <video-id>",
		Short: "Queue a source video by its YouTube id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			item, err := store.NewVideo(cmd.Context(), args[0], title, channelTitle, "")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued video %s as item %d (%s)\n",
				item.VideoID, item.ID, item.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Source video title")
	cmd.Flags().StringVar(&channelTitle, "channel", "", "Source channel title")
	return cmd
}

func newQueueClearCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every item from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d items\n", removed)
			return nil
		},
	}
}

func newQueueClearFailedCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-failed",
		Short: "Remove failed items from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.ClearFailed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d failed items\n", removed)
			return nil
		},
	}
}

func newQueueRetryCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Reset failed items to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			reset, err := store.RetryFailed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d failed items\n", reset)
			return nil
		},
	}
}

func truncate(s string, limit int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}
