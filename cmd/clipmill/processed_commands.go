package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProcessedCommand(cctx *commandContext) *cobra.Command {
	processedCmd := &cobra.Command{
		Use:   "processed",
		Short: "Inspect the persistent processed-video set",
	}
	processedCmd.AddCommand(newProcessedListCommand(cctx))
	processedCmd.AddCommand(newProcessedContainsCommand(cctx))
	return processedCmd
}

func newProcessedListCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List processed video ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := cctx.openProcessedSet()
			if err != nil {
				return err
			}
			defer set.Close()

			ids := set.IDs()
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No videos processed yet")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d videos processed\n", len(ids))
			return nil
		},
	}
}

func newProcessedContainsCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "contains <video-id>",
		Short: "Check whether a video id has been processed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := cctx.openProcessedSet()
			if err != nil {
				return err
			}
			defer set.Close()

			if set.Contains(args[0]) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: processed\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: not processed\n", args[0])
			}
			return nil
		},
	}
}
