package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipmill/internal/workflow"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check readiness of every pipeline stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			processed, err := ctx.openProcessedSet()
			if err != nil {
				return err
			}
			defer processed.Close()
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			manager, err := workflow.NewManager(cfg, store, processed, logger)
			if err != nil {
				return err
			}

			unhealthy := 0
			rows := make([][]string, 0, 4)
			for _, h := range manager.Health(cmd.Context()) {
				status := "ready"
				if !h.Ready {
					status = "not ready"
					unhealthy++
				}
				rows = append(rows, []string{h.Name, status, h.Detail})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Stage", "Status", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft}))
			if unhealthy > 0 {
				return fmt.Errorf("%d stage(s) not ready", unhealthy)
			}
			return nil
		},
	}
}
