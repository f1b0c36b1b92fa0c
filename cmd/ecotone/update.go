package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ecotone-bio/ecotone/pkg/loggers"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Rebuild the entity tables from the operation logs",
	Long: `Update pages every operation log by entity, reduces each entity with
last-writer-wins semantics, and bulk-upserts the resulting rows into
the materialized entity tables. The tables are derived state; update
can be re-run at any time and converges to the same result.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		return loggers.UpdateAll(ctx, st, cfg)
	},
}
