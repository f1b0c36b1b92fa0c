package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ecotone-bio/ecotone/pkg/archive"
	"github.com/ecotone-bio/ecotone/pkg/config"
	"github.com/ecotone-bio/ecotone/pkg/log"
	"github.com/ecotone-bio/ecotone/pkg/loggers"
	"github.com/ecotone-bio/ecotone/pkg/store"
)

var importCmd = &cobra.Command{
	Use:   "import <archive>...",
	Short: "Import dataset archives as operation logs",
	Long: `Import reads each archive (a tar of meta.toml plus brotli-compressed
CSV files), registers its dataset version, and appends the decomposed
operations to the log. Re-importing an archive is a no-op.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		importers := loggers.Registry(st, cfg)
		for _, path := range args {
			importLogger := log.WithComponent("import")
			importLogger.Info().Str("archive", path).Msg("importing archive")
			if err := archive.New(path).Import(ctx, st, importers); err != nil {
				return err
			}
		}
		return nil
	},
}

func openStore(cmd *cobra.Command) (config.Config, *store.Store, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}

	st, err := store.Open(cfg.DatabaseURL, cfg.MaxConnections)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, st, nil
}
