package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ecotone-bio/ecotone/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ecotone",
	Short: "Ecotone - operation-log ingestion for biodiversity datasets",
	Long: `Ecotone ingests versioned dataset snapshots from biodiversity data
providers into an append-only operation log and rebuilds the reference
database tables from it.

Every imported row is decomposed into per-field operations with a
logical clock, deduplicated against history, and preserved forever;
entity tables are derived state and can be reprojected at any time.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Ecotone version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "", "Path to the optional tuning file")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(versionCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(level),
		JSONOutput: jsonOut,
	})
}
