package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the ecotone version, commit, build time, and runtime details.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Ecotone version %s\n", Version)
		fmt.Printf("Commit:     %s\n", Commit)
		fmt.Printf("Built:      %s\n", BuildTime)
		fmt.Printf("Go version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}
