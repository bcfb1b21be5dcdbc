package main

import (
	"statusgen/internal/version"

	"github.com/spf13/cobra"
)

var (
	// debugFlag drops the log level to debug for all subcommands
	debugFlag bool
	// configDirFlag overrides the directory searched for .statusgen/
	configDirFlag string
	// noCacheFlag bypasses the response cache for this invocation
	noCacheFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "statusgen",
	Short: "statusgen - periodic \"what shipped\" reports from your issue trackers",
	Long: `statusgen compiles a periodic "what shipped" report by pulling resolved work
items from your issue trackers over a trailing time window, verifying through
each item's change history that it genuinely landed inside the window, and
handing the qualified set to a summarizer.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("statusgen version {{.Version}}\n")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config", "",
		"Directory containing .statusgen/ (default: current directory)")
	rootCmd.PersistentFlags().BoolVar(&noCacheFlag, "no-cache", false,
		"Bypass the response cache")
}
