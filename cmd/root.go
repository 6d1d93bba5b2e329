// Package cmd holds the command line entrypoints.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	logJSON  bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "ethereum-apis",
	Short: "Builder and relay API services",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Error: please use a valid subcommand")
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&logJSON, "json", false, "log in JSON format instead of text")
	rootCmd.PersistentFlags().StringVar(&logLevel, "loglevel", "info", "log-level: trace, debug, info, warn/warning, error, fatal, panic")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
