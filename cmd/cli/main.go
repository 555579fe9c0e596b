package main

import (
	"fmt"
	"os"

	"dcia/cmd/cli/catalog"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func init() {
	// A missing .env file is fine, the environment may be set by other means.
	_ = godotenv.Load()
	rootCmd.AddGroup(catalog.Group)
	rootCmd.AddCommand(catalog.Ingest)
	rootCmd.AddCommand(catalog.Embed)
}

var rootCmd = &cobra.Command{ //nolint:exhaustruct // this is better for readability
	Use:  "dcia-cli",
	Long: `Command line utilities for the Digital Crime Investigation Assistant`,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
