package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "easychore",
	Short: "easychore - shared household expenses",
	Long: `easychore keeps the shared expense ledger of a household: who paid for
what, how each expense is split between the members of a home and which
shares have been settled.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)
	if err := rootCmd.Execute(); err != nil {
		printErrorAndExit("command failed", err)
	}
}

func printErrorAndExit(msg string, e error) {
	slog.Error(msg, "error", e)
	os.Exit(1)
}
