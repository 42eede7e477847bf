package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/bountybot/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "bountybot",
	Short: "Prices GitHub bounty issues and pays contributors with signed permits",
	Long: `bountybot listens for GitHub issue webhooks. It keeps price labels in
line with time and priority labels, and when a bounty is closed as completed
it posts a Permit2 claim link for the assignee and, optionally, for everyone
who contributed to the conversation.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the process config and installs the default logger at
// the configured level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	return cfg, nil
}
