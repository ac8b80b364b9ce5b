package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"snsapi/internal/theme"
)

var (
	configPath  string
	channelName string
)

var rootCmd = &cobra.Command{
	Use:   "snsapi",
	Short: "Read and post Renren feeds from the command line",
	Long: theme.Banner() + `
snsapi signs Renren API requests, normalizes home timeline items into
messages, and keeps a local sqlite archive of what it has read.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./snsapi.yaml", "config path")
	rootCmd.PersistentFlags().StringVar(&channelName, "channel", "", "channel name (default: first open channel)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
