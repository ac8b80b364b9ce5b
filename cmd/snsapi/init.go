package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"snsapi/internal/config"
	"snsapi/internal/theme"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config to --config",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := config.Save(configPath, config.Default()); err != nil {
		return err
	}
	abs, _ := filepath.Abs(configPath)
	theme.PrintBanner(cmd.OutOrStdout())
	fmt.Fprintln(cmd.OutOrStdout(), "Config written to:", abs)
	return nil
}
