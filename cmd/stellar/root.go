package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/edumarques81/stellar-offline-player/internal/version"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stellar",
	Short: "Offline-capable music player service",
	Long: `stellar runs a music player session and serves it to local and
remote clients.

The session keeps playing while clients come and go. Web UIs connect over
Socket.IO, native clients over WebSocket, and other services can follow
and drive the session through a Redis channel.`,
	Version:      version.GetInfo().String(),
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.config/stellar/config.yaml)")
}
