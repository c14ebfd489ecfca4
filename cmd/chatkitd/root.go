package main

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

// rootCmd is the base command; the daemon itself lives under "run".
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Chat platform connectivity daemon",
	Long: `chatkitd maintains sharded gateway connections to a chat platform,
applies the platform's REST rate limits, and optionally publishes dispatch
events onto a NATS broker for downstream consumers.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main; errors are
// logged there rather than printed by cobra.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (JSON or YAML; CHATKIT_* environment variables override)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"log format: json, text (overrides config)")
}
