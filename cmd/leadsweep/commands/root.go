// Package commands implements the CLI commands for leadsweep.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/leadsweep/leadsweep/internal/logger"
	"github.com/leadsweep/leadsweep/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "leadsweep",
	Short: "Extract sales leads from a browser-only CRM",
	Long: `Leadsweep drives a real browser against a CRM that exposes no API,
reads the rendered lead board, and reconciles it into a deduplicated,
date-bounded record set.

Examples:
  # One-shot collection of pending-contact leads since 2024
  leadsweep collect --status pendiente_contactar --cutoff 2024-01-01

  # Include per-lead enrichment (contact popover, property modal)
  leadsweep collect --status all --cutoff 2024-06-01 --details -o leads.json

  # Run as an HTTP service
  leadsweep serve --listen :8080 --db runs.db`,
	Version: version.String(),
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.leadsweep.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")
	rootCmd.PersistentFlags().Bool("log-json", false, "log as JSON")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".leadsweep")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("LEADSWEEP")
	viper.AutomaticEnv()

	// The resolver keys follow the providers' conventional env vars.
	_ = viper.BindEnv("resolver_api_key", "ANTHROPIC_API_KEY", "OPENAI_API_KEY")

	_ = viper.ReadInConfig()

	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  viper.GetBool("log_json"),
	})
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
