// Package cmd provides the harness command-line interface.
//
// Configuration is read from several sources, highest priority first:
//
//  1. Command-line flags (--config, --port, ...)
//  2. HARNESS_CONFIG_FILE, a path to the configuration file
//  3. Individual environment variables (HARNESS_SERVER_PORT, ...)
//  4. .harness.yml in the working directory
//
// Environment variables follow the HARNESS_<SECTION>_<OPTION> pattern, for
// example HARNESS_STABILIZE_MODE=virtual.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/harness/internal/config"
	"github.com/conneroisu/harness/internal/logging"
)

// DefaultConfigName is the configuration file looked up in the working
// directory, without extension.
const DefaultConfigName = ".harness"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "harness",
	Short: "Serve, list and benchmark component test harness fixtures",
	Long: `harness drives UI components through test harnesses that stabilize the
component before every read, in-process or in a real browser.

Quick Start:
  harness init                    Write a default .harness.yml
  harness list                    List the demo fixtures
  harness serve                   Serve a fixture for browser tests
  harness bench                   Benchmark batched harness actions

Command Aliases:
  serve (s), list (l), bench (b)`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .harness.yml, can also use HARNESS_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("HARNESS_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(DefaultConfigName)
	}

	viper.SetEnvPrefix("HARNESS")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing file leaves the defaults in place.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadRuntime loads the configuration and builds the logger it selects.
func loadRuntime() (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := logging.New(cfg.LoggerConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug(context.Background(), "configuration loaded",
		"mode", cfg.Stabilize.Mode, "config_file", viper.ConfigFileUsed())
	return cfg, logger, nil
}
