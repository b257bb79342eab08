package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/harness/internal/config"
	"github.com/conneroisu/harness/internal/registry"
	"github.com/conneroisu/harness/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Serve demo fixtures for browser tests",
	Long: `Serve the demo fixtures over HTTP. Every page load opens a live fixture
on the server; the page mirrors its markup and forwards DOM events over a
websocket, so browser harnesses and people can drive it.

The configuration file is watched while serving: stabilize settings apply to
sessions opened after the change.

Examples:
  harness serve                       # Serve on localhost:8090
  harness serve -p 0                  # Pick a free port
  harness serve --fixture checkboxes  # Print the checkboxes URL`,
	RunE: runServe,
}

var serveFlags *StandardFlags

func init() {
	rootCmd.AddCommand(serveCmd)

	serveFlags = AddStandardFlags(serveCmd, "server")
	AddFlagValidation(serveCmd, "port", ValidatePort)

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.fixture", serveCmd.Flags().Lookup("fixture"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}

	reg := registry.Builtin()
	if _, ok := reg.Get(cfg.Server.Fixture); !ok {
		return fmt.Errorf("unknown fixture %q (available: %v)", cfg.Server.Fixture, reg.Names())
	}

	srv := server.New(cfg, reg, logger)

	if viper.ConfigFileUsed() != "" {
		config.Watch(viper.GetViper(), func(next *config.Config, err error) {
			if err != nil {
				logger.Warn(context.Background(), err, "ignoring invalid configuration change")
				return
			}
			srv.UpdateConfig(next)
		})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr, err := srv.Listen()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Serving fixtures at http://%s/\n", addr)
	fmt.Fprintf(cmd.OutOrStdout(), "Open http://%s/fixtures/%s\n", addr, cfg.Server.Fixture)

	return srv.Serve(ctx)
}
