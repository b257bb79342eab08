package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/harness/internal/config"
)

var (
	initForce bool
	initPath  string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .harness.yml",
	Long: `Write the default configuration to .harness.yml so it can be edited.
An existing file is kept unless --force is given.

Examples:
  harness init
  harness init --force
  harness init --path ci/harness.yml`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing file")
	initCmd.Flags().StringVar(&initPath, "path", DefaultConfigName+".yml", "File to write")
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(initPath); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", initPath)
	}
	if err := config.Default().WriteFile(initPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", initPath)
	return nil
}
