// Package cli wires the simulator into its command-line interface.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRootCommand creates the root command
func NewRootCommand(logger *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "automationsim",
		Short:         "Dry-run simulator for smart-home automations",
		Long:          "Evaluates automation conditions against a frozen state snapshot and reports which actions would run, without executing anything.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewServeCommand(logger))
	cmd.AddCommand(NewRunCommand(logger))

	return cmd
}
