package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"automationsim/internal/clock"
	"automationsim/internal/scenario"
	"automationsim/internal/simulate"
)

// NewRunCommand creates the run command, which performs a single dry run
// from files and prints the result as JSON.
func NewRunCommand(logger *zap.Logger) *cobra.Command {
	var (
		automationPath string
		scenarioPath   string
		maxDepth       int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Dry-run one automation from files",
		Long: `Loads an automation YAML file and an optional scenario file describing
the simulated world (entity states, overrides, clock, trigger), runs the
simulation and prints the result as JSON.

Example:
  automationsim run --automation porch_light.yaml --scenario evening.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := scenario.LoadDocument(automationPath)
			if err != nil {
				return err
			}
			sc, err := scenario.LoadScenario(scenarioPath)
			if err != nil {
				return err
			}

			simulator := simulate.NewSimulator(logger)
			if maxDepth > 0 {
				simulator.SetMaxDepth(maxDepth)
			}

			ctx := simulate.NewContext(sc.States, sc.Overrides, sc.Time, sc.TriggerID, sc.Trigger, clock.NewRealClock())
			result, err := simulator.Run(doc, ctx)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&automationPath, "automation", "", "path to automation YAML (required)")
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "path to scenario YAML")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "override the condition nesting limit")
	_ = cmd.MarkFlagRequired("automation")

	return cmd
}
