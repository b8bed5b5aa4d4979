package cli

import (
	"github.com/spf13/cobra"

	"github.com/jakenelson/devdock/internal/logging"
	"github.com/jakenelson/devdock/internal/orchestrator"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build and run the development container for the active file",
	Long: `Build the image for the active file's language, replace any existing
container, start a new one with EXPOSEd ports and VOLUMEs mapped, and tail
its logs.

A Dockerfile is created from the language template when none exists next to
the active file. Volume host paths are read from <Dockerfile>.mount.json,
which is generated with defaults on first use.

Examples:
  devdock run -f main.py
  devdock run -f ./service -l go
  devdock run --dry-run -f index.js`,
	Args: cobra.NoArgs,
	RunE: runContainer,
}

func runContainer(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	orch, closeEngine, err := newOrchestrator(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeEngine()

	outcome, err := orch.Run(ctx)
	if err != nil {
		return err
	}
	if outcome.State == orchestrator.StateRejected {
		return nil
	}

	logging.Info("CLI", "%s finished in state %s", outcome.Spec.ContainerName, outcome.State)
	return nil
}
