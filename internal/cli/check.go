package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that Docker is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		orch, closeEngine, err := newOrchestrator(ctx, cmd)
		if err != nil {
			return err
		}
		defer closeEngine()

		version, err := orch.Check(ctx)
		if err != nil {
			return err
		}
		printCheck(cmd.OutOrStdout(), version, cfg.Engine.Backend)
		return nil
	},
}

func printCheck(out io.Writer, version, backend string) {
	fmt.Fprintf(out, "Docker is available (%s, backend %s)\n", version, backend)
}
