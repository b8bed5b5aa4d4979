package cli

import (
	"os"

	"github.com/moby/term"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().Bool("follow", false, "follow log output (default: true when stdout is a terminal)")
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show logs of the development container for the active file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		follow := term.IsTerminal(os.Stdout.Fd())
		if cmd.Flags().Changed("follow") {
			follow, _ = cmd.Flags().GetBool("follow")
		}

		orch, closeEngine, err := newOrchestrator(ctx, cmd)
		if err != nil {
			return err
		}
		defer closeEngine()

		return orch.Logs(ctx, follow)
	},
}
