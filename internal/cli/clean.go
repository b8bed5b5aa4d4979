package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jakenelson/devdock/internal/orchestrator"
)

func init() {
	rootCmd.AddCommand(cleanCmd)
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the containers and images of the active file's language",
	Long: `Force-remove every container whose name matches the language's container
name, every image matching its image name and all dangling images.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		orch, closeEngine, err := newOrchestrator(ctx, cmd)
		if err != nil {
			return err
		}
		defer closeEngine()

		report, err := orch.Clean(ctx)
		if report != nil {
			printCleanReport(cmd.OutOrStdout(), report)
		}
		return err
	},
}

func printCleanReport(out io.Writer, report *orchestrator.CleanReport) {
	if len(report.Containers) == 0 && len(report.Images) == 0 {
		fmt.Fprintf(out, "Nothing to clean for %s\n", report.Language)
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle(fmt.Sprintf("Removed for %s", report.Language))
	t.AppendHeader(table.Row{"Kind", "ID"})
	for _, id := range report.Containers {
		t.AppendRow(table.Row{"container", id})
	}
	for _, id := range report.Images {
		t.AppendRow(table.Row{"image", id})
	}
	t.Render()
}
