package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jakenelson/devdock/internal/language"
	"github.com/jakenelson/devdock/internal/workspace"
)

func init() {
	rootCmd.AddCommand(dockerfileCmd)
	rootCmd.AddCommand(languagesCmd)

	dockerfileCmd.Flags().Bool("force", false, "overwrite an existing Dockerfile")
	dockerfileCmd.Flags().Bool("print", false, "print the template instead of writing it")
}

var dockerfileCmd = &cobra.Command{
	Use:   "dockerfile",
	Short: "Create the Dockerfile for the active file's language",
	Long: `Create <language>.Dockerfile next to the active file from the built-in
template for its language.

Examples:
  devdock dockerfile -f main.py          # Write python.Dockerfile
  devdock dockerfile -l go --force       # Replace go.Dockerfile in the current directory
  devdock dockerfile -l typescript --print`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := newWorkspace()
		if err != nil {
			return err
		}
		lang, err := ws.DetectLanguage()
		if err != nil {
			return err
		}

		if printOnly, _ := cmd.Flags().GetBool("print"); printOnly {
			fmt.Fprint(cmd.OutOrStdout(), lang.Template())
			return nil
		}

		force, _ := cmd.Flags().GetBool("force")
		path, err := ws.MakeDockerfile(lang, force)
		if errors.Is(err, workspace.ErrDockerfileExists) {
			return fmt.Errorf("%w (use --force to overwrite)", err)
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
		return nil
	},
}

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List supported languages",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Language", "Extensions", "Base image", "Image", "Container"})
		for _, l := range language.All() {
			t.AppendRow(table.Row{l, strings.Join(l.Extensions(), " "), l.BaseImage(), l.ImageName(), l.ContainerName()})
		}
		t.Render()
	},
}
