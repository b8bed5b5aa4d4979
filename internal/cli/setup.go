package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/jakenelson/devdock/internal/config"
	"github.com/jakenelson/devdock/internal/container"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard for devdock configuration",
	Long: `Interactive setup wizard that checks Docker and writes a configuration file.

This command will:
- Check that the docker CLI is installed and the daemon answers
- Ask how devdock should talk to Docker (CLI or Engine API)
- Ask for the host port range used for EXPOSEd ports
- Ask for a container memory limit
- Create or update your configuration file`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Devdock Setup Wizard")
	fmt.Fprintln(out, "====================")

	fmt.Fprintln(out, "\nStep 1: Docker")
	fmt.Fprintln(out, "--------------")
	detectDocker(cmd.Context(), out, cfg.Docker.Binary)

	settings := config.DefaultConfig()
	settings.Docker.Binary = cfg.Docker.Binary
	settings.Shell.Path = cfg.Shell.Path

	fmt.Fprintln(out, "\nStep 2: Engine Backend")
	fmt.Fprintln(out, "----------------------")
	settings.Engine.Backend = selectBackend(reader, out)

	fmt.Fprintln(out, "\nStep 3: Host Ports")
	fmt.Fprintln(out, "------------------")
	settings.Ports.Min, settings.Ports.Max = configurePortRange(reader, out)

	fmt.Fprintln(out, "\nStep 4: Container Preferences")
	fmt.Fprintln(out, "-----------------------------")
	settings.Container.MemoryLimit = configureMemory(reader, out)

	fmt.Fprintln(out, "\nStep 5: Creating Configuration")
	fmt.Fprintln(out, "------------------------------")
	configPath := getConfigPath()

	configExists := false
	if _, err := os.Stat(configPath); err == nil {
		configExists = true
		fmt.Fprintf(out, "Configuration file already exists at: %s\n", configPath)
		if !confirm(reader, out, "Do you want to overwrite it?") {
			fmt.Fprintln(out, "\nSetup cancelled. No changes were made.")
			return nil
		}
	}

	if err := settings.Validate(); err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := renderConfig(settings, "devdock setup")
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	if configExists {
		fmt.Fprintf(out, "\nConfiguration updated at: %s\n", configPath)
	} else {
		fmt.Fprintf(out, "\nConfiguration created at: %s\n", configPath)
	}

	fmt.Fprintln(out, "\nSetup complete! Run 'devdock run -f <file>' to start a container.")
	fmt.Fprintln(out, "   Use 'devdock config list' to view your configuration.")
	return nil
}

// detectDocker reports whether the docker CLI answers within a few seconds.
func detectDocker(ctx context.Context, out io.Writer, binary string) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	version, err := container.NewCLIEngine(binary).Version(ctx)
	if err != nil {
		fmt.Fprintf(out, "  Docker not available: %v\n", err)
		fmt.Fprintln(out, "  Install Docker and make sure the daemon is running before 'devdock run'.")
		return false
	}
	fmt.Fprintf(out, "  Docker server %s is available\n", version)
	return true
}

// selectBackend prompts for the engine backend
func selectBackend(reader *bufio.Reader, out io.Writer) string {
	fmt.Fprintln(out, "How should devdock list and remove containers?")
	fmt.Fprintln(out, "  1) cli - Run the docker CLI (recommended)")
	fmt.Fprintln(out, "  2) api - Talk to the Docker Engine API directly (uses DOCKER_HOST)")

	for {
		fmt.Fprintf(out, "\nChoice [1-2] (default: cli): ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if err != nil && input == "" {
			return config.BackendCLI
		}

		switch input {
		case "", "1", config.BackendCLI:
			return config.BackendCLI
		case "2", config.BackendAPI:
			return config.BackendAPI
		default:
			fmt.Fprintln(out, "Invalid choice. Please enter 1 or 2.")
		}
	}
}

// configurePortRange prompts for the host port range
func configurePortRange(reader *bufio.Reader, out io.Writer) (int, int) {
	def := config.DefaultConfig().Ports
	fmt.Fprintln(out, "EXPOSEd container ports are mapped to free host ports from this range.")

	for {
		fmt.Fprintf(out, "Port range (default: %d-%d): ", def.Min, def.Max)
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			return def.Min, def.Max
		}

		if low, high, ok := parsePortRange(input); ok {
			return low, high
		}
		if err != nil {
			return def.Min, def.Max
		}
		fmt.Fprintln(out, "Invalid range. Use format like '30000-60000'.")
	}
}

func parsePortRange(s string) (int, int, bool) {
	lo, hi, found := strings.Cut(s, "-")
	if !found {
		return 0, 0, false
	}
	low, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, false
	}
	high, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, false
	}
	if low < 1 || high > 65535 || low > high {
		return 0, 0, false
	}
	return low, high, true
}

// configureMemory prompts for memory limit
func configureMemory(reader *bufio.Reader, out io.Writer) string {
	fmt.Fprintln(out, "Container memory limit:")
	fmt.Fprintln(out, "  Maximum memory for each container (e.g., 512m, 2g). Leave empty for no limit.")

	for {
		fmt.Fprintf(out, "Memory limit (default: none): ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			return ""
		}

		if _, perr := units.RAMInBytes(input); perr == nil {
			return input
		}
		if err != nil {
			return ""
		}
		fmt.Fprintln(out, "Invalid format. Use format like '4g' or '512m'.")
	}
}

// confirm prompts for yes/no confirmation
func confirm(reader *bufio.Reader, out io.Writer, prompt string) bool {
	for {
		fmt.Fprintf(out, "%s [y/N]: ", prompt)
		input, err := reader.ReadString('\n')
		input = strings.ToLower(strings.TrimSpace(input))

		if input == "" || input == "n" || input == "no" {
			return false
		}
		if input == "y" || input == "yes" {
			return true
		}
		if err != nil {
			return false
		}

		fmt.Fprintln(out, "Please enter 'y' or 'n'.")
	}
}
