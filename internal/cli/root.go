package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jakenelson/devdock/internal/alert"
	"github.com/jakenelson/devdock/internal/config"
	"github.com/jakenelson/devdock/internal/container"
	"github.com/jakenelson/devdock/internal/language"
	"github.com/jakenelson/devdock/internal/logging"
	"github.com/jakenelson/devdock/internal/orchestrator"
	"github.com/jakenelson/devdock/internal/ports"
	"github.com/jakenelson/devdock/internal/shell"
	"github.com/jakenelson/devdock/internal/workspace"
)

var (
	cfgFile string
	cfg     *config.Config

	activeFile   string
	languageFlag string
	dryRun       bool
	debug        bool
)

var rootCmd = &cobra.Command{
	Use:   "devdock",
	Short: "Build and run per-language development containers",
	Long: `Devdock builds and runs a Docker development container for the file you
are working on. The language is detected from the file extension, a
Dockerfile is generated next to the file when missing, EXPOSEd ports are
mapped to free host ports and VOLUMEs are mounted from a sidecar file.

Examples:
  devdock run -f main.py          # Build, run and tail the python container
  devdock run -l go               # Use the current directory as a Go project
  devdock run --dry-run -f app.ts # Show the commands without running them
  devdock logs -f main.py         # Tail the container logs
  devdock clean -f main.py        # Remove containers and images`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := cfg.Log.Level
		if debug {
			level = config.LogDebug
		}
		logging.Init(logging.ParseLevel(level), os.Stderr)
		return cfg.Validate()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/devdock/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&activeFile, "file", "f", "", "active file or directory (default: current directory)")
	rootCmd.PersistentFlags().StringVarP(&languageFlag, "language", "l", "", "language override: "+strings.Join(languageNames(), ", "))
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "print the command plan instead of running it")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.RegisterFlagCompletionFunc("language", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return languageNames(), cobra.ShellCompDirectiveNoFileComp
	})
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Warning: could not find home directory:", err)
		} else {
			viper.AddConfigPath(filepath.Join(home, ".config", "devdock"))
		}

		// Search for config in standard locations
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Environment variables, e.g. DEVDOCK_ENGINE_BACKEND
	viper.SetEnvPrefix("DEVDOCK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintln(os.Stderr, "Warning: error reading config file:", err)
		}
	}

	// Load into config struct
	cfg = config.LoadConfig()
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// newWorkspace roots the workspace at --file, or the current directory.
func newWorkspace() (*workspace.Workspace, error) {
	file := activeFile
	if file == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		file = wd
	}
	return workspace.New(file, languageFlag), nil
}

// newEngine connects to Docker through the configured backend.
func newEngine(ctx context.Context) (container.Engine, error) {
	switch cfg.Engine.Backend {
	case config.BackendAPI:
		engine, err := container.NewAPIEngine(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", orchestrator.ErrDockerUnavailable, err)
		}
		return engine, nil
	default:
		return container.NewCLIEngine(cfg.Docker.Binary), nil
	}
}

// newOrchestrator wires the orchestrator for the current flags and config.
// The returned closer releases the engine.
func newOrchestrator(ctx context.Context, cmd *cobra.Command) (*orchestrator.Orchestrator, func(), error) {
	ws, err := newWorkspace()
	if err != nil {
		return nil, nil, err
	}
	dir, err := ws.ActiveDir()
	if err != nil {
		return nil, nil, err
	}

	engine, err := newEngine(ctx)
	if err != nil {
		return nil, nil, err
	}

	var sink shell.Sink
	if dryRun {
		sink = &shell.Printer{Out: cmd.OutOrStdout()}
		engine = dryRunEngine{Engine: engine, out: cmd.OutOrStdout()}
	} else {
		sink = shell.NewExecutor(cfg.Shell.Path, dir)
	}

	orch := orchestrator.New(orchestrator.Config{
		Workspace:   ws,
		Engine:      engine,
		Sink:        sink,
		Ports:       ports.NewAllocator(cfg.Ports.Min, cfg.Ports.Max, cfg.Ports.MaxAttempts),
		Alerts:      &alert.Console{Out: cmd.ErrOrStderr()},
		Binary:      cfg.Docker.Binary,
		MemoryLimit: cfg.Container.MemoryLimit,
	})

	closer := func() {
		if err := engine.Close(); err != nil {
			logging.Debug("CLI", "failed to close engine: %v", err)
		}
	}
	return orch, closer, nil
}

// dryRunEngine lists like the wrapped engine but only reports removals.
type dryRunEngine struct {
	container.Engine
	out io.Writer
}

func (d dryRunEngine) RemoveContainer(ctx context.Context, id string) error {
	fmt.Fprintf(d.out, "would remove container %s\n", id)
	return nil
}

func (d dryRunEngine) RemoveImage(ctx context.Context, id string) error {
	fmt.Fprintf(d.out, "would remove image %s\n", id)
	return nil
}

func languageNames() []string {
	all := language.All()
	names := make([]string, 0, len(all))
	for _, l := range all {
		names = append(names, l.String())
	}
	return names
}
