package container

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/jakenelson/devdock/internal/logging"
)

const cliSubsystem = "DockerCLI"

// executor abstracts command execution for testing.
type executor interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}

// CLIEngine drives the docker command line.
type CLIEngine struct {
	binary string
	exec   executor
}

// NewCLIEngine returns an engine invoking binary (usually "docker").
func NewCLIEngine(binary string) *CLIEngine {
	if binary == "" {
		binary = DefaultBinary
	}
	return &CLIEngine{binary: binary, exec: osExecutor{}}
}

func (c *CLIEngine) run(ctx context.Context, args ...string) ([]byte, error) {
	logging.Debug(cliSubsystem, "%s %s", c.binary, strings.Join(args, " "))
	return c.exec.Output(ctx, c.binary, args...)
}

func (c *CLIEngine) Version(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "--version")
	if err != nil {
		return "", fmt.Errorf("failed to run %s --version: %w", c.binary, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *CLIEngine) ListContainers(ctx context.Context, name string) ([]string, error) {
	out, err := c.run(ctx, "ps", "-a", "--filter", "name="+name, "--format", "{{.ID}}")
	if err != nil {
		return nil, fmt.Errorf("failed to list containers named %s: %w", name, err)
	}
	return splitIDs(out), nil
}

func (c *CLIEngine) RemoveContainer(ctx context.Context, id string) error {
	if _, err := c.run(ctx, "rm", "-f", id); err != nil {
		return fmt.Errorf("failed to remove container %s: %w", id, err)
	}
	return nil
}

func (c *CLIEngine) ListImages(ctx context.Context, reference string) ([]string, error) {
	out, err := c.run(ctx, "images", "--filter", "reference="+reference, "--format", "{{.ID}}")
	if err != nil {
		return nil, fmt.Errorf("failed to list images for %s: %w", reference, err)
	}
	return splitIDs(out), nil
}

func (c *CLIEngine) ListDanglingImages(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "images", "-q", "--filter", "dangling=true")
	if err != nil {
		return nil, fmt.Errorf("failed to list dangling images: %w", err)
	}
	return splitIDs(out), nil
}

func (c *CLIEngine) RemoveImage(ctx context.Context, id string) error {
	if _, err := c.run(ctx, "rmi", "-f", id); err != nil {
		return fmt.Errorf("failed to remove image %s: %w", id, err)
	}
	return nil
}

func (c *CLIEngine) Close() error { return nil }

// splitIDs turns one-ID-per-line output into a slice, dropping blanks.
func splitIDs(out []byte) []string {
	var ids []string
	for _, line := range strings.Split(string(out), "\n") {
		if id := strings.TrimSpace(line); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
