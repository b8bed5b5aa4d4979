package container

import (
	"fmt"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/docker/go-units"
)

// BuildOptions configures an image build.
type BuildOptions struct {
	Binary     string
	Dockerfile string
	Tag        string
	ContextDir string
	NoCache    bool
}

// RunOptions configures a detached container run. PortOptions and
// VolumeOptions are pre-rendered `-p` / `-v` flag strings.
type RunOptions struct {
	Binary        string
	Image         string
	Name          string
	PortOptions   string
	VolumeOptions string
	MemoryLimit   string
}

// BuildCommand renders `docker build [--no-cache] -f <dockerfile> -t <tag> <context>`.
func BuildCommand(opts BuildOptions) string {
	parts := []string{binary(opts.Binary), "build"}
	if opts.NoCache {
		parts = append(parts, "--no-cache")
	}
	contextDir := opts.ContextDir
	if contextDir == "" {
		contextDir = "."
	}
	parts = append(parts, "-f", shellescape.Quote(opts.Dockerfile), "-t", opts.Tag, shellescape.Quote(contextDir))
	return strings.Join(parts, " ")
}

// RunCommand renders `docker run <ports> <volumes> [--memory m] --name <name> -d <image>`.
func RunCommand(opts RunOptions) (string, error) {
	parts := []string{binary(opts.Binary), "run"}
	if opts.PortOptions != "" {
		parts = append(parts, opts.PortOptions)
	}
	if opts.VolumeOptions != "" {
		parts = append(parts, opts.VolumeOptions)
	}
	if opts.MemoryLimit != "" {
		limit, err := units.RAMInBytes(opts.MemoryLimit)
		if err != nil {
			return "", fmt.Errorf("invalid memory limit %q: %w", opts.MemoryLimit, err)
		}
		parts = append(parts, "--memory", fmt.Sprintf("%d", limit))
	}
	parts = append(parts, "--name", opts.Name, "-d", opts.Image)
	return strings.Join(parts, " "), nil
}

// LogsCommand renders `docker logs [-f] <name>`.
func LogsCommand(bin, name string, follow bool) string {
	if follow {
		return binary(bin) + " logs -f " + name
	}
	return binary(bin) + " logs " + name
}

func binary(b string) string {
	if b == "" {
		return DefaultBinary
	}
	return b
}
