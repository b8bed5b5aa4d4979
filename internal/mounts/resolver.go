// Package mounts resolves the host side of the volumes a Dockerfile declares.
//
// Host paths live in a sidecar file next to the Dockerfile
// (<dockerfile>.mount.json). The file is generated once with defaults and is
// never rewritten afterwards, so users can edit it freely.
package mounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/moby/sys/atomicwriter"

	"github.com/jakenelson/devdock/internal/logging"
	"github.com/jakenelson/devdock/internal/security"
)

const subsystem = "Mounts"

// SidecarSuffix is appended to the Dockerfile path to locate the mount config.
const SidecarSuffix = ".mount.json"

var (
	// ErrCorruptConfig marks a sidecar file that is not valid JSON.
	ErrCorruptConfig = errors.New("corrupt mount config")
	// ErrMountDenied marks a host path that may not be mounted.
	ErrMountDenied = errors.New("mount denied")
)

// Config is the on-disk sidecar schema, keyed by container path.
type Config struct {
	Volumes map[string]string `json:"volumes"`
}

// Mount is one resolved host/container volume pair.
type Mount struct {
	Host      string
	Container string
}

// String renders the mount as a `docker run -v` argument.
func (m Mount) String() string {
	return m.Host + ":" + m.Container
}

// SidecarPath returns the mount config location for a Dockerfile.
func SidecarPath(dockerfilePath string) string {
	return dockerfilePath + SidecarSuffix
}

// DefaultHostPath is the host path written into a freshly generated sidecar:
// the container path made relative to the Dockerfile directory.
// "/data" becomes "./data".
func DefaultHostPath(containerPath string) string {
	return "./" + strings.TrimLeft(containerPath, "/")
}

// FallbackHostPath is used when an existing sidecar has no entry for a
// declared volume. "/data" becomes "/app/data".
func FallbackHostPath(containerPath string) string {
	return path.Join("/app", containerPath)
}

// Defaults builds the initial sidecar for the given volumes.
func Defaults(volumes []string) *Config {
	cfg := &Config{Volumes: make(map[string]string, len(volumes))}
	for _, v := range volumes {
		cfg.Volumes[v] = DefaultHostPath(v)
	}
	return cfg
}

// Load reads a sidecar file. A missing file returns an error matching
// os.ErrNotExist; invalid JSON returns one matching ErrCorruptConfig.
func Load(sidecarPath string) (*Config, error) {
	data, err := os.ReadFile(sidecarPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrCorruptConfig, sidecarPath, err)
	}
	return cfg, nil
}

// Save writes the sidecar atomically with 2-space indentation.
func Save(sidecarPath string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode mount config: %w", err)
	}
	if err := atomicwriter.WriteFile(sidecarPath, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write mount config: %w", err)
	}
	return nil
}

// Resolve returns the host/container pairs for volumes declared by the
// Dockerfile at dockerfilePath, in the order given. No sidecar is touched
// when volumes is empty.
func Resolve(dockerfilePath string, volumes []string) ([]Mount, error) {
	if len(volumes) == 0 {
		return nil, nil
	}

	cfg, err := loadOrCreate(SidecarPath(dockerfilePath), volumes)
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(dockerfilePath)
	mounts := make([]Mount, 0, len(volumes))
	for _, containerPath := range volumes {
		host := cfg.Volumes[containerPath]
		if host == "" {
			host = FallbackHostPath(containerPath)
			logging.Debug(subsystem, "No host path configured for %s, using %s", containerPath, host)
		}

		expanded, err := security.ExpandPath(host, baseDir)
		if err != nil {
			return nil, fmt.Errorf("invalid host path %q for %s: %w", host, containerPath, err)
		}
		if err := security.ValidateHostPath(expanded); err != nil {
			return nil, fmt.Errorf("%w: %s -> %s: %v", ErrMountDenied, host, containerPath, err)
		}

		// The shell never sees an unquoted ~, so hand docker the home path.
		if host == "~" || strings.HasPrefix(host, "~/") {
			host = expanded
		}
		mounts = append(mounts, Mount{Host: host, Container: containerPath})
	}
	return mounts, nil
}

// Options resolves volumes and renders them as `-v host:container` flags,
// space separated. It returns "" when no volumes are declared.
func Options(dockerfilePath string, volumes []string) (string, error) {
	mounts, err := Resolve(dockerfilePath, volumes)
	if err != nil {
		return "", err
	}
	return FormatOptions(mounts), nil
}

// FormatOptions renders mounts as `docker run` volume flags.
func FormatOptions(mounts []Mount) string {
	opts := make([]string, 0, len(mounts))
	for _, m := range mounts {
		opts = append(opts, "-v "+shellescape.Quote(m.String()))
	}
	return strings.Join(opts, " ")
}

func loadOrCreate(sidecarPath string, volumes []string) (*Config, error) {
	cfg, err := Load(sidecarPath)
	switch {
	case err == nil:
		return cfg, nil
	case errors.Is(err, os.ErrNotExist):
		cfg = Defaults(volumes)
		if err := Save(sidecarPath, cfg); err != nil {
			return nil, err
		}
		logging.Info(subsystem, "Generated default mount config at %s. Please edit it.", sidecarPath)
		return cfg, nil
	case errors.Is(err, ErrCorruptConfig):
		backup := sidecarPath + ".corrupt"
		logging.Warn(subsystem, "Mount config %s is not valid JSON, moving it to %s and regenerating defaults", sidecarPath, backup)
		if err := os.Rename(sidecarPath, backup); err != nil {
			return nil, fmt.Errorf("failed to move corrupt mount config aside: %w", err)
		}
		cfg = Defaults(volumes)
		if err := Save(sidecarPath, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	default:
		return nil, fmt.Errorf("failed to read mount config: %w", err)
	}
}
