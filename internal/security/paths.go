package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DeniedHostPaths may never be bind mounted into a development container,
// whatever the sidecar mount config says.
var DeniedHostPaths = []string{
	"~/.ssh",
	"~/.gnupg",
	"~/.netrc",
	"~/.docker/config.json",
	"~/.kube/config",
	"~/.aws/credentials",
	"/var/run/docker.sock",
}

// ExpandPath expands a leading ~ and resolves relative paths against base.
// Symlinks are followed when the path exists.
func ExpandPath(path, base string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = expandTilde(path, home)
	}

	if !filepath.IsAbs(path) {
		if base == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf("failed to get current directory: %w", err)
			}
			base = cwd
		}
		path = filepath.Join(base, path)
	}
	path = filepath.Clean(path)

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			return path, nil
		}
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	return resolved, nil
}

// ValidateHostPath rejects absolute host paths that fall inside a denied
// location.
func ValidateHostPath(path string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	for _, denied := range DeniedHostPaths {
		if pathMatches(path, expandTilde(denied, home)) {
			return fmt.Errorf("path is in denied list: %s", denied)
		}
	}
	return nil
}

// pathMatches checks if path is equal to or a child of target.
func pathMatches(path, target string) bool {
	if path == target {
		return true
	}
	rel, err := filepath.Rel(target, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func expandTilde(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		return home
	}
	return path
}
