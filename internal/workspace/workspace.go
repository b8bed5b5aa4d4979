// Package workspace resolves everything devdock derives from the file the
// developer is working on: its directory, its language and the Dockerfile
// that lives next to it.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jakenelson/devdock/internal/language"
	"github.com/jakenelson/devdock/internal/logging"
)

const subsystem = "Workspace"

var (
	// ErrNoActiveFile is returned when no working file or directory is known.
	ErrNoActiveFile = errors.New("no active file")
	// ErrDockerfileExists is returned by MakeDockerfile when it would overwrite.
	ErrDockerfileExists = errors.New("dockerfile already exists")
)

// Workspace is rooted at the active file (or directory).
type Workspace struct {
	ActiveFile string
	// Language overrides detection from the file extension when set.
	Language string
}

// New returns a workspace for activeFile. languageOverride may be empty.
func New(activeFile, languageOverride string) *Workspace {
	return &Workspace{ActiveFile: activeFile, Language: languageOverride}
}

// ActiveDir is the directory containing the active file, or the active path
// itself when it is a directory.
func (w *Workspace) ActiveDir() (string, error) {
	if w.ActiveFile == "" {
		return "", fmt.Errorf("%w: unable to determine working directory", ErrNoActiveFile)
	}

	abs, err := filepath.Abs(w.ActiveFile)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoActiveFile, err)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return abs, nil
	}
	return filepath.Dir(abs), nil
}

// DetectLanguage returns the override if set, otherwise the language mapped
// to the active file's extension.
func (w *Workspace) DetectLanguage() (language.Language, error) {
	if w.Language != "" {
		return language.Parse(w.Language)
	}
	if w.ActiveFile == "" {
		return 0, fmt.Errorf("%w: no active file selected", ErrNoActiveFile)
	}
	if info, err := os.Stat(w.ActiveFile); err == nil && info.IsDir() {
		return 0, fmt.Errorf("%w: cannot detect language of directory %s, pass --language", language.ErrUnsupportedLanguage, w.ActiveFile)
	}
	return language.FromPath(w.ActiveFile)
}

// DockerfilePath is where the Dockerfile for lang lives.
func (w *Workspace) DockerfilePath(lang language.Language) (string, error) {
	dir, err := w.ActiveDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, lang.DockerfileName()), nil
}

// FileExists reports whether path exists.
func (w *Workspace) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// MakeDockerfile writes the template for lang next to the active file and
// returns its path. An existing file is only replaced when force is set.
func (w *Workspace) MakeDockerfile(lang language.Language, force bool) (string, error) {
	if !lang.Valid() {
		return "", fmt.Errorf("%w: %s", language.ErrUnsupportedLanguage, lang)
	}

	path, err := w.DockerfilePath(lang)
	if err != nil {
		return "", err
	}
	if w.FileExists(path) && !force {
		return path, fmt.Errorf("%w: %s", ErrDockerfileExists, path)
	}

	if err := os.WriteFile(path, []byte(lang.Template()), 0644); err != nil {
		return "", fmt.Errorf("failed to write Dockerfile: %w", err)
	}
	logging.Info(subsystem, "Created Dockerfile %s", path)
	return path, nil
}
