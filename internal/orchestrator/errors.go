package orchestrator

import (
	"errors"

	"github.com/jakenelson/devdock/internal/language"
	"github.com/jakenelson/devdock/internal/mounts"
	"github.com/jakenelson/devdock/internal/ports"
	"github.com/jakenelson/devdock/internal/workspace"
)

// Errors returned by the orchestrator. Match them with errors.Is.
var (
	ErrUnsupportedLanguage  = language.ErrUnsupportedLanguage
	ErrNoActiveFile         = workspace.ErrNoActiveFile
	ErrDockerUnavailable    = errors.New("docker is not installed or not available in PATH")
	ErrPortAllocationFailed = ports.ErrPortAllocationFailed
	ErrMountDenied          = mounts.ErrMountDenied
	ErrShellCommandFailure  = errors.New("shell command failed")
)
