package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/moby/term"

	"github.com/jakenelson/devdock/internal/logging"
)

const subsystem = "Shell"

// DefaultShell is used when Executor.Path is empty.
const DefaultShell = "/bin/bash"

// execCommandContext is a variable to allow swapping in tests
var execCommandContext = exec.CommandContext

// Executor runs each step through `<Path> -c <command>` in WorkDir, streaming
// output to Stdout and Stderr. Plans dispatched to the same session name are
// serialized; different sessions run independently.
type Executor struct {
	Path    string
	WorkDir string
	Stdout  io.Writer
	Stderr  io.Writer

	mu       sync.Mutex
	sessions map[string]*sync.Mutex
}

// NewExecutor returns an executor writing to the process stdout/stderr.
func NewExecutor(shellPath, workDir string) *Executor {
	return &Executor{
		Path:    shellPath,
		WorkDir: workDir,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

func (e *Executor) session(name string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sessions == nil {
		e.sessions = make(map[string]*sync.Mutex)
	}
	s, ok := e.sessions[name]
	if !ok {
		s = &sync.Mutex{}
		e.sessions[name] = s
	}
	return s
}

// Dispatch runs the plan step by step, stopping at the first failure.
func (e *Executor) Dispatch(ctx context.Context, session string, plan Plan) ([]Result, error) {
	lock := e.session(session)
	lock.Lock()
	defer lock.Unlock()

	shellPath := e.Path
	if shellPath == "" {
		shellPath = DefaultShell
	}
	stdout, stderr := e.Stdout, e.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	_, styled := term.GetFdInfo(stdout)

	results := make([]Result, 0, len(plan))
	for i, step := range plan {
		if err := ctx.Err(); err != nil {
			return results, &StepError{Index: i, Step: step, ExitCode: -1, Err: err}
		}

		writeHeader(stdout, session, step, styled)
		logging.Debug(subsystem, "[%s] running step %d: %s", session, i+1, step.Command)

		cmd := execCommandContext(ctx, shellPath, "-c", step.Command)
		cmd.Dir = e.WorkDir
		cmd.Stdout = stdout
		cmd.Stderr = stderr

		started := time.Now()
		err := cmd.Run()
		elapsed := time.Since(started)

		if err != nil {
			code := -1
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				code = exitErr.ExitCode()
			}
			logging.Warn(subsystem, "[%s] step %d (%s) failed after %s", session, i+1, step.Name, elapsed.Round(time.Millisecond))
			return results, &StepError{Index: i, Step: step, ExitCode: code, Err: err}
		}

		results = append(results, Result{Step: step, ExitCode: 0, Duration: elapsed})
	}
	return results, nil
}

func writeHeader(w io.Writer, session string, step Step, styled bool) {
	if styled {
		fmt.Fprintf(w, "\x1b[1m[%s] %s\x1b[0m\n$ %s\n", session, step.Name, step.Command)
		return
	}
	fmt.Fprintf(w, "[%s] %s\n$ %s\n", session, step.Name, step.Command)
}
