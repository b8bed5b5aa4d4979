// Package shell executes command plans in named shell sessions.
package shell

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Step is one shell command in a plan.
type Step struct {
	Name    string
	Command string
}

// Plan is an ordered list of steps. Order is significant: a step only runs
// when every step before it succeeded.
type Plan []Step

// Commands returns the command strings in order.
func (p Plan) Commands() []string {
	cmds := make([]string, 0, len(p))
	for _, s := range p {
		cmds = append(cmds, s.Command)
	}
	return cmds
}

// String renders the plan as a single shell line.
func (p Plan) String() string {
	return strings.Join(p.Commands(), "; ")
}

// Result describes a step that ran to completion.
type Result struct {
	Step     Step
	ExitCode int
	Duration time.Duration
}

// StepError reports the first step of a plan that failed. Later steps were
// not run.
type StepError struct {
	Index    int
	Step     Step
	ExitCode int
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s) failed with exit code %d: %v", e.Index+1, e.Step.Name, e.ExitCode, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Sink runs plans. Dispatch returns the results of the steps that succeeded
// and a *StepError for the first one that did not.
type Sink interface {
	Dispatch(ctx context.Context, session string, plan Plan) ([]Result, error)
}
