package shell

import (
	"context"
	"errors"
	"sync"
)

// Dispatch is one plan received by a Recorder.
type Dispatch struct {
	Session string
	Plan    Plan
}

// Recorder is a Sink that records plans without running them. When FailAt is
// >= 0 the step with that index fails with exit code 1.
type Recorder struct {
	FailAt int

	mu         sync.Mutex
	dispatches []Dispatch
}

// NewRecorder returns a recorder whose steps always succeed.
func NewRecorder() *Recorder {
	return &Recorder{FailAt: -1}
}

func (r *Recorder) Dispatch(ctx context.Context, session string, plan Plan) ([]Result, error) {
	r.mu.Lock()
	r.dispatches = append(r.dispatches, Dispatch{Session: session, Plan: append(Plan(nil), plan...)})
	r.mu.Unlock()

	results := make([]Result, 0, len(plan))
	for i, step := range plan {
		if i == r.FailAt {
			return results, &StepError{Index: i, Step: step, ExitCode: 1, Err: errors.New("exit status 1")}
		}
		results = append(results, Result{Step: step})
	}
	return results, nil
}

// Dispatches returns a copy of everything recorded so far.
func (r *Recorder) Dispatches() []Dispatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Dispatch(nil), r.dispatches...)
}
