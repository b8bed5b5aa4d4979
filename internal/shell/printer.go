package shell

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Printer is a Sink that prints the plan instead of running it.
type Printer struct {
	Out io.Writer
}

func (p *Printer) Dispatch(ctx context.Context, session string, plan Plan) ([]Result, error) {
	t := table.NewWriter()
	t.SetOutputMirror(p.Out)
	t.SetTitle(fmt.Sprintf("Plan for %s", session))
	t.AppendHeader(table.Row{"#", "Step", "Command"})
	for i, step := range plan {
		t.AppendRow(table.Row{i + 1, step.Name, step.Command})
	}
	t.Render()

	results := make([]Result, 0, len(plan))
	for _, step := range plan {
		results = append(results, Result{Step: step})
	}
	return results, nil
}
