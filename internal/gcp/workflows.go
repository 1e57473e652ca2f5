package gcp

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
)

// Workflows starts executions of one workflow.
type Workflows struct {
	client *executions.Client
	parent string
}

// NewWorkflows creates the Workflows Executions client for
// projects/<project>/locations/<location>/workflows/<id>.
func NewWorkflows(ctx context.Context, project, location, id string) (*Workflows, error) {
	client, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}
	return &Workflows{
		client: client,
		parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", project, location, id),
	}, nil
}

// Trigger starts an execution with payload as its JSON argument and returns
// the execution name.
func (w *Workflows) Trigger(ctx context.Context, payload any) (string, error) {
	arg, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: w.parent,
		Execution: &executionspb.Execution{
			Argument: string(arg),
		},
	}
	exec, err := w.client.CreateExecution(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return exec.GetName(), nil
}
