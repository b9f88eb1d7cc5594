// Package client is a thin wrapper over go.temporal.io/sdk/client exposing
// the handful of operations the CLI and any external caller need against a
// running library or disc coordinator: starting a run, polling its
// progress, reading its staging tree, and sending it the three signals the
// workflows understand.
package client

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"

	"github.com/Reclyptor/SERAEX/internal/seraex"
	"github.com/Reclyptor/SERAEX/internal/workflow"
)

// Client wraps a Temporal client.Client scoped to one task queue.
type Client struct {
	Temporal  client.Client
	TaskQueue string
}

// New dials the Temporal frontend at hostPort/namespace.
func New(hostPort, namespace, taskQueue string) (*Client, error) {
	c, err := client.Dial(client.Options{HostPort: hostPort, Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("dial temporal: %w", err)
	}
	return &Client{Temporal: c, TaskQueue: taskQueue}, nil
}

// Close releases the underlying Temporal connection.
func (c *Client) Close() {
	c.Temporal.Close()
}

// StartLibraryOrganize starts a new LibraryWorkflow run, returning its
// workflow ID (== in.RunID) for subsequent query/signal calls.
func (c *Client) StartLibraryOrganize(ctx context.Context, in workflow.LibraryWorkflowInput) (string, error) {
	run, err := c.Temporal.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        in.RunID,
		TaskQueue: c.TaskQueue,
	}, workflow.LibraryWorkflow, in)
	if err != nil {
		return "", fmt.Errorf("start library workflow: %w", err)
	}
	return run.GetID(), nil
}

// GetLibraryProgress queries a running library coordinator's getProgress
// handler.
func (c *Client) GetLibraryProgress(ctx context.Context, workflowID string) (seraex.LibraryProgress, error) {
	var out seraex.LibraryProgress
	val, err := c.Temporal.QueryWorkflow(ctx, workflowID, "", workflow.QueryLibraryProgress)
	if err != nil {
		return out, fmt.Errorf("query library progress: %w", err)
	}
	if err := val.Get(&out); err != nil {
		return out, fmt.Errorf("decode library progress: %w", err)
	}
	return out, nil
}

// GetDiscProgress queries a disc coordinator child workflow's getProgress
// handler. workflowID must be the disc child's own ID (library workflow ID
// plus "-disc-<folder>"), not the parent library run's ID.
func (c *Client) GetDiscProgress(ctx context.Context, workflowID string) (seraex.DiscProgress, error) {
	var out seraex.DiscProgress
	val, err := c.Temporal.QueryWorkflow(ctx, workflowID, "", workflow.QueryDiscProgress)
	if err != nil {
		return out, fmt.Errorf("query disc progress: %w", err)
	}
	if err := val.Get(&out); err != nil {
		return out, fmt.Errorf("decode disc progress: %w", err)
	}
	return out, nil
}

// GetStagingTree queries a library coordinator's getStagingTree handler.
func (c *Client) GetStagingTree(ctx context.Context, workflowID string) ([]seraex.TreeNode, error) {
	var out []seraex.TreeNode
	val, err := c.Temporal.QueryWorkflow(ctx, workflowID, "", workflow.QueryStagingTree)
	if err != nil {
		return nil, fmt.Errorf("query staging tree: %w", err)
	}
	if err := val.Get(&out); err != nil {
		return nil, fmt.Errorf("decode staging tree: %w", err)
	}
	return out, nil
}

// SendFinalizeSignal approves or rejects a library run's staged layout.
func (c *Client) SendFinalizeSignal(ctx context.Context, workflowID string, approved bool) error {
	err := c.Temporal.SignalWorkflow(ctx, workflowID, "", workflow.SignalFinalize, seraex.FinalizeDecision{Approved: approved})
	if err != nil {
		return fmt.Errorf("send finalize signal: %w", err)
	}
	return nil
}

// SendReviewDecision resolves one low-confidence match surfaced by a disc
// coordinator's awaiting_review state.
func (c *Client) SendReviewDecision(ctx context.Context, discWorkflowID string, decision seraex.ReviewDecision) error {
	err := c.Temporal.SignalWorkflow(ctx, discWorkflowID, "", workflow.SignalReviewDecision, decision)
	if err != nil {
		return fmt.Errorf("send review decision: %w", err)
	}
	return nil
}

// SendDetectionConfirmation resolves a medium/low confidence cluster split
// surfaced by a disc coordinator's awaiting_detection_review state.
func (c *Client) SendDetectionConfirmation(ctx context.Context, discWorkflowID string, confirmation seraex.DetectionConfirmation) error {
	err := c.Temporal.SignalWorkflow(ctx, discWorkflowID, "", workflow.SignalDetectionConfirmation, confirmation)
	if err != nil {
		return fmt.Errorf("send detection confirmation: %w", err)
	}
	return nil
}
