package api

import "context"

type Client interface {
	GetNodeRun(ctx context.Context, projectKey, workflowName string, number, nodeRunID int64) (*NodeRun, error)
	GetStepLog(ctx context.Context, ref StepLogRef) ([]byte, error)
	GetMe(ctx context.Context) (*User, error)
}
