// Package mock provides a testify mock of api.Client in the shape mockery
// generates.
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cdstail/cdstail/internal/api"
)

// MockClient is a mock implementation of api.Client
type MockClient struct {
	mock.Mock
}

var _ api.Client = (*MockClient)(nil)

// NewMockClient creates a MockClient whose expectations are asserted when the test ends
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// GetNodeRun provides a mock function
func (m *MockClient) GetNodeRun(ctx context.Context, projectKey, workflowName string, number, nodeRunID int64) (*api.NodeRun, error) {
	ret := m.Called(ctx, projectKey, workflowName, number, nodeRunID)

	if fn, ok := ret.Get(0).(func(context.Context, string, string, int64, int64) (*api.NodeRun, error)); ok {
		return fn(ctx, projectKey, workflowName, number, nodeRunID)
	}

	var r0 *api.NodeRun
	if v := ret.Get(0); v != nil {
		r0 = v.(*api.NodeRun)
	}
	return r0, ret.Error(1)
}

// GetStepLog provides a mock function
func (m *MockClient) GetStepLog(ctx context.Context, ref api.StepLogRef) ([]byte, error) {
	ret := m.Called(ctx, ref)

	if fn, ok := ret.Get(0).(func(context.Context, api.StepLogRef) ([]byte, error)); ok {
		return fn(ctx, ref)
	}

	var r0 []byte
	if v := ret.Get(0); v != nil {
		r0 = v.([]byte)
	}
	return r0, ret.Error(1)
}

// GetMe provides a mock function
func (m *MockClient) GetMe(ctx context.Context) (*api.User, error) {
	ret := m.Called(ctx)

	var r0 *api.User
	if v := ret.Get(0); v != nil {
		r0 = v.(*api.User)
	}
	return r0, ret.Error(1)
}
