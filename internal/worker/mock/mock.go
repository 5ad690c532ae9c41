// Package mock provides a testify mock of worker.Worker. Payloads are pushed
// by the test with Send and the stream is ended with Finish.
package mock

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/cdstail/cdstail/internal/worker"
)

// MockWorker is a mock implementation of worker.Worker
type MockWorker struct {
	mock.Mock

	once sync.Once
	out  chan string
	err  error
}

var _ worker.Worker = (*MockWorker)(nil)

// NewMockWorker creates a MockWorker whose expectations are asserted when the test ends
func NewMockWorker(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWorker {
	m := &MockWorker{out: make(chan string, 64)}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// Start provides a mock function
func (m *MockWorker) Start(ctx context.Context, cfg worker.Config) error {
	ret := m.Called(ctx, cfg)
	return ret.Error(0)
}

// Stop provides a mock function
func (m *MockWorker) Stop() {
	m.Called()
}

// Resume provides a mock function
func (m *MockWorker) Resume() {
	m.Called()
}

// Response returns the channel fed by Send
func (m *MockWorker) Response() <-chan string {
	return m.out
}

// Err returns the error passed to Finish
func (m *MockWorker) Err() error {
	return m.err
}

// Send queues a payload
func (m *MockWorker) Send(msg string) {
	m.out <- msg
}

// Finish closes the response channel with err as the final error
func (m *MockWorker) Finish(err error) {
	m.once.Do(func() {
		m.err = err
		close(m.out)
	})
}
