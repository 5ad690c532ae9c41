package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cdstail/cdstail/internal/api"
	apimock "github.com/cdstail/cdstail/internal/api/mock"
)

func testConfig() Config {
	return Config{
		User:         "alice",
		Session:      "tok",
		APIURL:       "https://cds.example.com",
		Key:          "PRJ",
		WorkflowName: "wf",
		Number:       3,
		NodeRunID:    4,
		RunJobID:     5,
		StepOrder:    1,
		PollInterval: 5 * time.Millisecond,
	}
}

// collect drains the response channel until it is closed
func collect(t *testing.T, w Worker) []string {
	t.Helper()

	var msgs []string
	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg, ok := <-w.Response():
			if !ok {
				return msgs
			}
			msgs = append(msgs, msg)
		case <-timeout:
			t.Fatal("worker did not finish")
			return msgs
		}
	}
}

func withClient(c api.Client) PollingOptions {
	return PollingOptions{NewClient: func(Config) (api.Client, error) { return c, nil }}
}

// countingClient answers every poll with the same payload
type countingClient struct {
	api.Client
	calls   atomic.Int32
	payload string
}

func (c *countingClient) GetStepLog(ctx context.Context, ref api.StepLogRef) ([]byte, error) {
	c.calls.Add(1)
	return []byte(c.payload), nil
}

func TestPolling_EmitsDistinctPayloadsUntilTerminal(t *testing.T) {
	client := apimock.NewMockClient(t)
	ref := testConfig().Ref()

	building1 := `{"status":"Building","step_logs":{"val":"a"}}`
	building2 := `{"status":"Building","step_logs":{"val":"ab"}}`
	success := `{"status":"Success","step_logs":{"val":"abc"}}`

	client.On("GetStepLog", mock.Anything, ref).Return([]byte(building1), nil).Once()
	client.On("GetStepLog", mock.Anything, ref).Return([]byte(building1), nil).Once()
	client.On("GetStepLog", mock.Anything, ref).Return([]byte(building2), nil).Once()
	client.On("GetStepLog", mock.Anything, ref).Return([]byte(success), nil).Once()

	w := NewPolling(withClient(client))
	require.NoError(t, w.Start(context.Background(), testConfig()))

	msgs := collect(t, w)

	assert.Equal(t, []string{building1, building2, success}, msgs)
	assert.NoError(t, w.Err())
}

func TestPolling_WaitingStatusKeepsPolling(t *testing.T) {
	client := apimock.NewMockClient(t)

	client.On("GetStepLog", mock.Anything, mock.Anything).Return([]byte(`{"status":"Waiting"}`), nil).Once()
	client.On("GetStepLog", mock.Anything, mock.Anything).Return([]byte(`{"status":""}`), nil).Once()
	client.On("GetStepLog", mock.Anything, mock.Anything).Return([]byte(`{"status":"Fail","step_logs":{"val":"boom"}}`), nil).Once()

	w := NewPolling(withClient(client))
	require.NoError(t, w.Start(context.Background(), testConfig()))

	assert.Len(t, collect(t, w), 3)
}

func TestPolling_Once(t *testing.T) {
	t.Run("stops after a log", func(t *testing.T) {
		client := apimock.NewMockClient(t)
		client.On("GetStepLog", mock.Anything, mock.Anything).Return([]byte(`{"status":"Building","step_logs":{"val":"x"}}`), nil).Once()

		cfg := testConfig()
		cfg.Once = true
		w := NewPolling(withClient(client))
		require.NoError(t, w.Start(context.Background(), cfg))

		assert.Len(t, collect(t, w), 1)
		assert.NoError(t, w.Err())
	})

	t.Run("stops when the step has no log yet", func(t *testing.T) {
		client := apimock.NewMockClient(t)
		client.On("GetStepLog", mock.Anything, mock.Anything).Return([]byte(`{"status":"Waiting"}`), nil).Once()

		cfg := testConfig()
		cfg.Once = true
		w := NewPolling(withClient(client))
		require.NoError(t, w.Start(context.Background(), cfg))

		assert.Equal(t, []string{`{"status":"Waiting"}`}, collect(t, w))
		assert.NoError(t, w.Err())
	})
}

func TestPolling_StopPausesAndResumeContinues(t *testing.T) {
	client := &countingClient{payload: `{"status":"Building","step_logs":{"val":"x"}}`}

	w := NewPolling(withClient(client))
	w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx, testConfig()))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), client.calls.Load())

	w.Resume()

	select {
	case msg := <-w.Response():
		assert.Equal(t, client.payload, msg)
	case <-time.After(5 * time.Second):
		t.Fatal("no payload after resume")
	}

	cancel()
	collect(t, w)
	assert.NoError(t, w.Err())
}

func TestPolling_GivesUpAfterConsecutiveFailures(t *testing.T) {
	client := apimock.NewMockClient(t)
	client.On("GetStepLog", mock.Anything, mock.Anything).Return(nil, assert.AnError).Times(maxConsecutiveFailures)

	w := NewPolling(withClient(client))
	require.NoError(t, w.Start(context.Background(), testConfig()))

	assert.Empty(t, collect(t, w))
	require.Error(t, w.Err())
	assert.ErrorIs(t, w.Err(), assert.AnError)
}

func TestPolling_StartTwice(t *testing.T) {
	client := &countingClient{payload: `{"status":"Success"}`}
	w := NewPolling(withClient(client))

	require.NoError(t, w.Start(context.Background(), testConfig()))
	assert.ErrorIs(t, w.Start(context.Background(), testConfig()), ErrAlreadyStarted)

	collect(t, w)
}

func TestPolling_ClientError(t *testing.T) {
	w := NewPolling(PollingOptions{NewClient: func(Config) (api.Client, error) { return nil, assert.AnError }})

	err := w.Start(context.Background(), testConfig())

	require.Error(t, err)
	_, open := <-w.Response()
	assert.False(t, open)
}

func TestPayloadDone(t *testing.T) {
	tcs := []struct {
		payload  string
		once     bool
		expected bool
	}{
		{`{"status":"Building"}`, false, false},
		{`{"status":"Waiting"}`, false, false},
		{`{"status":""}`, false, false},
		{`{}`, false, false},
		{`{"status":"Success"}`, false, true},
		{`{"status":"Stopped"}`, false, true},
		{`{"status":"Building","step_logs":{"val":""}}`, true, true},
		{`{"status":"Building"}`, true, true},
		{`{"status":"Waiting"}`, true, true},
		{`not json`, true, false},
		{`not json`, false, false},
	}

	for _, tc := range tcs {
		t.Run(tc.payload, func(t *testing.T) {
			assert.Equal(t, tc.expected, payloadDone([]byte(tc.payload), tc.once))
		})
	}
}

func TestNewFactory(t *testing.T) {
	assert.IsType(t, &polling{}, NewFactory(TransportPoll)())
	assert.IsType(t, &polling{}, NewFactory("")())
	assert.IsType(t, &streaming{}, NewFactory(TransportWebsocket)())
}

func TestConfigCredentials(t *testing.T) {
	_, err := configCredentials{user: "alice"}.SessionToken()
	assert.Error(t, err)

	token, err := configCredentials{user: "alice", session: "tok"}.SessionToken()
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
}
