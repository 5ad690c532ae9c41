package steplog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdstail/cdstail/internal/api"
)

func testNodeRun() *api.NodeRun {
	job := func(id int64, name string, steps ...api.Action) api.NodeJobRun {
		return api.NodeJobRun{ID: id, Job: api.ExecutedJob{Job: api.Job{Action: api.Action{Name: name, Actions: steps}}}}
	}
	return &api.NodeRun{
		ID: 7,
		Stages: []api.Stage{
			{Name: "build", RunJobs: []api.NodeJobRun{
				job(10, "build-linux", api.Action{Name: "checkout"}, api.Action{Name: "make", Optional: true}, api.Action{Type: "Artifact Upload"}),
				job(11, "build-darwin", api.Action{Name: "checkout"}),
			}},
			{Name: "test", RunJobs: []api.NodeJobRun{
				job(20, "integration", api.Action{Name: "run tests"}),
			}},
		},
	}
}

func TestResolveJobRun(t *testing.T) {
	run := testNodeRun()

	t.Run("by id", func(t *testing.T) {
		jr, err := ResolveJobRun(run, 20, "")
		require.NoError(t, err)
		assert.Equal(t, "integration", jr.Job.Action.Name)
	})

	t.Run("by pattern first match", func(t *testing.T) {
		jr, err := ResolveJobRun(run, 0, "build-*")
		require.NoError(t, err)
		assert.Equal(t, int64(10), jr.ID)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := ResolveJobRun(run, 99, "")
		assert.Error(t, err)

		_, err = ResolveJobRun(run, 0, "")
		assert.Error(t, err)

		_, err = ResolveJobRun(run, 0, "deploy-*")
		assert.Error(t, err)

		_, err = ResolveJobRun(run, 0, "[")
		assert.Error(t, err)
	})
}

func TestResolveStep(t *testing.T) {
	jr, err := ResolveJobRun(testNodeRun(), 10, "")
	require.NoError(t, err)

	t.Run("by ordinal", func(t *testing.T) {
		step, err := ResolveStep(jr, "1")
		require.NoError(t, err)
		assert.Equal(t, Step{Name: "make", Optional: true, Order: 1, Count: 3}, step)
		assert.False(t, step.IsLast())
	})

	t.Run("by pattern on display name", func(t *testing.T) {
		step, err := ResolveStep(jr, "Artifact*")
		require.NoError(t, err)
		assert.Equal(t, 2, step.Order)
		assert.True(t, step.IsLast())
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := ResolveStep(jr, "3")
		assert.Error(t, err)

		_, err = ResolveStep(jr, "-1")
		assert.Error(t, err)
	})

	t.Run("no match", func(t *testing.T) {
		_, err := ResolveStep(jr, "deploy")
		assert.Error(t, err)
	})

	t.Run("job without steps", func(t *testing.T) {
		_, err := ResolveStep(&api.NodeJobRun{}, "0")
		assert.Error(t, err)
	})
}
