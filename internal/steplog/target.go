package steplog

import (
	"fmt"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/cdstail/cdstail/internal/api"
)

// ResolveJobRun finds a job run by id or, when id is zero, by matching its job
// name against a glob pattern. The first match in build order wins.
func ResolveJobRun(run *api.NodeRun, id int64, pattern string) (*api.NodeJobRun, error) {
	if id != 0 {
		jr, ok := run.FindJobRun(id)
		if !ok {
			return nil, fmt.Errorf("job run %d not found in node run %d", id, run.ID)
		}
		return jr, nil
	}

	if pattern == "" {
		return nil, fmt.Errorf("a job run id or a job name pattern is required")
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid job pattern %q", pattern)
	}

	for _, jr := range run.JobRuns() {
		ok, err := doublestar.Match(pattern, jr.Job.Action.Name)
		if err != nil {
			return nil, fmt.Errorf("invalid job pattern %q: %w", pattern, err)
		}
		if ok {
			return &jr, nil
		}
	}
	return nil, fmt.Errorf("no job matching %q in node run %d", pattern, run.ID)
}

// ResolveStep turns a step selector, a 0-based ordinal or a glob on the step
// name, into the Step of the job run
func ResolveStep(jobRun *api.NodeJobRun, selector string) (Step, error) {
	actions := jobRun.Job.Action.Actions
	if len(actions) == 0 {
		return Step{}, fmt.Errorf("job %q has no steps", jobRun.Job.Action.Name)
	}

	stepAt := func(i int) Step {
		return Step{
			Name:     actions[i].DisplayName(),
			Optional: actions[i].Optional,
			Order:    i,
			Count:    len(actions),
		}
	}

	if order, err := strconv.Atoi(selector); err == nil {
		if order < 0 || order >= len(actions) {
			return Step{}, fmt.Errorf("step %d out of range: job %q has %d steps", order, jobRun.Job.Action.Name, len(actions))
		}
		return stepAt(order), nil
	}

	if !doublestar.ValidatePattern(selector) {
		return Step{}, fmt.Errorf("invalid step pattern %q", selector)
	}
	for i := range actions {
		if ok, _ := doublestar.Match(selector, actions[i].DisplayName()); ok {
			return stepAt(i), nil
		}
	}
	return Step{}, fmt.Errorf("no step matching %q in job %q", selector, jobRun.Job.Action.Name)
}
