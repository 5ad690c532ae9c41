package api

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Pipeline statuses reported by the CDS API
const (
	StatusBuilding   = "Building"
	StatusWaiting    = "Waiting"
	StatusFail       = "Fail"
	StatusSuccess    = "Success"
	StatusStopped    = "Stopped"
	StatusSkipped    = "Skipped"
	StatusDisabled   = "Disabled"
	StatusNeverBuilt = "Never Built"
)

// IsRunningStatus reports whether a status still produces output
func IsRunningStatus(status string) bool {
	return status == StatusBuilding || status == StatusWaiting
}

// IsTerminalStatus is the console's notion of "done": anything that is not
// Building or Waiting, including the empty status.
func IsTerminalStatus(status string) bool {
	return !IsRunningStatus(status)
}

// Timestamp is the protobuf-style timestamp used by step logs
type Timestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int32 `json:"nanos"`
}

// IsSet reports whether the timestamp carries a non-zero seconds value
func (ts *Timestamp) IsSet() bool {
	return ts != nil && ts.Seconds != 0
}

// Time converts the timestamp to millisecond precision. Nanos are dropped,
// matching the granularity the API reports.
func (ts *Timestamp) Time() time.Time {
	if ts == nil {
		return time.Time{}
	}
	return time.UnixMilli(ts.Seconds * 1000)
}

// Log is the accumulated output of one step
type Log struct {
	ID                   int64      `json:"id"`
	WorkflowNodeRunID    int64      `json:"workflow_node_run_id"`
	WorkflowNodeJobRunID int64      `json:"workflow_node_job_run_id"`
	StepOrder            int        `json:"step_order"`
	Val                  string     `json:"val"`
	Start                *Timestamp `json:"start,omitempty"`
	LastModified         *Timestamp `json:"last_modified,omitempty"`
	Done                 *Timestamp `json:"done,omitempty"`
}

// BuildState is the payload returned by the step log endpoint
type BuildState struct {
	Status   string `json:"status"`
	StepLogs *Log   `json:"step_logs,omitempty"`
}

// Action is a job or step definition. A job's Action lists its steps in Actions.
type Action struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Enabled  bool     `json:"enabled"`
	Optional bool     `json:"optional"`
	Actions  []Action `json:"actions,omitempty"`
}

// DisplayName returns the step name, falling back to its type for unnamed built-ins
func (a Action) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	if a.Type != "" {
		return a.Type
	}
	return fmt.Sprintf("action #%d", a.ID)
}

// Job is a pipeline job definition
type Job struct {
	PipelineActionID int64  `json:"pipeline_action_id"`
	PipelineStageID  int64  `json:"pipeline_stage_id"`
	Enabled          bool   `json:"enabled"`
	Action           Action `json:"action"`
}

// StepStatus is the run status of one step inside a job run
type StepStatus struct {
	StepOrder int       `json:"step_order"`
	Status    string    `json:"status"`
	Start     time.Time `json:"start"`
	Done      time.Time `json:"done"`
}

// ExecutedJob is a job definition with the status of each of its steps
type ExecutedJob struct {
	Job
	StepStatus []StepStatus `json:"step_status,omitempty"`
}

// StepStatusFor returns the status of the step at order, or nil if the step has not reported yet
func (j *ExecutedJob) StepStatusFor(order int) *StepStatus {
	for i := range j.StepStatus {
		if j.StepStatus[i].StepOrder == order {
			s := j.StepStatus[i]
			return &s
		}
	}
	return nil
}

// NodeJobRun is one job execution inside a node run
type NodeJobRun struct {
	ID                int64       `json:"id"`
	WorkflowNodeRunID int64       `json:"workflow_node_run_id"`
	Job               ExecutedJob `json:"job"`
	Status            string      `json:"status"`
	Queued            time.Time   `json:"queued"`
	Start             time.Time   `json:"start"`
	Done              time.Time   `json:"done"`
}

// Stage groups the job runs of a pipeline stage
type Stage struct {
	ID         int64        `json:"id"`
	Name       string       `json:"name"`
	BuildOrder int          `json:"build_order"`
	Status     string       `json:"status"`
	RunJobs    []NodeJobRun `json:"run_jobs,omitempty"`
}

// NodeRun is the execution of one workflow node (a pipeline)
type NodeRun struct {
	ID            int64     `json:"id"`
	WorkflowRunID int64     `json:"workflow_run_id"`
	Number        int64     `json:"num"`
	SubNumber     int64     `json:"subnumber"`
	Status        string    `json:"status"`
	Start         time.Time `json:"start"`
	Done          time.Time `json:"done"`
	Stages        []Stage   `json:"stages,omitempty"`
}

// JobRuns returns all job runs across stages in build order
func (n *NodeRun) JobRuns() []NodeJobRun {
	var runs []NodeJobRun
	for _, s := range n.Stages {
		runs = append(runs, s.RunJobs...)
	}
	return runs
}

// FindJobRun returns the job run with the given id
func (n *NodeRun) FindJobRun(id int64) (*NodeJobRun, bool) {
	for _, s := range n.Stages {
		for i := range s.RunJobs {
			if s.RunJobs[i].ID == id {
				jr := s.RunJobs[i]
				return &jr, true
			}
		}
	}
	return nil, false
}

// StepLogRef identifies the log of one step
type StepLogRef struct {
	ProjectKey   string
	WorkflowName string
	Number       int64
	NodeRunID    int64
	RunJobID     int64
	StepOrder    int
}

// Path returns the API path of the step log endpoint
func (r StepLogRef) Path() string {
	return fmt.Sprintf("project/%s/workflows/%s/runs/%d/nodes/%d/job/%d/step/%d",
		url.PathEscape(r.ProjectKey), url.PathEscape(r.WorkflowName), r.Number, r.NodeRunID, r.RunJobID, r.StepOrder)
}

// String is used in log attributes
func (r StepLogRef) String() string {
	return strings.Join([]string{
		r.ProjectKey, r.WorkflowName, fmt.Sprint(r.Number),
		fmt.Sprint(r.NodeRunID), fmt.Sprint(r.RunJobID), fmt.Sprint(r.StepOrder),
	}, "/")
}

// User is the authenticated CDS user
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Admin    bool   `json:"admin"`
}

// ErrorResponse is the error body returned by the CDS API
type ErrorResponse struct {
	ID      int    `json:"id"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}
