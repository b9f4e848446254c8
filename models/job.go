package models

import (
	"time"
)

// State is the workflow state of a single analysis run.
type State string

const (
	StateIdle         State = "idle"
	StateUploading    State = "uploading"
	StateWaitingReady State = "waiting_ready"
	StateGenerating   State = "generating"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

type Job struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	MediaType string    `json:"media_type"`
	Prompt    string    `json:"prompt"`
	Model     string    `json:"model"`
	State     State     `json:"state"`
	AssetName string    `json:"asset_name,omitempty"`
	AssetURI  string    `json:"asset_uri,omitempty"`
	Result    string    `json:"result,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j *Job) IsDone() bool   { return j.State == StateDone }
func (j *Job) IsFailed() bool { return j.State == StateFailed }

// IsStale reports whether a non-terminal job has not been updated within
// timeout, e.g. because the process restarted mid-run.
func (j *Job) IsStale(timeout time.Duration) bool {
	if j.State.IsTerminal() {
		return false
	}
	return time.Since(j.UpdatedAt) > timeout
}

// JobResponse is the API view of a job.
type JobResponse struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	State     State  `json:"state"`
	Result    string `json:"result,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Message   string `json:"message,omitempty"`
	Model     string `json:"model"`
}

func NewJobResponse(j *Job) *JobResponse {
	return &JobResponse{
		ID:        j.ID,
		Filename:  j.Filename,
		State:     j.State,
		Result:    j.Result,
		ErrorKind: j.ErrorKind,
		Message:   j.Message,
		Model:     j.Model,
	}
}
