package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	// StatusPending is never written by the executor, a job without a result is pending.
	StatusPending Status = "PENDING"
	StatusRunning Status = "RUNNING"
	StatusWaiting Status = "WAITING"
	StatusDone    Status = "DONE"
	StatusFailed  Status = "FAILED"
	// StatusTimeout is produced by the waiting side only.
	StatusTimeout Status = "TIMEOUT"
)

// Terminal reports whether the executor has finished with the job.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Result is the executor's answer for a job. Fields other than jobId,
// status and message are kept verbatim in Extra.
type Result struct {
	JobID   string
	Status  Status
	Message string
	Extra   map[string]json.RawMessage
}

var errNotObject = errors.New("result is not a JSON object")

func ParseResult(data []byte) (Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, err
	}
	return r, nil
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return errNotObject
	}

	var out Result
	for key, dst := range map[string]*string{
		"jobId":   &out.JobID,
		"message": &out.Message,
	} {
		if raw, ok := fields[key]; ok {
			if err := json.Unmarshal(raw, dst); err != nil {
				return fmt.Errorf("field %s: %w", key, err)
			}
			delete(fields, key)
		}
	}
	if raw, ok := fields["status"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("field status: %w", err)
		}
		out.Status = Status(s)
		delete(fields, "status")
	}
	if len(fields) > 0 {
		out.Extra = fields
	}
	*r = out
	return nil
}

func (r Result) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(r.Extra)+3)
	for k, v := range r.Extra {
		fields[k] = v
	}
	fields["jobId"] = r.JobID
	fields["status"] = r.Status
	if r.Message != "" {
		fields["message"] = r.Message
	}
	return marshalNoEscape(fields)
}

// Field decodes the executor field name into dst. It reports false when the
// field is absent.
func (r Result) Field(name string, dst any) (bool, error) {
	raw, ok := r.Extra[name]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("field %s: %w", name, err)
	}
	return true, nil
}

// TimeoutResult is returned when no terminal result appeared in time.
func TimeoutResult(jobID string, timeout time.Duration) Result {
	return Result{
		JobID:   jobID,
		Status:  StatusTimeout,
		Message: fmt.Sprintf("Timeout after %s", timeout),
	}
}

type CommandResult struct {
	Index   int               `json:"index"`
	Cmd     string            `json:"cmd"`
	Status  string            `json:"status"` // DONE | FAILED | SKIPPED
	Message string            `json:"message,omitempty"`
	Outputs map[string]string `json:"outputs,omitempty"`
}

type ResultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// Report holds the well known fields an executor writes next to the status.
type Report struct {
	StartedAtUTC   string          `json:"startedAtUtc,omitempty"`
	FinishedAtUTC  string          `json:"finishedAtUtc,omitempty"`
	RunnerVersion  int             `json:"runnerVersion,omitempty"`
	EditorVersion  string          `json:"unityVersion,omitempty"`
	CommandResults []CommandResult `json:"commandResults,omitempty"`
	Error          *ResultError    `json:"error,omitempty"`
	WaitingReason  string          `json:"waitingReason,omitempty"`
}

func (r Result) Report() (Report, error) {
	var rep Report
	if len(r.Extra) == 0 {
		return rep, nil
	}
	raw, err := json.Marshal(r.Extra)
	if err != nil {
		return Report{}, err
	}
	if err := json.Unmarshal(raw, &rep); err != nil {
		return Report{}, fmt.Errorf("decoding report of %s: %w", r.JobID, err)
	}
	return rep, nil
}
