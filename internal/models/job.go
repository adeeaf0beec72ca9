// Package models defines the data structures shared by the docsum client.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// JobStatus is the locally known state of a summarization job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusUnknown   JobStatus = "unknown"
)

// Server-side status strings reported in user_task_status.
const (
	serverStatusPending = "PENDING"
	serverStatusSuccess = "SUCCESS"
	serverStatusFailure = "FAILURE"
)

// ParseJobStatus maps a server status string onto a JobStatus.
// Missing or unrecognised strings map to JobStatusUnknown.
func ParseJobStatus(s string) JobStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case serverStatusPending:
		return JobStatusPending
	case serverStatusSuccess:
		return JobStatusSucceeded
	case serverStatusFailure:
		return JobStatusFailed
	default:
		return JobStatusUnknown
	}
}

// Terminal reports whether no further transition is expected for the status.
func (s JobStatus) Terminal() bool {
	return s != JobStatusPending
}

// JobID is a server-assigned job identifier. The server may encode it as a
// JSON string or a JSON number; both decode to the same textual form.
type JobID string

// UnmarshalJSON accepts both string and numeric identifiers.
func (id *JobID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = JobID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("job id must be a string or number: %w", err)
	}
	*id = JobID(n.String())
	return nil
}

// String returns the identifier text.
func (id JobID) String() string {
	return string(id)
}

// Job represents one summarization request and its lifecycle state.
type Job struct {
	ID     JobID     `json:"id"`
	Status JobStatus `json:"status"`
	Result *string   `json:"result,omitempty"` // Only set once a succeeded job's result is fetched
}

// OrderJobs returns a new slice with every succeeded job ahead of all others,
// preserving relative order inside both partitions.
func OrderJobs(jobs []Job) []Job {
	ordered := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Status == JobStatusSucceeded {
			ordered = append(ordered, j)
		}
	}
	for _, j := range jobs {
		if j.Status != JobStatusSucceeded {
			ordered = append(ordered, j)
		}
	}
	return ordered
}
