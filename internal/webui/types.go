package webui

import (
	"hdrconv/internal/history"
	"hdrconv/internal/jobs"
)

// JobResponse wraps a single job.
type JobResponse struct {
	Job jobs.Job `json:"job"`
}

// JobListResponse lists jobs newest first.
type JobListResponse struct {
	Jobs []jobs.Job `json:"jobs"`
}

// ToolStatus reports availability of an external binary.
type ToolStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// StatusResponse is returned by /api/status.
type StatusResponse struct {
	Ready               bool         `json:"ready"`
	ActiveJobs          int          `json:"active_jobs"`
	SupportedExtensions []string     `json:"supported_extensions"`
	MaxUploadBytes      int64        `json:"max_upload_bytes"`
	Tools               []ToolStatus `json:"tools"`
}

// HistoryResponse lists finished conversions newest first.
type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
}
