package models

import (
	"strings"
	"time"
)

// Job status values as reported by the backend.
const (
	StatusCreated   = "created"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusStopping  = "stopping"
	StatusStopped   = "stopped"
	StatusLocked    = "locked"
	StatusFailed    = "failed"
)

// terminalStatuses are the states a job never leaves. The backend reports
// some of them in upper case (legacy engine states), so matching is done
// case-insensitively via IsTerminalStatus.
var terminalStatuses = map[string]bool{
	"completed": true,
	"failed":    true,
	"stopped":   true,
	"cancelled": true,
	"error":     true,
}

// IsTerminalStatus reports whether a job status is final.
func IsTerminalStatus(status string) bool {
	return terminalStatuses[strings.ToLower(status)]
}

// FieldMapping describes where, in an arbitrary JSON response shape, the
// backend should look for streamed content. Each field is a dot-separated
// path (e.g. "choices.0.delta.content").
type FieldMapping struct {
	Prompt           string `json:"prompt,omitempty"`
	Content          string `json:"content"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
	StopFlag         string `json:"stop_flag"`
	StopValue        string `json:"end_condition,omitempty"`
	StreamPrefix     string `json:"data_format,omitempty"`
}

// CertConfig carries the client certificate selection for https targets.
type CertConfig struct {
	CertType string `json:"cert_type,omitempty"` // "combined" or "separate"
	CertFile string `json:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty"`
}

// BenchmarkJob mirrors the backend task resource. Jobs are created through
// the console, mutated server-side as their status transitions, and never
// deleted from the console (only stopped).
type BenchmarkJob struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TargetHost string `json:"target_host"`
	APIPath    string `json:"api_path"`
	Model      string `json:"model"`

	// Request shape
	RequestPayload string       `json:"request_payload,omitempty"`
	StreamMode     bool         `json:"stream_mode"`
	Headers        []Header     `json:"headers,omitempty"`
	FieldMapping   FieldMapping `json:"field_mapping"`

	// Load shape
	DurationSeconds int `json:"duration"`
	ConcurrentUsers int `json:"concurrent_users"`
	SpawnRate       int `json:"spawn_rate"`

	// Dataset
	ChatType      int        `json:"chat_type"` // 0 = builtin prompts, 1 = custom dataset
	DatasetSource string     `json:"test_data,omitempty"`
	CertConfig    CertConfig `json:"cert_config,omitempty"`

	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Header is a single custom request header sent to the target API.
type Header struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	FixedKey bool   `json:"fixed_key,omitempty"`
}

// IsTerminal reports whether the job has reached a final status.
func (j *BenchmarkJob) IsTerminal() bool {
	return IsTerminalStatus(j.Status)
}

// JobStatus is the lightweight payload returned by GET /tasks/:id/status.
type JobStatus struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}
