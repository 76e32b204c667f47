package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ymghtzz/LMeterX-sub000/pkg/models"
)

// ListTasksQuery filters and pages the job list.
type ListTasksQuery struct {
	Page     int
	PageSize int
	Status   string
	Search   string
}

// ListTasks fetches a page of benchmark jobs.
func (c *Client) ListTasks(ctx context.Context, q ListTasksQuery) ([]models.BenchmarkJob, *Pagination, error) {
	params := url.Values{}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}

	env, err := c.get(ctx, "/tasks", params, DefaultTimeout)
	if err != nil {
		return nil, nil, err
	}

	var jobs []models.BenchmarkJob
	if err := env.Decode(&jobs); err != nil {
		return nil, nil, fmt.Errorf("failed to decode task list: %w", err)
	}
	return jobs, env.Pagination, nil
}

// GetTask fetches one job by id.
func (c *Client) GetTask(ctx context.Context, taskID string) (*models.BenchmarkJob, error) {
	if err := ValidateTaskID(taskID); err != nil {
		return nil, err
	}

	env, err := c.get(ctx, "/tasks/"+taskID, nil, DefaultTimeout)
	if err != nil {
		return nil, err
	}

	var job models.BenchmarkJob
	if err := env.Decode(&job); err != nil {
		return nil, fmt.Errorf("failed to decode task: %w", err)
	}
	return &job, nil
}

// CreateTask submits a new benchmark job.
func (c *Client) CreateTask(ctx context.Context, job *models.BenchmarkJob) (*models.BenchmarkJob, error) {
	env, err := c.post(ctx, "/tasks", job, DefaultTimeout)
	if err != nil {
		return nil, err
	}

	var created models.BenchmarkJob
	if err := env.Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode created task: %w", err)
	}
	return &created, nil
}

// GetTaskStatus fetches the lightweight status record for one job. This is
// the poll endpoint: it returns only id, status, and updated_at.
func (c *Client) GetTaskStatus(ctx context.Context, taskID string) (*models.JobStatus, error) {
	if err := ValidateTaskID(taskID); err != nil {
		return nil, err
	}

	env, err := c.get(ctx, "/tasks/"+taskID+"/status", nil, DefaultTimeout)
	if err != nil {
		return nil, err
	}

	var status models.JobStatus
	if err := env.Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode task status: %w", err)
	}
	return &status, nil
}

// StopTask requests a cooperative stop. The job transitions through
// "stopping" server-side; the console never deletes jobs.
func (c *Client) StopTask(ctx context.Context, taskID string) error {
	if err := ValidateTaskID(taskID); err != nil {
		return err
	}
	_, err := c.post(ctx, "/tasks/stop/"+taskID, nil, DefaultTimeout)
	return err
}

// TestTargetRequest is a dry-run probe of a configured endpoint.
type TestTargetRequest struct {
	TargetHost   string              `json:"target_host"`
	APIPath      string              `json:"api_path"`
	Model        string              `json:"model"`
	StreamMode   bool                `json:"stream_mode"`
	Headers      []models.Header     `json:"headers,omitempty"`
	Payload      string              `json:"request_payload,omitempty"`
	FieldMapping models.FieldMapping `json:"field_mapping"`
}

// TestTargetResult reports the outcome of a dry run.
type TestTargetResult struct {
	Success      bool   `json:"success"`
	StatusCode   int    `json:"status_code"`
	Response     string `json:"response,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	LatencyMs    int64  `json:"latency_ms"`
}

// TestTarget asks the backend to issue a single probe request against the
// configured endpoint without scheduling a job.
func (c *Client) TestTarget(ctx context.Context, req *TestTargetRequest) (*TestTargetResult, error) {
	env, err := c.post(ctx, "/tasks/test", req, ResultsTimeout)
	if err != nil {
		return nil, err
	}

	var result TestTargetResult
	if err := env.Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode test result: %w", err)
	}
	return &result, nil
}
