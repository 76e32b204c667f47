package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ymghtzz/LMeterX-sub000/pkg/models"
)

// ListResults fetches metric records across jobs, optionally filtered by
// model name.
func (c *Client) ListResults(ctx context.Context, model string) ([]models.MetricRecord, error) {
	params := url.Values{}
	if model != "" {
		params.Set("model", model)
	}

	env, err := c.get(ctx, "/results", params, ResultsTimeout)
	if err != nil {
		return nil, err
	}

	var records []models.MetricRecord
	if err := env.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	return records, nil
}

// TaskResults fetches the metric records for one job.
func (c *Client) TaskResults(ctx context.Context, taskID string) ([]models.MetricRecord, error) {
	if err := ValidateTaskID(taskID); err != nil {
		return nil, err
	}

	env, err := c.get(ctx, "/tasks/"+taskID+"/results", nil, ResultsTimeout)
	if err != nil {
		return nil, err
	}

	var records []models.MetricRecord
	if err := env.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode task results: %w", err)
	}
	return records, nil
}

// ComparisonAvailable lists the completed jobs eligible for side-by-side
// comparison.
func (c *Client) ComparisonAvailable(ctx context.Context) ([]models.ComparisonCandidate, error) {
	env, err := c.get(ctx, "/tasks/comparison/available", nil, DefaultTimeout)
	if err != nil {
		return nil, err
	}

	var candidates []models.ComparisonCandidate
	if err := env.Decode(&candidates); err != nil {
		return nil, fmt.Errorf("failed to decode comparison candidates: %w", err)
	}
	return candidates, nil
}

// Compare fetches side-by-side metrics for the selected jobs.
func (c *Client) Compare(ctx context.Context, selection *models.ComparisonSelection) ([]models.ComparisonRow, error) {
	if selection == nil || selection.Len() == 0 {
		return nil, fmt.Errorf("%w: empty comparison selection", ErrRequestSetup)
	}
	for _, id := range selection.IDs() {
		if err := ValidateTaskID(id); err != nil {
			return nil, err
		}
	}

	body := struct {
		TaskIDs []string `json:"task_ids"`
	}{TaskIDs: selection.IDs()}

	env, err := c.post(ctx, "/tasks/comparison", body, ResultsTimeout)
	if err != nil {
		return nil, err
	}

	var rows []models.ComparisonRow
	if err := env.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode comparison: %w", err)
	}
	return rows, nil
}
