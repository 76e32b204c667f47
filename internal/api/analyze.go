package api

import (
	"context"
	"fmt"

	"github.com/ymghtzz/LMeterX-sub000/pkg/models"
)

// RequestAnalysis asks the backend's AI service to generate a result report
// for one job. The call blocks while the report is produced, so it carries
// the long analysis timeout.
func (c *Client) RequestAnalysis(ctx context.Context, taskID string) (*models.AnalysisReport, error) {
	if err := ValidateTaskID(taskID); err != nil {
		return nil, err
	}

	body := struct {
		TaskID string `json:"task_id"`
	}{TaskID: taskID}

	env, err := c.post(ctx, "/analyze", body, AnalysisTimeout)
	if err != nil {
		return nil, err
	}

	var report models.AnalysisReport
	if err := env.Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode analysis report: %w", err)
	}
	return &report, nil
}

// GetAnalysis fetches a previously generated report.
func (c *Client) GetAnalysis(ctx context.Context, taskID string) (*models.AnalysisReport, error) {
	if err := ValidateTaskID(taskID); err != nil {
		return nil, err
	}

	env, err := c.get(ctx, "/analyze/"+taskID, nil, DefaultTimeout)
	if err != nil {
		return nil, err
	}

	var report models.AnalysisReport
	if err := env.Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode analysis report: %w", err)
	}
	return &report, nil
}
