package models

// Metric type names used by the backend result records.
const (
	MetricTTFT          = "time_to_first_token"
	MetricTotalTPS      = "total_tokens_per_sec"
	MetricCompletionTPS = "completion_tokens_per_sec"
	MetricRequest       = "request"
)

// MetricRecord is one aggregate statistic row for a job, read-only from the
// console's point of view.
type MetricRecord struct {
	TaskID     string `json:"task_id"`
	MetricType string `json:"metric_type"`

	AvgLatency float64 `json:"avg_latency"`
	MinLatency float64 `json:"min_latency"`
	MaxLatency float64 `json:"max_latency"`
	P90Latency float64 `json:"p90_latency"`

	RequestCount int     `json:"request_count"`
	FailureCount int     `json:"failure_count"`
	RPS          float64 `json:"rps"`

	AvgContentLength float64 `json:"avg_content_length,omitempty"`
	CompletionTPS    float64 `json:"completion_tps,omitempty"`
	TotalTPS         float64 `json:"total_tps,omitempty"`
}

// AnalysisReport is an AI-generated summary of a job's results.
type AnalysisReport struct {
	TaskID    string `json:"task_id"`
	Status    string `json:"status"`
	Content   string `json:"analysis_report,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}
