// Package mockbackend is an in-memory LMeterX backend used by tests and
// local development. It implements the REST surface the console consumes,
// including the 304 not-modified protocol on log endpoints.
package mockbackend

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ymghtzz/LMeterX-sub000/pkg/models"
)

// ConfigEntry mirrors the backend's system configuration rows.
type ConfigEntry struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// AIServiceConfig mirrors the backend's report-service settings.
type AIServiceConfig struct {
	Endpoint string `json:"endpoint"`
	Model    string `json:"model"`
	APIKey   string `json:"api_key,omitempty"`
	Enabled  bool   `json:"enabled"`
}

// UploadedFile records one stored upload.
type UploadedFile struct {
	FileID   string `json:"file_id"`
	Path     string `json:"path"`
	FileType string `json:"-"`
	TaskID   string `json:"-"`
	Size     int    `json:"-"`
}

// State holds all mock backend data. Safe for concurrent use.
type State struct {
	mu sync.Mutex

	jobs     map[string]*models.BenchmarkJob
	jobOrder []string

	logs map[string]string // key: "task/<id>" or "service/<name>"

	results map[string][]models.MetricRecord
	reports map[string]*models.AnalysisReport

	config   map[string]ConfigEntry
	aiConfig AIServiceConfig

	uploads []UploadedFile
}

// NewState creates a state pre-seeded with a completed and a running job so
// list, results, and log views have something to show immediately.
func NewState() *State {
	s := &State{
		jobs:    make(map[string]*models.BenchmarkJob),
		logs:    make(map[string]string),
		results: make(map[string][]models.MetricRecord),
		reports: make(map[string]*models.AnalysisReport),
		config:  make(map[string]ConfigEntry),
		aiConfig: AIServiceConfig{
			Endpoint: "https://api.openai.com/v1",
			Model:    "gpt-4o",
			Enabled:  false,
		},
	}
	s.seed()
	return s
}

func (s *State) seed() {
	done := &models.BenchmarkJob{
		ID:              "seed-completed",
		Name:            "baseline gpt-4",
		TargetHost:      "https://api.example.com",
		APIPath:         "/v1/chat/completions",
		Model:           "gpt-4",
		StreamMode:      true,
		DurationSeconds: 300,
		ConcurrentUsers: 10,
		SpawnRate:       10,
		Status:          models.StatusCompleted,
		CreatedAt:       time.Now().Add(-2 * time.Hour),
	}
	running := &models.BenchmarkJob{
		ID:              "seed-running",
		Name:            "llama soak",
		TargetHost:      "https://llama.example.com",
		APIPath:         "/v1/chat/completions",
		Model:           "llama-3-70b",
		StreamMode:      true,
		DurationSeconds: 3600,
		ConcurrentUsers: 50,
		SpawnRate:       50,
		Status:          models.StatusRunning,
		CreatedAt:       time.Now().Add(-10 * time.Minute),
	}
	s.jobs[done.ID] = done
	s.jobs[running.ID] = running
	s.jobOrder = []string{done.ID, running.ID}

	s.results[done.ID] = seedMetrics(done.ID)

	s.logs["task/"+running.ID] = "INFO spawning 50 users\nINFO ramp complete\n"
	s.logs["service/backend"] = "INFO backend started\nINFO listening on :5000\n"
	s.logs["service/engine"] = "INFO engine worker pool ready\n"
}

func seedMetrics(taskID string) []models.MetricRecord {
	return []models.MetricRecord{
		{
			TaskID:     taskID,
			MetricType: models.MetricTTFT,
			AvgLatency: 412.5, MinLatency: 180.0, MaxLatency: 1900.0, P90Latency: 700.0,
			RequestCount: 2400, FailureCount: 3, RPS: 8.0,
		},
		{
			TaskID:     taskID,
			MetricType: models.MetricRequest,
			AvgLatency: 2210.0, MinLatency: 950.0, MaxLatency: 8800.0, P90Latency: 4100.0,
			RequestCount: 2400, FailureCount: 3, RPS: 8.0,
			CompletionTPS: 310.4, TotalTPS: 655.2,
		},
	}
}

// Reset restores the freshly seeded state.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make(map[string]*models.BenchmarkJob)
	s.jobOrder = nil
	s.logs = make(map[string]string)
	s.results = make(map[string][]models.MetricRecord)
	s.reports = make(map[string]*models.AnalysisReport)
	s.config = make(map[string]ConfigEntry)
	s.uploads = nil
	s.seed()
}

// CreateJob stores a new job with a generated id and created status.
func (s *State) CreateJob(job models.BenchmarkJob) *models.BenchmarkJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	job.ID = uuid.NewString()
	job.Status = models.StatusCreated
	job.CreatedAt = time.Now()
	if job.SpawnRate == 0 {
		job.SpawnRate = job.ConcurrentUsers
	}

	s.jobs[job.ID] = &job
	s.jobOrder = append(s.jobOrder, job.ID)
	s.logs["task/"+job.ID] = fmt.Sprintf("INFO task %s created\n", job.ID)
	return &job
}

// GetJob returns a copy of one job.
func (s *State) GetJob(id string) (*models.BenchmarkJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	copied := *job
	return &copied, true
}

// ListJobs filters and pages the job list, newest first.
func (s *State) ListJobs(page, pageSize int, status, search string) ([]models.BenchmarkJob, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.BenchmarkJob
	for i := len(s.jobOrder) - 1; i >= 0; i-- {
		job := s.jobs[s.jobOrder[i]]
		if status != "" && !strings.EqualFold(job.Status, status) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(job.Name), strings.ToLower(search)) {
			continue
		}
		matched = append(matched, *job)
	}

	total := len(matched)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total
}

// SetJobStatus overrides a job's status, a test control hook.
func (s *State) SetJobStatus(id, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	job.Status = status
	if models.IsTerminalStatus(status) {
		if _, seeded := s.results[id]; !seeded && status == models.StatusCompleted {
			s.results[id] = seedMetrics(id)
		}
	}
	return true
}

// StopJob requests a cooperative stop. Created jobs stop immediately;
// running jobs transition through stopping.
func (s *State) StopJob(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return "", false
	}
	switch job.Status {
	case models.StatusCreated, models.StatusLocked:
		job.Status = models.StatusStopped
	case models.StatusRunning:
		job.Status = models.StatusStopping
	}
	return job.Status, true
}

// AppendLog adds content to a log stream, creating it if needed.
func (s *State) AppendLog(key, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[key] += content
}

// ReadLog returns the content at and past offset. unchanged reports that the
// caller's offset is already current, the 304 case. Missing streams return
// ok=false.
func (s *State) ReadLog(key string, offset int64, tail int) (content string, newOffset int64, unchanged, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	full, exists := s.logs[key]
	if !exists {
		return "", 0, false, false
	}
	size := int64(len(full))

	if offset > 0 && offset >= size {
		return "", size, true, true
	}
	if offset < 0 {
		offset = 0
	}

	window := full[offset:]
	if offset == 0 && tail > 0 {
		window = lastLines(window, tail)
	}
	return window, size, false, true
}

// lastLines returns the final n lines of content.
func lastLines(content string, n int) string {
	trimmed := strings.TrimSuffix(content, "\n")
	if trimmed == "" {
		return content
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) <= n {
		return content
	}
	return strings.Join(lines[len(lines)-n:], "\n") + "\n"
}

// Results returns the metric records for one job.
func (s *State) Results(taskID string) ([]models.MetricRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.results[taskID]
	return append([]models.MetricRecord(nil), records...), ok
}

// AllResults returns every metric record, optionally filtered by model.
func (s *State) AllResults(model string) []models.MetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.MetricRecord
	for _, id := range s.jobOrder {
		if model != "" {
			job := s.jobs[id]
			if !strings.EqualFold(job.Model, model) {
				continue
			}
		}
		out = append(out, s.results[id]...)
	}
	return out
}

// ComparisonCandidates lists completed jobs that have results.
func (s *State) ComparisonCandidates() []models.ComparisonCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.ComparisonCandidate
	for _, id := range s.jobOrder {
		job := s.jobs[id]
		if job.Status != models.StatusCompleted {
			continue
		}
		if _, ok := s.results[id]; !ok {
			continue
		}
		out = append(out, models.ComparisonCandidate{
			TaskID:    job.ID,
			Name:      job.Name,
			Model:     job.Model,
			CreatedAt: job.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

// Comparison builds side-by-side rows for the selected jobs. Unknown ids
// yield an error naming the first missing one.
func (s *State) Comparison(taskIDs []string) ([]models.ComparisonRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]models.ComparisonRow, 0, len(taskIDs))
	for _, id := range taskIDs {
		job, ok := s.jobs[id]
		if !ok {
			return nil, fmt.Errorf("unknown task %s", id)
		}
		rows = append(rows, models.ComparisonRow{
			TaskID:  job.ID,
			Name:    job.Name,
			Model:   job.Model,
			Metrics: s.results[id],
		})
	}
	return rows, nil
}

// GenerateReport produces a canned analysis report for a job with results.
func (s *State) GenerateReport(taskID string) (*models.AnalysisReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[taskID]; !ok {
		return nil, fmt.Errorf("unknown task %s", taskID)
	}
	if _, ok := s.results[taskID]; !ok {
		return nil, fmt.Errorf("task %s has no results to analyze", taskID)
	}

	report := &models.AnalysisReport{
		TaskID:    taskID,
		Status:    "completed",
		Content:   fmt.Sprintf("## Performance Summary\n\nTask %s sustained its configured load with p90 latency within budget.", taskID),
		CreatedAt: time.Now().Format(time.RFC3339),
	}
	s.reports[taskID] = report
	return report, nil
}

// Report returns a previously generated report.
func (s *State) Report(taskID string) (*models.AnalysisReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[taskID]
	return report, ok
}

// ConfigEntries returns all configuration rows in unspecified order.
func (s *State) ConfigEntries() []ConfigEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ConfigEntry, 0, len(s.config))
	for _, entry := range s.config {
		out = append(out, entry)
	}
	return out
}

// PutConfig stores a configuration entry. create enforces uniqueness;
// update requires existence.
func (s *State) PutConfig(entry ConfigEntry, create bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.config[entry.Key]
	if create && exists {
		return fmt.Errorf("config key %s already exists", entry.Key)
	}
	if !create && !exists {
		return fmt.Errorf("config key %s not found", entry.Key)
	}
	s.config[entry.Key] = entry
	return nil
}

// BatchPutConfig upserts several entries at once.
func (s *State) BatchPutConfig(entries []ConfigEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		s.config[entry.Key] = entry
	}
}

// DeleteConfig removes an entry by key.
func (s *State) DeleteConfig(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.config[key]; !ok {
		return false
	}
	delete(s.config, key)
	return true
}

// AIConfig returns the report-service settings.
func (s *State) AIConfig() AIServiceConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aiConfig
}

// SetAIConfig replaces the report-service settings.
func (s *State) SetAIConfig(cfg AIServiceConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aiConfig = cfg
}

// StoreUpload records an uploaded file and returns its descriptor.
func (s *State) StoreUpload(fileType, taskID, filename string, size int) UploadedFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	file := UploadedFile{
		FileID:   uuid.NewString(),
		Path:     fmt.Sprintf("/data/uploads/%s/%s", taskID, filename),
		FileType: fileType,
		TaskID:   taskID,
		Size:     size,
	}
	s.uploads = append(s.uploads, file)
	return file
}

// Uploads returns all stored uploads, a test inspection hook.
func (s *State) Uploads() []UploadedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]UploadedFile(nil), s.uploads...)
}
