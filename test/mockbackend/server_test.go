package mockbackend

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymghtzz/LMeterX-sub000/internal/api"
	"github.com/ymghtzz/LMeterX-sub000/pkg/models"
)

func newTestBackend(t *testing.T) (*api.Client, *Server) {
	t.Helper()
	server := NewServer(nil)
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return api.New(ts.URL), server
}

func TestServer_Health(t *testing.T) {
	client, _ := newTestBackend(t)
	assert.NoError(t, client.Health(context.Background()))
}

func TestServer_ListSeededTasks(t *testing.T) {
	client, _ := newTestBackend(t)

	jobs, pagination, err := client.ListTasks(context.Background(), api.ListTasksQuery{})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	require.NotNil(t, pagination)
	assert.Equal(t, 2, pagination.Total)

	running, _, err := client.ListTasks(context.Background(), api.ListTasksQuery{Status: "running"})
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, "seed-running", running[0].ID)
}

func TestServer_CreateStopLifecycle(t *testing.T) {
	client, server := newTestBackend(t)
	ctx := context.Background()

	created, err := client.CreateTask(ctx, &models.BenchmarkJob{
		Name:            "new job",
		TargetHost:      "https://api.example.com",
		APIPath:         "/v1/chat/completions",
		Model:           "gpt-4",
		DurationSeconds: 60,
		ConcurrentUsers: 4,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.StatusCreated, created.Status)
	assert.Equal(t, 4, created.SpawnRate, "backend syncs unset spawn rate")

	status, err := client.GetTaskStatus(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCreated, status.Status)

	// Stop a created job: immediate stop.
	require.NoError(t, client.StopTask(ctx, created.ID))
	status, err = client.GetTaskStatus(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusStopped, status.Status)

	// Stop a running job: transitions through stopping.
	require.NoError(t, client.StopTask(ctx, "seed-running"))
	status, err = client.GetTaskStatus(ctx, "seed-running")
	require.NoError(t, err)
	assert.Equal(t, models.StatusStopping, status.Status)

	server.State().SetJobStatus("seed-running", models.StatusStopped)
	status, err = client.GetTaskStatus(ctx, "seed-running")
	require.NoError(t, err)
	assert.True(t, models.IsTerminalStatus(status.Status))
}

func TestServer_UnknownTaskIs404(t *testing.T) {
	client, _ := newTestBackend(t)
	_, err := client.GetTask(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
}

func TestServer_LogNotModifiedCycle(t *testing.T) {
	client, server := newTestBackend(t)
	ctx := context.Background()

	chunk, err := client.TaskLogs(ctx, "seed-running", api.LogQuery{})
	require.NoError(t, err)
	assert.Contains(t, chunk.Content, "spawning 50 users")
	require.Positive(t, chunk.Offset)

	// Nothing new: the 304 is coerced into an empty chunk at the same offset.
	again, err := client.TaskLogs(ctx, "seed-running", api.LogQuery{Offset: chunk.Offset})
	require.NoError(t, err)
	assert.Empty(t, again.Content)
	assert.Equal(t, chunk.Offset, again.Offset)

	// New content: only the delta comes back.
	server.State().AppendLog("task/seed-running", "INFO halfway\n")
	delta, err := client.TaskLogs(ctx, "seed-running", api.LogQuery{Offset: chunk.Offset})
	require.NoError(t, err)
	assert.Equal(t, "INFO halfway\n", delta.Content)
	assert.Greater(t, delta.Offset, chunk.Offset)
}

func TestServer_ServiceLogsWithTail(t *testing.T) {
	client, server := newTestBackend(t)
	ctx := context.Background()

	server.State().AppendLog("service/backend", "INFO third line\nINFO fourth line\n")

	chunk, err := client.ServiceLogs(ctx, "backend", api.LogQuery{Tail: 2})
	require.NoError(t, err)
	assert.Contains(t, chunk.Content, "third line")
	assert.Contains(t, chunk.Content, "fourth line")
	assert.NotContains(t, chunk.Content, "backend started", "tail trims older lines")

	_, err = client.ServiceLogs(ctx, "ghost", api.LogQuery{})
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
}

func TestServer_ResultsAndComparison(t *testing.T) {
	client, _ := newTestBackend(t)
	ctx := context.Background()

	records, err := client.TaskResults(ctx, "seed-completed")
	require.NoError(t, err)
	assert.NotEmpty(t, records)

	all, err := client.ListResults(ctx, "gpt-4")
	require.NoError(t, err)
	assert.NotEmpty(t, all)

	none, err := client.ListResults(ctx, "unknown-model")
	require.NoError(t, err)
	assert.Empty(t, none)

	candidates, err := client.ComparisonAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "seed-completed", candidates[0].TaskID)

	selection := models.NewComparisonSelection()
	selection.Add("seed-completed")
	selection.Add("seed-completed")
	rows, err := client.Compare(ctx, selection)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "gpt-4", rows[0].Model)
	assert.NotEmpty(t, rows[0].Metrics)
}

func TestServer_Analyze(t *testing.T) {
	client, _ := newTestBackend(t)
	ctx := context.Background()

	_, err := client.GetAnalysis(ctx, "seed-completed")
	require.Error(t, err, "no report generated yet")

	report, err := client.RequestAnalysis(ctx, "seed-completed")
	require.NoError(t, err)
	assert.Equal(t, "seed-completed", report.TaskID)
	assert.NotEmpty(t, report.Content)

	fetched, err := client.GetAnalysis(ctx, "seed-completed")
	require.NoError(t, err)
	assert.Equal(t, report.Content, fetched.Content)

	_, err = client.RequestAnalysis(ctx, "seed-running")
	require.Error(t, err, "running job has no results to analyze")
}

func TestServer_SystemConfig(t *testing.T) {
	client, _ := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, client.CreateSystemConfig(ctx, api.ConfigEntry{Key: "retention_days", Value: "30"}))
	assert.Error(t, client.CreateSystemConfig(ctx, api.ConfigEntry{Key: "retention_days", Value: "60"}),
		"duplicate create is rejected")
	require.NoError(t, client.UpdateSystemConfig(ctx, api.ConfigEntry{Key: "retention_days", Value: "60"}))

	require.NoError(t, client.BatchSetSystemConfig(ctx, []api.ConfigEntry{
		{Key: "a", Value: "1"},
		{Key: "b", Value: "2"},
	}))

	entries, err := client.ListSystemConfig(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	require.NoError(t, client.DeleteSystemConfig(ctx, "a"))
	entries, err = client.ListSystemConfig(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	aiCfg, err := client.GetAIServiceConfig(ctx)
	require.NoError(t, err)
	assert.False(t, aiCfg.Enabled)

	require.NoError(t, client.SetAIServiceConfig(ctx, api.AIServiceConfig{
		Endpoint: "https://llm.internal",
		Model:    "qwen-max",
		Enabled:  true,
	}))
	aiCfg, err = client.GetAIServiceConfig(ctx)
	require.NoError(t, err)
	assert.True(t, aiCfg.Enabled)
	assert.Equal(t, "qwen-max", aiCfg.Model)
}

func TestServer_Upload(t *testing.T) {
	client, server := newTestBackend(t)
	ctx := context.Background()

	result, err := client.Upload(ctx, &api.UploadRequest{
		FileType: api.FileTypeDataset,
		TaskID:   "seed-running",
		Filename: "prompts.jsonl",
		Content:  []byte(`{"prompt":"hello"}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.FileID)
	assert.Contains(t, result.Path, "prompts.jsonl")

	uploads := server.State().Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, api.FileTypeDataset, uploads[0].FileType)
	assert.Equal(t, len(`{"prompt":"hello"}`), uploads[0].Size)
}
